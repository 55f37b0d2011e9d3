package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yshimura/magfeed/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var avatarURL, signature sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, nickname, avatar_url, signature, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Nickname,
		&avatarURL, &signature, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	user.AvatarURL = nullStringValue(avatarURL)
	user.Signature = nullStringValue(signature)
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	var avatarURL, signature sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, nickname, avatar_url, signature, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Nickname,
		&avatarURL, &signature, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}

	user.AvatarURL = nullStringValue(avatarURL)
	user.Signature = nullStringValue(signature)
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, nickname, avatar_url, signature, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash, user.Nickname,
		nullString(user.AvatarURL), nullString(user.Signature),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateProfile はニックネーム・アバター・署名を更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, nickname, avatarURL, signature string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET nickname = $2, avatar_url = $3, signature = $4, updated_at = now()
		 WHERE id = $1`,
		id, nickname, nullString(avatarURL), nullString(signature),
	)
	if err != nil {
		return fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	return nil
}

// ProfileByID はユーザーの公開プロフィールを集計付きで取得する。
// ペーパー数は公開済みのみをカウントする。viewerIDが空の場合はIsFollowed=false。
func (r *PostgresUserRepo) ProfileByID(ctx context.Context, viewerID, userID string) (*model.Profile, error) {
	profile := &model.Profile{}
	var avatarURL, signature sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.nickname, u.avatar_url, u.signature,
		        (SELECT COUNT(*) FROM papers p WHERE p.author_id = u.id AND p.status = 'published') AS paper_count,
		        (SELECT COUNT(*) FROM follows f WHERE f.followee_id = u.id) AS follower_count,
		        (SELECT COUNT(*) FROM follows f WHERE f.follower_id = u.id) AS following_count,
		        EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = $1 AND f.followee_id = u.id) AS is_followed
		 FROM users u WHERE u.id = $2`,
		viewerID, userID,
	).Scan(&profile.ID, &profile.Nickname, &avatarURL, &signature,
		&profile.PaperCount, &profile.FollowerCount, &profile.FollowingCount,
		&profile.IsFollowed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}

	profile.AvatarURL = nullStringValue(avatarURL)
	profile.Signature = nullStringValue(signature)
	return profile, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連レコードはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
