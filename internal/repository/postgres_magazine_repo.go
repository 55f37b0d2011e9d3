package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yshimura/magfeed/internal/model"
)

// PostgresMagazineRepo はPostgreSQLを使用したマガジンリポジトリ。
type PostgresMagazineRepo struct {
	db *sql.DB
}

// NewPostgresMagazineRepo はPostgresMagazineRepoを生成する。
func NewPostgresMagazineRepo(db *sql.DB) *PostgresMagazineRepo {
	return &PostgresMagazineRepo{db: db}
}

// magazineColumns はマガジン本体のSELECT列。スキャン順はscanMagazineと対応する。
const magazineColumns = `m.id, m.author_id, u.nickname, u.avatar_url,
	       m.title, m.description, m.cover_url,
	       m.view_count, m.show_count, m.subscriber_count, m.paper_count, m.editor_count,
	       m.is_public, m.is_recommended, m.created_at, m.updated_at`

// scanMagazine はマガジン本体の列をスキャンする。
func scanMagazine(row rowScanner, m *model.Magazine, extra ...any) error {
	var authorAvatar, description, coverURL sql.NullString
	dest := []any{
		&m.ID, &m.Author.ID, &m.Author.Name, &authorAvatar,
		&m.Title, &description, &coverURL,
		&m.ViewCount, &m.ShowCount, &m.SubscriberCount, &m.PaperCount, &m.EditorCount,
		&m.IsPublic, &m.IsRecommended, &m.CreatedAt, &m.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	m.Author.AvatarURL = nullStringValue(authorAvatar)
	m.Description = nullStringValue(description)
	m.CoverURL = nullStringValue(coverURL)
	return nil
}

// FindByID は指定IDのマガジンを取得する。見つからない場合はnilを返す。
func (r *PostgresMagazineRepo) FindByID(ctx context.Context, id string) (*model.Magazine, error) {
	magazine := &model.Magazine{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+magazineColumns+`
		 FROM magazines m JOIN users u ON u.id = m.author_id
		 WHERE m.id = $1`,
		id,
	)
	err := scanMagazine(row, magazine)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("マガジンの取得に失敗しました: %w", err)
	}
	return magazine, nil
}

// FindWithViewerState は指定IDのマガジンを購読状態付きで取得する。
func (r *PostgresMagazineRepo) FindWithViewerState(ctx context.Context, viewerID, id string) (*model.MagazineWithViewerState, error) {
	mws := &model.MagazineWithViewerState{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+magazineColumns+`,
		        EXISTS (SELECT 1 FROM subscriptions s WHERE s.magazine_id = m.id AND s.user_id = $1) AS is_subscribed
		 FROM magazines m JOIN users u ON u.id = m.author_id
		 WHERE m.id = $2`,
		viewerID, id,
	)
	err := scanMagazine(row, &mws.Magazine, &mws.IsSubscribed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読状態付きマガジンの取得に失敗しました: %w", err)
	}
	return mws, nil
}

// listMagazines は共通のマガジン一覧クエリを実行する。
func (r *PostgresMagazineRepo) listMagazines(ctx context.Context, query string, args ...any) ([]model.MagazineWithViewerState, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("マガジン一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var magazines []model.MagazineWithViewerState
	for rows.Next() {
		var mws model.MagazineWithViewerState
		if err := scanMagazine(rows, &mws.Magazine, &mws.IsSubscribed); err != nil {
			return nil, fmt.Errorf("マガジン行の読み取りに失敗しました: %w", err)
		}
		magazines = append(magazines, mws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マガジン一覧の走査に失敗しました: %w", err)
	}

	return magazines, nil
}

// ListRecommended はおすすめマガジンを購読状態付きで取得する。updated_at降順。
func (r *PostgresMagazineRepo) ListRecommended(ctx context.Context, viewerID string, offset, limit int) ([]model.MagazineWithViewerState, error) {
	return r.listMagazines(ctx,
		`SELECT `+magazineColumns+`,
		        EXISTS (SELECT 1 FROM subscriptions s WHERE s.magazine_id = m.id AND s.user_id = $1) AS is_subscribed
		 FROM magazines m JOIN users u ON u.id = m.author_id
		 WHERE m.is_recommended AND m.is_public
		 ORDER BY m.updated_at DESC
		 OFFSET $2 LIMIT $3`,
		viewerID, offset, limit,
	)
}

// ListSubscribed は閲覧者が購読中のマガジンを購読日時降順で取得する。
func (r *PostgresMagazineRepo) ListSubscribed(ctx context.Context, userID string, offset, limit int) ([]model.MagazineWithViewerState, error) {
	return r.listMagazines(ctx,
		`SELECT `+magazineColumns+`, true AS is_subscribed
		 FROM magazines m
		 JOIN users u ON u.id = m.author_id
		 JOIN subscriptions s ON s.magazine_id = m.id AND s.user_id = $1
		 ORDER BY s.created_at DESC
		 OFFSET $2 LIMIT $3`,
		userID, offset, limit,
	)
}

// ListByAuthor は投稿者のマガジンを購読状態付きで取得する。
// 非公開マガジンは投稿者本人が閲覧者の場合のみ含める。
func (r *PostgresMagazineRepo) ListByAuthor(ctx context.Context, viewerID, authorID string, offset, limit int) ([]model.MagazineWithViewerState, error) {
	return r.listMagazines(ctx,
		`SELECT `+magazineColumns+`,
		        EXISTS (SELECT 1 FROM subscriptions s WHERE s.magazine_id = m.id AND s.user_id = $1) AS is_subscribed
		 FROM magazines m JOIN users u ON u.id = m.author_id
		 WHERE m.author_id = $2 AND (m.is_public OR m.author_id = $1)
		 ORDER BY m.updated_at DESC
		 OFFSET $3 LIMIT $4`,
		viewerID, authorID, offset, limit,
	)
}

// Create はマガジンを作成する。
func (r *PostgresMagazineRepo) Create(ctx context.Context, magazine *model.Magazine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO magazines (id, author_id, title, description, cover_url,
		                        is_public, is_recommended, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		magazine.ID, magazine.Author.ID, magazine.Title,
		nullString(magazine.Description), nullString(magazine.CoverURL),
		magazine.IsPublic, magazine.IsRecommended, magazine.CreatedAt, magazine.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("マガジンの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はタイトル・説明・カバー・公開フラグを更新する。
func (r *PostgresMagazineRepo) Update(ctx context.Context, magazine *model.Magazine) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE magazines SET title = $2, description = $3, cover_url = $4, is_public = $5, updated_at = now()
		 WHERE id = $1`,
		magazine.ID, magazine.Title, nullString(magazine.Description),
		nullString(magazine.CoverURL), magazine.IsPublic,
	)
	if err != nil {
		return fmt.Errorf("マガジンの更新に失敗しました: %w", err)
	}
	return nil
}

// SetSubscribed は購読状態を冪等に設定する。
// subscriptions行とsubscriber_countを同一トランザクションで更新する。
func (r *PostgresMagazineRepo) SetSubscribed(ctx context.Context, userID, magazineID string, subscribed bool) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	if subscribed {
		result, err = tx.ExecContext(ctx,
			`INSERT INTO subscriptions (id, user_id, magazine_id, created_at)
			 VALUES (gen_random_uuid()::text, $1, $2, now())
			 ON CONFLICT (user_id, magazine_id) DO NOTHING`,
			userID, magazineID,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`DELETE FROM subscriptions WHERE user_id = $1 AND magazine_id = $2`,
			userID, magazineID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("購読の更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return false, tx.Commit()
	}

	delta := "+ 1"
	if !subscribed {
		delta = "- 1"
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE magazines SET subscriber_count = GREATEST(subscriber_count `+delta+`, 0) WHERE id = $1`,
		magazineID,
	)
	if err != nil {
		return false, fmt.Errorf("購読者数の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return true, nil
}

// IncrementViewCount は閲覧数を1加算する。
func (r *PostgresMagazineRepo) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE magazines SET view_count = view_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("閲覧数の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ MagazineRepository = (*PostgresMagazineRepo)(nil)
