package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// SetFollow はフォロー状態を冪等に設定する。
// フォロワー数・フォロー数はプロフィール取得時にCOUNTで集計するため、関係行のみを更新する。
func (r *PostgresFollowRepo) SetFollow(ctx context.Context, followerID, followeeID string, following bool) (bool, error) {
	var result sql.Result
	var err error

	if following {
		result, err = r.db.ExecContext(ctx,
			`INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, now())
			 ON CONFLICT DO NOTHING`,
			followerID, followeeID,
		)
	} else {
		result, err = r.db.ExecContext(ctx,
			`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
			followerID, followeeID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("フォロー状態の更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return affected == 1, nil
}

// IsFollowing はフォロー関係の有無を返す。
func (r *PostgresFollowRepo) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var following bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID,
	).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("フォロー関係の取得に失敗しました: %w", err)
	}
	return following, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
