package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yshimura/magfeed/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// commentColumns はコメント本体のSELECT列。スキャン順はscanCommentと対応する。
const commentColumns = `c.id, c.paper_id, c.parent_id, c.author_id, u.nickname, u.avatar_url,
	       c.body, c.like_count, c.reply_count, c.created_at`

// scanComment はコメント本体の列をスキャンする。
func scanComment(row rowScanner, c *model.Comment, extra ...any) error {
	var parentID, authorAvatar sql.NullString
	dest := []any{
		&c.ID, &c.PaperID, &parentID, &c.Author.ID, &c.Author.Name, &authorAvatar,
		&c.Body, &c.LikeCount, &c.ReplyCount, &c.CreatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	c.ParentID = nullStringValue(parentID)
	c.Author.AvatarURL = nullStringValue(authorAvatar)
	return nil
}

// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	comment := &model.Comment{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+`
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.id = $1`,
		id,
	)
	err := scanComment(row, comment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	return comment, nil
}

// listComments は共通のコメント一覧クエリを実行する。
func (r *PostgresCommentRepo) listComments(ctx context.Context, query string, args ...any) ([]model.CommentWithViewerState, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var comments []model.CommentWithViewerState
	for rows.Next() {
		var cws model.CommentWithViewerState
		if err := scanComment(rows, &cws.Comment, &cws.IsLiked); err != nil {
			return nil, fmt.Errorf("コメント行の読み取りに失敗しました: %w", err)
		}
		comments = append(comments, cws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメント一覧の走査に失敗しました: %w", err)
	}

	return comments, nil
}

// ListByPaper はペーパー直下のコメント（返信を除く）を閲覧者状態付きで取得する。
// created_at降順。
func (r *PostgresCommentRepo) ListByPaper(ctx context.Context, viewerID, paperID string, offset, limit int) ([]model.CommentWithViewerState, error) {
	return r.listComments(ctx,
		`SELECT `+commentColumns+`,
		        EXISTS (SELECT 1 FROM comment_likes cl WHERE cl.comment_id = c.id AND cl.user_id = $1) AS is_liked
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.paper_id = $2 AND c.parent_id IS NULL
		 ORDER BY c.created_at DESC
		 OFFSET $3 LIMIT $4`,
		viewerID, paperID, offset, limit,
	)
}

// ListReplies は指定コメントへの返信をcreated_at昇順で取得する。
func (r *PostgresCommentRepo) ListReplies(ctx context.Context, viewerID, parentID string, offset, limit int) ([]model.CommentWithViewerState, error) {
	return r.listComments(ctx,
		`SELECT `+commentColumns+`,
		        EXISTS (SELECT 1 FROM comment_likes cl WHERE cl.comment_id = c.id AND cl.user_id = $1) AS is_liked
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.parent_id = $2
		 ORDER BY c.created_at ASC
		 OFFSET $3 LIMIT $4`,
		viewerID, parentID, offset, limit,
	)
}

// Create はコメントを作成する。
// papers.comment_countと、返信の場合は親のreply_countを同一トランザクションで加算する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comments (id, paper_id, parent_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.PaperID, nullString(comment.ParentID),
		comment.Author.ID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE papers SET comment_count = comment_count + 1, updated_at = now() WHERE id = $1`,
		comment.PaperID,
	)
	if err != nil {
		return fmt.Errorf("コメント数の更新に失敗しました: %w", err)
	}

	if comment.ParentID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE comments SET reply_count = reply_count + 1 WHERE id = $1`,
			comment.ParentID,
		)
		if err != nil {
			return fmt.Errorf("返信数の更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// SetLike はコメントのいいね状態を冪等に設定する。
func (r *PostgresCommentRepo) SetLike(ctx context.Context, userID, commentID string, liked bool) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	if liked {
		result, err = tx.ExecContext(ctx,
			`INSERT INTO comment_likes (user_id, comment_id, created_at) VALUES ($1, $2, now())
			 ON CONFLICT DO NOTHING`,
			userID, commentID,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`DELETE FROM comment_likes WHERE user_id = $1 AND comment_id = $2`,
			userID, commentID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("コメントいいねの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return false, tx.Commit()
	}

	delta := "+ 1"
	if !liked {
		delta = "- 1"
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE comments SET like_count = GREATEST(like_count `+delta+`, 0) WHERE id = $1`,
		commentID,
	)
	if err != nil {
		return false, fmt.Errorf("いいね数の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return true, nil
}

// Delete は指定IDのコメントを削除し、関連カウンタを減算する。
// 返信はCASCADE削除されるため、comment_countは返信数も含めて減算する。
func (r *PostgresCommentRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var paperID, parentID string
	var replyCount int
	var parentNull sql.NullString
	err = tx.QueryRowContext(ctx,
		`DELETE FROM comments WHERE id = $1 RETURNING paper_id, parent_id, reply_count`,
		id,
	).Scan(&paperID, &parentNull, &replyCount)
	if err == sql.ErrNoRows {
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	parentID = nullStringValue(parentNull)

	removed := 1 + replyCount
	_, err = tx.ExecContext(ctx,
		`UPDATE papers SET comment_count = GREATEST(comment_count - $2, 0), updated_at = now() WHERE id = $1`,
		paperID, removed,
	)
	if err != nil {
		return fmt.Errorf("コメント数の更新に失敗しました: %w", err)
	}

	if parentID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE comments SET reply_count = GREATEST(reply_count - 1, 0) WHERE id = $1`,
			parentID,
		)
		if err != nil {
			return fmt.Errorf("返信数の更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
