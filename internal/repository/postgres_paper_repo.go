package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yshimura/magfeed/internal/model"
)

// PostgresPaperRepo はPostgreSQLを使用したペーパーリポジトリ。
type PostgresPaperRepo struct {
	db *sql.DB
}

// NewPostgresPaperRepo はPostgresPaperRepoを生成する。
func NewPostgresPaperRepo(db *sql.DB) *PostgresPaperRepo {
	return &PostgresPaperRepo{db: db}
}

// paperColumns はペーパー本体のSELECT列。スキャン順はscanPaperと対応する。
const paperColumns = `p.id, p.author_id, u.nickname, u.avatar_url,
	       p.title, p.description, p.excerpt, p.poster_url, p.video_url,
	       p.like_count, p.comment_count, p.share_count, p.star_count, p.play_count,
	       p.is_top, p.is_hidden, p.magazine_id, p.status, p.created_at, p.updated_at`

// viewerStateColumns は閲覧者状態のSELECT列。$1に閲覧者IDをバインドする。
const viewerStateColumns = `EXISTS (SELECT 1 FROM paper_likes pl WHERE pl.paper_id = p.id AND pl.user_id = $1) AS is_liked,
	       EXISTS (SELECT 1 FROM paper_stars ps WHERE ps.paper_id = p.id AND ps.user_id = $1) AS is_starred,
	       EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = $1 AND f.followee_id = p.author_id) AS is_followed,
	       m.id, m.title, m.cover_url`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPaper はペーパー本体の列をスキャンする。
func scanPaper(row rowScanner, p *model.Paper, extra ...any) error {
	var authorAvatar, description, excerpt, posterURL, videoURL, magazineID sql.NullString
	dest := []any{
		&p.ID, &p.Author.ID, &p.Author.Name, &authorAvatar,
		&p.Title, &description, &excerpt, &posterURL, &videoURL,
		&p.LikeCount, &p.CommentCount, &p.ShareCount, &p.StarCount, &p.PlayCount,
		&p.IsTop, &p.IsHidden, &magazineID, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	p.Author.AvatarURL = nullStringValue(authorAvatar)
	p.Description = nullStringValue(description)
	p.Excerpt = nullStringValue(excerpt)
	p.PosterURL = nullStringValue(posterURL)
	p.VideoURL = nullStringValue(videoURL)
	p.MagazineID = nullStringValue(magazineID)
	return nil
}

// scanPaperWithViewerState はペーパーと閲覧者状態・マガジンスナップショットをスキャンする。
func scanPaperWithViewerState(row rowScanner, pws *model.PaperWithViewerState) error {
	var magID, magTitle, magCover sql.NullString
	if err := scanPaper(row, &pws.Paper,
		&pws.IsLiked, &pws.IsStarred, &pws.IsFollowed,
		&magID, &magTitle, &magCover,
	); err != nil {
		return err
	}
	if magID.Valid {
		pws.Magazine = &model.MagazineRef{
			ID:       magID.String,
			Title:    magTitle.String,
			CoverURL: nullStringValue(magCover),
		}
	}
	return nil
}

// FindByID は指定IDのペーパーを取得する。見つからない場合はnilを返す。
func (r *PostgresPaperRepo) FindByID(ctx context.Context, id string) (*model.Paper, error) {
	paper := &model.Paper{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paperColumns+`
		 FROM papers p JOIN users u ON u.id = p.author_id
		 WHERE p.id = $1`,
		id,
	)
	err := scanPaper(row, paper)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ペーパーの取得に失敗しました: %w", err)
	}
	return paper, nil
}

// FindWithViewerState は指定IDのペーパーを閲覧者状態付きで取得する。
func (r *PostgresPaperRepo) FindWithViewerState(ctx context.Context, viewerID, id string) (*model.PaperWithViewerState, error) {
	pws := &model.PaperWithViewerState{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paperColumns+`, `+viewerStateColumns+`
		 FROM papers p
		 JOIN users u ON u.id = p.author_id
		 LEFT JOIN magazines m ON m.id = p.magazine_id
		 WHERE p.id = $2`,
		viewerID, id,
	)
	err := scanPaperWithViewerState(row, pws)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("閲覧者状態付きペーパーの取得に失敗しました: %w", err)
	}
	return pws, nil
}

// ListFeed はフィード1ページ分のペーパーを閲覧者状態付きで取得する。
// created_at降順（スターのフィードのみスター日時降順）。
func (r *PostgresPaperRepo) ListFeed(
	ctx context.Context,
	viewerID string,
	scope model.FeedScope,
	scopeID string,
	offset, limit int,
) ([]model.PaperWithViewerState, error) {
	baseQuery := `SELECT ` + paperColumns + `, ` + viewerStateColumns + `
		 FROM papers p
		 JOIN users u ON u.id = p.author_id
		 LEFT JOIN magazines m ON m.id = p.magazine_id`

	args := []any{viewerID}
	argIndex := 2
	orderBy := " ORDER BY p.created_at DESC"

	switch scope {
	case model.FeedScopeMagazine:
		baseQuery += fmt.Sprintf(" WHERE p.status = 'published' AND NOT p.is_hidden AND p.magazine_id = $%d", argIndex)
		args = append(args, scopeID)
		argIndex++
	case model.FeedScopeAuthor:
		baseQuery += fmt.Sprintf(" WHERE p.status = 'published' AND NOT p.is_hidden AND p.author_id = $%d", argIndex)
		args = append(args, scopeID)
		argIndex++
	case model.FeedScopeStarred:
		baseQuery += ` JOIN paper_stars st ON st.paper_id = p.id AND st.user_id = $1
		 WHERE p.status = 'published' AND NOT p.is_hidden`
		orderBy = " ORDER BY st.created_at DESC"
	default:
		baseQuery += " WHERE p.status = 'published' AND NOT p.is_hidden"
	}

	baseQuery += orderBy + fmt.Sprintf(" OFFSET $%d LIMIT $%d", argIndex, argIndex+1)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var papers []model.PaperWithViewerState
	for rows.Next() {
		var pws model.PaperWithViewerState
		if err := scanPaperWithViewerState(rows, &pws); err != nil {
			return nil, fmt.Errorf("フィード行の読み取りに失敗しました: %w", err)
		}
		papers = append(papers, pws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フィードの走査に失敗しました: %w", err)
	}

	return papers, nil
}

// Create はペーパーを作成する。
// マガジン所属の場合はmagazines.paper_countを同一トランザクションで加算する。
func (r *PostgresPaperRepo) Create(ctx context.Context, paper *model.Paper) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (id, author_id, magazine_id, title, description, excerpt,
		                     poster_url, video_url, is_top, is_hidden, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		paper.ID, paper.Author.ID, nullString(paper.MagazineID), paper.Title,
		nullString(paper.Description), nullString(paper.Excerpt),
		nullString(paper.PosterURL), nullString(paper.VideoURL),
		paper.IsTop, paper.IsHidden, paper.Status, paper.CreatedAt, paper.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ペーパーの作成に失敗しました: %w", err)
	}

	if paper.MagazineID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE magazines SET paper_count = paper_count + 1, updated_at = now() WHERE id = $1`,
			paper.MagazineID,
		)
		if err != nil {
			return fmt.Errorf("マガジンのペーパー数更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// UpdateContent はタイトル・説明・抜粋・ポスターURLを更新する。
func (r *PostgresPaperRepo) UpdateContent(ctx context.Context, paper *model.Paper) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE papers SET title = $2, description = $3, excerpt = $4, poster_url = $5, updated_at = now()
		 WHERE id = $1`,
		paper.ID, paper.Title, nullString(paper.Description),
		nullString(paper.Excerpt), nullString(paper.PosterURL),
	)
	if err != nil {
		return fmt.Errorf("ペーパーの更新に失敗しました: %w", err)
	}
	return nil
}

// setPaperRelation は閲覧者とペーパーの関係行とカウンタを同一トランザクションで設定する。
// 冪等: すでに目的の状態である場合は何もせずfalseを返す。
func (r *PostgresPaperRepo) setPaperRelation(
	ctx context.Context,
	table, counterColumn, userID, paperID string,
	enabled bool,
) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	if enabled {
		result, err = tx.ExecContext(ctx,
			`INSERT INTO `+table+` (user_id, paper_id, created_at) VALUES ($1, $2, now())
			 ON CONFLICT DO NOTHING`,
			userID, paperID,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE user_id = $1 AND paper_id = $2`,
			userID, paperID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("関係行の更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		// すでに目的の状態。カウンタは変更しない。
		return false, tx.Commit()
	}

	delta := "+ 1"
	if !enabled {
		delta = "- 1"
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE papers SET `+counterColumn+` = GREATEST(`+counterColumn+` `+delta+`, 0), updated_at = now()
		 WHERE id = $1`,
		paperID,
	)
	if err != nil {
		return false, fmt.Errorf("カウンタの更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return true, nil
}

// SetLike はいいね状態を冪等に設定する。
func (r *PostgresPaperRepo) SetLike(ctx context.Context, userID, paperID string, liked bool) (bool, error) {
	return r.setPaperRelation(ctx, "paper_likes", "like_count", userID, paperID, liked)
}

// SetStar はスター状態を冪等に設定する。
func (r *PostgresPaperRepo) SetStar(ctx context.Context, userID, paperID string, starred bool) (bool, error) {
	return r.setPaperRelation(ctx, "paper_stars", "star_count", userID, paperID, starred)
}

// SetTop はピン留めフラグを設定する。並び替えは行わない。
func (r *PostgresPaperRepo) SetTop(ctx context.Context, paperID string, top bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE papers SET is_top = $2, updated_at = now() WHERE id = $1`,
		paperID, top,
	)
	if err != nil {
		return fmt.Errorf("ピン留めフラグの更新に失敗しました: %w", err)
	}
	return nil
}

// SetHidden は非表示フラグを設定する。
func (r *PostgresPaperRepo) SetHidden(ctx context.Context, paperID string, hidden bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE papers SET is_hidden = $2, updated_at = now() WHERE id = $1`,
		paperID, hidden,
	)
	if err != nil {
		return fmt.Errorf("非表示フラグの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのペーパーを削除する。
// マガジン所属の場合はpaper_countを同一トランザクションで減算する。
func (r *PostgresPaperRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var magazineID sql.NullString
	err = tx.QueryRowContext(ctx,
		`DELETE FROM papers WHERE id = $1 RETURNING magazine_id`,
		id,
	).Scan(&magazineID)
	if err == sql.ErrNoRows {
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("ペーパーの削除に失敗しました: %w", err)
	}

	if magazineID.Valid {
		_, err = tx.ExecContext(ctx,
			`UPDATE magazines SET paper_count = GREATEST(paper_count - 1, 0), updated_at = now() WHERE id = $1`,
			magazineID.String,
		)
		if err != nil {
			return fmt.Errorf("マガジンのペーパー数更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// IncrementPlayCount は再生数を1加算する。
func (r *PostgresPaperRepo) IncrementPlayCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE papers SET play_count = play_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("再生数の更新に失敗しました: %w", err)
	}
	return nil
}

// ClaimPending は審査待ちペーパーをFOR UPDATE SKIP LOCKEDで排他的に取得する。
// 複数ワーカーが同時に走っても同じペーパーを二重に処理しない。
func (r *PostgresPaperRepo) ClaimPending(ctx context.Context, limit int) ([]*model.Paper, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paperColumns+`
		 FROM papers p JOIN users u ON u.id = p.author_id
		 WHERE p.status = 'pending'
		 ORDER BY p.created_at ASC
		 LIMIT $1
		 FOR UPDATE OF p SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("審査待ちペーパーの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var papers []*model.Paper
	for rows.Next() {
		paper := &model.Paper{}
		if err := scanPaper(rows, paper); err != nil {
			return nil, fmt.Errorf("審査待ちペーパー行の読み取りに失敗しました: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("審査待ちペーパーの走査に失敗しました: %w", err)
	}

	return papers, nil
}

// UpdateStatus は審査状態を更新する。
func (r *PostgresPaperRepo) UpdateStatus(ctx context.Context, id string, status model.ReviewStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE papers SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("審査状態の更新に失敗しました: %w", err)
	}
	return nil
}

// RecountEngagement は関係テーブルから非正規化カウンタを再計算して上書きする。
// 楽観更新の取りこぼしやワーカー障害でずれたカウンタを定期的に収束させる。
func (r *PostgresPaperRepo) RecountEngagement(ctx context.Context, maxPapers int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE papers p SET
		    like_count    = sub.likes,
		    star_count    = sub.stars,
		    comment_count = sub.comments
		 FROM (
		    SELECT p2.id,
		           (SELECT COUNT(*) FROM paper_likes pl WHERE pl.paper_id = p2.id) AS likes,
		           (SELECT COUNT(*) FROM paper_stars ps WHERE ps.paper_id = p2.id) AS stars,
		           (SELECT COUNT(*) FROM comments c WHERE c.paper_id = p2.id) AS comments
		    FROM papers p2
		    ORDER BY p2.updated_at ASC
		    LIMIT $1
		 ) sub
		 WHERE p.id = sub.id
		   AND (p.like_count <> sub.likes OR p.star_count <> sub.stars OR p.comment_count <> sub.comments)`,
		maxPapers,
	)
	if err != nil {
		return 0, fmt.Errorf("カウンタの再集計に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("再集計件数の取得に失敗しました: %w", err)
	}
	return int(n), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// compile-time interface check
var _ PaperRepository = (*PostgresPaperRepo)(nil)
var _ EngagementRecounter = (*PostgresPaperRepo)(nil)
