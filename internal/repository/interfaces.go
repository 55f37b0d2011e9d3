// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/yshimura/magfeed/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はニックネーム・アバター・署名を更新する。
	UpdateProfile(ctx context.Context, id, nickname, avatarURL, signature string) error

	// ProfileByID はユーザーの公開プロフィールを集計付きで取得する。
	// viewerIDが空でない場合はIsFollowedフラグを付与する。見つからない場合はnilを返す。
	ProfileByID(ctx context.Context, viewerID, userID string) (*model.Profile, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、papers、subscriptions等はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PaperRepository はペーパーデータの永続化インターフェース。
// 閲覧者ごとの状態（いいね/スター/フォロー）のJOIN取得と、
// カウンタと関係テーブルを同一トランザクションで更新する操作を提供する。
type PaperRepository interface {
	// FindByID は指定IDのペーパーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Paper, error)

	// FindWithViewerState は指定IDのペーパーを閲覧者状態付きで取得する。
	// 見つからない場合はnilを返す。
	FindWithViewerState(ctx context.Context, viewerID, id string) (*model.PaperWithViewerState, error)

	// ListFeed はフィード1ページ分のペーパーを閲覧者状態付きで取得する。
	// created_at降順。scopeIDはFeedScopeMagazine/FeedScopeAuthorの場合に使用する。
	// hasmore判定のためlimit+1件を要求する呼び出し方を想定している。
	ListFeed(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, offset, limit int) ([]model.PaperWithViewerState, error)

	// Create はペーパーを作成する。マガジン所属の場合はpaper_countも同時に加算する。
	Create(ctx context.Context, paper *model.Paper) error

	// UpdateContent はタイトル・説明・抜粋・ポスターURLを更新する。
	UpdateContent(ctx context.Context, paper *model.Paper) error

	// SetLike はいいね状態を冪等に設定する。
	// 関係行の挿入/削除とlike_countの増減を同一トランザクションで行う。
	// 状態が実際に変化した場合にtrueを返す。
	SetLike(ctx context.Context, userID, paperID string, liked bool) (bool, error)

	// SetStar はスター状態を冪等に設定する。SetLikeと同じトランザクション方式。
	SetStar(ctx context.Context, userID, paperID string, starred bool) (bool, error)

	// SetTop はピン留めフラグを設定する。並び替えは行わない。
	SetTop(ctx context.Context, paperID string, top bool) error

	// SetHidden は非表示フラグを設定する。
	SetHidden(ctx context.Context, paperID string, hidden bool) error

	// Delete は指定IDのペーパーを削除する。
	// マガジン所属の場合はpaper_countも同時に減算する。
	Delete(ctx context.Context, id string) error

	// IncrementPlayCount は再生数を1加算する。
	IncrementPlayCount(ctx context.Context, id string) error

	// ClaimPending は審査待ちペーパーをFOR UPDATE SKIP LOCKEDで排他的に取得する。
	ClaimPending(ctx context.Context, limit int) ([]*model.Paper, error)

	// UpdateStatus は審査状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.ReviewStatus) error
}

// EngagementRecounter は非正規化カウンタの再集計に必要なインターフェース。
// reconcileワーカーから利用する。
type EngagementRecounter interface {
	// RecountEngagement は関係テーブルからlike_count/star_count/comment_countを
	// 再計算して上書きする。更新されたペーパー数を返す。
	RecountEngagement(ctx context.Context, maxPapers int) (int, error)
}

// MagazineRepository はマガジンデータの永続化インターフェース。
type MagazineRepository interface {
	// FindByID は指定IDのマガジンを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Magazine, error)

	// FindWithViewerState は指定IDのマガジンを購読状態付きで取得する。
	// 見つからない場合はnilを返す。
	FindWithViewerState(ctx context.Context, viewerID, id string) (*model.MagazineWithViewerState, error)

	// ListRecommended はおすすめマガジンを購読状態付きで取得する。updated_at降順。
	ListRecommended(ctx context.Context, viewerID string, offset, limit int) ([]model.MagazineWithViewerState, error)

	// ListSubscribed は閲覧者が購読中のマガジンを購読日時降順で取得する。
	ListSubscribed(ctx context.Context, userID string, offset, limit int) ([]model.MagazineWithViewerState, error)

	// ListByAuthor は投稿者のマガジンを購読状態付きで取得する。
	ListByAuthor(ctx context.Context, viewerID, authorID string, offset, limit int) ([]model.MagazineWithViewerState, error)

	// Create はマガジンを作成する。
	Create(ctx context.Context, magazine *model.Magazine) error

	// Update はタイトル・説明・カバー・公開フラグを更新する。
	Update(ctx context.Context, magazine *model.Magazine) error

	// SetSubscribed は購読状態を冪等に設定する。
	// subscriptions行の挿入/削除とsubscriber_countの増減を同一トランザクションで行う。
	// 状態が実際に変化した場合にtrueを返す。
	SetSubscribed(ctx context.Context, userID, magazineID string, subscribed bool) (bool, error)

	// IncrementViewCount は閲覧数を1加算する。
	IncrementViewCount(ctx context.Context, id string) error
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// ListByPaper はペーパー直下のコメント（返信を除く）を閲覧者状態付きで取得する。
	// created_at降順。
	ListByPaper(ctx context.Context, viewerID, paperID string, offset, limit int) ([]model.CommentWithViewerState, error)

	// ListReplies は指定コメントへの返信をcreated_at昇順で取得する。
	ListReplies(ctx context.Context, viewerID, parentID string, offset, limit int) ([]model.CommentWithViewerState, error)

	// Create はコメントを作成する。
	// papers.comment_countと、返信の場合は親のreply_countを同一トランザクションで加算する。
	Create(ctx context.Context, comment *model.Comment) error

	// SetLike はコメントのいいね状態を冪等に設定する。
	SetLike(ctx context.Context, userID, commentID string, liked bool) (bool, error)

	// Delete は指定IDのコメントを削除し、関連カウンタを減算する。
	// 返信はCASCADE削除されるため、comment_countは返信数も含めて減算する。
	Delete(ctx context.Context, id string) error
}

// FollowRepository はフォロー関係の永続化インターフェース。
type FollowRepository interface {
	// SetFollow はフォロー状態を冪等に設定する。
	// 状態が実際に変化した場合にtrueを返す。自分自身へのフォローは呼び出し側で弾く。
	SetFollow(ctx context.Context, followerID, followeeID string, following bool) (bool, error)

	// IsFollowing はフォロー関係の有無を返す。
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
