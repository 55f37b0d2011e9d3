// Package model はドメインモデルを定義する。
package model

import "time"

// Comment はペーパーに付くコメントを表す。
// ParentIDが空でない場合は他のコメントへの返信（ネストは1段まで）。
type Comment struct {
	ID       string
	PaperID  string
	ParentID string
	Author   AuthorRef
	Body     string // サニタイズ済み

	LikeCount  int
	ReplyCount int

	CreatedAt time.Time
}

// CommentWithViewerState はコメントと閲覧者のいいね状態を結合したモデル。
type CommentWithViewerState struct {
	Comment
	IsLiked bool
}
