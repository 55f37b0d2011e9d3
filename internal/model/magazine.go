// Package model はドメインモデルを定義する。
package model

import "time"

// Magazine は投稿者が所有するペーパーのコレクションを表す。
type Magazine struct {
	ID          string
	Author      AuthorRef
	Title       string
	Description string
	CoverURL    string

	ViewCount       int
	ShowCount       int
	SubscriberCount int
	PaperCount      int
	EditorCount     int

	IsPublic      bool
	IsRecommended bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MagazineWithViewerState はマガジンと閲覧者ごとの購読状態を結合したモデル。
// subscriptionsテーブルとLEFT JOINして取得される。
// Papersは購読フィードのプレビュー表示でのみ埋め込まれる。
type MagazineWithViewerState struct {
	Magazine
	IsSubscribed bool
	Papers       []PaperWithViewerState
}
