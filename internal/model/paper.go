// Package model はドメインモデルを定義する。
package model

import "time"

// ReviewStatus はペーパーの審査・公開状態を表す。
type ReviewStatus string

const (
	// ReviewStatusDraft は下書き状態。投稿者本人にのみ見える。
	ReviewStatusDraft ReviewStatus = "draft"
	// ReviewStatusPending は審査待ち状態。
	ReviewStatusPending ReviewStatus = "pending"
	// ReviewStatusPublished は公開済み状態。フィードに表示される。
	ReviewStatusPublished ReviewStatus = "published"
	// ReviewStatusRejected は審査却下状態。
	ReviewStatusRejected ReviewStatus = "rejected"
)

// AuthorRef は投稿者のスナップショット。
// 一覧表示用に非正規化して保持するため、正規のユーザーレコードより古くなることがある。
type AuthorRef struct {
	ID        string
	Name      string
	AvatarURL string
}

// MagazineRef は親マガジンのスナップショット。
// ペーパーに埋め込まれる非正規化データで、正規のマガジンレコードより古くなることがある。
type MagazineRef struct {
	ID       string
	Title    string
	CoverURL string
}

// Paper はフィードに表示される動画カード1件を表す。
type Paper struct {
	ID          string
	Author      AuthorRef
	Title       string
	Description string // サニタイズ済みHTML
	Excerpt     string // プレーンテキスト抜粋
	PosterURL   string
	VideoURL    string

	LikeCount    int
	CommentCount int
	ShareCount   int
	StarCount    int
	PlayCount    int

	// IsTop はマガジン内ピン留めフラグ。並び替えは行わずフラグのみ保持する。
	IsTop    bool
	IsHidden bool

	MagazineID string // 空文字列はマガジン未所属
	Status     ReviewStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaperWithViewerState はペーパーと閲覧者ごとの状態（いいね/スター/フォロー）を結合したモデル。
// paper_likes、paper_stars、followsテーブルとLEFT JOINして取得される。
type PaperWithViewerState struct {
	Paper
	IsLiked    bool
	IsStarred  bool
	IsFollowed bool // 閲覧者が投稿者をフォローしているか
	Magazine   *MagazineRef
}

// FeedScope はフィード一覧の取得範囲を表す。
type FeedScope string

const (
	// FeedScopeAll は公開済み全ペーパーのフィード。
	FeedScopeAll FeedScope = "all"
	// FeedScopeMagazine は特定マガジン内のペーパー。
	FeedScopeMagazine FeedScope = "magazine"
	// FeedScopeAuthor は特定投稿者のペーパー。
	FeedScopeAuthor FeedScope = "author"
	// FeedScopeStarred は閲覧者がスターしたペーパー。
	FeedScopeStarred FeedScope = "starred"
)
