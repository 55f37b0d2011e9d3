// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Nickname     string
	AvatarURL    string
	Signature    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile はユーザーの公開サマリーを表す。
// 閲覧者がフォローしているかどうかのフラグを含む。
type Profile struct {
	ID             string
	Nickname       string
	AvatarURL      string
	Signature      string
	PaperCount     int
	FollowerCount  int
	FollowingCount int
	IsFollowed     bool
}

// Session はユーザーのログインセッションを表す。
// アクセストークンのjtiと1:1で対応し、ログアウト時に削除される。
type Session struct {
	ID        string
	UserID    string
	DeviceID  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
