package client

import (
	"time"

	"github.com/yshimura/magfeed/internal/model"
)

// ワイヤー形式のDTO。サーバーのレスポンス形式に対応し、モデル型へ変換される。

type authorPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type magazineRefPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	CoverURL string `json:"cover_url"`
}

type paperPayload struct {
	ID          string        `json:"id"`
	Author      authorPayload `json:"author"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Excerpt     string        `json:"excerpt"`
	PosterURL   string        `json:"poster_url"`
	VideoURL    string        `json:"video_url"`

	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
	ShareCount   int `json:"share_count"`
	StarCount    int `json:"star_count"`
	PlayCount    int `json:"play_count"`

	IsTop    bool `json:"is_top"`
	IsHidden bool `json:"is_hidden"`

	IsLiked    bool `json:"is_liked"`
	IsStarred  bool `json:"is_starred"`
	IsFollowed bool `json:"is_followed"`

	Magazine *magazineRefPayload `json:"magazine,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (p paperPayload) toModel() model.PaperWithViewerState {
	paper := model.PaperWithViewerState{
		Paper: model.Paper{
			ID: p.ID,
			Author: model.AuthorRef{
				ID:        p.Author.ID,
				Name:      p.Author.Name,
				AvatarURL: p.Author.AvatarURL,
			},
			Title:        p.Title,
			Description:  p.Description,
			Excerpt:      p.Excerpt,
			PosterURL:    p.PosterURL,
			VideoURL:     p.VideoURL,
			LikeCount:    p.LikeCount,
			CommentCount: p.CommentCount,
			ShareCount:   p.ShareCount,
			StarCount:    p.StarCount,
			PlayCount:    p.PlayCount,
			IsTop:        p.IsTop,
			IsHidden:     p.IsHidden,
			Status:       model.ReviewStatus(p.Status),
			CreatedAt:    p.CreatedAt,
		},
		IsLiked:    p.IsLiked,
		IsStarred:  p.IsStarred,
		IsFollowed: p.IsFollowed,
	}
	if p.Magazine != nil {
		paper.Magazine = &model.MagazineRef{
			ID:       p.Magazine.ID,
			Title:    p.Magazine.Title,
			CoverURL: p.Magazine.CoverURL,
		}
	}
	return paper
}

func toPapers(payloads []paperPayload) []model.PaperWithViewerState {
	papers := make([]model.PaperWithViewerState, len(payloads))
	for i, p := range payloads {
		papers[i] = p.toModel()
	}
	return papers
}

type magazinePayload struct {
	ID          string        `json:"id"`
	Author      authorPayload `json:"author"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	CoverURL    string        `json:"cover_url"`

	ViewCount       int `json:"view_count"`
	ShowCount       int `json:"show_count"`
	SubscriberCount int `json:"subscriber_count"`
	PaperCount      int `json:"paper_count"`
	EditorCount     int `json:"editor_count"`

	IsPublic      bool `json:"is_public"`
	IsRecommended bool `json:"is_recommended"`
	IsSubscribed  bool `json:"is_subscribed"`

	Papers []paperPayload `json:"papers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (m magazinePayload) toModel() model.MagazineWithViewerState {
	magazine := model.MagazineWithViewerState{
		Magazine: model.Magazine{
			ID: m.ID,
			Author: model.AuthorRef{
				ID:        m.Author.ID,
				Name:      m.Author.Name,
				AvatarURL: m.Author.AvatarURL,
			},
			Title:           m.Title,
			Description:     m.Description,
			CoverURL:        m.CoverURL,
			ViewCount:       m.ViewCount,
			ShowCount:       m.ShowCount,
			SubscriberCount: m.SubscriberCount,
			PaperCount:      m.PaperCount,
			EditorCount:     m.EditorCount,
			IsPublic:        m.IsPublic,
			IsRecommended:   m.IsRecommended,
			CreatedAt:       m.CreatedAt,
		},
		IsSubscribed: m.IsSubscribed,
		Papers:       toPapers(m.Papers),
	}
	return magazine
}

func toMagazines(payloads []magazinePayload) []model.MagazineWithViewerState {
	magazines := make([]model.MagazineWithViewerState, len(payloads))
	for i, m := range payloads {
		magazines[i] = m.toModel()
	}
	return magazines
}

type commentPayload struct {
	ID         string        `json:"id"`
	PaperID    string        `json:"paper_id"`
	ParentID   string        `json:"parent_id,omitempty"`
	Author     authorPayload `json:"author"`
	Body       string        `json:"body"`
	LikeCount  int           `json:"like_count"`
	ReplyCount int           `json:"reply_count"`
	IsLiked    bool          `json:"is_liked"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (c commentPayload) toModel() model.CommentWithViewerState {
	return model.CommentWithViewerState{
		Comment: model.Comment{
			ID:       c.ID,
			PaperID:  c.PaperID,
			ParentID: c.ParentID,
			Author: model.AuthorRef{
				ID:        c.Author.ID,
				Name:      c.Author.Name,
				AvatarURL: c.Author.AvatarURL,
			},
			Body:       c.Body,
			LikeCount:  c.LikeCount,
			ReplyCount: c.ReplyCount,
			CreatedAt:  c.CreatedAt,
		},
		IsLiked: c.IsLiked,
	}
}

func toComments(payloads []commentPayload) []model.CommentWithViewerState {
	comments := make([]model.CommentWithViewerState, len(payloads))
	for i, c := range payloads {
		comments[i] = c.toModel()
	}
	return comments
}

type profilePayload struct {
	ID             string `json:"id"`
	Nickname       string `json:"nickname"`
	AvatarURL      string `json:"avatar_url"`
	Signature      string `json:"signature"`
	PaperCount     int    `json:"paper_count"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	IsFollowed     bool   `json:"is_followed"`
}

func (p profilePayload) toModel() *model.Profile {
	return &model.Profile{
		ID:             p.ID,
		Nickname:       p.Nickname,
		AvatarURL:      p.AvatarURL,
		Signature:      p.Signature,
		PaperCount:     p.PaperCount,
		FollowerCount:  p.FollowerCount,
		FollowingCount: p.FollowingCount,
		IsFollowed:     p.IsFollowed,
	}
}

type userPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Signature string `json:"signature"`
}

type authPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type changedPayload struct {
	Changed bool `json:"changed"`
}

// UploadResult はメディアアップロードの結果。
type UploadResult struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}
