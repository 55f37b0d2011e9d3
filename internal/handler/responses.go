package handler

import (
	"time"

	"github.com/yshimura/magfeed/internal/model"
)

// authorResponse は投稿者スナップショットのレスポンス。
type authorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// magazineRefResponse はペーパーに埋め込まれる親マガジン情報のレスポンス。
type magazineRefResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	CoverURL string `json:"cover_url"`
}

// paperResponse はペーパーのレスポンス。閲覧者ごとの状態を含む。
type paperResponse struct {
	ID          string         `json:"id"`
	Author      authorResponse `json:"author"`
	Title       string         `json:"title"`
	Description string         `json:"description"` // サニタイズ済みHTML
	Excerpt     string         `json:"excerpt"`
	PosterURL   string         `json:"poster_url"`
	VideoURL    string         `json:"video_url"`

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

	Magazine *magazineRefResponse `json:"magazine,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toAuthorResponse(a model.AuthorRef) authorResponse {
	return authorResponse{
		ID:        a.ID,
		Name:      a.Name,
		AvatarURL: a.AvatarURL,
	}
}

func toPaperResponse(p model.PaperWithViewerState) paperResponse {
	resp := paperResponse{
		ID:           p.ID,
		Author:       toAuthorResponse(p.Author),
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
		IsLiked:      p.IsLiked,
		IsStarred:    p.IsStarred,
		IsFollowed:   p.IsFollowed,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
	}
	if p.Magazine != nil {
		resp.Magazine = &magazineRefResponse{
			ID:       p.Magazine.ID,
			Title:    p.Magazine.Title,
			CoverURL: p.Magazine.CoverURL,
		}
	}
	return resp
}

func toPaperResponses(papers []model.PaperWithViewerState) []paperResponse {
	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = toPaperResponse(p)
	}
	return responses
}

// ownPaperResponse は投稿者本人向けのペーパーレスポンス（作成・更新の戻り）。
func toOwnPaperResponse(p *model.Paper) paperResponse {
	return toPaperResponse(model.PaperWithViewerState{Paper: *p})
}

// magazineResponse はマガジンのレスポンス。購読状態を含む。
type magazineResponse struct {
	ID          string         `json:"id"`
	Author      authorResponse `json:"author"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CoverURL    string         `json:"cover_url"`

	ViewCount       int `json:"view_count"`
	ShowCount       int `json:"show_count"`
	SubscriberCount int `json:"subscriber_count"`
	PaperCount      int `json:"paper_count"`
	EditorCount     int `json:"editor_count"`

	IsPublic      bool `json:"is_public"`
	IsRecommended bool `json:"is_recommended"`
	IsSubscribed  bool `json:"is_subscribed"`

	Papers []paperResponse `json:"papers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func toMagazineResponse(m model.MagazineWithViewerState) magazineResponse {
	resp := magazineResponse{
		ID:              m.ID,
		Author:          toAuthorResponse(m.Author),
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
		IsSubscribed:    m.IsSubscribed,
		CreatedAt:       m.CreatedAt,
	}
	if len(m.Papers) > 0 {
		resp.Papers = toPaperResponses(m.Papers)
	}
	return resp
}

func toMagazineResponses(magazines []model.MagazineWithViewerState) []magazineResponse {
	responses := make([]magazineResponse, len(magazines))
	for i, m := range magazines {
		responses[i] = toMagazineResponse(m)
	}
	return responses
}

// commentResponse はコメントのレスポンス。閲覧者のいいね状態を含む。
type commentResponse struct {
	ID         string         `json:"id"`
	PaperID    string         `json:"paper_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Author     authorResponse `json:"author"`
	Body       string         `json:"body"`
	LikeCount  int            `json:"like_count"`
	ReplyCount int            `json:"reply_count"`
	IsLiked    bool           `json:"is_liked"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toCommentResponse(c model.CommentWithViewerState) commentResponse {
	return commentResponse{
		ID:         c.ID,
		PaperID:    c.PaperID,
		ParentID:   c.ParentID,
		Author:     toAuthorResponse(c.Author),
		Body:       c.Body,
		LikeCount:  c.LikeCount,
		ReplyCount: c.ReplyCount,
		IsLiked:    c.IsLiked,
		CreatedAt:  c.CreatedAt,
	}
}

func toCommentResponses(comments []model.CommentWithViewerState) []commentResponse {
	responses := make([]commentResponse, len(comments))
	for i, c := range comments {
		responses[i] = toCommentResponse(c)
	}
	return responses
}

// profileResponse はユーザープロフィールのレスポンス。
type profileResponse struct {
	ID             string `json:"id"`
	Nickname       string `json:"nickname"`
	AvatarURL      string `json:"avatar_url"`
	Signature      string `json:"signature"`
	PaperCount     int    `json:"paper_count"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	IsFollowed     bool   `json:"is_followed"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
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

// changedResponse は冪等な状態設定操作のレスポンス。
type changedResponse struct {
	Changed bool `json:"changed"`
}
