package client

import (
	"context"
	"fmt"

	"github.com/yshimura/magfeed/internal/feedview"
	"github.com/yshimura/magfeed/internal/model"
)

// feedAPI はFeedSessionが必要とするクライアント操作。*Clientが実装する。
type feedAPI interface {
	FeedPage(ctx context.Context, scope model.FeedScope, scopeID string, page int) ([]model.PaperWithViewerState, bool, error)
	SetLike(ctx context.Context, paperID string, value bool) (bool, error)
	SetStar(ctx context.Context, paperID string, value bool) (bool, error)
	SetTop(ctx context.Context, paperID string, value bool) error
	SetHidden(ctx context.Context, paperID string, value bool) error
	SetFollow(ctx context.Context, userID string, value bool) (bool, error)
	DeletePaper(ctx context.Context, paperID string) error
	RecordPlay(ctx context.Context, paperID string) error
}

var _ feedAPI = (*Client)(nil)

// FeedSession は1つのフィード画面に対応するセッション。
// カーソル・ストア・再生状態・オーバーレイを束ね、
// UIイベントをAPI呼び出しと楽観的更新に変換する。
// 変更系の操作はまずストアへ楽観的に適用し、サーバーが拒否した場合に取り消す。
type FeedSession struct {
	api     feedAPI
	scope   model.FeedScope
	scopeID string

	cursor   *feedview.Cursor
	store    *feedview.Store
	playback *feedview.Playback
	overlays *feedview.Overlays
}

// SessionOption はFeedSessionの設定オプション。
type SessionOption func(*FeedSession)

// WithCarryPlayState はスライド切り替え時に再生状態を引き継ぐ挙動を有効にする。
func WithCarryPlayState() SessionOption {
	return func(s *FeedSession) {
		s.playback = feedview.NewPlayback(feedview.WithCarryPlayState())
	}
}

// NewFeedSession はFeedSessionを生成する。
// ページ番号はサーバーに合わせて1始まりで扱う。カーソルは0で初期化され、
// 最初のフェッチでページ1へ進む。
func NewFeedSession(c *Client, scope model.FeedScope, scopeID string, opts ...SessionOption) *FeedSession {
	s := &FeedSession{
		api:      c,
		scope:    scope,
		scopeID:  scopeID,
		cursor:   feedview.NewCursor(0),
		store:    feedview.NewStore(),
		playback: feedview.NewPlayback(),
		overlays: feedview.NewOverlays(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Papers は現在のペーパー列のスナップショットを返す。
func (s *FeedSession) Papers() []model.PaperWithViewerState { return s.store.Papers() }

// HasMore は続きページの有無を返す。
func (s *FeedSession) HasMore() bool { return s.cursor.HasMore() }

// Loading は読み込み中かどうかを返す。
func (s *FeedSession) Loading() bool { return s.cursor.Loading() }

// Playback は再生状態を返す。
func (s *FeedSession) Playback() *feedview.Playback { return s.playback }

// Overlays はオーバーレイパネルの開閉状態を返す。
func (s *FeedSession) Overlays() *feedview.Overlays { return s.overlays }

// SentinelVisible はセンチネル可視イベントを処理し、必要なら次ページをフェッチする。
// 読み込み中・最終ページ到達済みの場合は何もしない。
func (s *FeedSession) SentinelVisible(ctx context.Context) error {
	if !s.cursor.SentinelVisible() {
		return nil
	}
	return s.fetchPage(ctx)
}

// ReachEnd はカルーセルのリーチエンドイベントを処理する。
// リストが空の間は無視する。
func (s *FeedSession) ReachEnd(ctx context.Context) error {
	if !s.cursor.ReachEnd(s.store.Len()) {
		return nil
	}
	return s.fetchPage(ctx)
}

func (s *FeedSession) fetchPage(ctx context.Context) error {
	papers, hasMore, err := s.api.FeedPage(ctx, s.scope, s.scopeID, s.cursor.Page())
	if err != nil {
		s.cursor.LoadFailed()
		return fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	s.store.AppendPage(papers)
	s.cursor.PageLoaded(hasMore)
	return nil
}

// Refresh はフィードを初期状態に戻して1ページ目を再取得する。
func (s *FeedSession) Refresh(ctx context.Context) error {
	s.cursor.Reset()
	s.store.Reset()
	s.playback.Reset()
	s.overlays.ActivePaperChanged()
	return s.SentinelVisible(ctx)
}

// ToggleLike はいいねを楽観的にトグルし、サーバーへ反映する。
// サーバーが拒否した場合は適用前の状態に戻す。
func (s *FeedSession) ToggleLike(ctx context.Context, paperID string) error {
	undo, ok := s.store.ToggleLike(paperID)
	if !ok {
		return fmt.Errorf("ペーパーが見つかりません: %s", paperID)
	}
	p, _ := s.store.Get(paperID)
	if _, err := s.api.SetLike(ctx, paperID, p.IsLiked); err != nil {
		undo()
		return fmt.Errorf("いいねの更新に失敗しました: %w", err)
	}
	return nil
}

// ToggleStar はスターを楽観的にトグルし、サーバーへ反映する。
func (s *FeedSession) ToggleStar(ctx context.Context, paperID string) error {
	undo, ok := s.store.ToggleStar(paperID)
	if !ok {
		return fmt.Errorf("ペーパーが見つかりません: %s", paperID)
	}
	p, _ := s.store.Get(paperID)
	if _, err := s.api.SetStar(ctx, paperID, p.IsStarred); err != nil {
		undo()
		return fmt.Errorf("スターの更新に失敗しました: %w", err)
	}
	return nil
}

// SetFollow は投稿者のフォロー状態を楽観的に更新し、サーバーへ反映する。
// 同じ投稿者の全ペーパーに反映される。
func (s *FeedSession) SetFollow(ctx context.Context, authorID string, value bool) error {
	undo, ok := s.store.SetFollowed(authorID, value)
	if !ok {
		return fmt.Errorf("投稿者のペーパーが見つかりません: %s", authorID)
	}
	if _, err := s.api.SetFollow(ctx, authorID, value); err != nil {
		undo()
		return fmt.Errorf("フォローの更新に失敗しました: %w", err)
	}
	return nil
}

// ToggleTop はピン留めフラグを楽観的にトグルし、サーバーへ反映する（投稿者のみ）。
func (s *FeedSession) ToggleTop(ctx context.Context, paperID string) error {
	undo, ok := s.store.ToggleTop(paperID)
	if !ok {
		return fmt.Errorf("ペーパーが見つかりません: %s", paperID)
	}
	p, _ := s.store.Get(paperID)
	if err := s.api.SetTop(ctx, paperID, p.IsTop); err != nil {
		undo()
		return fmt.Errorf("ピン留めの更新に失敗しました: %w", err)
	}
	return nil
}

// ToggleHidden は非表示フラグを楽観的にトグルし、サーバーへ反映する（投稿者のみ）。
func (s *FeedSession) ToggleHidden(ctx context.Context, paperID string) error {
	undo, ok := s.store.ToggleHidden(paperID)
	if !ok {
		return fmt.Errorf("ペーパーが見つかりません: %s", paperID)
	}
	p, _ := s.store.Get(paperID)
	if err := s.api.SetHidden(ctx, paperID, p.IsHidden); err != nil {
		undo()
		return fmt.Errorf("非表示設定の更新に失敗しました: %w", err)
	}
	return nil
}

// DeletePaper はペーパーを削除する。
// 削除は取り消せないため、サーバーの成功を確認してからストアから取り除く。
func (s *FeedSession) DeletePaper(ctx context.Context, paperID string) error {
	if err := s.api.DeletePaper(ctx, paperID); err != nil {
		return fmt.Errorf("ペーパーの削除に失敗しました: %w", err)
	}
	s.store.Delete(paperID)
	if s.playback.IsPlaying(paperID) {
		s.playback.PlayRejected(paperID)
	}
	return nil
}

// Tap はカードのタップを処理する。再生を開始した場合は再生イベントを記録する。
// 再生イベントの記録失敗は再生自体を妨げない。
func (s *FeedSession) Tap(ctx context.Context, paperID string) bool {
	if !s.playback.Tap(paperID) {
		return false
	}
	// 記録の失敗は再生自体を妨げない
	_ = s.api.RecordPlay(ctx, paperID)
	return true
}

// SlideChanged はアクティブスライドの切り替えを処理する。
// 開いているオーバーレイはすべて閉じる。再生状態を引き継いだ場合はtrueを返す。
func (s *FeedSession) SlideChanged(newIndex int, newPaperID string) bool {
	s.overlays.ActivePaperChanged()
	return s.playback.SlideChanged(newIndex, newPaperID)
}
