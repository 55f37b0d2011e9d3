// Package paper はペーパー（動画カード）のドメインロジックを提供する。
package paper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/repository"
)

// excerptMaxRunes は一覧表示用抜粋の最大文字数。
const excerptMaxRunes = 120

// ContentSanitizer はユーザー投稿HTMLの無害化インターフェース。
// security.ContentSanitizerServiceの部分集合として定義する。
type ContentSanitizer interface {
	Sanitize(rawHTML string) string
	Excerpt(rawHTML string, maxRunes int) string
}

// Service はフィード取得とペーパー操作のサービス層。
type Service struct {
	paperRepo    repository.PaperRepository
	userRepo     repository.UserRepository
	magazineRepo repository.MagazineRepository
	sanitizer    ContentSanitizer
	collector    metrics.MetricsCollector
	pageSize     int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	paperRepo repository.PaperRepository,
	userRepo repository.UserRepository,
	magazineRepo repository.MagazineRepository,
	sanitizer ContentSanitizer,
	collector metrics.MetricsCollector,
	pageSize int,
) *Service {
	return &Service{
		paperRepo:    paperRepo,
		userRepo:     userRepo,
		magazineRepo: magazineRepo,
		sanitizer:    sanitizer,
		collector:    collector,
		pageSize:     pageSize,
	}
}

// FeedPageResult はFeedPageの戻り値。
type FeedPageResult struct {
	Papers  []model.PaperWithViewerState
	Page    int
	HasMore bool
}

// validScopes は有効なフィードスコープのセット。
var validScopes = map[model.FeedScope]bool{
	model.FeedScopeAll:      true,
	model.FeedScopeMagazine: true,
	model.FeedScopeAuthor:   true,
	model.FeedScopeStarred:  true,
}

// FeedPage はフィード1ページ分のペーパーを閲覧者状態付きで返す。
// pageは1始まり。created_at降順でソートする。
// pageSize+1件を取得してHasMoreを判定する。
func (s *Service) FeedPage(
	ctx context.Context,
	viewerID string,
	scope model.FeedScope,
	scopeID string,
	page int,
) (*FeedPageResult, error) {
	if page < 1 {
		return nil, model.NewInvalidPageError(page)
	}
	if !validScopes[scope] {
		return nil, model.NewInvalidRequestError("無効なスコープ: " + string(scope))
	}
	if (scope == model.FeedScopeMagazine || scope == model.FeedScopeAuthor) && scopeID == "" {
		return nil, model.NewInvalidRequestError("スコープIDが指定されていません")
	}

	start := time.Now()
	offset := (page - 1) * s.pageSize

	// pageSize+1件を取得してHasMoreを判定する
	papers, err := s.paperRepo.ListFeed(ctx, viewerID, scope, scopeID, offset, s.pageSize+1)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}

	hasMore := len(papers) > s.pageSize
	if hasMore {
		papers = papers[:s.pageSize] // 余分な1件を除外
	}

	if s.collector != nil {
		s.collector.RecordFeedPageLoad(string(scope))
		s.collector.RecordFeedLatency(time.Since(start))
	}

	return &FeedPageResult{
		Papers:  papers,
		Page:    page,
		HasMore: hasMore,
	}, nil
}

// GetPaper はペーパー詳細を閲覧者状態付きで返す。
// 未公開・非表示のペーパーは投稿者本人にのみ見える。
func (s *Service) GetPaper(ctx context.Context, viewerID, paperID string) (*model.PaperWithViewerState, error) {
	p, err := s.paperRepo.FindWithViewerState(ctx, viewerID, paperID)
	if err != nil {
		return nil, fmt.Errorf("ペーパーの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPaperNotFoundError(paperID)
	}

	// 存在の有無を漏らさないため、閲覧不可の場合も未検出として扱う
	if p.Author.ID != viewerID {
		if p.Status != model.ReviewStatusPublished || p.IsHidden {
			return nil, model.NewPaperNotFoundError(paperID)
		}
	}

	return p, nil
}

// CreatePaperInput はCreatePaperの入力。
type CreatePaperInput struct {
	Title       string
	Description string // 生HTML。保存前にサニタイズされる。
	PosterURL   string
	VideoURL    string
	MagazineID  string // 空文字列はマガジン未所属
	Submit      bool   // trueの場合は下書きを経由せず審査待ちにする
}

// CreatePaper はペーパーを作成する。
// Submitがfalseの場合は下書き、trueの場合は審査待ちとして保存する。
func (s *Service) CreatePaper(ctx context.Context, authorID string, input CreatePaperInput) (*model.Paper, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルが指定されていません")
	}
	if input.VideoURL == "" {
		return nil, model.NewInvalidRequestError("動画が指定されていません")
	}

	author, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("投稿者の取得に失敗しました: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(authorID)
	}

	// マガジン所属の場合は所有者を確認する
	if input.MagazineID != "" {
		mag, err := s.magazineRepo.FindByID(ctx, input.MagazineID)
		if err != nil {
			return nil, fmt.Errorf("マガジンの取得に失敗しました: %w", err)
		}
		if mag == nil {
			return nil, model.NewMagazineNotFoundError(input.MagazineID)
		}
		if mag.Author.ID != authorID {
			return nil, model.NewForbiddenError()
		}
	}

	status := model.ReviewStatusDraft
	if input.Submit {
		status = model.ReviewStatusPending
	}

	description := s.sanitizer.Sanitize(input.Description)
	now := time.Now()
	p := &model.Paper{
		ID: uuid.NewString(),
		Author: model.AuthorRef{
			ID:        author.ID,
			Name:      author.Nickname,
			AvatarURL: author.AvatarURL,
		},
		Title:       title,
		Description: description,
		Excerpt:     s.sanitizer.Excerpt(description, excerptMaxRunes),
		PosterURL:   input.PosterURL,
		VideoURL:    input.VideoURL,
		MagazineID:  input.MagazineID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.paperRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("ペーパーの作成に失敗しました: %w", err)
	}

	return p, nil
}

// SubmitPaper は下書きペーパーを審査待ちに遷移させる。
func (s *Service) SubmitPaper(ctx context.Context, authorID, paperID string) error {
	p, err := s.findOwnedPaper(ctx, authorID, paperID)
	if err != nil {
		return err
	}
	if p.Status != model.ReviewStatusDraft && p.Status != model.ReviewStatusRejected {
		return model.NewInvalidRequestError("下書きまたは却下済みのペーパーのみ提出できます")
	}

	if err := s.paperRepo.UpdateStatus(ctx, paperID, model.ReviewStatusPending); err != nil {
		return fmt.Errorf("審査状態の更新に失敗しました: %w", err)
	}
	return nil
}

// UpdatePaperInput はUpdatePaperの入力。
type UpdatePaperInput struct {
	Title       string
	Description string
	PosterURL   string
}

// UpdatePaper はペーパーのタイトル・説明・ポスターを更新する。投稿者のみ実行できる。
func (s *Service) UpdatePaper(ctx context.Context, authorID, paperID string, input UpdatePaperInput) (*model.Paper, error) {
	p, err := s.findOwnedPaper(ctx, authorID, paperID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルが指定されていません")
	}

	p.Title = title
	p.Description = s.sanitizer.Sanitize(input.Description)
	p.Excerpt = s.sanitizer.Excerpt(p.Description, excerptMaxRunes)
	if input.PosterURL != "" {
		p.PosterURL = input.PosterURL
	}
	p.UpdatedAt = time.Now()

	if err := s.paperRepo.UpdateContent(ctx, p); err != nil {
		return nil, fmt.Errorf("ペーパーの更新に失敗しました: %w", err)
	}
	return p, nil
}

// SetLike はいいね状態を冪等に設定する。状態が変化した場合にtrueを返す。
func (s *Service) SetLike(ctx context.Context, userID, paperID string, liked bool) (bool, error) {
	if err := s.ensurePublished(ctx, paperID); err != nil {
		return false, err
	}

	changed, err := s.paperRepo.SetLike(ctx, userID, paperID, liked)
	if err != nil {
		return false, fmt.Errorf("いいね状態の更新に失敗しました: %w", err)
	}
	if changed && liked && s.collector != nil {
		s.collector.RecordEngagement("like")
	}
	return changed, nil
}

// SetStar はスター状態を冪等に設定する。状態が変化した場合にtrueを返す。
func (s *Service) SetStar(ctx context.Context, userID, paperID string, starred bool) (bool, error) {
	if err := s.ensurePublished(ctx, paperID); err != nil {
		return false, err
	}

	changed, err := s.paperRepo.SetStar(ctx, userID, paperID, starred)
	if err != nil {
		return false, fmt.Errorf("スター状態の更新に失敗しました: %w", err)
	}
	if changed && starred && s.collector != nil {
		s.collector.RecordEngagement("star")
	}
	return changed, nil
}

// SetTop はマガジン内ピン留めフラグを設定する。投稿者のみ実行できる。
// フラグのみ保持し、並び替えは行わない。
func (s *Service) SetTop(ctx context.Context, authorID, paperID string, top bool) error {
	if _, err := s.findOwnedPaper(ctx, authorID, paperID); err != nil {
		return err
	}
	if err := s.paperRepo.SetTop(ctx, paperID, top); err != nil {
		return fmt.Errorf("ピン留めフラグの更新に失敗しました: %w", err)
	}
	return nil
}

// SetHidden は非表示フラグを設定する。投稿者のみ実行できる。
func (s *Service) SetHidden(ctx context.Context, authorID, paperID string, hidden bool) error {
	if _, err := s.findOwnedPaper(ctx, authorID, paperID); err != nil {
		return err
	}
	if err := s.paperRepo.SetHidden(ctx, paperID, hidden); err != nil {
		return fmt.Errorf("非表示フラグの更新に失敗しました: %w", err)
	}
	return nil
}

// DeletePaper はペーパーを削除する。投稿者のみ実行できる。
func (s *Service) DeletePaper(ctx context.Context, authorID, paperID string) error {
	if _, err := s.findOwnedPaper(ctx, authorID, paperID); err != nil {
		return err
	}
	if err := s.paperRepo.Delete(ctx, paperID); err != nil {
		return fmt.Errorf("ペーパーの削除に失敗しました: %w", err)
	}
	return nil
}

// RecordPlay は再生開始を記録する。公開済みペーパーのみ対象。
func (s *Service) RecordPlay(ctx context.Context, paperID string) error {
	if err := s.ensurePublished(ctx, paperID); err != nil {
		return err
	}
	if err := s.paperRepo.IncrementPlayCount(ctx, paperID); err != nil {
		return fmt.Errorf("再生数の更新に失敗しました: %w", err)
	}
	return nil
}

// findOwnedPaper はペーパーを取得し、投稿者本人であることを検証する。
func (s *Service) findOwnedPaper(ctx context.Context, authorID, paperID string) (*model.Paper, error) {
	p, err := s.paperRepo.FindByID(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("ペーパーの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPaperNotFoundError(paperID)
	}
	if p.Author.ID != authorID {
		return nil, model.NewForbiddenError()
	}
	return p, nil
}

// ensurePublished はペーパーが存在し公開済みであることを検証する。
func (s *Service) ensurePublished(ctx context.Context, paperID string) error {
	p, err := s.paperRepo.FindByID(ctx, paperID)
	if err != nil {
		return fmt.Errorf("ペーパーの取得に失敗しました: %w", err)
	}
	if p == nil {
		return model.NewPaperNotFoundError(paperID)
	}
	if p.Status != model.ReviewStatusPublished {
		return model.NewNotPublishedError(paperID)
	}
	return nil
}
