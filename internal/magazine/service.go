// Package magazine はマガジン（ペーパーのコレクション）のドメインロジックを提供する。
package magazine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/repository"
)

// previewPaperLimit は購読フィードのマガジンごとに埋め込むペーパー数。
const previewPaperLimit = 3

// Service はマガジン管理のサービス層。
type Service struct {
	magazineRepo repository.MagazineRepository
	paperRepo    repository.PaperRepository
	userRepo     repository.UserRepository
	collector    metrics.MetricsCollector
	pageSize     int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	magazineRepo repository.MagazineRepository,
	paperRepo repository.PaperRepository,
	userRepo repository.UserRepository,
	collector metrics.MetricsCollector,
	pageSize int,
) *Service {
	return &Service{
		magazineRepo: magazineRepo,
		paperRepo:    paperRepo,
		userRepo:     userRepo,
		collector:    collector,
		pageSize:     pageSize,
	}
}

// MagazineListResult はマガジン一覧取得の戻り値。
type MagazineListResult struct {
	Magazines []model.MagazineWithViewerState
	Page      int
	HasMore   bool
}

// GetMagazine はマガジン詳細を購読状態付きで返し、閲覧数を加算する。
// 非公開マガジンは所有者本人にのみ見える。
func (s *Service) GetMagazine(ctx context.Context, viewerID, magazineID string) (*model.MagazineWithViewerState, error) {
	mag, err := s.magazineRepo.FindWithViewerState(ctx, viewerID, magazineID)
	if err != nil {
		return nil, fmt.Errorf("マガジンの取得に失敗しました: %w", err)
	}
	if mag == nil {
		return nil, model.NewMagazineNotFoundError(magazineID)
	}
	if !mag.IsPublic && mag.Author.ID != viewerID {
		return nil, model.NewMagazineNotFoundError(magazineID)
	}

	// 閲覧数の加算失敗は詳細取得の失敗として扱わない
	if err := s.magazineRepo.IncrementViewCount(ctx, magazineID); err != nil {
		slog.Warn("failed to increment magazine view count",
			slog.String("magazine_id", magazineID),
			slog.String("error", err.Error()),
		)
	}

	return mag, nil
}

// ListRecommended はおすすめマガジンの1ページ分を返す。pageは1始まり。
func (s *Service) ListRecommended(ctx context.Context, viewerID string, page int) (*MagazineListResult, error) {
	return s.listPage(ctx, page, func(offset, limit int) ([]model.MagazineWithViewerState, error) {
		return s.magazineRepo.ListRecommended(ctx, viewerID, offset, limit)
	})
}

// ListSubscribed は閲覧者が購読中のマガジンの1ページ分を、
// 各マガジン先頭のペーパープレビュー付きで返す。
func (s *Service) ListSubscribed(ctx context.Context, userID string, page int) (*MagazineListResult, error) {
	result, err := s.listPage(ctx, page, func(offset, limit int) ([]model.MagazineWithViewerState, error) {
		return s.magazineRepo.ListSubscribed(ctx, userID, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	// プレビュー用に各マガジンの先頭ペーパーを埋め込む
	for i := range result.Magazines {
		papers, err := s.paperRepo.ListFeed(ctx, userID, model.FeedScopeMagazine, result.Magazines[i].ID, 0, previewPaperLimit)
		if err != nil {
			return nil, fmt.Errorf("プレビューの取得に失敗しました: %w", err)
		}
		result.Magazines[i].Papers = papers
	}

	return result, nil
}

// ListByAuthor は投稿者のマガジンの1ページ分を返す。
// 所有者以外の閲覧では公開マガジンのみ返す想定（フィルタはリポジトリ側で行う）。
func (s *Service) ListByAuthor(ctx context.Context, viewerID, authorID string, page int) (*MagazineListResult, error) {
	return s.listPage(ctx, page, func(offset, limit int) ([]model.MagazineWithViewerState, error) {
		return s.magazineRepo.ListByAuthor(ctx, viewerID, authorID, offset, limit)
	})
}

// listPage はpageSize+1件取得方式の共通ページネーション処理。
func (s *Service) listPage(ctx context.Context, page int, fetch func(offset, limit int) ([]model.MagazineWithViewerState, error)) (*MagazineListResult, error) {
	if page < 1 {
		return nil, model.NewInvalidPageError(page)
	}

	offset := (page - 1) * s.pageSize
	magazines, err := fetch(offset, s.pageSize+1)
	if err != nil {
		return nil, fmt.Errorf("マガジン一覧の取得に失敗しました: %w", err)
	}

	hasMore := len(magazines) > s.pageSize
	if hasMore {
		magazines = magazines[:s.pageSize]
	}

	return &MagazineListResult{
		Magazines: magazines,
		Page:      page,
		HasMore:   hasMore,
	}, nil
}

// CreateMagazineInput はCreateMagazineの入力。
type CreateMagazineInput struct {
	Title       string
	Description string
	CoverURL    string
	IsPublic    bool
}

// CreateMagazine はマガジンを作成する。
func (s *Service) CreateMagazine(ctx context.Context, authorID string, input CreateMagazineInput) (*model.Magazine, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルが指定されていません")
	}

	author, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("投稿者の取得に失敗しました: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(authorID)
	}

	now := time.Now()
	mag := &model.Magazine{
		ID: uuid.NewString(),
		Author: model.AuthorRef{
			ID:        author.ID,
			Name:      author.Nickname,
			AvatarURL: author.AvatarURL,
		},
		Title:       title,
		Description: input.Description,
		CoverURL:    input.CoverURL,
		IsPublic:    input.IsPublic,
		EditorCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.magazineRepo.Create(ctx, mag); err != nil {
		return nil, fmt.Errorf("マガジンの作成に失敗しました: %w", err)
	}

	return mag, nil
}

// UpdateMagazineInput はUpdateMagazineの入力。
type UpdateMagazineInput struct {
	Title       string
	Description string
	CoverURL    string
	IsPublic    bool
}

// UpdateMagazine はマガジンのタイトル・説明・カバー・公開フラグを更新する。
// 所有者のみ実行できる。
func (s *Service) UpdateMagazine(ctx context.Context, authorID, magazineID string, input UpdateMagazineInput) (*model.Magazine, error) {
	mag, err := s.magazineRepo.FindByID(ctx, magazineID)
	if err != nil {
		return nil, fmt.Errorf("マガジンの取得に失敗しました: %w", err)
	}
	if mag == nil {
		return nil, model.NewMagazineNotFoundError(magazineID)
	}
	if mag.Author.ID != authorID {
		return nil, model.NewForbiddenError()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルが指定されていません")
	}

	mag.Title = title
	mag.Description = input.Description
	if input.CoverURL != "" {
		mag.CoverURL = input.CoverURL
	}
	mag.IsPublic = input.IsPublic
	mag.UpdatedAt = time.Now()

	if err := s.magazineRepo.Update(ctx, mag); err != nil {
		return nil, fmt.Errorf("マガジンの更新に失敗しました: %w", err)
	}

	return mag, nil
}

// SetSubscribed は購読状態を冪等に設定する。状態が変化した場合にtrueを返す。
// 非公開マガジンは所有者以外購読できない。
func (s *Service) SetSubscribed(ctx context.Context, userID, magazineID string, subscribed bool) (bool, error) {
	mag, err := s.magazineRepo.FindByID(ctx, magazineID)
	if err != nil {
		return false, fmt.Errorf("マガジンの取得に失敗しました: %w", err)
	}
	if mag == nil {
		return false, model.NewMagazineNotFoundError(magazineID)
	}
	if !mag.IsPublic && mag.Author.ID != userID {
		return false, model.NewMagazineNotFoundError(magazineID)
	}

	changed, err := s.magazineRepo.SetSubscribed(ctx, userID, magazineID, subscribed)
	if err != nil {
		return false, fmt.Errorf("購読状態の更新に失敗しました: %w", err)
	}
	if changed && subscribed && s.collector != nil {
		s.collector.RecordEngagement("subscribe")
	}
	return changed, nil
}
