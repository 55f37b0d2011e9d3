// Package comment はコメントと返信のドメインロジックを提供する。
package comment

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

// bodyMaxRunes はコメント本文の最大文字数。
const bodyMaxRunes = 1000

// ContentSanitizer はコメント本文の無害化インターフェース。
type ContentSanitizer interface {
	Sanitize(rawHTML string) string
}

// Service はコメント管理のサービス層。
// 返信のネストは1段まで。返信への返信は拒否する。
type Service struct {
	commentRepo repository.CommentRepository
	paperRepo   repository.PaperRepository
	userRepo    repository.UserRepository
	sanitizer   ContentSanitizer
	collector   metrics.MetricsCollector
	pageSize    int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	commentRepo repository.CommentRepository,
	paperRepo repository.PaperRepository,
	userRepo repository.UserRepository,
	sanitizer ContentSanitizer,
	collector metrics.MetricsCollector,
	pageSize int,
) *Service {
	return &Service{
		commentRepo: commentRepo,
		paperRepo:   paperRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
		collector:   collector,
		pageSize:    pageSize,
	}
}

// CommentListResult はコメント一覧取得の戻り値。
type CommentListResult struct {
	Comments []model.CommentWithViewerState
	Page     int
	HasMore  bool
}

// ListComments はペーパー直下のコメント1ページ分を返す。pageは1始まり、created_at降順。
func (s *Service) ListComments(ctx context.Context, viewerID, paperID string, page int) (*CommentListResult, error) {
	if page < 1 {
		return nil, model.NewInvalidPageError(page)
	}

	p, err := s.paperRepo.FindByID(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("ペーパーの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPaperNotFoundError(paperID)
	}

	offset := (page - 1) * s.pageSize
	comments, err := s.commentRepo.ListByPaper(ctx, viewerID, paperID, offset, s.pageSize+1)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}

	hasMore := len(comments) > s.pageSize
	if hasMore {
		comments = comments[:s.pageSize]
	}

	return &CommentListResult{
		Comments: comments,
		Page:     page,
		HasMore:  hasMore,
	}, nil
}

// ListReplies は指定コメントへの返信1ページ分をcreated_at昇順で返す。
func (s *Service) ListReplies(ctx context.Context, viewerID, commentID string, page int) (*CommentListResult, error) {
	if page < 1 {
		return nil, model.NewInvalidPageError(page)
	}

	parent, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if parent == nil {
		return nil, model.NewCommentNotFoundError(commentID)
	}

	offset := (page - 1) * s.pageSize
	replies, err := s.commentRepo.ListReplies(ctx, viewerID, commentID, offset, s.pageSize+1)
	if err != nil {
		return nil, fmt.Errorf("返信一覧の取得に失敗しました: %w", err)
	}

	hasMore := len(replies) > s.pageSize
	if hasMore {
		replies = replies[:s.pageSize]
	}

	return &CommentListResult{
		Comments: replies,
		Page:     page,
		HasMore:  hasMore,
	}, nil
}

// AddComment はペーパーにコメントまたは返信を追加する。
// parentIDが空でない場合は返信として扱う。返信への返信は拒否する。
func (s *Service) AddComment(ctx context.Context, userID, paperID, parentID, body string) (*model.Comment, error) {
	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(body))
	if sanitized == "" {
		return nil, model.NewInvalidRequestError("コメント本文が指定されていません")
	}
	if len([]rune(sanitized)) > bodyMaxRunes {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("コメント本文は%d文字以内で入力してください", bodyMaxRunes))
	}

	p, err := s.paperRepo.FindByID(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("ペーパーの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPaperNotFoundError(paperID)
	}
	if p.Status != model.ReviewStatusPublished {
		return nil, model.NewNotPublishedError(paperID)
	}

	if parentID != "" {
		parent, err := s.commentRepo.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("親コメントの取得に失敗しました: %w", err)
		}
		if parent == nil || parent.PaperID != paperID {
			return nil, model.NewCommentNotFoundError(parentID)
		}
		// ネストは1段まで
		if parent.ParentID != "" {
			return nil, model.NewReplyDepthExceededError()
		}
	}

	author, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("投稿者の取得に失敗しました: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	c := &model.Comment{
		ID:       uuid.NewString(),
		PaperID:  paperID,
		ParentID: parentID,
		Author: model.AuthorRef{
			ID:        author.ID,
			Name:      author.Nickname,
			AvatarURL: author.AvatarURL,
		},
		Body:      sanitized,
		CreatedAt: time.Now(),
	}

	if err := s.commentRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordEngagement("comment")
	}

	return c, nil
}

// SetLike はコメントのいいね状態を冪等に設定する。状態が変化した場合にtrueを返す。
func (s *Service) SetLike(ctx context.Context, userID, commentID string, liked bool) (bool, error) {
	c, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return false, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return false, model.NewCommentNotFoundError(commentID)
	}

	changed, err := s.commentRepo.SetLike(ctx, userID, commentID, liked)
	if err != nil {
		return false, fmt.Errorf("いいね状態の更新に失敗しました: %w", err)
	}
	return changed, nil
}

// DeleteComment はコメントを削除する。
// コメント投稿者本人、またはペーパーの投稿者のみ実行できる。
func (s *Service) DeleteComment(ctx context.Context, userID, commentID string) error {
	c, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return model.NewCommentNotFoundError(commentID)
	}

	if c.Author.ID != userID {
		// ペーパー投稿者にも削除権限を与える
		p, err := s.paperRepo.FindByID(ctx, c.PaperID)
		if err != nil {
			return fmt.Errorf("ペーパーの取得に失敗しました: %w", err)
		}
		if p == nil || p.Author.ID != userID {
			return model.NewForbiddenError()
		}
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	return nil
}
