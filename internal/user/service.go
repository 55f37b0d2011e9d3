// Package user はプロフィールとフォロー関係のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/repository"
)

// nicknameMaxRunes はニックネームの最大文字数。
const nicknameMaxRunes = 30

// signatureMaxRunes は自己紹介文の最大文字数。
const signatureMaxRunes = 200

// Service はプロフィール・フォロー管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	followRepo  repository.FollowRepository
	collector   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	followRepo repository.FollowRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		followRepo:  followRepo,
		collector:   collector,
	}
}

// GetProfile はユーザーの公開プロフィールを集計付きで返す。
// viewerIDが空でない場合はフォロー状態を含む。
func (s *Service) GetProfile(ctx context.Context, viewerID, userID string) (*model.Profile, error) {
	profile, err := s.userRepo.ProfileByID(ctx, viewerID, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return profile, nil
}

// UpdateProfileInput はUpdateProfileの入力。
type UpdateProfileInput struct {
	Nickname  string
	AvatarURL string
	Signature string
}

// UpdateProfile はニックネーム・アバター・自己紹介文を更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.Profile, error) {
	nickname := strings.TrimSpace(input.Nickname)
	if nickname == "" {
		return nil, model.NewInvalidRequestError("ニックネームが指定されていません")
	}
	if len([]rune(nickname)) > nicknameMaxRunes {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("ニックネームは%d文字以内で入力してください", nicknameMaxRunes))
	}
	if len([]rune(input.Signature)) > signatureMaxRunes {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("自己紹介文は%d文字以内で入力してください", signatureMaxRunes))
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, nickname, input.AvatarURL, input.Signature); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	return s.GetProfile(ctx, userID, userID)
}

// SetFollow はフォロー状態を冪等に設定する。状態が変化した場合にtrueを返す。
// 自分自身へのフォローは拒否する。
func (s *Service) SetFollow(ctx context.Context, followerID, followeeID string, following bool) (bool, error) {
	if followerID == followeeID {
		return false, model.NewInvalidRequestError("自分自身をフォローすることはできません")
	}

	followee, err := s.userRepo.FindByID(ctx, followeeID)
	if err != nil {
		return false, fmt.Errorf("フォロー対象ユーザーの取得に失敗しました: %w", err)
	}
	if followee == nil {
		return false, model.NewUserNotFoundError(followeeID)
	}

	changed, err := s.followRepo.SetFollow(ctx, followerID, followeeID, following)
	if err != nil {
		return false, fmt.Errorf("フォロー状態の更新に失敗しました: %w", err)
	}
	if changed && following && s.collector != nil {
		s.collector.RecordEngagement("follow")
	}
	return changed, nil
}

// Withdraw はユーザーを退会させる。
// 全セッションを失効させたうえでユーザーと関連データを削除する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError(userID)
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return nil
}
