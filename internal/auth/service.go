package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/repository"
)

// ServiceConfig はauth.Serviceの設定を保持する。
type ServiceConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// Service はサインアップ・ログイン・ログアウト・トークン検証を提供する。
// アクセストークンはセッション行と1:1で対応し、ログアウトでセッションを削除すると
// トークンの残存期限に関わらず即時失効する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	secret      []byte
	tokenTTL    time.Duration
}

// NewService はauth.Serviceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		secret:      []byte(config.TokenSecret),
		tokenTTL:    config.TokenTTL,
	}
}

// Signup は新規ユーザーを登録し、発行したアクセストークンを返す。
// メールアドレスが登録済みの場合はEMAIL_TAKENエラーを返す。
func (s *Service) Signup(ctx context.Context, email, password, nickname, deviceID string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", model.NewInvalidRequestError("メールアドレスの形式が不正です")
	}
	if len(password) < 8 {
		return nil, "", model.NewInvalidRequestError("パスワードは8文字以上で指定してください")
	}
	if strings.TrimSpace(nickname) == "" {
		return nil, "", model.NewInvalidRequestError("ニックネームを指定してください")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Nickname:     strings.TrimSpace(nickname),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(ctx, user.ID, deviceID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// 不一致の場合はユーザーの存在有無を区別しないINVALID_CREDENTIALSエラーを返す。
func (s *Service) Login(ctx context.Context, email, password, deviceID string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.issueToken(ctx, user.ID, deviceID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout はトークンに対応するセッションを削除する。
// トークンが不正な場合もエラーにはせず、冪等に成功を返す。
func (s *Service) Logout(ctx context.Context, tokenStr string) error {
	claims, err := ParseToken(s.secret, tokenStr)
	if err != nil {
		return nil
	}
	return s.sessionRepo.DeleteByID(ctx, claims.RegisteredClaims.ID)
}

// Verify はアクセストークンを検証し、認証済みユーザーIDを返す。
// 署名不正・期限切れ・セッション失効（ログアウト済み）の場合はエラーを返す。
func (s *Service) Verify(ctx context.Context, tokenStr string) (string, error) {
	claims, err := ParseToken(s.secret, tokenStr)
	if err != nil {
		return "", err
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.RegisteredClaims.ID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("session not found or expired")
	}

	return claims.UserID, nil
}

// issueToken はセッション行を作成し、対応するアクセストークンを署名する。
func (s *Service) issueToken(ctx context.Context, userID, deviceID string) (string, error) {
	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		DeviceID:  deviceID,
		ExpiresAt: now.Add(s.tokenTTL),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", err
	}

	return SignToken(s.secret, userID, session.ID, deviceID, s.tokenTTL)
}
