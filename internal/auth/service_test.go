package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yshimura/magfeed/internal/model"
)

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn == nil {
		return nil, nil
	}
	return m.findByEmailFn(ctx, email)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, user)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, nickname, avatarURL, signature string) error {
	return nil
}

func (m *mockUserRepo) ProfileByID(ctx context.Context, viewerID, userID string) (*model.Profile, error) {
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

// mockSessionRepo はSessionRepositoryのモック実装。セッションをメモリに保持する。
type mockSessionRepo struct {
	sessions map[string]*model.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

func newTestService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(userRepo, sessionRepo, ServiceConfig{
		TokenSecret: "test-token-secret-32bytes-long!!",
		TokenTTL:    time.Hour,
	})
}

func TestSignup_IssuesVerifiableToken(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	sessionRepo := newMockSessionRepo()
	s := newTestService(userRepo, sessionRepo)

	user, token, err := s.Signup(context.Background(), "Taro@Example.com", "password123", "太郎", "device-1")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if user.Email != "taro@example.com" {
		t.Errorf("Email = %q, want normalized %q", user.Email, "taro@example.com")
	}
	if created == nil || created.PasswordHash == "password123" || created.PasswordHash == "" {
		t.Error("password should be stored as a bcrypt hash")
	}

	// 発行されたトークンがそのまま検証を通ること
	userID, err := s.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != user.ID {
		t.Errorf("Verify() userID = %q, want %q", userID, user.ID)
	}
}

func TestSignup_EmailTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	s := newTestService(userRepo, newMockSessionRepo())

	_, _, err := s.Signup(context.Background(), "taro@example.com", "password123", "太郎", "d")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("error = %v, want EMAIL_TAKEN", err)
	}
}

func TestSignup_ValidatesInput(t *testing.T) {
	s := newTestService(&mockUserRepo{}, newMockSessionRepo())

	tests := []struct {
		name     string
		email    string
		password string
		nickname string
	}{
		{"invalid email", "not-an-email", "password123", "太郎"},
		{"short password", "taro@example.com", "short", "太郎"},
		{"empty nickname", "taro@example.com", "password123", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Signup(context.Background(), tt.email, tt.password, tt.nickname, "d")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
				t.Errorf("error = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := &mockUserRepo{}
	sessionRepo := newMockSessionRepo()
	s := newTestService(userRepo, sessionRepo)

	// 先にサインアップして正しいハッシュをリポジトリに覚えさせる
	var stored *model.User
	userRepo.createFn = func(_ context.Context, user *model.User) error {
		stored = user
		return nil
	}
	if _, _, err := s.Signup(context.Background(), "taro@example.com", "password123", "太郎", "d"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	userRepo.findByEmailFn = func(_ context.Context, email string) (*model.User, error) {
		if email == stored.Email {
			return stored, nil
		}
		return nil, nil
	}

	_, _, err := s.Login(context.Background(), "taro@example.com", "wrong-password", "d")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("error = %v, want INVALID_CREDENTIALS", err)
	}
}

func TestLogin_UnknownEmail_SameError(t *testing.T) {
	s := newTestService(&mockUserRepo{}, newMockSessionRepo())

	// ユーザーの存在有無を区別しないエラーであること
	_, _, err := s.Login(context.Background(), "nobody@example.com", "password123", "d")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("error = %v, want INVALID_CREDENTIALS", err)
	}
}

func TestLogout_RevokesTokenImmediately(t *testing.T) {
	userRepo := &mockUserRepo{}
	sessionRepo := newMockSessionRepo()
	s := newTestService(userRepo, sessionRepo)

	_, token, err := s.Signup(context.Background(), "taro@example.com", "password123", "太郎", "d")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if err := s.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	// 期限内のトークンでもセッション削除後は検証に失敗すること
	if _, err := s.Verify(context.Background(), token); err == nil {
		t.Error("Verify() after logout = nil, want error")
	}
}

func TestLogout_InvalidToken_Idempotent(t *testing.T) {
	s := newTestService(&mockUserRepo{}, newMockSessionRepo())

	if err := s.Logout(context.Background(), "not-a-jwt"); err != nil {
		t.Errorf("Logout(invalid token) error = %v, want nil", err)
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	userRepo := &mockUserRepo{}
	s := newTestService(userRepo, newMockSessionRepo())

	_, token, err := s.Signup(context.Background(), "taro@example.com", "password123", "太郎", "d")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	// 署名部分を破壊したトークンは拒否されること
	tampered := token[:len(token)-4] + "xxxx"
	if _, err := s.Verify(context.Background(), tampered); err == nil {
		t.Error("Verify(tampered) = nil, want error")
	}
}
