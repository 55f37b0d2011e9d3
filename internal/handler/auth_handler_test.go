package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yshimura/magfeed/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn func(ctx context.Context, email, password, nickname, deviceID string) (*model.User, string, error)
	loginFn  func(ctx context.Context, email, password, deviceID string) (*model.User, string, error)
	logoutFn func(ctx context.Context, token string) error
}

func (m *mockAuthService) Signup(ctx context.Context, email, password, nickname, deviceID string) (*model.User, string, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password, nickname, deviceID)
	}
	return &model.User{}, "", nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password, deviceID string) (*model.User, string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password, deviceID)
	}
	return &model.User{}, "", nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, email, password, nickname, deviceID string) (*model.User, string, error) {
			if email != "taro@example.com" {
				t.Errorf("email = %q, want %q", email, "taro@example.com")
			}
			if deviceID != "device-abc" {
				t.Errorf("deviceID = %q, want %q", deviceID, "device-abc")
			}
			return &model.User{ID: "user-new", Email: email, Nickname: nickname}, "token-xyz", nil
		},
	}

	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{
		"email":    "taro@example.com",
		"password": "secret-password",
		"nickname": "タロウ",
	})
	req := httptest.NewRequest(http.MethodPost, "/passport/signup", body)
	req.Header.Set("X-Device-Id", "device-abc")
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	result := decodeResult(t, w)
	if result["token"] != "token-xyz" {
		t.Errorf("token = %v, want %q", result["token"], "token-xyz")
	}
	user, ok := result["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user object in result")
	}
	if user["id"] != "user-new" {
		t.Errorf("user.id = %v, want %q", user["id"], "user-new")
	}
}

func TestAuthHandler_Signup_EmailTaken(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, email, password, nickname, deviceID string) (*model.User, string, error) {
			return nil, "", model.NewEmailTakenError()
		},
	}

	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"email": "taken@example.com", "password": "pw", "nickname": "n"})
	req := httptest.NewRequest(http.MethodPost, "/passport/signup", body)
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeEmailTaken {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeEmailTaken)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password, deviceID string) (*model.User, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}

	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"email": "taro@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/passport/login", body)
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Login_DefaultDeviceID(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password, deviceID string) (*model.User, string, error) {
			if deviceID != "unknown" {
				t.Errorf("deviceID = %q, want %q", deviceID, "unknown")
			}
			return &model.User{ID: "user-1"}, "token", nil
		},
	}

	h := NewAuthHandler(svc)

	body := jsonBody(t, map[string]string{"email": "taro@example.com", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/passport/login", body)
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthHandler_Logout_PassesToken(t *testing.T) {
	var gotToken string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			gotToken = token
			return nil
		},
	}

	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/passport/logout", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotToken != "token-abc" {
		t.Errorf("token = %q, want %q", gotToken, "token-abc")
	}
}

func TestAuthHandler_Logout_WithoutTokenIsIdempotent(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			t.Error("Logout should not be called without a token")
			return nil
		},
	}

	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/passport/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
