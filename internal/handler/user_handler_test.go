package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/user"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	getProfileFn    func(ctx context.Context, viewerID, userID string) (*model.Profile, error)
	updateProfileFn func(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.Profile, error)
	setFollowFn     func(ctx context.Context, followerID, followeeID string, following bool) (bool, error)
	withdrawFn      func(ctx context.Context, userID string) error
}

func (m *mockUserService) GetProfile(ctx context.Context, viewerID, userID string) (*model.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, viewerID, userID)
	}
	return &model.Profile{}, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.Profile, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, input)
	}
	return &model.Profile{}, nil
}

func (m *mockUserService) SetFollow(ctx context.Context, followerID, followeeID string, following bool) (bool, error) {
	if m.setFollowFn != nil {
		return m.setFollowFn(ctx, followerID, followeeID, following)
	}
	return false, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

func TestUserHandler_GetProfile_Success(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(ctx context.Context, viewerID, userID string) (*model.Profile, error) {
			if viewerID != "user-123" {
				t.Errorf("viewerID = %q, want %q", viewerID, "user-123")
			}
			if userID != "user-456" {
				t.Errorf("userID = %q, want %q", userID, "user-456")
			}
			return &model.Profile{
				ID:            "user-456",
				Nickname:      "映像作家タロウ",
				FollowerCount: 42,
				IsFollowed:    true,
			}, nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/users/user-456/profile", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "user-456")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeResult(t, w)
	if result["nickname"] != "映像作家タロウ" {
		t.Errorf("nickname = %v, want %q", result["nickname"], "映像作家タロウ")
	}
	if result["is_followed"] != true {
		t.Errorf("is_followed = %v, want true", result["is_followed"])
	}
}

func TestUserHandler_GetProfile_MeResolvesToViewer(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(ctx context.Context, viewerID, userID string) (*model.Profile, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want viewer's own ID", userID)
			}
			return &model.Profile{ID: userID}, nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sns/users/me/profile", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "me")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUserHandler_UpdateProfile_Success(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.Profile, error) {
			if input.Nickname != "新しい名前" {
				t.Errorf("nickname = %q, want %q", input.Nickname, "新しい名前")
			}
			return &model.Profile{ID: userID, Nickname: input.Nickname}, nil
		},
	}

	h := NewUserHandler(svc)

	body := jsonBody(t, map[string]string{"nickname": "新しい名前"})
	req := httptest.NewRequest(http.MethodPatch, "/sns/users/me", body)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeResult(t, w)
	if result["nickname"] != "新しい名前" {
		t.Errorf("nickname = %v, want %q", result["nickname"], "新しい名前")
	}
}

func TestUserHandler_SetFollow_SelfFollowRejected(t *testing.T) {
	svc := &mockUserService{
		setFollowFn: func(ctx context.Context, followerID, followeeID string, following bool) (bool, error) {
			return false, model.NewInvalidRequestError("自分自身はフォローできません")
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/sns/users/user-123/follow", jsonBody(t, map[string]bool{"value": true}))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "user-123")
	w := httptest.NewRecorder()

	h.SetFollow(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_SetFollow_Changed(t *testing.T) {
	svc := &mockUserService{
		setFollowFn: func(ctx context.Context, followerID, followeeID string, following bool) (bool, error) {
			if followerID != "user-123" || followeeID != "user-456" {
				t.Errorf("follow %q -> %q, want user-123 -> user-456", followerID, followeeID)
			}
			return true, nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/sns/users/user-456/follow", jsonBody(t, map[string]bool{"value": true}))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "user-456")
	w := httptest.NewRecorder()

	h.SetFollow(w, req)

	result := decodeResult(t, w)
	if result["changed"] != true {
		t.Errorf("changed = %v, want true", result["changed"])
	}
}

func TestUserHandler_Withdraw_Success(t *testing.T) {
	var withdrawnID string
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawnID = userID
			return nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/sns/users/me", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if withdrawnID != "user-123" {
		t.Errorf("withdrawnID = %q, want %q", withdrawnID, "user-123")
	}
}

func TestUserHandler_Withdraw_Unauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodDelete, "/sns/users/me", nil)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
