package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yshimura/magfeed/internal/middleware"
	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, viewerID, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.Profile, error)
	SetFollow(ctx context.Context, followerID, followeeID string, following bool) (bool, error)
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Signature string `json:"signature"`
}

// GetProfile はユーザープロフィールを取得する。
// GET /sns/users/:id/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == "me" {
		targetID = viewerID
	}

	profile, err := h.service.GetProfile(r.Context(), viewerID, targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateProfile は本人のニックネーム・アバター・自己紹介文を更新する。
// PATCH /sns/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, user.UpdateProfileInput{
		Nickname:  req.Nickname,
		AvatarURL: req.AvatarURL,
		Signature: req.Signature,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, toProfileResponse(profile))
}

// SetFollow はフォロー状態を設定する。冪等。自分自身はフォローできない。
// PUT /sns/users/:id/follow
func (h *UserHandler) SetFollow(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req setValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	changed, err := h.service.SetFollow(r.Context(), userID, chi.URLParam(r, "id"), req.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, changedResponse{Changed: changed})
}

// Withdraw は本人のアカウントを退会させる。全セッションが失効する。
// DELETE /sns/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
