package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yshimura/magfeed/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Signup は新規ユーザーを登録し、アクセストークンを発行する。
	Signup(ctx context.Context, email, password, nickname, deviceID string) (*model.User, string, error)
	// Login は認証情報を検証し、アクセストークンを発行する。
	Login(ctx context.Context, email, password, deviceID string) (*model.User, string, error)
	// Logout はトークンに対応するセッションを失効させる。冪等。
	Logout(ctx context.Context, token string) error
}

// AuthHandler は認証（パスポート）のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse は認証成功時のレスポンス。
type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// userResponse は本人向けのユーザー情報レスポンス。
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Signature string `json:"signature"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Nickname:  u.Nickname,
		AvatarURL: u.AvatarURL,
		Signature: u.Signature,
	}
}

// Signup は新規ユーザーを登録する。
// POST /passport/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, token, err := h.service.Signup(r.Context(), req.Email, req.Password, req.Nickname, deviceIDFromHeader(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusCreated, authResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

// Login はメールアドレスとパスワードでログインする。
// POST /passport/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password, deviceIDFromHeader(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, authResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

// Logout は現在のセッションを失効させる。冪等。
// POST /passport/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			handleServiceError(w, err)
			return
		}
	}
	writeResult(w, http.StatusOK, map[string]bool{"ok": true})
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// deviceIDFromHeader はX-Device-Idヘッダーを取得する。未指定の場合は"unknown"。
func deviceIDFromHeader(r *http.Request) string {
	deviceID := r.Header.Get("X-Device-Id")
	if deviceID == "" {
		return "unknown"
	}
	return deviceID
}
