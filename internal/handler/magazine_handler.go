package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yshimura/magfeed/internal/magazine"
	"github.com/yshimura/magfeed/internal/middleware"
	"github.com/yshimura/magfeed/internal/model"
)

// MagazineServiceInterface はマガジンハンドラーが必要とするサービスインターフェース。
type MagazineServiceInterface interface {
	GetMagazine(ctx context.Context, viewerID, magazineID string) (*model.MagazineWithViewerState, error)
	ListRecommended(ctx context.Context, viewerID string, page int) (*magazine.MagazineListResult, error)
	ListSubscribed(ctx context.Context, userID string, page int) (*magazine.MagazineListResult, error)
	ListByAuthor(ctx context.Context, viewerID, authorID string, page int) (*magazine.MagazineListResult, error)
	CreateMagazine(ctx context.Context, authorID string, input magazine.CreateMagazineInput) (*model.Magazine, error)
	UpdateMagazine(ctx context.Context, authorID, magazineID string, input magazine.UpdateMagazineInput) (*model.Magazine, error)
	SetSubscribed(ctx context.Context, userID, magazineID string, subscribed bool) (bool, error)
}

// MagazineHandler はマガジン管理のHTTPハンドラー。
type MagazineHandler struct {
	service MagazineServiceInterface
}

// NewMagazineHandler はMagazineHandlerを生成する。
func NewMagazineHandler(service MagazineServiceInterface) *MagazineHandler {
	return &MagazineHandler{service: service}
}

// magazineRequest はマガジン作成・更新リクエストのボディ。
type magazineRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url"`
	IsPublic    bool   `json:"is_public"`
}

// ListRecommended はおすすめマガジン1ページ分を取得する。
// GET /sns/magazines/recommended?page=1
func (h *MagazineHandler) ListRecommended(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListRecommended)
}

// ListSubscribed は購読中マガジン1ページ分を取得する。各マガジンに先頭ペーパーを埋め込む。
// GET /sns/magazines/subscribed?page=1
func (h *MagazineHandler) ListSubscribed(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListSubscribed)
}

// list はおすすめ・購読中一覧の共通処理。
func (h *MagazineHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(ctx context.Context, viewerID string, page int) (*magazine.MagazineListResult, error),
) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	page, err := pageParam(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := fetch(r.Context(), userID, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeListResult(w, http.StatusOK, toMagazineResponses(result.Magazines), result.HasMore)
}

// ListByAuthor は指定ユーザーが作成したマガジン1ページ分を取得する。
// GET /sns/users/:id/magazines?page=1
func (h *MagazineHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	page, err := pageParam(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.ListByAuthor(r.Context(), userID, chi.URLParam(r, "id"), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeListResult(w, http.StatusOK, toMagazineResponses(result.Magazines), result.HasMore)
}

// GetMagazine はマガジン詳細を取得する。閲覧数が加算される。
// GET /sns/magazines/:id
func (h *MagazineHandler) GetMagazine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	mag, err := h.service.GetMagazine(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, toMagazineResponse(*mag))
}

// CreateMagazine はマガジンを作成する。
// POST /sns/magazines
func (h *MagazineHandler) CreateMagazine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req magazineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	mag, err := h.service.CreateMagazine(r.Context(), userID, magazine.CreateMagazineInput{
		Title:       req.Title,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusCreated, toMagazineResponse(model.MagazineWithViewerState{Magazine: *mag}))
}

// UpdateMagazine はマガジンのタイトル・説明・カバー・公開フラグを更新する。
// PATCH /sns/magazines/:id
func (h *MagazineHandler) UpdateMagazine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req magazineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	mag, err := h.service.UpdateMagazine(r.Context(), userID, chi.URLParam(r, "id"), magazine.UpdateMagazineInput{
		Title:       req.Title,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, toMagazineResponse(model.MagazineWithViewerState{Magazine: *mag}))
}

// SetSubscribed は購読状態を設定する。冪等。
// PUT /sns/magazines/:id/subscribe
func (h *MagazineHandler) SetSubscribed(w http.ResponseWriter, r *http.Request) {
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

	changed, err := h.service.SetSubscribed(r.Context(), userID, chi.URLParam(r, "id"), req.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, changedResponse{Changed: changed})
}
