package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yshimura/magfeed/internal/middleware"
	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/paper"
)

// PaperServiceInterface はペーパーハンドラーが必要とするサービスインターフェース。
type PaperServiceInterface interface {
	FeedPage(ctx context.Context, viewerID string, scope model.FeedScope, scopeID string, page int) (*paper.FeedPageResult, error)
	GetPaper(ctx context.Context, viewerID, paperID string) (*model.PaperWithViewerState, error)
	CreatePaper(ctx context.Context, authorID string, input paper.CreatePaperInput) (*model.Paper, error)
	SubmitPaper(ctx context.Context, authorID, paperID string) error
	UpdatePaper(ctx context.Context, authorID, paperID string, input paper.UpdatePaperInput) (*model.Paper, error)
	SetLike(ctx context.Context, userID, paperID string, liked bool) (bool, error)
	SetStar(ctx context.Context, userID, paperID string, starred bool) (bool, error)
	SetTop(ctx context.Context, authorID, paperID string, top bool) error
	SetHidden(ctx context.Context, authorID, paperID string, hidden bool) error
	DeletePaper(ctx context.Context, authorID, paperID string) error
	RecordPlay(ctx context.Context, paperID string) error
}

// PaperHandler はペーパー管理のHTTPハンドラー。
type PaperHandler struct {
	service PaperServiceInterface
}

// NewPaperHandler はPaperHandlerを生成する。
func NewPaperHandler(service PaperServiceInterface) *PaperHandler {
	return &PaperHandler{service: service}
}

// createPaperRequest はペーパー作成リクエストのボディ。
type createPaperRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PosterURL   string `json:"poster_url"`
	VideoURL    string `json:"video_url"`
	MagazineID  string `json:"magazine_id"`
	Submit      bool   `json:"submit"`
}

// updatePaperRequest はペーパー更新リクエストのボディ。
type updatePaperRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PosterURL   string `json:"poster_url"`
}

// setValueRequest は冪等な状態設定リクエストのボディ。
type setValueRequest struct {
	Value bool `json:"value"`
}

// pageParam はクエリ文字列から1始まりのページ番号を取得する。未指定の場合は1。
func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewInvalidRequestError("ページ番号には整数を指定してください")
	}
	return page, nil
}

// Feed はフィード1ページ分のペーパーを取得する。
// GET /sns/papers?page=1&scope=all|magazine|author|starred&scope_id=xxx
func (h *PaperHandler) Feed(w http.ResponseWriter, r *http.Request) {
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

	// デフォルトスコープは "all"
	scope := model.FeedScopeAll
	if raw := r.URL.Query().Get("scope"); raw != "" {
		scope = model.FeedScope(raw)
	}
	scopeID := r.URL.Query().Get("scope_id")

	result, err := h.service.FeedPage(r.Context(), userID, scope, scopeID, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeListResult(w, http.StatusOK, toPaperResponses(result.Papers), result.HasMore)
}

// GetPaper はペーパー詳細を取得する。
// GET /sns/papers/:id
func (h *PaperHandler) GetPaper(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	paperID := chi.URLParam(r, "id")

	p, err := h.service.GetPaper(r.Context(), userID, paperID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, toPaperResponse(*p))
}

// CreatePaper はペーパーを作成する。
// POST /sns/papers
func (h *PaperHandler) CreatePaper(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createPaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	p, err := h.service.CreatePaper(r.Context(), userID, paper.CreatePaperInput{
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		VideoURL:    req.VideoURL,
		MagazineID:  req.MagazineID,
		Submit:      req.Submit,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusCreated, toOwnPaperResponse(p))
}

// UpdatePaper はペーパーのタイトル・説明・ポスターを更新する。
// PATCH /sns/papers/:id
func (h *PaperHandler) UpdatePaper(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	paperID := chi.URLParam(r, "id")

	var req updatePaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	p, err := h.service.UpdatePaper(r.Context(), userID, paperID, paper.UpdatePaperInput{
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, toOwnPaperResponse(p))
}

// SubmitPaper は下書きペーパーを審査に提出する。
// POST /sns/papers/:id/submit
func (h *PaperHandler) SubmitPaper(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.SubmitPaper(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, map[string]bool{"ok": true})
}

// SetLike はいいね状態を設定する。
// PUT /sns/papers/:id/like
func (h *PaperHandler) SetLike(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, h.service.SetLike)
}

// SetStar はスター状態を設定する。
// PUT /sns/papers/:id/star
func (h *PaperHandler) SetStar(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, h.service.SetStar)
}

// setState はいいね/スターの共通処理。冪等な設定でchangedフラグを返す。
func (h *PaperHandler) setState(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, userID, paperID string, value bool) (bool, error),
) {
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

	changed, err := set(r.Context(), userID, chi.URLParam(r, "id"), req.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, changedResponse{Changed: changed})
}

// SetTop はマガジン内ピン留めフラグを設定する。
// PUT /sns/papers/:id/top
func (h *PaperHandler) SetTop(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.service.SetTop)
}

// SetHidden は非表示フラグを設定する。
// PUT /sns/papers/:id/hidden
func (h *PaperHandler) SetHidden(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.service.SetHidden)
}

// setFlag はピン留め/非表示の共通処理。投稿者のみ実行できる。
func (h *PaperHandler) setFlag(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, authorID, paperID string, value bool) error,
) {
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

	if err := set(r.Context(), userID, chi.URLParam(r, "id"), req.Value); err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, map[string]bool{"ok": true})
}

// DeletePaper はペーパーを削除する。
// DELETE /sns/papers/:id
func (h *PaperHandler) DeletePaper(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeletePaper(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordPlay は再生開始を記録する。
// POST /sns/papers/:id/play
func (h *PaperHandler) RecordPlay(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.RecordPlay(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeResult(w, http.StatusOK, map[string]bool{"ok": true})
}
