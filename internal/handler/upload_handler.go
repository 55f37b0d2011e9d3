package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/yshimura/magfeed/internal/media"
	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/middleware"
	"github.com/yshimura/magfeed/internal/model"
)

// MediaStoreInterface はアップロードハンドラーが必要とするストアインターフェース。
type MediaStoreInterface interface {
	Save(ctx context.Context, r io.Reader, mimeType string) (*media.StoredMedia, error)
	MaxSize(kind media.MediaKind) int64
	Open(relPath string) (*os.File, error)
}

// UploadHandler はメディアアップロードのHTTPハンドラー。
type UploadHandler struct {
	store     MediaStoreInterface
	importer  media.RemoteImporterService
	collector metrics.MetricsCollector
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(store MediaStoreInterface, importer media.RemoteImporterService, collector metrics.MetricsCollector) *UploadHandler {
	return &UploadHandler{
		store:     store,
		importer:  importer,
		collector: collector,
	}
}

// uploadResponse はアップロード成功時のレスポンス。
type uploadResponse struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}

// remoteImportRequest はリモート画像取り込みリクエストのボディ。
type remoteImportRequest struct {
	URL string `json:"url"`
}

// Upload はマルチパートフォームのfileフィールドからメディアを保存する。
// POST /sns/uploads
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("マルチパートフォームの解析に失敗しました"))
		return
	}

	part, err := reader.NextPart()
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("ファイルパートが見つかりません"))
		return
	}
	defer part.Close()

	if part.FormName() != "file" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("fileフィールドを先頭に指定してください"))
		return
	}

	mimeType := part.Header.Get("Content-Type")

	stored, err := h.store.Save(r.Context(), part, mimeType)
	if err != nil {
		h.handleMediaError(w, err, mimeType)
		return
	}

	h.collector.RecordUploadBytes(stored.Size)

	writeResult(w, http.StatusCreated, uploadResponse{
		Path: stored.Path,
		Kind: string(stored.Kind),
		Size: stored.Size,
	})
}

// ImportRemote はリモートURLから画像を取り込む。
// POST /sns/uploads/remote
func (h *UploadHandler) ImportRemote(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	var req remoteImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("URLが指定されていません"))
		return
	}

	stored, err := h.importer.ImportImage(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, media.ErrRemoteFetchBlocked) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewRemoteFetchBlockedError())
			return
		}
		h.handleMediaError(w, err, "")
		return
	}

	h.collector.RecordUploadBytes(stored.Size)

	writeResult(w, http.StatusCreated, uploadResponse{
		Path: stored.Path,
		Kind: string(stored.Kind),
		Size: stored.Size,
	})
}

// ServeMedia は保存済みメディアを配信する。
// GET /media/*
func (h *UploadHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	relPath := chi.URLParam(r, "*")

	f, err := h.store.Open(relPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	// 内容がハッシュで決まるため積極的にキャッシュさせる
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// handleMediaError はストア・取り込みのエラーをAPIエラーに変換する。
func (h *UploadHandler) handleMediaError(w http.ResponseWriter, err error, mimeType string) {
	switch {
	case errors.Is(err, media.ErrMediaTooLarge):
		kind, _ := media.KindForMimeType(mimeType)
		writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewUploadTooLargeError(h.store.MaxSize(kind)))
	case errors.Is(err, media.ErrUnsupportedMediaType):
		writeAPIErrorResponse(w, http.StatusUnsupportedMediaType, model.NewUnsupportedMediaError(mimeType))
	case errors.Is(err, media.ErrEmptyMedia):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("ファイルが空です"))
	default:
		handleServiceError(w, err)
	}
}
