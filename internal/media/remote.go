package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yshimura/magfeed/internal/security"
)

// remoteMaxSize はリモート画像取り込みの最大サイズ（5MB）。
const remoteMaxSize = 5 * 1024 * 1024

// ErrRemoteFetchBlocked はSSRF検証によりリモート取得が拒否されたことを表す。
var ErrRemoteFetchBlocked = errors.New("remote fetch blocked")

// RemoteImporterService はリモート画像取り込みのインターフェース。
type RemoteImporterService interface {
	// ImportImage は指定URLから画像を取得してストアに保存する。
	// SSRF検証に失敗した場合、画像以外のコンテンツの場合はエラーを返す。
	ImportImage(ctx context.Context, imageURL string) (*StoredMedia, error)
}

// RemoteImporter はリモートのポスター画像・アバター画像を
// SSRF防止付きHTTPクライアントで取得してストアに取り込む。
type RemoteImporter struct {
	store     *Store
	ssrfGuard security.SSRFGuardService
	timeout   time.Duration
}

// NewRemoteImporter はRemoteImporterの新しいインスタンスを生成する。
func NewRemoteImporter(store *Store, ssrfGuard security.SSRFGuardService, timeout time.Duration) *RemoteImporter {
	return &RemoteImporter{
		store:     store,
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
	}
}

// ImportImage は指定URLから画像を取得してストアに保存する。
func (ri *RemoteImporter) ImportImage(ctx context.Context, imageURL string) (*StoredMedia, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("empty image URL")
	}

	// SSRF検証
	if err := ri.ssrfGuard.ValidateURL(imageURL); err != nil {
		slog.Warn("remote image import blocked",
			slog.String("url", imageURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s", ErrRemoteFetchBlocked, err)
	}

	client := ri.ssrfGuard.NewSafeClient(ri.timeout, remoteMaxSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Magfeed/1.0 Image Importer")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("画像の取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status fetching image: %d", resp.StatusCode)
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if _, ok := KindForMimeType(mimeType); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mimeType)
	}

	stored, err := ri.store.Save(ctx, resp.Body, mimeType)
	if err != nil {
		return nil, fmt.Errorf("画像の保存に失敗しました: %w", err)
	}

	return stored, nil
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	// セミコロンの前の部分（charset等を除去）
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// compile-time interface check
var _ RemoteImporterService = (*RemoteImporter)(nil)
