// Package media はアップロードメディアの保存とリモート画像の取り込みを提供する。
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrUnsupportedMediaType は未対応のMIMEタイプが指定されたことを表す。
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrMediaTooLarge はメディアがサイズ上限を超えたことを表す。
	ErrMediaTooLarge = errors.New("media exceeds size limit")
	// ErrEmptyMedia はメディア本体が空であることを表す。
	ErrEmptyMedia = errors.New("empty media body")
)

// MediaKind はメディアの種別を表す。
type MediaKind string

const (
	// MediaKindVideo は動画メディア。
	MediaKindVideo MediaKind = "video"
	// MediaKindImage は画像メディア（ポスター・アバター・カバー）。
	MediaKindImage MediaKind = "image"
)

// allowedMimeTypes はMIMEタイプとメディア種別・拡張子の対応表。
var allowedMimeTypes = map[string]struct {
	kind MediaKind
	ext  string
}{
	"video/mp4":  {MediaKindVideo, ".mp4"},
	"image/jpeg": {MediaKindImage, ".jpg"},
	"image/png":  {MediaKindImage, ".png"},
	"image/webp": {MediaKindImage, ".webp"},
}

// KindForMimeType はMIMEタイプに対応するメディア種別を返す。
// 未対応のMIMEタイプの場合はfalseを返す。
func KindForMimeType(mimeType string) (MediaKind, bool) {
	entry, ok := allowedMimeTypes[mimeType]
	if !ok {
		return "", false
	}
	return entry.kind, true
}

// StoredMedia は保存済みメディアの情報。
type StoredMedia struct {
	// Path はBaseURL配下の相対パス（例: /media/ab/abcdef....mp4）。
	Path string
	Kind MediaKind
	Size int64
}

// Store はローカルファイルシステムへのメディア保存を提供する。
// ファイル名は内容のSHA-256ハッシュから決定するため、同一内容の重複保存は発生しない。
type Store struct {
	baseDir      string
	videoMaxSize int64
	imageMaxSize int64
}

// NewStore はStoreの新しいインスタンスを生成し、保存先ディレクトリを作成する。
func NewStore(baseDir string, videoMaxSize, imageMaxSize int64) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("メディアディレクトリの作成に失敗しました: %w", err)
	}
	return &Store{
		baseDir:      baseDir,
		videoMaxSize: videoMaxSize,
		imageMaxSize: imageMaxSize,
	}, nil
}

// MaxSize はメディア種別ごとのサイズ上限を返す。
func (s *Store) MaxSize(kind MediaKind) int64 {
	if kind == MediaKindVideo {
		return s.videoMaxSize
	}
	return s.imageMaxSize
}

// Save はメディアを検証して保存する。
// サイズ上限を超えた場合、未対応MIMEの場合、コンテキストがキャンセルされた場合はエラーを返す。
func (s *Store) Save(ctx context.Context, r io.Reader, mimeType string) (*StoredMedia, error) {
	entry, ok := allowedMimeTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mimeType)
	}
	maxSize := s.MaxSize(entry.kind)

	// 一時ファイルに書き込みながらハッシュを計算する
	tmp, err := os.CreateTemp(s.baseDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	size, err := copyWithContext(ctx, io.MultiWriter(tmp, hasher), io.LimitReader(r, maxSize+1))
	closeErr := tmp.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("一時ファイルのクローズに失敗しました: %w", closeErr)
	}
	if size > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMediaTooLarge, size, maxSize)
	}
	if size == 0 {
		return nil, ErrEmptyMedia
	}

	// ハッシュの先頭2文字でディレクトリを分割する
	sum := hex.EncodeToString(hasher.Sum(nil))
	dir := filepath.Join(s.baseDir, sum[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}

	dest := filepath.Join(dir, sum+entry.ext)
	if _, err := os.Stat(dest); err == nil {
		// 同一内容が既に保存済み
		return &StoredMedia{
			Path: "/media/" + sum[:2] + "/" + sum + entry.ext,
			Kind: entry.kind,
			Size: size,
		}, nil
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return nil, fmt.Errorf("メディアの保存に失敗しました: %w", err)
	}

	return &StoredMedia{
		Path: "/media/" + sum[:2] + "/" + sum + entry.ext,
		Kind: entry.kind,
		Size: size,
	}, nil
}

// Open は保存済みメディアを相対パスから開く。
// パストラバーサルを防ぐため、baseDir配下であることを検証する。
func (s *Store) Open(relPath string) (*os.File, error) {
	cleaned := filepath.Clean("/" + relPath)
	full := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	abs, err := filepath.Abs(full)
	if err != nil {
		return nil, fmt.Errorf("パスの解決に失敗しました: %w", err)
	}
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("ベースパスの解決に失敗しました: %w", err)
	}
	if abs != base && !isSubPath(base, abs) {
		return nil, fmt.Errorf("path escapes media directory: %s", relPath)
	}
	return os.Open(abs)
}

// isSubPath はpathがbase配下にあるかを判定する。
func isSubPath(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// copyWithContext はコンテキストのキャンセルを確認しながらコピーする。
// アップロード中断時にディスクへの書き込みを打ち切るために使用する。
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, fmt.Errorf("書き込みに失敗しました: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("読み取りに失敗しました: %w", readErr)
		}
	}
}
