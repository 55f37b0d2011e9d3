// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodePaperNotFound      = "PAPER_NOT_FOUND"
	ErrCodeMagazineNotFound   = "MAGAZINE_NOT_FOUND"
	ErrCodeCommentNotFound    = "COMMENT_NOT_FOUND"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidPage        = "INVALID_PAGE"
	ErrCodeUploadTooLarge     = "UPLOAD_TOO_LARGE"
	ErrCodeUnsupportedMedia   = "UNSUPPORTED_MEDIA"
	ErrCodeRemoteFetchBlocked = "REMOTE_FETCH_BLOCKED"
	ErrCodeReplyDepthExceeded = "REPLY_DEPTH_EXCEEDED"
	ErrCodeNotPublished       = "NOT_PUBLISHED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分が投稿したコンテンツに対してのみ実行できます。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "content",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewPaperNotFoundError はペーパー未検出エラーを生成する。
func NewPaperNotFoundError(paperID string) *APIError {
	return &APIError{
		Code:     ErrCodePaperNotFound,
		Message:  fmt.Sprintf("指定されたペーパーが見つかりません: %s", paperID),
		Category: "content",
		Action:   "ペーパーIDを確認してください。",
	}
}

// NewMagazineNotFoundError はマガジン未検出エラーを生成する。
func NewMagazineNotFoundError(magazineID string) *APIError {
	return &APIError{
		Code:     ErrCodeMagazineNotFound,
		Message:  fmt.Sprintf("指定されたマガジンが見つかりません: %s", magazineID),
		Category: "content",
		Action:   "マガジンIDを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "content",
		Action:   "コメントIDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInvalidPageError はページ番号不正エラーを生成する。
func NewInvalidPageError(page int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  fmt.Sprintf("無効なページ番号です: %d", page),
		Category: "validation",
		Action:   "ページ番号には1以上の整数を指定してください。",
	}
}

// NewUploadTooLargeError はアップロードサイズ超過エラーを生成する。
func NewUploadTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeUploadTooLarge,
		Message:  fmt.Sprintf("アップロードサイズが上限（%dバイト）を超えています。", maxBytes),
		Category: "validation",
		Action:   "ファイルサイズを小さくして再度お試しください。",
	}
}

// NewUnsupportedMediaError は未対応メディア種別エラーを生成する。
func NewUnsupportedMediaError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMedia,
		Message:  fmt.Sprintf("対応していないメディア形式です: %s", contentType),
		Category: "validation",
		Action:   "動画はmp4、画像はjpeg/png/webpのみアップロードできます。",
	}
}

// NewRemoteFetchBlockedError はリモート取得ブロックエラーを生成する。
func NewRemoteFetchBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeRemoteFetchBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewReplyDepthExceededError は返信ネスト超過エラーを生成する。
func NewReplyDepthExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeReplyDepthExceeded,
		Message:  "返信への返信はできません。",
		Category: "validation",
		Action:   "元のコメントに対して返信してください。",
	}
}

// NewNotPublishedError は未公開ペーパーへの操作エラーを生成する。
func NewNotPublishedError(paperID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotPublished,
		Message:  fmt.Sprintf("このペーパーはまだ公開されていません: %s", paperID),
		Category: "content",
		Action:   "審査完了後に再度お試しください。",
	}
}
