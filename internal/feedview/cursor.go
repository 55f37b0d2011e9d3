// Package feedview はフィード画面のビューモデル状態を提供する。
// I/Oを持たない純粋な状態オブジェクトのみで構成され、
// スクロール検知や描画などのUI層から発火されるイベントで駆動される。
package feedview

// Cursor はページネーションカーソル。
// ページ番号・続きの有無・読み込み中フラグを保持し、
// センチネル可視イベントまたはリーチエンドイベントでページを進める。
type Cursor struct {
	initialPage int
	page        int
	hasMore     bool
	loading     bool
}

// NewCursor はCursorの新しいインスタンスを生成する。
// initialPageには呼び出し側の流儀に合わせて0または1を指定する
// （0始まり: 最初のフェッチ前にインクリメントする呼び出し側、
// 1始まり: ページ1を即座にフェッチする呼び出し側）。
func NewCursor(initialPage int) *Cursor {
	return &Cursor{
		initialPage: initialPage,
		page:        initialPage,
		hasMore:     true,
	}
}

// Page は現在のページ番号を返す。
func (c *Cursor) Page() int { return c.page }

// HasMore は続きページの有無を返す。
func (c *Cursor) HasMore() bool { return c.hasMore }

// Loading は読み込み中かどうかを返す。
func (c *Cursor) Loading() bool { return c.loading }

// SentinelVisible はセンチネル要素が可視になったイベントを処理する。
// 読み込み中でなく続きがある場合のみページを進め、読み込み中状態に遷移してtrueを返す。
// 進めなかった場合はfalseを返す（重複フェッチの抑止）。
func (c *Cursor) SentinelVisible() bool {
	return c.advance()
}

// ReachEnd はカルーセルが最終スライドを超えたイベントを処理する。
// リストが空の間（初期マウント競合）は無視する。
func (c *Cursor) ReachEnd(itemCount int) bool {
	if itemCount == 0 {
		return false
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if c.loading || !c.hasMore {
		return false
	}
	c.page++
	c.loading = true
	return true
}

// PageLoaded はページフェッチ完了を通知する。
// 読み込み中状態を解除し、サーバーが返した続きフラグを記録する。
func (c *Cursor) PageLoaded(hasMore bool) {
	c.loading = false
	c.hasMore = hasMore
}

// LoadFailed はページフェッチ失敗を通知する。
// ページ番号を巻き戻し、次のイベントで同じページを再試行できるようにする。
func (c *Cursor) LoadFailed() {
	if c.loading {
		c.page--
	}
	c.loading = false
}

// Reset はカーソルを初期状態に戻す。リストをクリアする際に呼び出すこと。
func (c *Cursor) Reset() {
	c.page = c.initialPage
	c.hasMore = true
	c.loading = false
}
