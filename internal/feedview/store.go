package feedview

import (
	"github.com/yshimura/magfeed/internal/model"
)

// Undo は楽観的更新を取り消すための関数。
// サーバーがリクエストを拒否した場合に呼び出すと、適用前の状態に復元する。
type Undo func()

// Store はフィードに蓄積されたペーパー列を保持する。
// 変更のたびに新しいスライスを生成するコピーオンライト方式で、
// 未変更の要素は構造的に共有される。Papers()が返すスナップショットは
// その後の変更の影響を受けないため、参照比較で変更を検知できる。
type Store struct {
	papers []model.PaperWithViewerState
	seen   map[string]struct{}
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// Papers は現在のペーパー列のスナップショットを返す。
func (s *Store) Papers() []model.PaperWithViewerState { return s.papers }

// Len は保持しているペーパー数を返す。
func (s *Store) Len() int { return len(s.papers) }

// Get はIDで1件取得する。見つからない場合は第2戻り値がfalse。
func (s *Store) Get(id string) (model.PaperWithViewerState, bool) {
	for _, p := range s.papers {
		if p.ID == id {
			return p, true
		}
	}
	return model.PaperWithViewerState{}, false
}

// AppendPage はフェッチ済みの1ページ分を末尾に追加する。
// すでに保持しているIDはスキップし、実際に追加した件数を返す
// （再フェッチ競合時の重複カード防止）。
func (s *Store) AppendPage(page []model.PaperWithViewerState) int {
	fresh := make([]model.PaperWithViewerState, 0, len(page))
	for _, p := range page {
		if _, dup := s.seen[p.ID]; dup {
			continue
		}
		s.seen[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return 0
	}
	next := make([]model.PaperWithViewerState, 0, len(s.papers)+len(fresh))
	next = append(next, s.papers...)
	next = append(next, fresh...)
	s.papers = next
	return len(fresh)
}

// Delete はIDが一致するペーパーをちょうど1件削除する。
// 残りの要素の順序は保たれる。見つからない場合はfalseを返す。
func (s *Store) Delete(id string) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	next := make([]model.PaperWithViewerState, 0, len(s.papers)-1)
	next = append(next, s.papers[:idx]...)
	next = append(next, s.papers[idx+1:]...)
	s.papers = next
	delete(s.seen, id)
	return true
}

// Reset は保持しているペーパーをすべて破棄する。
func (s *Store) Reset() {
	s.papers = nil
	s.seen = make(map[string]struct{})
}

// ToggleLike はいいねフラグを反転し、カウンタを±1する楽観的コマンド。
// 適用前の状態に戻すUndoを返す。IDが見つからない場合は第2戻り値がfalse。
func (s *Store) ToggleLike(id string) (Undo, bool) {
	return s.mutate(id, func(p *model.PaperWithViewerState) {
		if p.IsLiked {
			p.IsLiked = false
			p.LikeCount--
		} else {
			p.IsLiked = true
			p.LikeCount++
		}
	})
}

// ToggleStar はスターフラグを反転し、カウンタを±1する楽観的コマンド。
func (s *Store) ToggleStar(id string) (Undo, bool) {
	return s.mutate(id, func(p *model.PaperWithViewerState) {
		if p.IsStarred {
			p.IsStarred = false
			p.StarCount--
		} else {
			p.IsStarred = true
			p.StarCount++
		}
	})
}

// ToggleTop はピン留めフラグを反転する楽観的コマンド。
func (s *Store) ToggleTop(id string) (Undo, bool) {
	return s.mutate(id, func(p *model.PaperWithViewerState) {
		p.IsTop = !p.IsTop
	})
}

// ToggleHidden は非表示フラグを反転する楽観的コマンド。
func (s *Store) ToggleHidden(id string) (Undo, bool) {
	return s.mutate(id, func(p *model.PaperWithViewerState) {
		p.IsHidden = !p.IsHidden
	})
}

// SetFollowed は指定した投稿者のフォロー状態を更新する楽観的コマンド。
// フォロー状態は投稿者単位のため、同じ投稿者の全ペーパーに反映する。
// 該当ペーパーが1件もない場合は第2戻り値がfalse。
func (s *Store) SetFollowed(authorID string, followed bool) (Undo, bool) {
	touched := false
	for _, p := range s.papers {
		if p.Author.ID == authorID {
			touched = true
			break
		}
	}
	if !touched {
		return nil, false
	}
	old := make(map[string]bool)
	next := make([]model.PaperWithViewerState, len(s.papers))
	copy(next, s.papers)
	for i := range next {
		if next[i].Author.ID == authorID {
			old[next[i].ID] = next[i].IsFollowed
			next[i].IsFollowed = followed
		}
	}
	s.papers = next
	undo := func() {
		cur := make([]model.PaperWithViewerState, len(s.papers))
		copy(cur, s.papers)
		for i := range cur {
			if was, ok := old[cur[i].ID]; ok {
				cur[i].IsFollowed = was
			}
		}
		s.papers = cur
	}
	return undo, true
}

// mutate はIDで特定した1要素にfnを適用した新しいスナップショットを生成する。
// Undoは対象要素のみを適用前の値に復元する。対象以外への後続の変更には影響しないため、
// 複数の楽観的コマンドが並行していても安全に取り消せる。
func (s *Store) mutate(id string, fn func(*model.PaperWithViewerState)) (Undo, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	old := s.papers[idx]
	next := make([]model.PaperWithViewerState, len(s.papers))
	copy(next, s.papers)
	fn(&next[idx])
	s.papers = next
	undo := func() {
		i := s.indexOf(id)
		if i < 0 {
			return
		}
		cur := make([]model.PaperWithViewerState, len(s.papers))
		copy(cur, s.papers)
		cur[i] = old
		s.papers = cur
	}
	return undo, true
}

func (s *Store) indexOf(id string) int {
	for i, p := range s.papers {
		if p.ID == id {
			return i
		}
	}
	return -1
}
