package feedview

import (
	"github.com/yshimura/magfeed/internal/model"
)

// MagazineStore は購読・おすすめ画面に蓄積されたマガジン列を保持する。
// Storeと同じコピーオンライト方式で、購読トグルを楽観的コマンドとして適用する。
type MagazineStore struct {
	magazines []model.MagazineWithViewerState
	seen      map[string]struct{}
}

// NewMagazineStore はMagazineStoreの新しいインスタンスを生成する。
func NewMagazineStore() *MagazineStore {
	return &MagazineStore{seen: make(map[string]struct{})}
}

// Magazines は現在のマガジン列のスナップショットを返す。
func (s *MagazineStore) Magazines() []model.MagazineWithViewerState { return s.magazines }

// Len は保持しているマガジン数を返す。
func (s *MagazineStore) Len() int { return len(s.magazines) }

// Get はIDで1件取得する。見つからない場合は第2戻り値がfalse。
func (s *MagazineStore) Get(id string) (model.MagazineWithViewerState, bool) {
	for _, m := range s.magazines {
		if m.ID == id {
			return m, true
		}
	}
	return model.MagazineWithViewerState{}, false
}

// AppendPage はフェッチ済みの1ページ分を末尾に追加する。
// すでに保持しているIDはスキップし、実際に追加した件数を返す。
func (s *MagazineStore) AppendPage(page []model.MagazineWithViewerState) int {
	fresh := make([]model.MagazineWithViewerState, 0, len(page))
	for _, m := range page {
		if _, dup := s.seen[m.ID]; dup {
			continue
		}
		s.seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		return 0
	}
	next := make([]model.MagazineWithViewerState, 0, len(s.magazines)+len(fresh))
	next = append(next, s.magazines...)
	next = append(next, fresh...)
	s.magazines = next
	return len(fresh)
}

// ToggleSubscribed は購読フラグを反転し、購読者数を±1する楽観的コマンド。
// 適用前の状態に戻すUndoを返す。IDが見つからない場合は第2戻り値がfalse。
func (s *MagazineStore) ToggleSubscribed(id string) (Undo, bool) {
	idx := -1
	for i, m := range s.magazines {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	old := s.magazines[idx]
	next := make([]model.MagazineWithViewerState, len(s.magazines))
	copy(next, s.magazines)
	if next[idx].IsSubscribed {
		next[idx].IsSubscribed = false
		next[idx].SubscriberCount--
	} else {
		next[idx].IsSubscribed = true
		next[idx].SubscriberCount++
	}
	s.magazines = next
	undo := func() {
		for i, m := range s.magazines {
			if m.ID == id {
				cur := make([]model.MagazineWithViewerState, len(s.magazines))
				copy(cur, s.magazines)
				cur[i] = old
				s.magazines = cur
				return
			}
		}
	}
	return undo, true
}

// Reset は保持しているマガジンをすべて破棄する。
func (s *MagazineStore) Reset() {
	s.magazines = nil
	s.seen = make(map[string]struct{})
}
