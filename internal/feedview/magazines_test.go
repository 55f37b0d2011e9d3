package feedview

import (
	"testing"

	"github.com/yshimura/magfeed/internal/model"
)

func feedMagazine(id string, subscribers int) model.MagazineWithViewerState {
	return model.MagazineWithViewerState{
		Magazine: model.Magazine{
			ID:              id,
			Title:           "マガジン" + id,
			SubscriberCount: subscribers,
		},
	}
}

func TestMagazineStore_AppendPage_SkipsDuplicates(t *testing.T) {
	s := NewMagazineStore()

	page := []model.MagazineWithViewerState{feedMagazine("m1", 10), feedMagazine("m2", 3)}
	if got := s.AppendPage(page); got != 2 {
		t.Fatalf("AppendPage() = %d, want 2", got)
	}
	if got := s.AppendPage(page); got != 0 {
		t.Errorf("AppendPage(duplicate) = %d, want 0", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestMagazineStore_ToggleSubscribed_Twice_RestoresState(t *testing.T) {
	s := NewMagazineStore()
	s.AppendPage([]model.MagazineWithViewerState{feedMagazine("m1", 10)})

	if _, ok := s.ToggleSubscribed("m1"); !ok {
		t.Fatal("ToggleSubscribed(m1) not found")
	}
	m, _ := s.Get("m1")
	if !m.IsSubscribed || m.SubscriberCount != 11 {
		t.Errorf("after first toggle: IsSubscribed = %v, SubscriberCount = %d, want true, 11", m.IsSubscribed, m.SubscriberCount)
	}

	s.ToggleSubscribed("m1")
	m, _ = s.Get("m1")
	if m.IsSubscribed || m.SubscriberCount != 10 {
		t.Errorf("after second toggle: IsSubscribed = %v, SubscriberCount = %d, want false, 10", m.IsSubscribed, m.SubscriberCount)
	}
}

func TestMagazineStore_ToggleSubscribed_Undo(t *testing.T) {
	s := NewMagazineStore()
	s.AppendPage([]model.MagazineWithViewerState{feedMagazine("m1", 10), feedMagazine("m2", 5)})

	undo, ok := s.ToggleSubscribed("m1")
	if !ok {
		t.Fatal("ToggleSubscribed(m1) not found")
	}
	s.ToggleSubscribed("m2")

	// m1のUndoはm2への変更に影響しないこと
	undo()

	m1, _ := s.Get("m1")
	if m1.IsSubscribed || m1.SubscriberCount != 10 {
		t.Errorf("m1 after undo: IsSubscribed = %v, SubscriberCount = %d, want false, 10", m1.IsSubscribed, m1.SubscriberCount)
	}
	m2, _ := s.Get("m2")
	if !m2.IsSubscribed || m2.SubscriberCount != 6 {
		t.Errorf("m2 after undo of m1: IsSubscribed = %v, SubscriberCount = %d, want true, 6", m2.IsSubscribed, m2.SubscriberCount)
	}
}

func TestMagazineStore_ToggleSubscribed_UnknownID(t *testing.T) {
	s := NewMagazineStore()
	if _, ok := s.ToggleSubscribed("nope"); ok {
		t.Error("ToggleSubscribed(unknown) ok = true, want false")
	}
}

func TestMagazineStore_SnapshotUnaffectedByMutation(t *testing.T) {
	s := NewMagazineStore()
	s.AppendPage([]model.MagazineWithViewerState{feedMagazine("m1", 10)})
	before := s.Magazines()

	s.ToggleSubscribed("m1")

	if before[0].IsSubscribed {
		t.Error("snapshot taken before mutation should not observe the change")
	}
	if !s.Magazines()[0].IsSubscribed {
		t.Error("current snapshot should observe the change")
	}
}
