package feedview

import "testing"

func TestCursor_SentinelVisible_AdvancesPage(t *testing.T) {
	c := NewCursor(1)

	if !c.SentinelVisible() {
		t.Fatal("SentinelVisible() = false, want true")
	}
	if c.Page() != 2 {
		t.Errorf("Page() = %d, want 2", c.Page())
	}
	if !c.Loading() {
		t.Error("Loading() = false, want true")
	}
}

func TestCursor_SentinelVisible_WhileLoading_DoesNotAdvance(t *testing.T) {
	c := NewCursor(1)
	c.SentinelVisible()

	// 読み込み中の再発火は無視されること
	if c.SentinelVisible() {
		t.Error("SentinelVisible() while loading = true, want false")
	}
	if c.Page() != 2 {
		t.Errorf("Page() = %d, want 2", c.Page())
	}
}

func TestCursor_SentinelVisible_WithoutMore_DoesNotAdvance(t *testing.T) {
	c := NewCursor(1)
	c.SentinelVisible()
	c.PageLoaded(false)

	if c.SentinelVisible() {
		t.Error("SentinelVisible() after last page = true, want false")
	}
	if c.Page() != 2 {
		t.Errorf("Page() = %d, want 2", c.Page())
	}
}

func TestCursor_ReachEnd_WithEmptyList_Ignored(t *testing.T) {
	c := NewCursor(0)

	if c.ReachEnd(0) {
		t.Error("ReachEnd(0) = true, want false")
	}
	if c.Page() != 0 {
		t.Errorf("Page() = %d, want 0", c.Page())
	}
}

func TestCursor_ReachEnd_WhileLoading_NeverAdvances(t *testing.T) {
	c := NewCursor(0)
	if !c.ReachEnd(8) {
		t.Fatal("ReachEnd(8) = false, want true")
	}
	page := c.Page()

	// 読み込み完了前にイベントが何度発火してもページは進まないこと
	for i := 0; i < 5; i++ {
		if c.ReachEnd(8) {
			t.Fatal("ReachEnd() while loading = true, want false")
		}
	}
	if c.Page() != page {
		t.Errorf("Page() = %d, want %d", c.Page(), page)
	}
}

func TestCursor_LoadFailed_AllowsRetrySamePage(t *testing.T) {
	c := NewCursor(1)
	c.SentinelVisible()
	c.LoadFailed()

	if c.Loading() {
		t.Error("Loading() after LoadFailed = true, want false")
	}
	if !c.SentinelVisible() {
		t.Fatal("SentinelVisible() after LoadFailed = false, want true")
	}
	if c.Page() != 2 {
		t.Errorf("Page() = %d, want 2 (retry same page)", c.Page())
	}
}

func TestCursor_Reset_RestoresInitialState(t *testing.T) {
	c := NewCursor(1)
	c.SentinelVisible()
	c.PageLoaded(false)

	c.Reset()

	if c.Page() != 1 {
		t.Errorf("Page() = %d, want 1", c.Page())
	}
	if !c.HasMore() {
		t.Error("HasMore() = false, want true")
	}
	if c.Loading() {
		t.Error("Loading() = true, want false")
	}
}

func TestCursor_ZeroBasedInitialPage(t *testing.T) {
	c := NewCursor(0)

	if c.Page() != 0 {
		t.Errorf("Page() = %d, want 0", c.Page())
	}
	c.SentinelVisible()
	if c.Page() != 1 {
		t.Errorf("Page() after advance = %d, want 1", c.Page())
	}
}
