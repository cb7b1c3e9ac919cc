package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_HerbivoreCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick:  int32(i * 600),
			HerbivoreCount: 100,
			PredatorCount:  10,
		})
	}

	bookmarks := bd.Check(WindowStats{
		WindowEndTick:  3000,
		HerbivoreCount: 50,
		PredatorCount:  10,
	})
	if !hasBookmark(bookmarks, BookmarkHerbivoreCrash) {
		t.Error("expected herbivore_crash bookmark")
	}
}

func TestBookmarkDetector_PredatorRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{
			WindowEndTick:  int32(i * 600),
			HerbivoreCount: 100,
			PredatorCount:  2,
		})
	}

	bookmarks := bd.Check(WindowStats{
		WindowEndTick:  1800,
		HerbivoreCount: 100,
		PredatorCount:  8,
	})
	if !hasBookmark(bookmarks, BookmarkPredatorRecovery) {
		t.Error("expected predator_recovery bookmark")
	}
}

func TestBookmarkDetector_ExtinctionFiresOnce(t *testing.T) {
	bd := NewBookmarkDetector(10)

	first := bd.Check(WindowStats{WindowEndTick: 600, HerbivoreCount: 0, PredatorCount: 5})
	if !hasBookmark(first, BookmarkHerbivoreExtinct) {
		t.Fatal("expected herbivore_extinct bookmark")
	}
	if hasBookmark(first, BookmarkPredatorExtinct) {
		t.Error("predators are alive")
	}

	second := bd.Check(WindowStats{WindowEndTick: 1200, HerbivoreCount: 0, PredatorCount: 0})
	if hasBookmark(second, BookmarkHerbivoreExtinct) {
		t.Error("herbivore extinction reported twice")
	}
	if !hasBookmark(second, BookmarkPredatorExtinct) {
		t.Error("expected predator_extinct bookmark")
	}
}

func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10)

	var found bool
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick:  int32(i * 600),
			HerbivoreCount: 100 + i%2,
			PredatorCount:  10,
		})
		if hasBookmark(bookmarks, BookmarkStableEcosystem) {
			if found {
				t.Fatal("stable_ecosystem should trigger exactly once")
			}
			found = true
		}
	}
	if !found {
		t.Error("expected stable_ecosystem bookmark")
	}
}

func TestBookmarkDetector_UnstableNoBookmark(t *testing.T) {
	bd := NewBookmarkDetector(10)

	counts := []int{100, 40, 120, 30, 110, 35, 115, 25, 100, 45}
	for i, c := range counts {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick:  int32(i * 600),
			HerbivoreCount: c,
			PredatorCount:  10,
		})
		if hasBookmark(bookmarks, BookmarkStableEcosystem) {
			t.Fatalf("unexpected stable_ecosystem at window %d", i)
		}
	}
}
