package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkHerbivoreExtinct BookmarkType = "herbivore_extinct"
	BookmarkPredatorExtinct  BookmarkType = "predator_extinct"
	BookmarkPredatorRecovery BookmarkType = "predator_recovery"
	BookmarkHerbivoreCrash   BookmarkType = "herbivore_crash"
	BookmarkStableEcosystem  BookmarkType = "stable_ecosystem"
)

const (
	stableWindowsForBookmark = 5
	stableSampleWindows      = 4
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector watches the stream of windows for population events.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPredMin      int
	recentHerbPeak     int
	stableWindowsCount int
	herbExtinct        bool
	predExtinct        bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < stableWindowsForBookmark {
		historySize = stableWindowsForBookmark
	}
	return &BookmarkDetector{
		history:       make([]WindowStats, historySize),
		historySize:   historySize,
		recentPredMin: -1,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	// Extinctions fire once until the species reappears.
	if stats.HerbivoreCount == 0 && !bd.herbExtinct {
		bd.herbExtinct = true
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkHerbivoreExtinct,
			Tick:        stats.WindowEndTick,
			Description: "No herbivores left",
		})
	} else if stats.HerbivoreCount > 0 {
		bd.herbExtinct = false
	}
	if stats.PredatorCount == 0 && !bd.predExtinct {
		bd.predExtinct = true
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkPredatorExtinct,
			Tick:        stats.WindowEndTick,
			Description: "No predators left",
		})
	} else if stats.PredatorCount > 0 {
		bd.predExtinct = false
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkPredatorRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkHerbivoreCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableEcosystem(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if bd.recentPredMin < 0 || stats.PredatorCount < bd.recentPredMin {
		bd.recentPredMin = stats.PredatorCount
	}
	if stats.HerbivoreCount > bd.recentHerbPeak {
		bd.recentHerbPeak = stats.HerbivoreCount
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns up to n of the most recent windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	size := bd.historyIdx
	if bd.historyFull {
		size = bd.historySize
	}
	if n > size {
		n = size
	}
	out := make([]WindowStats, 0, n)
	for i := n; i > 0; i-- {
		idx := (bd.historyIdx - i + bd.historySize) % bd.historySize
		out = append(out, bd.history[idx])
	}
	return out
}

func (bd *BookmarkDetector) checkPredatorRecovery(stats WindowStats) *Bookmark {
	if bd.recentPredMin <= 0 || bd.recentPredMin > 3 {
		return nil
	}

	threshold := bd.recentPredMin * 3
	if stats.PredatorCount >= threshold && stats.PredatorCount >= 6 {
		oldMin := bd.recentPredMin
		bd.recentPredMin = stats.PredatorCount
		return &Bookmark{
			Type:        BookmarkPredatorRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Predator population recovered from %d to %d", oldMin, stats.PredatorCount),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkHerbivoreCrash(stats WindowStats) *Bookmark {
	if bd.recentHerbPeak == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.HerbivoreCount)/float64(bd.recentHerbPeak)
	if drop > 0.30 && stats.HerbivoreCount < bd.recentHerbPeak-10 {
		oldPeak := bd.recentHerbPeak
		bd.recentHerbPeak = stats.HerbivoreCount
		return &Bookmark{
			Type:        BookmarkHerbivoreCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Herbivores crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.HerbivoreCount),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	if stats.HerbivoreCount < 10 || stats.PredatorCount < 3 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.recent(stableSampleWindows)
	if len(history) < stableSampleWindows {
		return nil
	}

	herb := make([]float64, len(history))
	pred := make([]float64, len(history))
	for i, h := range history {
		herb[i] = float64(h.HerbivoreCount)
		pred[i] = float64(h.PredatorCount)
	}

	// Coefficient of variation under 20% for both species.
	if coefficientOfVariation(herb) < 0.2 && coefficientOfVariation(pred) < 0.2 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == stableWindowsForBookmark {
		return &Bookmark{
			Type:        BookmarkStableEcosystem,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable ecosystem with %d herbivores, %d predators over %d+ windows", stats.HerbivoreCount, stats.PredatorCount, stableWindowsForBookmark),
		}
	}
	return nil
}

func coefficientOfVariation(values []float64) float64 {
	mean, std := ComputeTraitStats(values)
	if mean == 0 {
		return 0
	}
	return std / mean
}
