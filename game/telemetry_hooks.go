package game

import (
	"log/slog"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	g.sampleWindow()
	stats := g.collector.Flush(g.tick, &g.sample)
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// sampleWindow fills g.sample from the live roster and the terrain.
func (g *Game) sampleWindow() {
	s := &g.sample
	s.Reset()

	query := g.agentFilter.Query()
	for query.Next() {
		a := query.Get()
		if !a.Alive {
			continue
		}
		switch a.Species {
		case components.Herbivore:
			s.HerbivoreEnergies = append(s.HerbivoreEnergies, a.Energy.Current)
		case components.Predator:
			s.PredatorEnergies = append(s.PredatorEnergies, a.Energy.Current)
		}
		s.Sizes = append(s.Sizes, a.Traits.Size)
		s.Speeds = append(s.Speeds, a.Traits.Speed)
		s.Senses = append(s.Senses, a.Traits.Sense)
		s.MaxGeneration = max(s.MaxGeneration, a.Generation)
	}

	s.ResourceRatioSum = g.terrain.TotalResourceRatio()
	s.TotalResource = telemetry.Sum(g.terrain.Resource)
	s.TotalNutrient = telemetry.Sum(g.terrain.Nutrient)
}

// saveSnapshot writes the current state alongside the bookmark that triggered it.
func (g *Game) saveSnapshot(bm *telemetry.Bookmark) {
	snap := g.Snapshot()
	snap.Bookmark = bm
	path, err := telemetry.SaveSnapshot(snap, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "bookmark", bm.Type)
}
