package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
	"github.com/pthm-cable/ecogrid/game"
	"github.com/pthm-cable/ecogrid/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Uint64("seed", 1, "RNG seed; equal seeds and configs replay identically")
	workers := flag.Int("workers", 0, "Worker goroutines (0 = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindowSec = *statsWindow
	}

	var output *telemetry.OutputManager
	if *outputDir != "" {
		var err error
		output, err = telemetry.NewOutputManager(*outputDir)
		if err != nil {
			slog.Error("failed to create output manager", "error", err)
			os.Exit(1)
		}
		defer output.Close()
		if err := output.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	g := game.NewGame(cfg, game.Options{
		Seed:        *seed,
		Workers:     *workers,
		LogStats:    *logStats,
		Output:      output,
		SnapshotDir: *snapshotDir,
	})
	defer g.Close()

	placed := g.Populate()
	slog.Info("starting simulation",
		"seed", *seed,
		"workers", g.Workers(),
		"agents", placed,
		"max_ticks", *maxTicks,
	)

	for *maxTicks <= 0 || int(g.Tick()) < *maxTicks {
		g.Step()

		if g.Population(components.Herbivore)+g.Population(components.Predator) == 0 {
			slog.Info("all agents dead", "tick", g.Tick())
			break
		}
	}

	m := g.Metrics()
	slog.Info("simulation finished",
		"tick", m.Tick,
		"herbivores", m.Population[components.Herbivore],
		"predators", m.Population[components.Predator],
		"resource_ratio_sum", m.ResourceRatioSum,
		"perf", g.PerfStats(),
	)
}
