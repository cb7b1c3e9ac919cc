// Package game runs the partitioned ecology simulation: it owns the agent
// roster, the terrain, the worker pool and the per-tick phase pipeline.
package game

import (
	"log/slog"
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
	"github.com/pthm-cable/ecogrid/systems"
	"github.com/pthm-cable/ecogrid/telemetry"
)

// Options configures a Game beyond what the config file holds.
type Options struct {
	Seed    uint64
	Workers int // Overrides workers.count when > 0

	StatsCallback func(telemetry.WindowStats)
	LogStats      bool
	Output        *telemetry.OutputManager // nil disables CSV output
	SnapshotDir   string                   // Where bookmark snapshots go; empty disables
}

// reservation marks an occupancy cell claimed by a pending birth.
type reservation struct {
	Tick int32
}

// Game holds the complete simulation state.
type Game struct {
	cfg  *config.Config
	seed uint64
	rng  *rand.Rand

	world       *ecs.World
	agentMap    *ecs.Map1[components.Agent]
	agentFilter *ecs.Filter1[components.Agent]
	reserved    ecs.Entity // occupancy marker for births in flight

	terrain      *systems.Terrain
	prevResource []float64
	parts        systems.PartitionIndex
	partitions   []partition
	locks        *locks
	pool         *Pool
	queue        *InteractionQueue
	behaviors    [components.NumSpecies]behavior

	roster  []member
	births  []birth
	claims  []occupant
	sample  telemetry.Sample
	tick    int32
	serial  uint64
	closed  bool
	counts  [components.NumSpecies]int
	highlit highlightQueue

	perfCollector    *telemetry.PerfCollector
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)
	logStats         bool
	snapshotDir      string
}

// NewGame builds an empty world from cfg. Call Populate to add the initial
// agents and Close to stop the workers.
func NewGame(cfg *config.Config, opts Options) *Game {
	world := ecs.NewWorld()
	rng := rand.New(rand.NewPCG(opts.Seed, 0x5eed))

	workers := cfg.Workers.Count
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	g := &Game{
		cfg:         cfg,
		seed:        opts.Seed,
		rng:         rng,
		world:       world,
		agentMap:    ecs.NewMap1[components.Agent](world),
		agentFilter: ecs.NewFilter1[components.Agent](world),
		terrain:     systems.NewTerrainFromConfig(cfg, rng),
		parts:       systems.NewPartitionIndex(cfg.Grid.Width, cfg.Grid.Height, cfg.Partition.Size),
		pool:        NewPool(workers, opts.Seed),
		behaviors:   newBehaviorTable(),

		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindowTicks),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindowSec, cfg.Physics.DT),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		outputManager:    opts.Output,
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
	}

	marker := reservation{}
	g.reserved = ecs.NewMap1[reservation](world).NewEntity(&marker)

	count := g.parts.Count()
	g.locks = newLocks(count, cfg.Grid.Width, cfg.Grid.Height, cfg.Locks.BlockSize)
	g.queue = NewInteractionQueue(count)
	g.partitions = make([]partition, count)
	for id := range g.partitions {
		g.partitions[id] = partition{
			id:         id,
			bounds:     g.parts.Bounds(id),
			neighbours: g.parts.Neighbors(nil, id),
		}
	}

	slog.Debug("game created",
		"width", cfg.Grid.Width,
		"height", cfg.Grid.Height,
		"partitions", count,
		"workers", g.pool.Size(),
		"seed", opts.Seed,
	)
	return g
}

// Close shuts the worker pool down. Further Steps panic with ErrPoolClosed.
func (g *Game) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.pool.Shutdown()
}

// Tick returns the number of completed steps.
func (g *Game) Tick() int32 {
	return g.tick
}

// Config returns the configuration the game was built with.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Seed returns the run seed.
func (g *Game) Seed() uint64 {
	return g.seed
}

// Workers returns the number of pool workers.
func (g *Game) Workers() int {
	return g.pool.Size()
}

// Population returns the number of live agents of a species as of the last
// cleanup or spawn.
func (g *Game) Population(s components.Species) int {
	if !s.Valid() {
		return 0
	}
	return g.counts[s]
}

// PerfStats returns phase timings over the rolling perf window.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

func (g *Game) speciesConfig(s components.Species) *config.SpeciesConfig {
	if s == components.Predator {
		return &g.cfg.Species.Predator
	}
	return &g.cfg.Species.Herbivore
}
