package game

import (
	"testing"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
	"github.com/pthm-cable/ecogrid/telemetry"
)

// populatedConfig is a busy world spanning several partitions.
func populatedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig(t)
	cfg.Grid.Width, cfg.Grid.Height = 48, 40
	cfg.Partition.Size = 16
	cfg.Population.Herbivores = 120
	cfg.Population.Predators = 15
	return cfg
}

// ---------- Scenarios ----------

func TestStep_HerbivoreSeeksSaturatedCell(t *testing.T) {
	g := newTestGame(t, testConfig(t), 2)

	terrain := g.terrain
	for i := range terrain.Resource {
		terrain.Resource[i] = 0
		terrain.GrowthRate[i] = 0
		terrain.NutrientRate[i] = 0
	}
	target := terrain.Index(3, 3)
	terrain.Resource[target] = terrain.ResourceCap[target]

	evo := components.Evolution{ReplicationThreshold: 0.7}
	e, err := g.CreateAgentErr(components.Herbivore, components.Traits{Size: 1, Speed: 1, Sense: 5}, evo, components.GridPos{X: 0, Y: 0})
	if err != nil {
		t.Fatal(err)
	}

	g.Step()

	a, ok := g.Agent(e)
	if !ok {
		t.Fatal("herbivore should survive one tick")
	}
	if len(a.Path) == 0 {
		t.Fatal("herbivore should have planned a path")
	}
	if last := a.Path[len(a.Path)-1]; last != (components.GridPos{X: 3, Y: 3}) {
		t.Errorf("path ends at %v, want (3,3)", last)
	}
	for i := 1; i < len(a.Path); i++ {
		if a.Path[i-1].Chebyshev(a.Path[i]) != 1 {
			t.Fatalf("path step %d is not adjacent: %v -> %v", i, a.Path[i-1], a.Path[i])
		}
	}
}

func TestStep_NukeClearsWorld(t *testing.T) {
	cfg := populatedConfig(t)
	g := newTestGame(t, cfg, 3)
	g.Populate()

	g.Nuke()
	g.Step()

	for s := components.Species(0); s < components.NumSpecies; s++ {
		if got := g.Population(s); got != 0 {
			t.Errorf("%v population = %d after nuke", s, got)
		}
	}
	snap := g.Snapshot()
	if len(snap.Agents) != 0 {
		t.Errorf("snapshot still holds %d agents", len(snap.Agents))
	}
	for i, s := range snap.Occupancy {
		if s != 0 {
			t.Fatalf("cell %d still occupied by %d", i, s)
		}
	}
}

// ---------- Invariants ----------

func TestStep_ResourceAndNutrientBounds(t *testing.T) {
	cfg := populatedConfig(t)
	cfg.Terrain.GrowthRate = config.Range{Low: 0.5, High: 2}
	g := newTestGame(t, cfg, 4)
	g.Populate()

	for tick := 0; tick < 40; tick++ {
		g.Step()
		tr := g.terrain
		for i := range tr.Resource {
			if tr.Resource[i] < 0 || tr.Resource[i] > tr.ResourceCap[i] {
				t.Fatalf("tick %d cell %d resource %v outside [0, %v]", tick, i, tr.Resource[i], tr.ResourceCap[i])
			}
			if tr.Nutrient[i] < 0 || tr.Nutrient[i] > tr.NutrientCap[i] {
				t.Fatalf("tick %d cell %d nutrient %v outside [0, %v]", tick, i, tr.Nutrient[i], tr.NutrientCap[i])
			}
		}
	}
}

func TestStep_OccupancyInvariant(t *testing.T) {
	cfg := populatedConfig(t)
	cfg.Physics.DT = 0.5 // agents move most ticks
	g := newTestGame(t, cfg, 4)
	g.Populate()

	for tick := 0; tick < 30; tick++ {
		g.Step()
		snap := g.Snapshot()

		bySerial := make(map[uint64]telemetry.AgentState, len(snap.Agents))
		for _, a := range snap.Agents {
			bySerial[a.Serial] = a
		}
		seen := make(map[uint64]bool)
		for i, serial := range snap.Occupancy {
			if serial == 0 {
				continue
			}
			a, ok := bySerial[serial]
			if !ok {
				t.Fatalf("tick %d: cell %d names missing agent %d", tick, i, serial)
			}
			if snap.CellIndex(a.X, a.Y) != i {
				t.Fatalf("tick %d: cell %d names agent %d at %d,%d", tick, i, serial, a.X, a.Y)
			}
			if seen[serial] {
				t.Fatalf("tick %d: agent %d occupies two cells", tick, serial)
			}
			seen[serial] = true
		}
		for _, a := range snap.Agents {
			if a.X < 0 || a.X >= snap.Width || a.Y < 0 || a.Y >= snap.Height {
				t.Fatalf("tick %d: agent %d off grid at %d,%d", tick, a.Serial, a.X, a.Y)
			}
		}
	}
}

// ---------- Determinism ----------

func runSnapshot(t *testing.T, workers, ticks int) *telemetry.Snapshot {
	t.Helper()
	cfg := populatedConfig(t)
	cfg.Physics.DT = 0.25
	g := newTestGame(t, cfg, workers)
	g.Populate()
	for i := 0; i < ticks; i++ {
		g.Step()
	}
	return g.Snapshot()
}

func TestStep_WorkerCountIndependent(t *testing.T) {
	const ticks = 25
	want := runSnapshot(t, 1, ticks)

	for _, workers := range []int{2, 4, 7} {
		got := runSnapshot(t, workers, ticks)
		if len(got.Agents) != len(want.Agents) {
			t.Fatalf("%d workers: %d agents, single worker %d", workers, len(got.Agents), len(want.Agents))
		}
		var gotEnergy, wantEnergy float64
		for i := range want.Agents {
			if got.Agents[i] != want.Agents[i] {
				t.Fatalf("%d workers: agent %d differs:\n got  %+v\n want %+v", workers, i, got.Agents[i], want.Agents[i])
			}
			gotEnergy += got.Agents[i].Energy
			wantEnergy += want.Agents[i].Energy
		}
		if gotEnergy != wantEnergy {
			t.Errorf("%d workers: total energy %v, want %v", workers, gotEnergy, wantEnergy)
		}
		for i := range want.Resource {
			if got.Resource[i] != want.Resource[i] || got.Nutrient[i] != want.Nutrient[i] {
				t.Fatalf("%d workers: terrain cell %d differs", workers, i)
			}
		}
	}
}

func TestStep_TelemetryWindow(t *testing.T) {
	cfg := populatedConfig(t)
	cfg.Physics.DT = 0.125
	cfg.Telemetry.StatsWindowSec = 1.25

	var windows []telemetry.WindowStats
	g := NewGame(cfg, Options{Seed: 3, Workers: 2, StatsCallback: func(s telemetry.WindowStats) {
		windows = append(windows, s)
	}})
	defer g.Close()
	g.Populate()

	for i := 0; i < 25; i++ {
		g.Step()
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows in 25 ticks of 10, got %d", len(windows))
	}
	w := windows[1]
	if w.WindowStartTick != 10 || w.WindowEndTick != 20 {
		t.Errorf("second window spans %d-%d, want 10-20", w.WindowStartTick, w.WindowEndTick)
	}
	if w.HerbivoreCount+w.PredatorCount == 0 && g.Population(components.Herbivore)+g.Population(components.Predator) > 0 {
		t.Error("window should count the live population")
	}

	perf := g.PerfStats()
	if perf.AvgTickDuration <= 0 {
		t.Error("perf collector should have recorded ticks")
	}
}
