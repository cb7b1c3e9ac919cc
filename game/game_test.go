package game

import (
	"errors"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
)

// testConfig returns the embedded defaults on a small grid with no initial
// population.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Grid.Width = 10
	cfg.Grid.Height = 10
	cfg.Population.Herbivores = 0
	cfg.Population.Predators = 0
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config, workers int) *Game {
	t.Helper()
	g := NewGame(cfg, Options{Seed: 42, Workers: workers})
	t.Cleanup(g.Close)
	return g
}

// sterile never replicates.
var sterile = components.Evolution{ReplicationThreshold: 1, ReplicateChance: 0, MutationChance: 0}

func mustCreate(t *testing.T, g *Game, s components.Species, size float64, x, y int) ecs.Entity {
	t.Helper()
	e, err := g.CreateAgentErr(s, components.Traits{Size: size, Speed: 1, Sense: 5}, sterile, components.GridPos{X: x, Y: y})
	if err != nil {
		t.Fatalf("create %v at %d,%d: %v", s, x, y, err)
	}
	return e
}

// ---------- CreateAgent ----------

func TestCreateAgent_Failures(t *testing.T) {
	g := newTestGame(t, testConfig(t), 2)
	mustCreate(t, g, components.Herbivore, 1, 4, 4)

	tests := []struct {
		name    string
		species components.Species
		pos     components.GridPos
		want    error
	}{
		{"negative x", components.Herbivore, components.GridPos{X: -1, Y: 0}, ErrOutOfBounds},
		{"past width", components.Predator, components.GridPos{X: 10, Y: 0}, ErrOutOfBounds},
		{"past height", components.Predator, components.GridPos{X: 0, Y: 10}, ErrOutOfBounds},
		{"occupied", components.Predator, components.GridPos{X: 4, Y: 4}, ErrCellOccupied},
		{"unknown species", components.NumSpecies, components.GridPos{X: 1, Y: 1}, ErrUnknownSpecies},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.CreateAgentErr(tt.species, components.Traits{Size: 1, Speed: 1, Sense: 1}, sterile, tt.pos)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if _, ok := g.CreateAgent(tt.species, components.Traits{Size: 1, Speed: 1, Sense: 1}, sterile, tt.pos); ok {
				t.Error("CreateAgent should report failure")
			}
		})
	}

	if got := g.Population(components.Herbivore) + g.Population(components.Predator); got != 1 {
		t.Errorf("failed creates should not add agents, population %d", got)
	}
}

func TestCreateAgent_InitialState(t *testing.T) {
	g := newTestGame(t, testConfig(t), 1)
	e := mustCreate(t, g, components.Predator, 200, 3, 7)

	occ, ok := g.Occupant(3, 7)
	if !ok || occ != e {
		t.Fatalf("expected occupant %v at 3,7, got %v (%v)", e, occ, ok)
	}

	a, ok := g.Agent(e)
	if !ok {
		t.Fatal("new agent should be alive")
	}
	if a.Traits.Size != config.TraitMax {
		t.Errorf("size should clamp to %g, got %g", config.TraitMax, a.Traits.Size)
	}
	if a.Energy.Current != 1600 || a.Energy.Max != 2000 {
		t.Errorf("predator energy = %v, want 1600/2000", a.Energy)
	}
	if a.Fatigue.Current != 800 || a.Fatigue.Max != 1000 {
		t.Errorf("predator fatigue = %v, want 800/1000", a.Fatigue)
	}
	if a.Home != a.Pos || a.Serial != 1 {
		t.Errorf("unexpected home %v / serial %d", a.Home, a.Serial)
	}
}

func TestPopulate_PlacesConfiguredCounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Grid.Width, cfg.Grid.Height = 32, 32
	cfg.Population.Herbivores = 40
	cfg.Population.Predators = 6
	g := newTestGame(t, cfg, 2)

	if n := g.Populate(); n != 46 {
		t.Fatalf("Populate placed %d, want 46", n)
	}
	if got := g.Population(components.Herbivore); got != 40 {
		t.Errorf("herbivores = %d, want 40", got)
	}
	if got := g.Population(components.Predator); got != 6 {
		t.Errorf("predators = %d, want 6", got)
	}

	snap := g.Snapshot()
	occupied := 0
	for _, s := range snap.Occupancy {
		if s != 0 {
			occupied++
		}
	}
	if occupied != 46 {
		t.Errorf("occupied cells = %d, want 46", occupied)
	}
}

// ---------- Highlights ----------

func TestHighlights_FIFO(t *testing.T) {
	g := newTestGame(t, testConfig(t), 1)
	g.Highlight(1, 1, 0xff0000ff)
	g.Highlight(-1, 1, 0xffffffff) // dropped
	g.Highlight(2, 3, 0x00ff00ff)

	got := g.DrainHighlights()
	if len(got) != 2 || got[0].X != 1 || got[1].Y != 3 {
		t.Fatalf("unexpected highlights %+v", got)
	}
	if len(g.DrainHighlights()) != 0 {
		t.Error("drain should empty the queue")
	}
}
