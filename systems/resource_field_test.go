package systems

import (
	"math/rand/v2"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
)

func seededTerrain(t *testing.T, w, h int) *Terrain {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Grid.Width, cfg.Grid.Height = w, h
	return NewTerrainFromConfig(cfg, rand.New(rand.NewPCG(1, 1)))
}

// updateAll advances the whole terrain as one region.
func updateAll(terrain *Terrain, dt float64, rng *rand.Rand) {
	prev := terrain.SnapshotResource(nil)
	terrain.ApplyDeposits(terrain.UpdateRegion(Rect{X1: terrain.W, Y1: terrain.H}, dt, rng, prev, nil))
}

func checkBounds(t *testing.T, terrain *Terrain) {
	t.Helper()
	for i := range terrain.Resource {
		if r := terrain.Resource[i]; r < 0 || r > terrain.ResourceCap[i] {
			t.Fatalf("cell %d resource %v outside [0, %v]", i, r, terrain.ResourceCap[i])
		}
		if n := terrain.Nutrient[i]; n < 0 || n > terrain.NutrientCap[i] {
			t.Fatalf("cell %d nutrient %v outside [0, %v]", i, n, terrain.NutrientCap[i])
		}
	}
}

func TestTerrainUpdateStaysInBounds(t *testing.T) {
	terrain := seededTerrain(t, 32, 32)
	// Fast growth to push many cells to capacity and exercise overflow.
	for i := range terrain.GrowthRate {
		terrain.GrowthRate[i] = 5
		terrain.NutrientRate[i] = 1
	}
	rng := rand.New(rand.NewPCG(9, 9))
	for tick := 0; tick < 300; tick++ {
		updateAll(terrain, 1.0/60.0, rng)
		checkBounds(t, terrain)
	}
}

func TestTerrainOverflowGoesToLowestNeighbour(t *testing.T) {
	terrain := NewTerrain(3, 3, 100, 1000, 0)
	for i := range terrain.Resource {
		terrain.Resource[i] = 50
	}
	center := terrain.Index(1, 1)
	low := terrain.Index(2, 0)
	terrain.Resource[center] = 100
	terrain.Resource[low] = 10
	terrain.GrowthRate[center] = 1
	terrain.Nutrient[center] = 1000

	prev := terrain.SnapshotResource(nil)
	deposits := terrain.UpdateRegion(Rect{X0: 1, Y0: 1, X1: 2, Y1: 2}, 0.08, rand.New(rand.NewPCG(1, 2)), prev, nil)
	if len(deposits) != 1 {
		t.Fatalf("deposits = %d, want 1", len(deposits))
	}
	if deposits[0].To != low {
		t.Errorf("deposit target %d, want %d", deposits[0].To, low)
	}
	// growth = min(nutrient, 1*0.08*100) = 8, redirected share = 1
	if deposits[0].Amount != 1 {
		t.Errorf("deposit amount %v, want 1", deposits[0].Amount)
	}
	terrain.ApplyDeposits(deposits)
	if terrain.Resource[low] != 11 {
		t.Errorf("low neighbour resource %v, want 11", terrain.Resource[low])
	}
	if terrain.Resource[center] != 100 {
		t.Errorf("full cell changed to %v", terrain.Resource[center])
	}
	if terrain.Nutrient[center] != 999 {
		t.Errorf("nutrient %v, want 999", terrain.Nutrient[center])
	}
}

func TestTerrainDirectGrowthDebitsNutrient(t *testing.T) {
	terrain := NewTerrain(1, 1, 100, 1000, 0)
	terrain.Resource[0] = 99
	terrain.GrowthRate[0] = 1
	terrain.Nutrient[0] = 500

	updateAll(terrain, 0.1, rand.New(rand.NewPCG(1, 1)))
	// growth = 10 but only 1 fits
	if terrain.Resource[0] != 100 {
		t.Errorf("resource %v, want 100", terrain.Resource[0])
	}
	if terrain.Nutrient[0] != 499 {
		t.Errorf("nutrient %v, want 499", terrain.Nutrient[0])
	}
}

func TestConsumeResource(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		floor     float64
		amount    float64
		x, y      int
		want      float64
		remaining float64
	}{
		{"partial bite", 80, 0, 0.5, 0, 0, 50, 30},
		{"capped by current", 20, 0, 1, 0, 0, 20, 0},
		{"respects floor", 30, 10, 1, 0, 0, 20, 10},
		{"out of bounds", 80, 0, 1, 5, 0, 0, 80},
		{"negative coord", 80, 0, 1, -1, 0, 0, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terrain := NewTerrain(2, 2, 100, 100, tt.floor)
			terrain.Resource[0] = tt.current
			got := terrain.ConsumeResource(tt.x, tt.y, tt.amount)
			if got != tt.want {
				t.Errorf("consumed %v, want %v", got, tt.want)
			}
			if terrain.Resource[0] != tt.remaining {
				t.Errorf("remaining %v, want %v", terrain.Resource[0], tt.remaining)
			}
		})
	}
}

func TestReturnNutrientClamps(t *testing.T) {
	terrain := NewTerrain(2, 2, 100, 100, 0)
	terrain.Nutrient[0] = 90
	if got := terrain.ReturnNutrient(0, 0, 50); got != 10 {
		t.Errorf("applied %v, want 10", got)
	}
	if terrain.Nutrient[0] != 100 {
		t.Errorf("nutrient %v, want 100", terrain.Nutrient[0])
	}
	if got := terrain.ReturnNutrient(-1, 0, 5); got != 0 {
		t.Errorf("out of bounds applied %v", got)
	}
}

func TestEmptyNeighbour(t *testing.T) {
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[components.GridPos](world)

	terrain := NewTerrain(3, 3, 100, 100, 0)
	rng := rand.New(rand.NewPCG(5, 5))
	center := components.GridPos{X: 1, Y: 1}

	// Fill everything except (0, 2).
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if (x == 0 && y == 2) || (x == 1 && y == 1) {
				continue
			}
			p := components.GridPos{X: x, Y: y}
			terrain.SetOccupant(x, y, mapper.NewEntity(&p))
		}
	}
	got, ok := terrain.EmptyNeighbour(center, rng)
	if !ok || got != (components.GridPos{X: 0, Y: 2}) {
		t.Errorf("EmptyNeighbour = %v, %v; want (0,2)", got, ok)
	}

	p := components.GridPos{X: 0, Y: 2}
	terrain.SetOccupant(0, 2, mapper.NewEntity(&p))
	if _, ok := terrain.EmptyNeighbour(center, rng); ok {
		t.Error("expected no empty neighbour")
	}
}

func TestOccupantAccessors(t *testing.T) {
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[components.GridPos](world)
	p := components.GridPos{X: 1, Y: 0}
	e := mapper.NewEntity(&p)

	terrain := NewTerrain(2, 2, 100, 100, 0)
	if _, ok := terrain.OccupantAt(1, 0); ok {
		t.Fatal("new terrain should be empty")
	}
	terrain.SetOccupant(1, 0, e)
	if got, ok := terrain.OccupantAt(1, 0); !ok || got != e {
		t.Errorf("OccupantAt = %v, %v", got, ok)
	}
	terrain.ClearOccupant(1, 0, ecs.Entity{})
	if _, ok := terrain.OccupantAt(1, 0); !ok {
		t.Error("clearing with a different entity must not empty the cell")
	}
	terrain.ClearOccupant(1, 0, e)
	if _, ok := terrain.OccupantAt(1, 0); ok {
		t.Error("cell should be empty")
	}
	if _, ok := terrain.OccupantAt(5, 5); ok {
		t.Error("out of bounds should report empty")
	}
}
