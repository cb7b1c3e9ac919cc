package systems

import (
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
)

// neighbourOffsets lists the 8 surrounding cells.
var neighbourOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Terrain holds the per-cell layers of the grid. Every layer is a flat slice
// indexed by y*W+x.
//
// Terrain has no internal locking; callers coordinate access.
type Terrain struct {
	W, H int

	// Occupant is the agent holding each cell (zero entity = empty).
	Occupant []ecs.Entity

	Resource    []float64
	ResourceCap []float64
	GrowthRate  []float64

	Nutrient     []float64
	NutrientCap  []float64
	NutrientRate []float64

	// Floor is the level consumption never drains below.
	Floor float64
}

// NewTerrain allocates an empty terrain with uniform capacities.
func NewTerrain(w, h int, resourceCap, nutrientCap, floor float64) *Terrain {
	n := w * h
	t := &Terrain{
		W: w, H: h,
		Occupant:     make([]ecs.Entity, n),
		Resource:     make([]float64, n),
		ResourceCap:  make([]float64, n),
		GrowthRate:   make([]float64, n),
		Nutrient:     make([]float64, n),
		NutrientCap:  make([]float64, n),
		NutrientRate: make([]float64, n),
		Floor:        min(floor, resourceCap),
	}
	for i := 0; i < n; i++ {
		t.ResourceCap[i] = resourceCap
		t.NutrientCap[i] = nutrientCap
	}
	return t
}

// NewTerrainFromConfig allocates a terrain sized and seeded from cfg.
func NewTerrainFromConfig(cfg *config.Config, rng *rand.Rand) *Terrain {
	tc := cfg.Terrain
	t := NewTerrain(cfg.Grid.Width, cfg.Grid.Height, tc.ResourceCapacity, tc.NutrientCapacity, tc.ResourceFloor)
	t.Seed(tc, rng)
	return t
}

// Seed randomizes initial resource levels and per-cell rates.
func (t *Terrain) Seed(tc config.TerrainConfig, rng *rand.Rand) {
	for i := range t.Resource {
		ratio := tc.InitialValue.Lerp(rng.Float64()) + tc.InitialAmplitude*(rng.Float64()*2-1)
		ratio = clampf(ratio, 0, 1)
		t.Resource[i] = ratio * t.ResourceCap[i]
		t.GrowthRate[i] = tc.GrowthRate.Lerp(rng.Float64())
		t.NutrientRate[i] = tc.NutrientRate.Lerp(rng.Float64())
		t.Nutrient[i] = tc.InitialNutrient * t.NutrientCap[i]
	}
}

// Index returns the flat index of (x, y), or -1 when out of bounds.
func (t *Terrain) Index(x, y int) int {
	if x < 0 || x >= t.W || y < 0 || y >= t.H {
		return -1
	}
	return y*t.W + x
}

// InBounds reports whether p lies on the grid.
func (t *Terrain) InBounds(p components.GridPos) bool {
	return p.InBounds(t.W, t.H)
}

// PosOf converts a flat index back to a grid position.
func (t *Terrain) PosOf(i int) components.GridPos {
	return components.GridPos{X: i % t.W, Y: i / t.W}
}

// ResourceRatio returns resource/capacity at (x, y), or 0 out of bounds.
func (t *Terrain) ResourceRatio(x, y int) float64 {
	i := t.Index(x, y)
	if i < 0 || t.ResourceCap[i] <= 0 {
		return 0
	}
	return t.Resource[i] / t.ResourceCap[i]
}

// TotalResourceRatio sums resource/capacity over every cell.
func (t *Terrain) TotalResourceRatio() float64 {
	var sum float64
	for i, r := range t.Resource {
		if t.ResourceCap[i] > 0 {
			sum += r / t.ResourceCap[i]
		}
	}
	return sum
}

// OccupantAt returns the agent holding (x, y).
func (t *Terrain) OccupantAt(x, y int) (ecs.Entity, bool) {
	i := t.Index(x, y)
	if i < 0 {
		return ecs.Entity{}, false
	}
	e := t.Occupant[i]
	return e, e != (ecs.Entity{})
}

// SetOccupant marks (x, y) as held by e. Out of bounds is ignored.
func (t *Terrain) SetOccupant(x, y int, e ecs.Entity) {
	if i := t.Index(x, y); i >= 0 {
		t.Occupant[i] = e
	}
}

// ClearOccupant empties (x, y) if it is held by e.
func (t *Terrain) ClearOccupant(x, y int, e ecs.Entity) {
	if i := t.Index(x, y); i >= 0 && t.Occupant[i] == e {
		t.Occupant[i] = ecs.Entity{}
	}
}

// ConsumeResource removes min(amount*(capacity-floor), current) from the
// cell's resource, never going below the floor, and returns the quantity
// removed. Out-of-bounds coordinates return 0.
func (t *Terrain) ConsumeResource(x, y int, amount float64) float64 {
	i := t.Index(x, y)
	if i < 0 || amount <= 0 {
		return 0
	}
	cur := t.Resource[i]
	if cur <= t.Floor {
		return 0
	}
	v := min(amount*(t.ResourceCap[i]-t.Floor), cur-t.Floor)
	t.Resource[i] = cur - v
	return v
}

// ReturnNutrient credits v to the nutrient layer and returns the amount that
// fit under capacity.
func (t *Terrain) ReturnNutrient(x, y int, v float64) float64 {
	i := t.Index(x, y)
	if i < 0 || v <= 0 {
		return 0
	}
	applied := min(v, t.NutrientCap[i]-t.Nutrient[i])
	t.Nutrient[i] += applied
	return applied
}

// EmptyNeighbour returns a random unoccupied in-bounds neighbour of p.
func (t *Terrain) EmptyNeighbour(p components.GridPos, rng *rand.Rand) (components.GridPos, bool) {
	offsets := neighbourOffsets
	rng.Shuffle(len(offsets), func(i, j int) { offsets[i], offsets[j] = offsets[j], offsets[i] })
	for _, o := range offsets {
		i := t.Index(p.X+o[0], p.Y+o[1])
		if i >= 0 && t.Occupant[i] == (ecs.Entity{}) {
			return t.PosOf(i), true
		}
	}
	return components.GridPos{X: -1, Y: -1}, false
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
