package systems

import (
	"math/rand/v2"
)

// Deposit is resource growth redirected from a full cell to a neighbour.
// Deposits are buffered during a parallel update and applied afterwards so
// that no task writes outside its own region.
type Deposit struct {
	From, To int     // Flat cell indices
	Amount   float64 // Resource to add at To
}

// SnapshotResource copies the resource layer into dst, growing it if needed.
func (t *Terrain) SnapshotResource(dst []float64) []float64 {
	if cap(dst) < len(t.Resource) {
		dst = make([]float64, len(t.Resource))
	}
	dst = dst[:len(t.Resource)]
	copy(dst, t.Resource)
	return dst
}

// UpdateRegion advances every cell inside r by dt:
//
//   - nutrient refills at its per-cell rate, clamped to capacity;
//   - growth = min(nutrient, growthRate*dt*resourceCap);
//   - a cell below capacity takes the growth directly;
//   - a full cell sends growth/8 to its lowest neighbour, chosen from prev
//     after a shuffle so ties carry no directional bias;
//   - nutrient is debited by what was applied.
//
// Only cells inside r are written. Redirected growth is appended to deposits
// and returned; the caller applies it with ApplyDeposits.
func (t *Terrain) UpdateRegion(r Rect, dt float64, rng *rand.Rand, prev []float64, deposits []Deposit) []Deposit {
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			i := y*t.W + x

			nut := clampf(t.Nutrient[i]+t.NutrientRate[i]*dt*t.NutrientCap[i], 0, t.NutrientCap[i])
			growth := min(nut, t.GrowthRate[i]*dt*t.ResourceCap[i])

			if growth > 0 {
				if t.Resource[i] >= t.ResourceCap[i] {
					if to := t.lowestNeighbour(x, y, prev, rng); to >= 0 {
						amt := growth / 8
						deposits = append(deposits, Deposit{From: i, To: to, Amount: amt})
						nut -= amt
					}
				} else {
					applied := min(growth, t.ResourceCap[i]-t.Resource[i])
					t.Resource[i] += applied
					nut -= applied
				}
			}

			t.Nutrient[i] = clampf(nut, 0, t.NutrientCap[i])
		}
	}
	return deposits
}

// ApplyDeposits adds buffered overflow to its targets in order. Whatever does
// not fit under the target's capacity is refunded to the source's nutrient.
func (t *Terrain) ApplyDeposits(deposits []Deposit) {
	for _, d := range deposits {
		applied := min(d.Amount, t.ResourceCap[d.To]-t.Resource[d.To])
		if applied < 0 {
			applied = 0
		}
		t.Resource[d.To] += applied
		if rest := d.Amount - applied; rest > 0 {
			t.Nutrient[d.From] = clampf(t.Nutrient[d.From]+rest, 0, t.NutrientCap[d.From])
		}
	}
}

// lowestNeighbour returns the in-bounds neighbour of (x, y) with the lowest
// level in prev, or -1 if there is none.
func (t *Terrain) lowestNeighbour(x, y int, prev []float64, rng *rand.Rand) int {
	var candidates [8]int
	n := 0
	for _, o := range neighbourOffsets {
		if i := t.Index(x+o[0], y+o[1]); i >= 0 {
			candidates[n] = i
			n++
		}
	}
	if n == 0 {
		return -1
	}
	c := candidates[:n]
	rng.Shuffle(n, func(i, j int) { c[i], c[j] = c[j], c[i] })

	best := c[0]
	for _, i := range c[1:] {
		if prev[i] < prev[best] {
			best = i
		}
	}
	return best
}
