package systems

import (
	"container/heap"
	"math"

	"github.com/pthm-cable/ecogrid/components"
)

// BestResourcePosition expands outward from start by path cost, up to
// radius, and returns the reachable cell with the highest resource ratio
// above minAlpha. Candidates are shuffled before the max scan so that equal
// ratios are picked without directional bias.
func (p *Planner) BestResourcePosition(t *Terrain, start components.GridPos, radius, minAlpha float64) (components.GridPos, bool) {
	if !p.inBounds(start.X, start.Y) || t.W != p.W || t.H != p.H {
		return components.GridPos{X: -1, Y: -1}, false
	}
	p.reset()

	startIdx := int32(start.Y*p.W + start.X)
	p.nodes[startIdx].g = 0
	p.nodes[startIdx].f = 0
	heap.Push(&p.open, startIdx)

	var candidates []int32
	for p.open.Len() > 0 {
		cur := heap.Pop(&p.open).(int32)
		if t.ResourceCap[cur] > 0 && t.Resource[cur]/t.ResourceCap[cur] > minAlpha {
			candidates = append(candidates, cur)
		}

		cx, cy := int(cur)%p.W, int(cur)/p.W
		g0 := p.nodes[cur].g
		for _, d := range p.dirs {
			nx, ny := cx+d[0], cy+d[1]
			if !p.inBounds(nx, ny) {
				continue
			}
			step := costStraight
			if d[0] != 0 && d[1] != 0 {
				step = costDiagonal
			}
			g := g0 + step
			if g > radius+1e-9 {
				continue
			}
			n := int32(ny*p.W + nx)
			node := &p.nodes[n]
			if g >= node.g {
				continue
			}
			node.g, node.f = g, g
			node.parent = cur
			if node.heapIdx >= 0 {
				heap.Fix(&p.open, int(node.heapIdx))
			} else {
				heap.Push(&p.open, n)
			}
		}
	}

	if len(candidates) == 0 {
		return components.GridPos{X: -1, Y: -1}, false
	}
	p.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	best := int32(-1)
	bestRatio := math.Inf(-1)
	for _, c := range candidates {
		r := t.Resource[c] / t.ResourceCap[c]
		if r > bestRatio {
			best, bestRatio = c, r
		}
	}
	return components.GridPos{X: int(best) % p.W, Y: int(best) / p.W}, true
}
