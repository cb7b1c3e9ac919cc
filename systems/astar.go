package systems

import (
	"container/heap"
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/ecogrid/components"
)

// DefaultMaxOpen is the open-set cap used when none is configured.
const DefaultMaxOpen = 1000

const (
	costStraight = 1.0
	costDiagonal = math.Sqrt2
)

// pathNode is one cell's search state. Nodes live in an arena indexed by
// flat cell index; parent is an arena index, -1 for none.
type pathNode struct {
	g, h, f float64
	parent  int32
	heapIdx int32 // position in the open heap, -1 when not queued
}

// nodeHeap is a min-heap of arena indices ordered by f.
type nodeHeap struct {
	items []int32
	nodes []pathNode
}

func (h *nodeHeap) Len() int { return len(h.items) }
func (h *nodeHeap) Less(i, j int) bool {
	return h.nodes[h.items[i]].f < h.nodes[h.items[j]].f
}
func (h *nodeHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.nodes[h.items[i]].heapIdx = int32(i)
	h.nodes[h.items[j]].heapIdx = int32(j)
}

func (h *nodeHeap) Push(x any) {
	n := x.(int32)
	h.nodes[n].heapIdx = int32(len(h.items))
	h.items = append(h.items, n)
}

func (h *nodeHeap) Pop() any {
	old := h.items
	last := len(old) - 1
	n := old[last]
	h.nodes[n].heapIdx = -1
	h.items = old[:last]
	return n
}

// Planner runs A* and bounded resource searches over a W x H grid of
// uniform step costs. A Planner reuses its node arena between searches and
// is not safe for concurrent use; each worker owns one.
type Planner struct {
	W, H    int
	MaxOpen int

	nodes []pathNode
	open  nodeHeap
	rng   *rand.Rand

	dirs [8][2]int
}

// NewPlanner creates a planner. Expansion order is shuffled with rng.
func NewPlanner(w, h, maxOpen int, rng *rand.Rand) *Planner {
	if maxOpen < 1 {
		maxOpen = DefaultMaxOpen
	}
	p := &Planner{
		W: w, H: h,
		MaxOpen: maxOpen,
		nodes:   make([]pathNode, w*h),
		rng:     rng,
		dirs:    neighbourOffsets,
	}
	p.open.nodes = p.nodes
	return p
}

// octile is the admissible distance for 8-way movement.
func octile(ax, ay, bx, by int) float64 {
	dx := math.Abs(float64(ax - bx))
	dy := math.Abs(float64(ay - by))
	return max(dx, dy) + (math.Sqrt2-1)*min(dx, dy)
}

// reset clears every node. The arena is scratch storage, not a persistent graph.
func (p *Planner) reset() {
	inf := math.Inf(1)
	for i := range p.nodes {
		p.nodes[i] = pathNode{g: inf, h: inf, f: inf, parent: -1, heapIdx: -1}
	}
	p.open.items = p.open.items[:0]
}

func (p *Planner) inBounds(x, y int) bool {
	return x >= 0 && x < p.W && y >= 0 && y < p.H
}

// shuffledDirs returns the 8 step directions in a fresh random order.
func (p *Planner) shuffledDirs() [8][2]int {
	d := p.dirs
	p.rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
	return d
}

// FindPath searches from start to goal with 8-way movement. The returned
// path excludes start and ends at goal; consecutive steps are one cell apart.
// It returns nil when either end is off the grid, when start == goal, or
// when the open set grows past MaxOpen.
func (p *Planner) FindPath(start, goal components.GridPos) []components.GridPos {
	if !p.inBounds(start.X, start.Y) || !p.inBounds(goal.X, goal.Y) || start == goal {
		return nil
	}
	p.reset()

	startIdx := int32(start.Y*p.W + start.X)
	goalIdx := int32(goal.Y*p.W + goal.X)

	s := &p.nodes[startIdx]
	s.g = 0
	s.h = octile(start.X, start.Y, goal.X, goal.Y)
	s.f = s.h
	heap.Push(&p.open, startIdx)

	for p.open.Len() > 0 {
		if p.open.Len() > p.MaxOpen {
			return nil
		}
		cur := heap.Pop(&p.open).(int32)
		if cur == goalIdx {
			return p.reconstruct(startIdx, goalIdx)
		}

		cx, cy := int(cur)%p.W, int(cur)/p.W
		curNode := p.nodes[cur]

		for _, d := range p.shuffledDirs() {
			nx, ny := cx+d[0], cy+d[1]
			if !p.inBounds(nx, ny) {
				continue
			}
			n := int32(ny*p.W + nx)
			// Linking n under cur would close a two-step loop.
			if curNode.parent == n {
				continue
			}

			step := costStraight
			if d[0] != 0 && d[1] != 0 {
				step = costDiagonal
			}
			g := curNode.g + step
			h := octile(nx, ny, goal.X, goal.Y)
			f := g + h

			node := &p.nodes[n]
			if f >= node.f {
				continue
			}
			node.g, node.h, node.f = g, h, f
			node.parent = cur
			if node.heapIdx >= 0 {
				heap.Fix(&p.open, int(node.heapIdx))
			} else {
				heap.Push(&p.open, n)
			}
		}
	}
	return nil
}

// reconstruct walks parent links from goal back to start.
func (p *Planner) reconstruct(startIdx, goalIdx int32) []components.GridPos {
	var rev []components.GridPos
	limit := len(p.nodes)
	for n := goalIdx; n != startIdx; n = p.nodes[n].parent {
		if n < 0 || len(rev) > limit {
			return nil
		}
		rev = append(rev, components.GridPos{X: int(n) % p.W, Y: int(n) / p.W})
	}
	path := make([]components.GridPos, len(rev))
	for i, pos := range rev {
		path[len(rev)-1-i] = pos
	}
	return path
}
