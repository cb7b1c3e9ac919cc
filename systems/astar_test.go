package systems

import (
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/ecogrid/components"
)

func newTestPlanner(w, h, maxOpen int) *Planner {
	return NewPlanner(w, h, maxOpen, rand.New(rand.NewPCG(7, 11)))
}

// checkPath verifies adjacency, destination and absence of repeats.
func checkPath(t *testing.T, start, goal components.GridPos, path []components.GridPos) {
	t.Helper()
	if len(path) == 0 {
		t.Fatal("expected a path")
	}
	if path[len(path)-1] != goal {
		t.Errorf("path ends at %v, want %v", path[len(path)-1], goal)
	}
	seen := map[components.GridPos]bool{start: true}
	prev := start
	for i, p := range path {
		if d := prev.Chebyshev(p); d != 1 {
			t.Errorf("step %d: %v -> %v has Chebyshev distance %d", i, prev, p, d)
		}
		if seen[p] {
			t.Errorf("step %d: position %v repeated", i, p)
		}
		seen[p] = true
		prev = p
	}
}

// TestAStarSimplePath verifies A* finds a path on an open grid.
func TestAStarSimplePath(t *testing.T) {
	planner := newTestPlanner(50, 50, 0)
	start := components.GridPos{X: 2, Y: 3}
	goal := components.GridPos{X: 40, Y: 21}

	path := planner.FindPath(start, goal)
	checkPath(t, start, goal, path)

	// On an obstacle-free 8-way grid the optimal step count is Chebyshev distance.
	if len(path) != start.Chebyshev(goal) {
		t.Errorf("path length %d, want %d", len(path), start.Chebyshev(goal))
	}
}

// TestAStarStartExclusive verifies the start cell is never part of the path.
func TestAStarStartExclusive(t *testing.T) {
	planner := newTestPlanner(10, 10, 0)
	start := components.GridPos{X: 4, Y: 4}
	goal := components.GridPos{X: 5, Y: 5}

	path := planner.FindPath(start, goal)
	if len(path) != 1 || path[0] != goal {
		t.Fatalf("path = %v, want [%v]", path, goal)
	}
}

// TestAStarReusesArena runs many searches on one planner; each must be
// independent of the last.
func TestAStarReusesArena(t *testing.T) {
	planner := newTestPlanner(30, 30, 0)
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 200; i++ {
		start := components.GridPos{X: rng.IntN(30), Y: rng.IntN(30)}
		goal := components.GridPos{X: rng.IntN(30), Y: rng.IntN(30)}
		path := planner.FindPath(start, goal)
		if start == goal {
			if path != nil {
				t.Fatalf("start == goal should give empty path, got %v", path)
			}
			continue
		}
		checkPath(t, start, goal, path)
	}
}

// TestAStarNodeCap verifies the search gives up when the open set exceeds the cap.
func TestAStarNodeCap(t *testing.T) {
	planner := newTestPlanner(50, 50, 5)
	path := planner.FindPath(components.GridPos{X: 0, Y: 0}, components.GridPos{X: 49, Y: 49})
	if path != nil {
		t.Errorf("expected empty path with node cap 5, got %d steps", len(path))
	}
}

// TestAStarOutOfBounds verifies off-grid endpoints return no path.
func TestAStarOutOfBounds(t *testing.T) {
	planner := newTestPlanner(10, 10, 0)
	tests := []struct {
		name        string
		start, goal components.GridPos
	}{
		{"start negative", components.GridPos{X: -1, Y: 0}, components.GridPos{X: 5, Y: 5}},
		{"goal past edge", components.GridPos{X: 0, Y: 0}, components.GridPos{X: 10, Y: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if path := planner.FindPath(tt.start, tt.goal); path != nil {
				t.Errorf("expected nil, got %v", path)
			}
		})
	}
}

func TestOctile(t *testing.T) {
	if d := octile(0, 0, 3, 0); d != 3 {
		t.Errorf("straight octile = %v, want 3", d)
	}
	want := 4 + (1.4142135623730951-1)*2
	if d := octile(0, 0, 4, 2); d < want-1e-9 || d > want+1e-9 {
		t.Errorf("octile = %v, want %v", d, want)
	}
}
