package game

import (
	"cmp"
	"slices"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/telemetry"
)

// Highlight asks a presentation layer to mark a cell. The engine only queues
// these; it never reads them back.
type Highlight struct {
	X, Y  int
	Color uint32 // RGBA
}

// highlightQueue is a FIFO safe for use from any goroutine.
type highlightQueue struct {
	mu    sync.Mutex
	items []Highlight
}

// Highlight queues a cell highlight. Out-of-bounds cells are dropped.
func (g *Game) Highlight(x, y int, color uint32) {
	if g.terrain.Index(x, y) < 0 {
		return
	}
	g.highlit.mu.Lock()
	g.highlit.items = append(g.highlit.items, Highlight{X: x, Y: y, Color: color})
	g.highlit.mu.Unlock()
}

// DrainHighlights returns queued highlights in submission order and empties
// the queue.
func (g *Game) DrainHighlights() []Highlight {
	g.highlit.mu.Lock()
	defer g.highlit.mu.Unlock()
	out := g.highlit.items
	g.highlit.items = nil
	return out
}

// Occupant returns the agent holding (x, y). Cells reserved for births in
// flight and out-of-bounds cells report none.
func (g *Game) Occupant(x, y int) (ecs.Entity, bool) {
	g.locks.terrain.RLock()
	defer g.locks.terrain.RUnlock()
	e, ok := g.terrain.OccupantAt(x, y)
	if !ok || e == g.reserved {
		return ecs.Entity{}, false
	}
	return e, true
}

// Agent returns a copy of a live agent's state.
func (g *Game) Agent(e ecs.Entity) (components.Agent, bool) {
	g.locks.roster.RLock()
	defer g.locks.roster.RUnlock()
	a := g.agent(e)
	if a == nil {
		return components.Agent{}, false
	}
	out := *a
	out.Path = slices.Clone(a.Path)
	return out, true
}

// Snapshot returns a deep copy of the terrain, the occupancy grid and every
// live agent, ordered by serial.
func (g *Game) Snapshot() *telemetry.Snapshot {
	g.locks.roster.RLock()
	defer g.locks.roster.RUnlock()
	g.locks.terrain.RLock()
	defer g.locks.terrain.RUnlock()

	t := g.terrain
	snap := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		Seed:        g.seed,
		Tick:        g.tick,
		Width:       t.W,
		Height:      t.H,
		Resource:    slices.Clone(t.Resource),
		ResourceCap: slices.Clone(t.ResourceCap),
		Nutrient:    slices.Clone(t.Nutrient),
		Occupancy:   make([]uint64, len(t.Occupant)),
	}

	query := g.agentFilter.Query()
	for query.Next() {
		a := query.Get()
		if !a.Alive {
			continue
		}
		snap.Agents = append(snap.Agents, agentState(a))
	}
	slices.SortFunc(snap.Agents, func(a, b telemetry.AgentState) int {
		return cmp.Compare(a.Serial, b.Serial)
	})

	for i, e := range t.Occupant {
		if a := g.agent(e); a != nil {
			snap.Occupancy[i] = a.Serial
		}
	}
	return snap
}

func agentState(a *components.Agent) telemetry.AgentState {
	return telemetry.AgentState{
		Serial:               a.Serial,
		Species:              a.Species.String(),
		X:                    a.Pos.X,
		Y:                    a.Pos.Y,
		HomeX:                a.Home.X,
		HomeY:                a.Home.Y,
		Energy:               a.Energy.Current,
		EnergyMax:            a.Energy.Max,
		Fatigue:              a.Fatigue.Current,
		FatigueMax:           a.Fatigue.Max,
		Resting:              a.Resting,
		Size:                 a.Traits.Size,
		Speed:                a.Traits.Speed,
		Sense:                a.Traits.Sense,
		ReplicationThreshold: a.Evolution.ReplicationThreshold,
		ReplicateChance:      a.Evolution.ReplicateChance,
		MutationChance:       a.Evolution.MutationChance,
		PathLen:              len(a.Path),
		BirthTick:            a.BirthTick,
		Generation:           a.Generation,
	}
}

// Metrics is the aggregate view polled by metrics consumers.
type Metrics struct {
	Tick             int32
	Population       [components.NumSpecies]int
	MeanTraits       [components.NumSpecies]components.Traits
	ResourceRatioSum float64
	TotalEnergy      float64
}

// Metrics returns population per species, mean traits per species and the
// summed resource ratio.
func (g *Game) Metrics() Metrics {
	g.locks.roster.RLock()
	defer g.locks.roster.RUnlock()
	g.locks.terrain.RLock()
	defer g.locks.terrain.RUnlock()

	m := Metrics{Tick: g.tick, ResourceRatioSum: g.terrain.TotalResourceRatio()}
	var sum [components.NumSpecies][3]float64
	var energy []float64

	query := g.agentFilter.Query()
	for query.Next() {
		a := query.Get()
		if !a.Alive {
			continue
		}
		m.Population[a.Species]++
		sum[a.Species][0] += a.Traits.Size
		sum[a.Species][1] += a.Traits.Speed
		sum[a.Species][2] += a.Traits.Sense
		energy = append(energy, a.Energy.Current)
	}
	for s, n := range m.Population {
		if n == 0 {
			continue
		}
		floats.Scale(1/float64(n), sum[s][:])
		m.MeanTraits[s] = components.Traits{Size: sum[s][0], Speed: sum[s][1], Sense: sum[s][2]}
	}
	m.TotalEnergy = floats.Sum(energy)
	return m
}
