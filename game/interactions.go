package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecogrid/components"
)

// InteractionKind distinguishes queued interactions.
type InteractionKind uint8

const (
	Predation           InteractionKind = iota // Actor eats Target
	ResourceConsumption                        // Actor grazes Cell
)

func (k InteractionKind) String() string {
	switch k {
	case Predation:
		return "predation"
	case ResourceConsumption:
		return "resource_consumption"
	}
	return "unknown"
}

// InteractionRequest is a cross-agent or agent-terrain effect produced during
// the behavior phase and applied during the drain. Result holds the energy
// transferred once resolved; stale requests resolve to 0.
type InteractionRequest struct {
	Kind   InteractionKind
	Actor  ecs.Entity
	Target ecs.Entity // Predation only
	Cell   components.GridPos
	Amount float64 // Fraction of usable resource, ResourceConsumption only

	Result   float64
	Resolved bool
}

// InteractionQueue holds one append-only lane per partition. A behavior task
// writes only its own lane, so appends need no lock.
type InteractionQueue struct {
	lanes [][]InteractionRequest
}

// NewInteractionQueue creates a queue with n lanes.
func NewInteractionQueue(n int) *InteractionQueue {
	return &InteractionQueue{lanes: make([][]InteractionRequest, n)}
}

// Push appends r to a lane.
func (q *InteractionQueue) Push(lane int, r InteractionRequest) {
	q.lanes[lane] = append(q.lanes[lane], r)
}

// Lane returns the requests of one lane in append order.
func (q *InteractionQueue) Lane(lane int) []InteractionRequest {
	return q.lanes[lane]
}

// Len returns the total number of queued requests.
func (q *InteractionQueue) Len() int {
	n := 0
	for _, l := range q.lanes {
		n += len(l)
	}
	return n
}

// Reset empties every lane, keeping capacity.
func (q *InteractionQueue) Reset() {
	for i := range q.lanes {
		q.lanes[i] = q.lanes[i][:0]
	}
}

// each visits every request, lanes in ascending order, each lane in append order.
func (q *InteractionQueue) each(fn func(r *InteractionRequest)) {
	for i := range q.lanes {
		lane := q.lanes[i]
		for j := range lane {
			fn(&lane[j])
		}
	}
}

// birth is a replication accepted during the drain, created afterwards.
type birth struct {
	species    components.Species
	traits     components.Traits
	evolution  components.Evolution
	pos        components.GridPos
	generation int
}

// drainInteractions resolves every queued request on the calling goroutine.
// Accepted births keep their cells reserved until cleanup creates them.
func (g *Game) drainInteractions() {
	g.births = g.births[:0]
	g.queue.each(g.resolve)
}

// agent returns the live agent for e, or nil.
func (g *Game) agent(e ecs.Entity) *components.Agent {
	if e == (ecs.Entity{}) || e == g.reserved || !g.world.Alive(e) {
		return nil
	}
	if !g.agentMap.HasAll(e) {
		return nil
	}
	a := g.agentMap.Get(e)
	if !a.Alive {
		return nil
	}
	return a
}

// resolve applies a single request. The first request in queue order wins;
// anything invalidated by an earlier one resolves to 0.
func (g *Game) resolve(r *InteractionRequest) {
	r.Result = 0
	r.Resolved = true

	actor := g.agent(r.Actor)
	if actor == nil || !g.terrain.InBounds(r.Cell) || float64(actor.Pos.DistSq(r.Cell)) > g.cfg.Predation.ReachDistSq {
		g.collector.RecordStale()
		return
	}

	switch r.Kind {
	case Predation:
		if r.Target == r.Actor {
			r.Result = g.graze(actor, r.Cell, g.cfg.Energy.EatAmount)
			break
		}
		target := g.agent(r.Target)
		if target == nil {
			g.collector.RecordStale()
			return
		}
		if actor.Species == components.Herbivore && target.Species == components.Predator {
			r.Result = g.graze(actor, r.Cell, g.cfg.Energy.EatAmount)
			break
		}
		g.collector.RecordPredationAttempt()
		r.Result = g.prey(actor, target)
	case ResourceConsumption:
		r.Result = g.graze(actor, r.Cell, r.Amount)
	default:
		return
	}

	if actor.Alive && actor.Energy.Ratio() >= actor.Evolution.ReplicationThreshold {
		g.replicate(actor)
	}
}

// prey transfers the target's energy to the actor. Overflow goes to the
// nutrient layer at the actor's cell.
func (g *Game) prey(actor, target *components.Agent) float64 {
	g.locks.terrain.RLock()
	defer g.locks.terrain.RUnlock()

	pa := g.parts.ID(actor.Pos.X, actor.Pos.Y)
	pt := g.parts.ID(target.Pos.X, target.Pos.Y)
	g.locks.lockPair(pa, pt)
	defer g.locks.unlockPair(pa, pt)

	if float64(actor.Pos.DistSq(target.Pos)) > g.cfg.Predation.ReachDistSq {
		return 0
	}
	if target.Species != components.Herbivore {
		return 0
	}
	if actor.Traits.Size < g.cfg.Predation.SizeAdvantage*target.Traits.Size {
		return 0
	}

	energy := target.Eaten()
	if overflow := actor.GainEnergy(energy); overflow > 0 {
		b := g.locks.lockBlock(actor.Pos.X, actor.Pos.Y)
		g.terrain.ReturnNutrient(actor.Pos.X, actor.Pos.Y, overflow)
		g.locks.unlockBlock(b)
	}
	g.collector.RecordKill()
	return energy
}

// graze consumes resource at cell for agents whose species eats it.
func (g *Game) graze(actor *components.Agent, cell components.GridPos, amount float64) float64 {
	if !g.behaviors[actor.Species].eatsResource {
		return 0
	}

	g.locks.terrain.RLock()
	defer g.locks.terrain.RUnlock()
	b := g.locks.lockBlock(cell.X, cell.Y)
	defer g.locks.unlockBlock(b)

	actor.ConsumeEnergy(components.ActionCost(actor.Traits, actor.Energy.Current, components.ActionEat, g.cfg.Energy.Costs, 1))
	got := g.terrain.ConsumeResource(cell.X, cell.Y, amount)
	if overflow := actor.GainEnergy(got); overflow > 0 {
		g.terrain.ReturnNutrient(cell.X, cell.Y, overflow)
	}
	if got > 0 {
		g.collector.RecordGraze()
	}
	return got
}

// replicate rolls for offspring and reserves a neighbouring cell for it.
func (g *Game) replicate(parent *components.Agent) {
	if g.rng.Float64() > parent.Evolution.ReplicateChance {
		return
	}
	g.locks.terrain.Lock()
	defer g.locks.terrain.Unlock()
	pos, ok := g.terrain.EmptyNeighbour(parent.Pos, g.rng)
	if !ok {
		return
	}

	traits := parent.Traits
	if g.rng.Float64() <= parent.Evolution.MutationChance {
		traits = traits.Mutate(g.rng, g.cfg.Evolution.MutationEpsilon)
	}
	parent.ConsumeEnergy(components.ActionCost(parent.Traits, parent.Energy.Current, components.ActionReplicate, g.cfg.Energy.Costs, 1))

	g.terrain.SetOccupant(pos.X, pos.Y, g.reserved)
	g.births = append(g.births, birth{
		species:    parent.Species,
		traits:     traits,
		evolution:  parent.Evolution,
		pos:        pos,
		generation: parent.Generation + 1,
	})
}

// createBirths turns reserved cells into agents. The caller holds the roster
// and terrain write locks.
func (g *Game) createBirths() {
	for _, b := range g.births {
		g.terrain.ClearOccupant(b.pos.X, b.pos.Y, g.reserved)
		g.spawn(b.species, b.traits, b.evolution, b.pos, b.generation)
		g.collector.RecordBirth(b.species)
	}
	g.births = g.births[:0]
}
