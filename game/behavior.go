package game

import (
	"math"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
	"github.com/pthm-cable/ecogrid/systems"
)

// behavior is one row of the species table.
type behavior struct {
	eatsResource bool // may graze the resource layer
	preys        bool // may issue predation against co-located agents
	decide       func(g *Game, c *behaviorCtx, m member)
}

func newBehaviorTable() [components.NumSpecies]behavior {
	return [components.NumSpecies]behavior{
		components.Herbivore: {eatsResource: true, decide: decideHerbivore},
		components.Predator:  {preys: true, decide: decidePredator},
	}
}

// behaviorCtx is the state of one partition's behavior task.
type behaviorCtx struct {
	s       *workerScratch
	p       *partition
	planner *systems.Planner
	dt      float64
}

// runBehavior updates every partition's agents in parallel. Agents mutate
// only themselves; cross-agent and terrain effects go to the queue.
func (g *Game) runBehavior() {
	dt := g.cfg.Physics.DT
	g.pool.forEach(len(g.partitions), func(s *workerScratch, i int) {
		g.locks.roster.RLock()
		defer g.locks.roster.RUnlock()
		g.locks.terrain.RLock()
		defer g.locks.terrain.RUnlock()

		p := &g.partitions[i]
		s.reseed(g.seed, g.tick, phaseBehavior, p.id)

		s.nearby = s.nearby[:0]
		for _, id := range p.neighbours {
			g.locks.parts[id].Lock()
			s.nearby = append(s.nearby, g.partitions[id].view...)
			g.locks.parts[id].Unlock()
		}

		c := &behaviorCtx{
			s:       s,
			p:       p,
			planner: s.plannerFor(g.terrain.W, g.terrain.H, g.cfg.Pathfinding.MaxOpen),
			dt:      dt,
		}
		for _, m := range p.members {
			g.updateAgent(c, m)
		}
	})
}

// updateAgent runs one agent's metabolism, movement and decision.
func (g *Game) updateAgent(c *behaviorCtx, m member) {
	a := m.agent
	if !a.Alive {
		return
	}
	costs := g.cfg.Energy.Costs

	a.ConsumeEnergy(components.ActionCost(a.Traits, a.Energy.Current, components.ActionIdle, costs, c.dt))
	moved := g.advance(a, c.dt)

	if a.Energy.Current <= 0 {
		a.Alive = false
		a.Path = a.Path[:0]
		return
	}
	if !moved {
		a.RecoverFatigue(g.cfg.Fatigue.Recovery*c.dt, g.cfg.Fatigue.RestThreshold)
	}
	if a.Resting {
		return
	}
	g.behaviors[a.Species].decide(g, c, m)
}

// advance walks the pending path for as long as accumulated time allows.
func (g *Game) advance(a *components.Agent, dt float64) bool {
	if len(a.Path) == 0 || a.Resting {
		a.PathDt = 0
		return false
	}
	a.PathDt += dt

	moved := false
	for len(a.Path) > 0 && !a.Resting && a.Energy.Current > 0 {
		next := a.Path[0]
		need := math.Sqrt(float64(a.Pos.DistSq(next))) / a.Traits.Speed
		if a.PathDt <= need {
			break
		}
		a.PathDt -= need
		a.Pos = next
		a.Path = a.Path[:copy(a.Path, a.Path[1:])]
		a.ConsumeEnergy(components.ActionCost(a.Traits, a.Energy.Current, components.ActionMove, g.cfg.Energy.Costs, 1))
		a.SpendFatigue(g.cfg.Fatigue.MoveCost)
		moved = true
	}
	if len(a.Path) == 0 {
		a.PathDt = 0
	}
	return moved
}

// requestEat queues a bite at the agent's own cell. Species that prey
// target a co-located agent; everything else grazes.
func (g *Game) requestEat(c *behaviorCtx, m member) {
	a := m.agent
	if g.behaviors[a.Species].preys {
		for _, o := range c.s.nearby {
			if o.entity != m.entity && o.pos == a.Pos {
				g.queue.Push(c.p.id, InteractionRequest{Kind: Predation, Actor: m.entity, Target: o.entity, Cell: o.pos})
				return
			}
		}
	}
	g.queue.Push(c.p.id, InteractionRequest{
		Kind:   ResourceConsumption,
		Actor:  m.entity,
		Cell:   a.Pos,
		Amount: g.cfg.Energy.EatAmount,
	})
}

// planTo replaces the agent's path with a route to goal unless it is already
// heading there.
func (g *Game) planTo(c *behaviorCtx, a *components.Agent, goal components.GridPos) bool {
	if goal == a.Pos {
		return false
	}
	if n := len(a.Path); n > 0 && a.Path[n-1] == goal {
		return true
	}
	path := c.planner.FindPath(a.Pos, goal)
	if len(path) == 0 {
		return false
	}
	a.SetPath(path)
	return true
}

func (g *Game) clampPos(x, y int) components.GridPos {
	return components.GridPos{
		X: max(0, min(x, g.terrain.W-1)),
		Y: max(0, min(y, g.terrain.H-1)),
	}
}

// closest returns the nearest sensed agent of species s within sense of a,
// skipping self. Ties go to the earliest in view order.
func closest(nearby []sensed, m member, s components.Species, accept func(sensed) bool) (sensed, bool) {
	a := m.agent
	limit := a.Traits.Sense * a.Traits.Sense
	best, found := sensed{}, false
	bestD := math.Inf(1)
	for _, o := range nearby {
		if o.entity == m.entity || o.species != s {
			continue
		}
		d := float64(a.Pos.DistSq(o.pos))
		if d > limit || d >= bestD {
			continue
		}
		if accept != nil && !accept(o) {
			continue
		}
		best, bestD, found = o, d, true
	}
	return best, found
}

func decideHerbivore(g *Game, c *behaviorCtx, m member) {
	a := m.agent
	sc := &g.cfg.Species.Herbivore

	if g.flee(c, m, sc) {
		return
	}
	if g.terrain.ResourceRatio(a.Pos.X, a.Pos.Y) > sc.EatAlpha {
		g.requestEat(c, m)
		return
	}
	if len(a.Path) > 0 {
		return
	}
	if a.Energy.Current < a.Energy.Max*a.Evolution.ReplicationThreshold {
		goal, ok := c.planner.BestResourcePosition(g.terrain, a.Pos, a.Traits.Sense, sc.SeekAlpha)
		if ok && g.planTo(c, a, goal) {
			return
		}
	}
	g.wander(c, a)
}

// flee runs along the average escape vector from every sensed predator.
func (g *Game) flee(c *behaviorCtx, m member, sc *config.SpeciesConfig) bool {
	a := m.agent
	limit := a.Traits.Sense * a.Traits.Sense

	var vx, vy float64
	threats := 0
	nearestD := math.Inf(1)
	var nearest components.GridPos
	for _, o := range c.s.nearby {
		if o.species != components.Predator || o.entity == m.entity {
			continue
		}
		d := float64(a.Pos.DistSq(o.pos))
		if d > limit {
			continue
		}
		threats++
		if d < nearestD {
			nearestD, nearest = d, o.pos
		}
		if d == 0 {
			continue
		}
		n := math.Sqrt(d)
		vx += float64(a.Pos.X-o.pos.X) / n
		vy += float64(a.Pos.Y-o.pos.Y) / n
	}
	if threats == 0 {
		return false
	}

	// Keep a path that already leads away from the nearest threat.
	if n := len(a.Path); n > 0 && a.Path[n-1].DistSq(nearest) > a.Pos.DistSq(nearest) {
		return true
	}

	norm := math.Hypot(vx, vy)
	if norm == 0 {
		angle := c.s.rng.Float64() * 2 * math.Pi
		vx, vy, norm = math.Cos(angle), math.Sin(angle), 1
	}
	goal := g.clampPos(
		a.Pos.X+int(math.Round(vx/norm*sc.FleeDistance)),
		a.Pos.Y+int(math.Round(vy/norm*sc.FleeDistance)),
	)
	g.planTo(c, a, goal)
	return true
}

// wander steps to a random in-bounds neighbour.
func (g *Game) wander(c *behaviorCtx, a *components.Agent) {
	if len(a.Path) > 0 {
		return
	}
	dx, dy := 0, 0
	for dx == 0 && dy == 0 {
		dx, dy = c.s.rng.IntN(3)-1, c.s.rng.IntN(3)-1
	}
	next := g.clampPos(a.Pos.X+dx, a.Pos.Y+dy)
	if next != a.Pos {
		a.SetPath([]components.GridPos{next})
	}
}

func decidePredator(g *Game, c *behaviorCtx, m member) {
	a := m.agent
	sc := &g.cfg.Species.Predator
	adv := g.cfg.Predation.SizeAdvantage
	edible := func(o sensed) bool { return a.Traits.Size >= adv*o.size }

	for _, o := range c.s.nearby {
		if o.pos == a.Pos && o.species == components.Herbivore && edible(o) {
			g.queue.Push(c.p.id, InteractionRequest{Kind: Predation, Actor: m.entity, Target: o.entity, Cell: o.pos})
			return
		}
	}

	ratio := a.Energy.Ratio()
	if ratio < sc.HuntBelow {
		if prey, ok := closest(c.s.nearby, m, components.Herbivore, edible); ok {
			if float64(a.Pos.DistSq(prey.pos)) <= g.cfg.Predation.ReachDistSq {
				g.queue.Push(c.p.id, InteractionRequest{Kind: Predation, Actor: m.entity, Target: prey.entity, Cell: prey.pos})
				return
			}
			if g.planTo(c, a, prey.pos) {
				return
			}
		}
	} else if ratio > sc.ChaseAbove {
		if rival, ok := closest(c.s.nearby, m, components.Predator, nil); ok && g.planTo(c, a, rival.pos) {
			return
		}
	}

	if len(a.Path) > 0 {
		return
	}
	r := sc.ExploreRadius
	goal := g.clampPos(
		a.Home.X+c.s.rng.IntN(2*r+1)-r,
		a.Home.Y+c.s.rng.IntN(2*r+1)-r,
	)
	g.planTo(c, a, goal)
}
