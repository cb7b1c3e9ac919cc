package game

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecogrid/components"
)

var (
	ErrOutOfBounds    = errors.New("game: position out of bounds")
	ErrCellOccupied   = errors.New("game: cell occupied")
	ErrUnknownSpecies = errors.New("game: unknown species")
)

// placementAttempts bounds the random cell draws per initial agent.
const placementAttempts = 32

// corpse is a dead agent's state captured before any removal, since removal
// moves component storage.
type corpse struct {
	entity    ecs.Entity
	serial    uint64
	species   components.Species
	pos       components.GridPos
	energyMax float64
}

// spawn adds an agent at pos and claims the cell. The caller holds the roster
// and terrain write locks and has checked that the cell is free.
func (g *Game) spawn(species components.Species, traits components.Traits, evo components.Evolution, pos components.GridPos, generation int) ecs.Entity {
	sc := g.speciesConfig(species)
	g.serial++
	agent := components.Agent{
		Serial:     g.serial,
		Species:    species,
		Traits:     traits.Clamp(),
		Energy:     components.PoolFromConfig(sc.Energy),
		Fatigue:    components.PoolFromConfig(sc.Fatigue),
		Evolution:  evo,
		Pos:        pos,
		Home:       pos,
		Alive:      true,
		BirthTick:  g.tick,
		Generation: generation,
	}
	e := g.agentMap.NewEntity(&agent)
	g.terrain.SetOccupant(pos.X, pos.Y, e)
	g.counts[species]++
	return e
}

// CreateAgentErr places a new agent at pos. It must not be called while Step
// is running.
func (g *Game) CreateAgentErr(species components.Species, traits components.Traits, evo components.Evolution, pos components.GridPos) (ecs.Entity, error) {
	if !species.Valid() {
		return ecs.Entity{}, fmt.Errorf("create agent: %w: %d", ErrUnknownSpecies, species)
	}

	g.locks.roster.Lock()
	defer g.locks.roster.Unlock()
	g.locks.terrain.Lock()
	defer g.locks.terrain.Unlock()

	if !g.terrain.InBounds(pos) {
		return ecs.Entity{}, fmt.Errorf("create agent at %d,%d: %w", pos.X, pos.Y, ErrOutOfBounds)
	}
	if _, taken := g.terrain.OccupantAt(pos.X, pos.Y); taken {
		return ecs.Entity{}, fmt.Errorf("create agent at %d,%d: %w", pos.X, pos.Y, ErrCellOccupied)
	}
	return g.spawn(species, traits, evo, pos, 0), nil
}

// CreateAgent is CreateAgentErr reporting failure as false.
func (g *Game) CreateAgent(species components.Species, traits components.Traits, evo components.Evolution, pos components.GridPos) (ecs.Entity, bool) {
	e, err := g.CreateAgentErr(species, traits, evo, pos)
	return e, err == nil
}

// chartRow returns an evolution chart row, clamping the index.
func (g *Game) chartRow(i int) components.Evolution {
	chart := g.cfg.Evolution.Chart
	if len(chart) == 0 {
		return components.Evolution{ReplicationThreshold: 1}
	}
	i = max(0, min(i, len(chart)-1))
	return components.EvolutionFromConfig(chart[i])
}

// Populate places the configured initial population on random free cells
// and returns the number of agents created.
func (g *Game) Populate() int {
	counts := [components.NumSpecies]int{
		components.Herbivore: g.cfg.Population.Herbivores,
		components.Predator:  g.cfg.Population.Predators,
	}

	placed := 0
	for s := components.Species(0); s < components.NumSpecies; s++ {
		sc := g.speciesConfig(s)
		traits := components.TraitsFromConfig(sc.Traits)
		evo := g.chartRow(sc.Chart)

		n := 0
		for range counts[s] {
			if g.placeRandom(s, traits, evo) {
				n++
			}
		}
		if n < counts[s] {
			slog.Warn("initial population truncated", "species", s, "requested", counts[s], "placed", n)
		}
		placed += n
	}

	slog.Debug("population seeded",
		"herbivores", g.counts[components.Herbivore],
		"predators", g.counts[components.Predator],
	)
	return placed
}

func (g *Game) placeRandom(s components.Species, traits components.Traits, evo components.Evolution) bool {
	w, h := g.cfg.Grid.Width, g.cfg.Grid.Height
	for range placementAttempts {
		pos := components.GridPos{X: g.rng.IntN(w), Y: g.rng.IntN(h)}
		if _, err := g.CreateAgentErr(s, traits, evo, pos); err == nil {
			return true
		}
	}
	return false
}

// Nuke kills every agent. The bodies are collected by the next cleanup.
func (g *Game) Nuke() {
	g.locks.roster.RLock()
	defer g.locks.roster.RUnlock()

	query := g.agentFilter.Query()
	for query.Next() {
		a := query.Get()
		if !a.Alive {
			continue
		}
		a.ConsumeEnergy(a.Energy.Current)
		a.Alive = false
		a.Path = a.Path[:0]
	}
	slog.Info("population nuked", "tick", g.tick)
}

// cleanup removes dead agents, returns their energy to the nutrient layer,
// creates the births accepted by the drain and rebuilds occupancy. Dead
// agents are captured before any structural change to the world.
func (g *Game) cleanup() {
	g.pool.forEach(len(g.partitions), func(_ *workerScratch, i int) {
		p := &g.partitions[i]
		p.dead = p.dead[:0]
		for _, m := range p.members {
			if m.agent.Alive {
				continue
			}
			p.dead = append(p.dead, corpse{
				entity:    m.entity,
				serial:    m.agent.Serial,
				species:   m.agent.Species,
				pos:       m.agent.Pos,
				energyMax: m.agent.Energy.Max,
			})
		}
	})

	g.locks.roster.Lock()
	defer g.locks.roster.Unlock()
	g.locks.terrain.Lock()
	defer g.locks.terrain.Unlock()

	ret := g.cfg.Terrain.DeathEnergyReturn
	var before [components.NumSpecies]int
	copy(before[:], g.counts[:])

	for i := range g.partitions {
		for _, c := range g.partitions[i].dead {
			if !g.world.Alive(c.entity) {
				continue
			}
			g.terrain.ReturnNutrient(c.pos.X, c.pos.Y, c.energyMax*ret)
			g.terrain.ClearOccupant(c.pos.X, c.pos.Y, c.entity)
			g.world.RemoveEntity(c.entity)
			g.collector.RecordDeath(c.species)
		}
	}

	g.createBirths()
	g.syncOccupancy()

	for s := components.Species(0); s < components.NumSpecies; s++ {
		if before[s] > 0 && g.counts[s] == 0 {
			slog.Info("species extinct", "species", s, "tick", g.tick)
		}
	}
}

// occupant is an alive agent's claim on its cell during occupancy sync.
type occupant struct {
	entity ecs.Entity
	serial uint64
	pos    components.GridPos
}

// syncOccupancy drops stale occupancy entries and lets every unplaced live
// agent claim its cell, lowest serial first. It recounts the population.
// The caller holds the roster and terrain write locks.
func (g *Game) syncOccupancy() {
	t := g.terrain
	for i, e := range t.Occupant {
		if e == (ecs.Entity{}) {
			continue
		}
		a := g.agent(e)
		if a == nil || t.Index(a.Pos.X, a.Pos.Y) != i {
			t.Occupant[i] = ecs.Entity{}
		}
	}

	g.claims = g.claims[:0]
	g.counts = [components.NumSpecies]int{}
	query := g.agentFilter.Query()
	for query.Next() {
		a := query.Get()
		if !a.Alive {
			continue
		}
		g.counts[a.Species]++
		g.claims = append(g.claims, occupant{entity: query.Entity(), serial: a.Serial, pos: a.Pos})
	}

	slices.SortFunc(g.claims, func(a, b occupant) int {
		return cmp.Compare(a.serial, b.serial)
	})
	for _, c := range g.claims {
		if _, taken := t.OccupantAt(c.pos.X, c.pos.Y); !taken {
			t.SetOccupant(c.pos.X, c.pos.Y, c.entity)
		}
	}
}
