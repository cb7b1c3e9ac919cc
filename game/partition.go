package game

import (
	"cmp"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/systems"
)

// member pairs a roster entity with its component. The pointer stays valid
// until the next structural change to the world, which only happens in the
// serial part of cleanup.
type member struct {
	entity ecs.Entity
	agent  *components.Agent
}

// sensed is the read-only start-of-tick view of an agent used for sensing.
type sensed struct {
	entity  ecs.Entity
	serial  uint64
	species components.Species
	pos     components.GridPos
	size    float64
}

// partition is one square shard of the grid.
type partition struct {
	id         int
	bounds     systems.Rect
	neighbours []int // ascending, includes id

	members  []member // every agent positioned here at tick start, by serial
	view     []sensed // live members as of tick start
	deposits []systems.Deposit
	dead     []corpse
}

func bySerial(a, b member) int {
	return cmp.Compare(a.agent.Serial, b.agent.Serial)
}

// rebuildPartitions snapshots the roster and buckets it by position.
func (g *Game) rebuildPartitions() {
	g.roster = g.roster[:0]
	query := g.agentFilter.Query()
	for query.Next() {
		g.roster = append(g.roster, member{entity: query.Entity(), agent: query.Get()})
	}

	for i := range g.partitions {
		p := &g.partitions[i]
		p.members = p.members[:0]
		p.view = p.view[:0]
	}

	roster := g.roster
	g.pool.forChunks(len(roster), func(_ *workerScratch, start, end int) {
		for _, m := range roster[start:end] {
			pid := g.parts.ID(m.agent.Pos.X, m.agent.Pos.Y)
			if pid < 0 {
				continue
			}
			g.locks.parts[pid].Lock()
			g.partitions[pid].members = append(g.partitions[pid].members, m)
			g.locks.parts[pid].Unlock()
		}
	})

	// Bucketing order depends on scheduling; serial order does not.
	g.pool.forEach(len(g.partitions), func(_ *workerScratch, i int) {
		p := &g.partitions[i]
		g.locks.parts[i].Lock()
		defer g.locks.parts[i].Unlock()

		slices.SortFunc(p.members, bySerial)
		for _, m := range p.members {
			if !m.agent.Alive {
				continue
			}
			p.view = append(p.view, sensed{
				entity:  m.entity,
				serial:  m.agent.Serial,
				species: m.agent.Species,
				pos:     m.agent.Pos,
				size:    m.agent.Traits.Size,
			})
		}
	})
}
