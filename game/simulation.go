package game

import (
	"github.com/pthm-cable/ecogrid/telemetry"
)

// Step advances the simulation by one tick. Phases run in a fixed order and
// each one finishes before the next starts. Step must not be called
// concurrently with itself or with any other Game method.
func (g *Game) Step() {
	if g.closed {
		panic(ErrPoolClosed)
	}
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhasePartition)
	g.rebuildPartitions()

	g.perfCollector.StartPhase(telemetry.PhaseTerrain)
	g.updateTerrain()

	g.perfCollector.StartPhase(telemetry.PhaseBehavior)
	g.queue.Reset()
	g.runBehavior()

	g.perfCollector.StartPhase(telemetry.PhaseInteractions)
	g.drainInteractions()

	g.perfCollector.StartPhase(telemetry.PhaseCleanup)
	g.cleanup()

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// updateTerrain grows every partition's cells in parallel. Overflow into
// neighbouring cells is buffered per partition and applied afterwards in
// ascending partition order, so the result does not depend on scheduling.
func (g *Game) updateTerrain() {
	g.locks.terrain.Lock()
	defer g.locks.terrain.Unlock()

	dt := g.cfg.Physics.DT
	g.prevResource = g.terrain.SnapshotResource(g.prevResource)
	prev := g.prevResource

	g.pool.forEach(len(g.partitions), func(s *workerScratch, i int) {
		p := &g.partitions[i]
		s.reseed(g.seed, g.tick, phaseTerrain, p.id)
		p.deposits = g.terrain.UpdateRegion(p.bounds, dt, s.rng, prev, p.deposits[:0])
	})

	for i := range g.partitions {
		g.terrain.ApplyDeposits(g.partitions[i].deposits)
	}
}
