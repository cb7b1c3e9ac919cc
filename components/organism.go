package components

import (
	"github.com/pthm-cable/ecogrid/config"
)

// Pool is a bounded quantity such as energy or fatigue.
// Current is kept within [0, Max].
type Pool struct {
	Current float64
	Max     float64
}

// Ratio returns Current/Max, or 0 for an empty pool.
func (p Pool) Ratio() float64 {
	if p.Max <= 0 {
		return 0
	}
	return p.Current / p.Max
}

// PoolFromConfig converts a configured base pool.
func PoolFromConfig(pc config.Pool) Pool {
	return Pool{Current: clamp(pc.Current, 0, pc.Max), Max: pc.Max}
}

// Evolution holds the per-agent replication parameters.
type Evolution struct {
	ReplicationThreshold float64 // Energy ratio required to replicate
	ReplicateChance      float64 // Probability of replicating when eligible
	MutationChance       float64 // Probability an offspring mutates
}

// EvolutionFromConfig converts a chart row.
func EvolutionFromConfig(e config.EvolutionEntry) Evolution {
	return Evolution{
		ReplicationThreshold: e.ReplicationThreshold,
		ReplicateChance:      e.ReplicateChance,
		MutationChance:       e.MutationChance,
	}
}

// Agent is the single roster component. It is mutated only by its owning
// partition's behavior task or by the interaction resolver.
type Agent struct {
	Serial     uint64 // Unique for the run, never reused
	Species    Species
	Traits     Traits
	Energy     Pool
	Fatigue    Pool
	Evolution  Evolution
	Pos        GridPos
	Home       GridPos
	Path       []GridPos // Pending moves, next step first
	PathDt     float64   // Time accumulated toward the next step
	Resting    bool
	Alive      bool
	BirthTick  int32
	Generation int
}

// SetPath replaces the pending path. Time already accumulated toward the
// next step is kept.
func (a *Agent) SetPath(path []GridPos) {
	a.Path = append(a.Path[:0], path...)
}

// ConsumeEnergy debits v, clamped at zero, and returns the remaining energy.
func (a *Agent) ConsumeEnergy(v float64) float64 {
	a.Energy.Current = clamp(a.Energy.Current-v, 0, a.Energy.Max)
	return a.Energy.Current
}

// GainEnergy credits v and returns the amount that did not fit.
func (a *Agent) GainEnergy(v float64) (overflow float64) {
	total := a.Energy.Current + v
	if total > a.Energy.Max {
		overflow = total - a.Energy.Max
		total = a.Energy.Max
	}
	a.Energy.Current = max(total, 0)
	return overflow
}

// Eaten marks the agent dead and returns the energy it held.
func (a *Agent) Eaten() float64 {
	e := a.Energy.Current
	a.Energy.Current = 0
	a.Energy.Max = 0
	a.Alive = false
	a.Path = a.Path[:0]
	return e
}

// SpendFatigue debits fatigue; an exhausted agent starts resting.
func (a *Agent) SpendFatigue(v float64) {
	a.Fatigue.Current = clamp(a.Fatigue.Current-v, 0, a.Fatigue.Max)
	if a.Fatigue.Current == 0 && a.Fatigue.Max > 0 {
		a.Resting = true
	}
}

// RecoverFatigue credits fatigue and ends rest once above threshold*Max.
func (a *Agent) RecoverFatigue(v, threshold float64) {
	a.Fatigue.Current = clamp(a.Fatigue.Current+v, 0, a.Fatigue.Max)
	if a.Resting && a.Fatigue.Current > threshold*a.Fatigue.Max {
		a.Resting = false
	}
}
