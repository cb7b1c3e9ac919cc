package config

import (
	"fmt"
	"log/slog"
)

// Trait limits shared by every agent.
const (
	TraitMin = 0.01
	TraitMax = 100.0
)

// validator accumulates corrections applied while validating.
type validator struct {
	warnings []string
}

func (v *validator) warn(field string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	v.warnings = append(v.warnings, field+": "+msg)
	slog.Warn("config corrected", "field", field, "detail", msg)
}

func (v *validator) rangeOrder(field string, r *Range) {
	if r.Low > r.High {
		v.warn(field, "low %g > high %g, swapped", r.Low, r.High)
		r.Low, r.High = r.High, r.Low
	}
}

func (v *validator) clampFloat(field string, p *float64, lo, hi float64) {
	switch {
	case *p < lo:
		v.warn(field, "%g below %g, clamped", *p, lo)
		*p = lo
	case *p > hi:
		v.warn(field, "%g above %g, clamped", *p, hi)
		*p = hi
	}
}

func (v *validator) minInt(field string, p *int, lo int) {
	if *p < lo {
		v.warn(field, "%d below %d, clamped", *p, lo)
		*p = lo
	}
}

func (v *validator) minFloat(field string, p *float64, lo float64) {
	if *p < lo {
		v.warn(field, "%g below %g, clamped", *p, lo)
		*p = lo
	}
}

func (v *validator) pool(field string, p *Pool) {
	v.minFloat(field+".max", &p.Max, 0)
	v.clampFloat(field+".current", &p.Current, 0, p.Max)
}

// Validate clamps out-of-range values in place and returns a description of
// every correction. Each correction is also logged as a warning.
func (c *Config) Validate() []string {
	v := &validator{}

	v.minInt("grid.width", &c.Grid.Width, 1)
	v.minInt("grid.height", &c.Grid.Height, 1)
	v.minInt("partition.size", &c.Partition.Size, 1)
	v.minInt("locks.block_size", &c.Locks.BlockSize, 1)
	v.minInt("pathfinding.max_open", &c.Pathfinding.MaxOpen, 1)
	v.minInt("workers.count", &c.Workers.Count, 0)
	v.minInt("telemetry.perf_window_ticks", &c.Telemetry.PerfWindowTicks, 1)
	v.minInt("population.herbivores", &c.Population.Herbivores, 0)
	v.minInt("population.predators", &c.Population.Predators, 0)

	if c.Physics.DT <= 0 {
		v.warn("physics.dt", "%g not positive, reset to 1/60", c.Physics.DT)
		c.Physics.DT = 1.0 / 60.0
	}
	v.minFloat("telemetry.stats_window_sec", &c.Telemetry.StatsWindowSec, c.Physics.DT)

	t := &c.Terrain
	v.rangeOrder("terrain.initial_value", &t.InitialValue)
	v.rangeOrder("terrain.growth_rate", &t.GrowthRate)
	v.rangeOrder("terrain.nutrient_rate", &t.NutrientRate)
	v.clampFloat("terrain.initial_value.low", &t.InitialValue.Low, 0, 1)
	v.clampFloat("terrain.initial_value.high", &t.InitialValue.High, 0, 1)
	v.minFloat("terrain.growth_rate.low", &t.GrowthRate.Low, 0)
	v.minFloat("terrain.growth_rate.high", &t.GrowthRate.High, t.GrowthRate.Low)
	v.minFloat("terrain.nutrient_rate.low", &t.NutrientRate.Low, 0)
	v.minFloat("terrain.nutrient_rate.high", &t.NutrientRate.High, t.NutrientRate.Low)
	v.clampFloat("terrain.initial_amplitude", &t.InitialAmplitude, 0, 1)
	v.minFloat("terrain.resource_capacity", &t.ResourceCapacity, 0)
	v.clampFloat("terrain.resource_floor", &t.ResourceFloor, 0, t.ResourceCapacity)
	v.minFloat("terrain.nutrient_capacity", &t.NutrientCapacity, 0)
	v.clampFloat("terrain.initial_nutrient", &t.InitialNutrient, 0, 1)
	v.clampFloat("terrain.death_energy_return", &t.DeathEnergyReturn, 0, 1)

	v.minFloat("energy.costs.move", &c.Energy.Costs.Move, 0)
	v.minFloat("energy.costs.eat", &c.Energy.Costs.Eat, 0)
	v.minFloat("energy.costs.idle", &c.Energy.Costs.Idle, 0)
	v.minFloat("energy.costs.replicate", &c.Energy.Costs.Replicate, 0)
	v.clampFloat("energy.eat_amount", &c.Energy.EatAmount, 0, 1)

	v.minFloat("fatigue.move_cost", &c.Fatigue.MoveCost, 0)
	v.minFloat("fatigue.recovery", &c.Fatigue.Recovery, 0)
	v.clampFloat("fatigue.rest_threshold", &c.Fatigue.RestThreshold, 0, 1)

	v.minFloat("predation.size_advantage", &c.Predation.SizeAdvantage, 1)
	v.minFloat("predation.reach_dist_sq", &c.Predation.ReachDistSq, 0)

	v.minFloat("evolution.mutation_epsilon", &c.Evolution.MutationEpsilon, 0)
	if len(c.Evolution.Chart) == 0 {
		v.warn("evolution.chart", "empty, using a neutral entry")
		c.Evolution.Chart = []EvolutionEntry{{ReplicationThreshold: 0.7, ReplicateChance: 0.1, MutationChance: 0.5}}
	}
	for i := range c.Evolution.Chart {
		e := &c.Evolution.Chart[i]
		field := fmt.Sprintf("evolution.chart[%d]", i)
		v.clampFloat(field+".replication_threshold", &e.ReplicationThreshold, 0, 1)
		v.clampFloat(field+".replicate_chance", &e.ReplicateChance, 0, 1)
		v.clampFloat(field+".mutation_chance", &e.MutationChance, 0, 1)
	}

	c.validateSpecies(v, "species.herbivore", &c.Species.Herbivore)
	c.validateSpecies(v, "species.predator", &c.Species.Predator)

	return v.warnings
}

func (c *Config) validateSpecies(v *validator, field string, s *SpeciesConfig) {
	v.pool(field+".energy", &s.Energy)
	v.pool(field+".fatigue", &s.Fatigue)
	v.clampFloat(field+".traits.size", &s.Traits.Size, TraitMin, TraitMax)
	v.clampFloat(field+".traits.speed", &s.Traits.Speed, TraitMin, TraitMax)
	v.clampFloat(field+".traits.sense", &s.Traits.Sense, TraitMin, TraitMax)
	if s.Chart < 0 || s.Chart >= len(c.Evolution.Chart) {
		v.warn(field+".chart", "index %d outside chart of %d rows, using 0", s.Chart, len(c.Evolution.Chart))
		s.Chart = 0
	}
	v.clampFloat(field+".eat_alpha", &s.EatAlpha, 0, 1)
	v.clampFloat(field+".seek_alpha", &s.SeekAlpha, 0, 1)
	v.minFloat(field+".flee_distance", &s.FleeDistance, 0)
	v.clampFloat(field+".hunt_below", &s.HuntBelow, 0, 1)
	v.clampFloat(field+".chase_above", &s.ChaseAbove, 0, 1)
	v.minInt(field+".explore_radius", &s.ExploreRadius, 0)
}
