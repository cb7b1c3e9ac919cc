// Package main provides CMA-ES optimization for ecogrid simulation parameters.
package main

import (
	"fmt"

	"github.com/pthm-cable/ecogrid/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value

	field func(*config.Config) *float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// chartField addresses a field of one evolution chart row. Missing rows
// resolve to a throwaway value so short charts never panic.
func chartField(row int, f func(*config.EvolutionEntry) *float64) func(*config.Config) *float64 {
	return func(c *config.Config) *float64 {
		if row >= len(c.Evolution.Chart) {
			return new(float64)
		}
		return f(&c.Evolution.Chart[row])
	}
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Energy
			{Name: "move_cost", Path: "energy.costs.move", Min: 0.02, Max: 0.4, Default: 0.2,
				field: func(c *config.Config) *float64 { return &c.Energy.Costs.Move }},
			{Name: "idle_cost", Path: "energy.costs.idle", Min: 0.001, Max: 0.05, Default: 0.0125,
				field: func(c *config.Config) *float64 { return &c.Energy.Costs.Idle }},
			{Name: "replicate_cost", Path: "energy.costs.replicate", Min: 0.05, Max: 1.0, Default: 0.5,
				field: func(c *config.Config) *float64 { return &c.Energy.Costs.Replicate }},
			{Name: "eat_amount", Path: "energy.eat_amount", Min: 0.1, Max: 1.0, Default: 1.0,
				field: func(c *config.Config) *float64 { return &c.Energy.EatAmount }},
			// Evolution
			{Name: "mutation_epsilon", Path: "evolution.mutation_epsilon", Min: 0.01, Max: 0.5, Default: 0.1,
				field: func(c *config.Config) *float64 { return &c.Evolution.MutationEpsilon }},
			{Name: "chart0_threshold", Path: "evolution.chart[0].replication_threshold", Min: 0.3, Max: 0.95, Default: 0.7,
				field: chartField(0, func(e *config.EvolutionEntry) *float64 { return &e.ReplicationThreshold })},
			{Name: "chart0_chance", Path: "evolution.chart[0].replicate_chance", Min: 0.0001, Max: 0.05, Default: 0.001,
				field: chartField(0, func(e *config.EvolutionEntry) *float64 { return &e.ReplicateChance })},
			{Name: "chart1_threshold", Path: "evolution.chart[1].replication_threshold", Min: 0.2, Max: 0.9, Default: 0.35,
				field: chartField(1, func(e *config.EvolutionEntry) *float64 { return &e.ReplicationThreshold })},
			{Name: "chart1_chance", Path: "evolution.chart[1].replicate_chance", Min: 0.01, Max: 0.6, Default: 0.3,
				field: chartField(1, func(e *config.EvolutionEntry) *float64 { return &e.ReplicateChance })},
			// Fatigue
			{Name: "fatigue_move_cost", Path: "fatigue.move_cost", Min: 1, Max: 40, Default: 10,
				field: func(c *config.Config) *float64 { return &c.Fatigue.MoveCost }},
			{Name: "fatigue_recovery", Path: "fatigue.recovery", Min: 5, Max: 120, Default: 40,
				field: func(c *config.Config) *float64 { return &c.Fatigue.Recovery }},
			// Behavior thresholds
			{Name: "herb_eat_alpha", Path: "species.herbivore.eat_alpha", Min: 0.02, Max: 0.5, Default: 0.1,
				field: func(c *config.Config) *float64 { return &c.Species.Herbivore.EatAlpha }},
			{Name: "herb_seek_alpha", Path: "species.herbivore.seek_alpha", Min: 0.1, Max: 0.8, Default: 0.3,
				field: func(c *config.Config) *float64 { return &c.Species.Herbivore.SeekAlpha }},
			{Name: "pred_hunt_below", Path: "species.predator.hunt_below", Min: 0.1, Max: 0.8, Default: 0.3,
				field: func(c *config.Config) *float64 { return &c.Species.Predator.HuntBelow }},
			{Name: "pred_chase_above", Path: "species.predator.chase_above", Min: 0.5, Max: 0.99, Default: 0.8,
				field: func(c *config.Config) *float64 { return &c.Species.Predator.ChaseAbove }},
			// Terrain
			{Name: "growth_rate_high", Path: "terrain.growth_rate.high", Min: 0.005, Max: 0.2, Default: 0.05,
				field: func(c *config.Config) *float64 { return &c.Terrain.GrowthRate.High }},
			{Name: "death_energy_return", Path: "terrain.death_energy_return", Min: 0, Max: 1, Default: 0.3,
				field: func(c *config.Config) *float64 { return &c.Terrain.DeathEnergyReturn }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = max(spec.Min, min(v[i], spec.Max))
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg and revalidates it.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	if len(values) != len(pv.Specs) {
		return fmt.Errorf("parameter vector has %d values, want %d", len(values), len(pv.Specs))
	}
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		*spec.field(cfg) = clamped[i]
	}
	// growth_rate.high may now sit below low.
	cfg.Validate()
	return nil
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = *spec.field(cfg)
	}
	return v
}
