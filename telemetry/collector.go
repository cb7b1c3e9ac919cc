// Package telemetry provides windowed ecosystem statistics, phase timing,
// bookmarks, snapshots and CSV output.
package telemetry

import "github.com/pthm-cable/ecogrid/components"

// Collector accumulates events within time windows and produces WindowStats.
// It is only touched by the orchestrating goroutine.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	windowStartTick int32

	births            [components.NumSpecies]int
	deaths            [components.NumSpecies]int
	predationAttempts int
	kills             int
	stale             int
	grazes            int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		ticksPerWindow = int32(windowDurationSec / dt)
	}
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// WindowTicks returns the window length in ticks.
func (c *Collector) WindowTicks() int32 {
	return c.windowDurationTicks
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth(s components.Species) {
	if s.Valid() {
		c.births[s]++
	}
}

// RecordDeath records a death event.
func (c *Collector) RecordDeath(s components.Species) {
	if s.Valid() {
		c.deaths[s]++
	}
}

// RecordPredationAttempt records a predation request reaching resolution.
func (c *Collector) RecordPredationAttempt() {
	c.predationAttempts++
}

// RecordKill records a successful predation.
func (c *Collector) RecordKill() {
	c.kills++
}

// RecordStale records a request whose actor or target was no longer valid.
func (c *Collector) RecordStale() {
	c.stale++
}

// RecordGraze records a resource consumption that removed something.
func (c *Collector) RecordGraze() {
	c.grazes++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Sample is the population state observed at the end of a window.
type Sample struct {
	HerbivoreEnergies []float64
	PredatorEnergies  []float64
	Sizes             []float64
	Speeds            []float64
	Senses            []float64
	MaxGeneration     int

	ResourceRatioSum float64
	TotalResource    float64
	TotalNutrient    float64
}

// Reset clears the sample slices, keeping their capacity.
func (s *Sample) Reset() {
	s.HerbivoreEnergies = s.HerbivoreEnergies[:0]
	s.PredatorEnergies = s.PredatorEnergies[:0]
	s.Sizes = s.Sizes[:0]
	s.Speeds = s.Speeds[:0]
	s.Senses = s.Senses[:0]
	s.MaxGeneration = 0
	s.ResourceRatioSum = 0
	s.TotalResource = 0
	s.TotalNutrient = 0
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, sample *Sample) WindowStats {
	var killRate float64
	if c.predationAttempts > 0 {
		killRate = float64(c.kills) / float64(c.predationAttempts)
	}

	herbMean, herbP10, herbP50, herbP90 := ComputeEnergyStats(sample.HerbivoreEnergies)
	predMean, predP10, predP50, predP90 := ComputeEnergyStats(sample.PredatorEnergies)
	sizeMean, sizeStd := ComputeTraitStats(sample.Sizes)
	speedMean, speedStd := ComputeTraitStats(sample.Speeds)
	senseMean, senseStd := ComputeTraitStats(sample.Senses)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		HerbivoreCount: len(sample.HerbivoreEnergies),
		PredatorCount:  len(sample.PredatorEnergies),

		HerbivoreBirths: c.births[components.Herbivore],
		PredatorBirths:  c.births[components.Predator],
		HerbivoreDeaths: c.deaths[components.Herbivore],
		PredatorDeaths:  c.deaths[components.Predator],

		PredationAttempts: c.predationAttempts,
		Kills:             c.kills,
		StaleRequests:     c.stale,
		Grazes:            c.grazes,
		KillRate:          killRate,

		HerbivoreEnergyMean: herbMean,
		HerbivoreEnergyP10:  herbP10,
		HerbivoreEnergyP50:  herbP50,
		HerbivoreEnergyP90:  herbP90,
		PredatorEnergyMean:  predMean,
		PredatorEnergyP10:   predP10,
		PredatorEnergyP50:   predP50,
		PredatorEnergyP90:   predP90,

		SizeMean:  sizeMean,
		SizeStd:   sizeStd,
		SpeedMean: speedMean,
		SpeedStd:  speedStd,
		SenseMean: senseMean,
		SenseStd:  senseStd,

		MaxGeneration: sample.MaxGeneration,

		ResourceRatioSum: sample.ResourceRatioSum,
		TotalResource:    sample.TotalResource,
		TotalNutrient:    sample.TotalNutrient,
		TotalAgentEnergy: Sum(sample.HerbivoreEnergies) + Sum(sample.PredatorEnergies),
	}

	c.windowStartTick = currentTick
	c.births = [components.NumSpecies]int{}
	c.deaths = [components.NumSpecies]int{}
	c.predationAttempts = 0
	c.kills = 0
	c.stale = 0
	c.grazes = 0

	return stats
}
