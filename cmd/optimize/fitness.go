package main

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/ecogrid/components"
	"github.com/pthm-cable/ecogrid/config"
	"github.com/pthm-cable/ecogrid/game"
	"github.com/pthm-cable/ecogrid/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params        *ParamVector
	maxTicks      int32
	seeds         []uint64
	baseConfig    *config.Config
	statsWindow   float64
	workersPerRun int

	mu          sync.Mutex
	bestFitness float64
	bestStats   []telemetry.WindowStats // windows of the best seed of the best evaluation
	lastQuality float64                 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []uint64, baseCfg *config.Config, workersPerRun int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:        params,
		maxTicks:      maxTicks,
		seeds:         seeds,
		baseConfig:    baseCfg,
		statsWindow:   10.0, // 10 seconds per window
		workersPerRun: workersPerRun,
		bestFitness:   math.Inf(1),
	}
}

// BestWindowStats returns the window series from the best evaluation.
func (fe *FitnessEvaluator) BestWindowStats() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestStats
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Minimum viable population: if either species stays below this for
// extinctionGraceSec it counts as functionally extinct.
const (
	minViablePop       = 3
	extinctionGraceSec = 30.0
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int32                   // ticks before functional extinction (or maxTicks if survived)
	windowStats   []telemetry.WindowStats // collected via StatsCallback each window
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks: longer survival = lower (better) fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) (float64, error) {
	if len(fe.seeds) == 0 {
		return 0, fmt.Errorf("no evaluation seeds")
	}
	results := make([]seedResult, len(fe.seeds))

	var eg errgroup.Group
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			result, err := fe.runSimulation(x, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			quality := fe.computeQuality(result.windowStats)
			results[i] = seedResult{
				fitness: computeFitness(result.survivalTicks, quality),
				quality: quality,
				windows: result.windowStats,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	var totalFitness, totalQuality float64
	bestSeed := 0
	for i, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < results[bestSeed].fitness {
			bestSeed = i
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestStats = results[bestSeed].windows
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness, nil
}

// runSimulation executes a single headless simulation run.
// Runs until functional extinction or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) (*runResult, error) {
	cfg := fe.baseConfig.Clone()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return nil, err
	}
	cfg.Telemetry.StatsWindowSec = fe.statsWindow

	result := &runResult{survivalTicks: fe.maxTicks}

	g := game.NewGame(cfg, game.Options{
		Seed:    seed,
		Workers: fe.workersPerRun,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	defer g.Close()
	g.Populate()

	dt := cfg.Physics.DT
	graceTicks := int32(extinctionGraceSec / dt)
	// Let population establish before checking (skip first 5 sim-seconds)
	warmupTicks := int32(5.0 / dt)
	var herbBelow, predBelow int32

	for g.Tick() < fe.maxTicks {
		g.Step()

		tick := g.Tick()
		if tick < warmupTicks {
			continue
		}

		herb := g.Population(components.Herbivore)
		pred := g.Population(components.Predator)

		// Hard extinction: either species completely gone
		if herb == 0 || pred == 0 {
			result.survivalTicks = tick
			return result, nil
		}

		// Functional extinction: species below minimum viable population too long
		herbBelow = belowCount(herb, herbBelow)
		predBelow = belowCount(pred, predBelow)
		if herbBelow >= graceTicks || predBelow >= graceTicks {
			result.survivalTicks = tick
			return result, nil
		}
	}
	return result, nil
}

func belowCount(pop int, ticks int32) int32 {
	if pop < minViablePop {
		return ticks + 1
	}
	return 0
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
// Survival dominates; quality adds up to 20% bonus to differentiate
// configs with similar survival.
func computeFitness(survivalTicks int32, quality float64) float64 {
	return -(float64(survivalTicks) * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightRatio     = 0.30
	qualityWeightStability = 0.25
	qualityWeightEnergy    = 0.25
	qualityWeightHunting   = 0.20

	qualityWarmupWindows = 3 // skip first N windows (warmup)
	qualityMinPop        = 3 // exclude windows where either species < this
)

// computeQuality computes ecosystem quality ∈ [0, 1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	herbMax := fe.baseConfig.Species.Herbivore.Energy.Max
	predMax := fe.baseConfig.Species.Predator.Energy.Max

	var ratioSum, energySum, huntSum float64
	var ratioCount, energyCount, huntCount int

	herbCounts := make([]float64, 0, len(valid))
	predCounts := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.HerbivoreCount < qualityMinPop || w.PredatorCount < qualityMinPop {
			continue
		}

		herbCounts = append(herbCounts, float64(w.HerbivoreCount))
		predCounts = append(predCounts, float64(w.PredatorCount))

		// 1. Population ratio score
		ratio := float64(w.HerbivoreCount) / float64(w.PredatorCount)
		logErr := math.Log(ratio / 10.0)
		ratioSum += math.Exp(-logErr * logErr)
		ratioCount++

		// 2. Energy health score on median energy ratios
		herbH := math.Exp(-math.Pow((ratioOf(w.HerbivoreEnergyP50, herbMax)-0.5)/0.2, 2))
		predH := math.Exp(-math.Pow((ratioOf(w.PredatorEnergyP50, predMax)-0.5)/0.2, 2))
		energySum += (herbH + predH) / 2.0
		energyCount++

		// 3. Hunting activity score (only when predation was attempted)
		if w.PredationAttempts > 0 {
			krScore := math.Exp(-math.Pow((w.KillRate-0.3)/0.2, 2))
			perPred := float64(w.PredationAttempts) / float64(w.PredatorCount)
			activityScore := 1.0 - math.Exp(-perPred/3.0)
			huntSum += 0.6*krScore + 0.4*activityScore
			huntCount++
		}
	}

	if ratioCount == 0 {
		return 0
	}

	ratioScore := ratioSum / float64(ratioCount)

	// Population stability (CV across all valid windows)
	stabilityScore := 0.0
	if len(herbCounts) >= 2 {
		cvHerb := cv(herbCounts)
		cvPred := cv(predCounts)
		stabilityScore = math.Exp(-(cvHerb*cvHerb + cvPred*cvPred))
	}

	energyScore := 0.0
	if energyCount > 0 {
		energyScore = energySum / float64(energyCount)
	}

	huntScore := 0.0
	if huntCount > 0 {
		huntScore = huntSum / float64(huntCount)
	}

	quality := qualityWeightRatio*ratioScore +
		qualityWeightStability*stabilityScore +
		qualityWeightEnergy*energyScore +
		qualityWeightHunting*huntScore

	return clamp01(quality)
}

func ratioOf(v, maxV float64) float64 {
	if maxV <= 0 {
		return 0
	}
	return v / maxV
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return max(0, min(x, 1))
}
