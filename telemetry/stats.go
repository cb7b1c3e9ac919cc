package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	HerbivoreCount int `csv:"herbivores"`
	PredatorCount  int `csv:"predators"`

	// Events during window
	HerbivoreBirths int `csv:"herbivore_births"`
	PredatorBirths  int `csv:"predator_births"`
	HerbivoreDeaths int `csv:"herbivore_deaths"`
	PredatorDeaths  int `csv:"predator_deaths"`

	// Interaction outcomes
	PredationAttempts int     `csv:"predation_attempts"`
	Kills             int     `csv:"kills"`
	StaleRequests     int     `csv:"stale_requests"`
	Grazes            int     `csv:"grazes"`
	KillRate          float64 `csv:"kill_rate"`

	// Energy distribution (sampled at window end)
	HerbivoreEnergyMean float64 `csv:"herbivore_energy_mean"`
	HerbivoreEnergyP10  float64 `csv:"herbivore_energy_p10"`
	HerbivoreEnergyP50  float64 `csv:"herbivore_energy_p50"`
	HerbivoreEnergyP90  float64 `csv:"herbivore_energy_p90"`

	PredatorEnergyMean float64 `csv:"predator_energy_mean"`
	PredatorEnergyP10  float64 `csv:"predator_energy_p10"`
	PredatorEnergyP50  float64 `csv:"predator_energy_p50"`
	PredatorEnergyP90  float64 `csv:"predator_energy_p90"`

	// Trait distribution across all living agents
	SizeMean  float64 `csv:"size_mean"`
	SizeStd   float64 `csv:"size_std"`
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SenseMean float64 `csv:"sense_mean"`
	SenseStd  float64 `csv:"sense_std"`

	MaxGeneration int `csv:"max_generation"`

	// Terrain
	ResourceRatioSum float64 `csv:"resource_ratio_sum"`
	TotalResource    float64 `csv:"total_resource"`
	TotalNutrient    float64 `csv:"total_nutrient"`
	TotalAgentEnergy float64 `csv:"total_agent_energy"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEnergyStats calculates mean and percentiles from energy values.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// ComputeTraitStats returns the mean and sample standard deviation of values.
// Fewer than two values have zero spread.
func ComputeTraitStats(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean, std = stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Sum adds values; an empty slice sums to zero.
func Sum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("herbivores", s.HerbivoreCount),
		slog.Int("predators", s.PredatorCount),
		slog.Int("herbivore_births", s.HerbivoreBirths),
		slog.Int("predator_births", s.PredatorBirths),
		slog.Int("herbivore_deaths", s.HerbivoreDeaths),
		slog.Int("predator_deaths", s.PredatorDeaths),
		slog.Int("predation_attempts", s.PredationAttempts),
		slog.Int("kills", s.Kills),
		slog.Int("stale_requests", s.StaleRequests),
		slog.Int("grazes", s.Grazes),
		slog.Float64("kill_rate", s.KillRate),
		slog.Float64("herbivore_energy_mean", s.HerbivoreEnergyMean),
		slog.Float64("predator_energy_mean", s.PredatorEnergyMean),
		slog.Float64("size_mean", s.SizeMean),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("sense_mean", s.SenseMean),
		slog.Int("max_generation", s.MaxGeneration),
		slog.Float64("resource_ratio_sum", s.ResourceRatioSum),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"herbivores", s.HerbivoreCount,
		"predators", s.PredatorCount,
		"herbivore_births", s.HerbivoreBirths,
		"predator_births", s.PredatorBirths,
		"herbivore_deaths", s.HerbivoreDeaths,
		"predator_deaths", s.PredatorDeaths,
		"kills", s.Kills,
		"kill_rate", s.KillRate,
		"size_mean", s.SizeMean,
		"speed_mean", s.SpeedMean,
		"sense_mean", s.SenseMean,
		"max_generation", s.MaxGeneration,
		"resource_ratio_sum", s.ResourceRatioSum,
	)
}
