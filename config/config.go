// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Grid        GridConfig        `yaml:"grid"`
	Partition   PartitionConfig   `yaml:"partition"`
	Locks       LocksConfig       `yaml:"locks"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Energy      EnergyConfig      `yaml:"energy"`
	Fatigue     FatigueConfig     `yaml:"fatigue"`
	Predation   PredationConfig   `yaml:"predation"`
	Evolution   EvolutionConfig   `yaml:"evolution"`
	Species     SpeciesSet        `yaml:"species"`
	Population  PopulationConfig  `yaml:"population"`
	Workers     WorkersConfig     `yaml:"workers"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Range is an inclusive [Low, High] pair.
type Range struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Lerp maps t in [0,1] onto the range.
func (r Range) Lerp(t float64) float64 {
	return r.Low + t*(r.High-r.Low)
}

// GridConfig holds the terrain dimensions in cells.
type GridConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PartitionConfig controls how the grid is sharded for parallel work.
type PartitionConfig struct {
	Size int `yaml:"size"` // Square partition edge in cells
}

// LocksConfig controls the fine-grained cell lock layout.
type LocksConfig struct {
	BlockSize int `yaml:"block_size"` // Cells per edge guarded by one block mutex
}

// PhysicsConfig holds simulation time parameters.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// TerrainConfig holds resource and nutrient layer parameters.
type TerrainConfig struct {
	InitialAmplitude  float64 `yaml:"initial_amplitude"`   // Random perturbation of the initial resource ratio
	InitialValue      Range   `yaml:"initial_value"`       // Initial resource ratio range
	GrowthRate        Range   `yaml:"growth_rate"`         // Per-cell resource growth rate bounds
	ResourceCapacity  float64 `yaml:"resource_capacity"`   // Max resource per cell
	ResourceFloor     float64 `yaml:"resource_floor"`      // Consumption never drains below this
	NutrientCapacity  float64 `yaml:"nutrient_capacity"`   // Max nutrient per cell
	NutrientRate      Range   `yaml:"nutrient_rate"`       // Per-cell nutrient replenishment bounds
	InitialNutrient   float64 `yaml:"initial_nutrient"`    // Initial nutrient as fraction of capacity
	DeathEnergyReturn float64 `yaml:"death_energy_return"` // Fraction of max energy credited to nutrient on death
}

// PathfindingConfig holds search limits.
type PathfindingConfig struct {
	MaxOpen int `yaml:"max_open"` // Open set cap before a search gives up
}

// ActionCosts are the per-action metabolic coefficients.
type ActionCosts struct {
	Move      float64 `yaml:"move"`
	Eat       float64 `yaml:"eat"`
	Idle      float64 `yaml:"idle"`
	Replicate float64 `yaml:"replicate"`
}

// EnergyConfig holds energy economy parameters.
type EnergyConfig struct {
	Costs     ActionCosts `yaml:"costs"`
	EatAmount float64     `yaml:"eat_amount"` // Fraction of usable resource requested per bite
}

// FatigueConfig holds fatigue parameters.
type FatigueConfig struct {
	MoveCost      float64 `yaml:"move_cost"`      // Fatigue per step
	Recovery      float64 `yaml:"recovery"`       // Fatigue recovered per second when still
	RestThreshold float64 `yaml:"rest_threshold"` // Resting ends above Max * this
}

// PredationConfig holds predation rules.
type PredationConfig struct {
	SizeAdvantage float64 `yaml:"size_advantage"` // Predator size must be >= prey size * this
	ReachDistSq   float64 `yaml:"reach_dist_sq"`  // Max squared cell distance to a prey
}

// EvolutionEntry is one row of the evolution chart.
type EvolutionEntry struct {
	ReplicationThreshold float64 `yaml:"replication_threshold"`
	ReplicateChance      float64 `yaml:"replicate_chance"`
	MutationChance       float64 `yaml:"mutation_chance"`
}

// EvolutionConfig holds mutation parameters and the evolution chart.
type EvolutionConfig struct {
	MutationEpsilon float64          `yaml:"mutation_epsilon"`
	Chart           []EvolutionEntry `yaml:"chart"`
}

// Pool is a current/max pair used for species base energy and fatigue.
type Pool struct {
	Current float64 `yaml:"current"`
	Max     float64 `yaml:"max"`
}

// TraitsConfig holds default traits for initial agents.
type TraitsConfig struct {
	Size  float64 `yaml:"size"`
	Speed float64 `yaml:"speed"`
	Sense float64 `yaml:"sense"`
}

// SpeciesConfig holds base values and behavior thresholds for one species.
type SpeciesConfig struct {
	Energy  Pool         `yaml:"energy"`
	Fatigue Pool         `yaml:"fatigue"`
	Traits  TraitsConfig `yaml:"traits"`
	Chart   int          `yaml:"chart"` // Evolution chart row for initial agents

	// Herbivore thresholds
	EatAlpha     float64 `yaml:"eat_alpha"`     // Eat when own cell ratio exceeds this
	SeekAlpha    float64 `yaml:"seek_alpha"`    // Minimum ratio for a seek target
	FleeDistance float64 `yaml:"flee_distance"` // Cells to run from a predator

	// Predator thresholds
	HuntBelow     float64 `yaml:"hunt_below"`     // Hunt when energy ratio drops below this
	ChaseAbove    float64 `yaml:"chase_above"`    // Chase competitors when energy ratio exceeds this
	ExploreRadius int     `yaml:"explore_radius"` // Explore within +/- this of home
}

// SpeciesSet holds per-species configuration.
type SpeciesSet struct {
	Herbivore SpeciesConfig `yaml:"herbivore"`
	Predator  SpeciesConfig `yaml:"predator"`
}

// PopulationConfig holds initial population sizes.
type PopulationConfig struct {
	Herbivores int `yaml:"herbivores"`
	Predators  int `yaml:"predators"`
}

// WorkersConfig controls the task scheduler.
type WorkersConfig struct {
	Count int `yaml:"count"` // 0 = GOMAXPROCS
}

// TelemetryConfig holds stats collection parameters.
type TelemetryConfig struct {
	StatsWindowSec  float64 `yaml:"stats_window_sec"`  // Window length for population stats
	PerfWindowTicks int     `yaml:"perf_window_ticks"` // Rolling window for phase timings
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	CellCount   int   // Grid.Width * Grid.Height
	WindowTicks int32 // Telemetry.StatsWindowSec / Physics.DT
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. Out-of-range values are
// clamped and logged, never rejected.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Validate()
	cfg.computeDerived()

	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Evolution.Chart = append([]EvolutionEntry(nil), c.Evolution.Chart...)
	return &out
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.CellCount = c.Grid.Width * c.Grid.Height
	ticks := int32(c.Telemetry.StatsWindowSec / c.Physics.DT)
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.WindowTicks = ticks
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
