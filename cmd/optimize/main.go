package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/ecogrid/config"
)

// formatDuration formats a duration as HhMMmSSs, or MmSSs when under an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// evalLog appends one CSV row per evaluation.
type evalLog struct {
	f *os.File
	w *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating eval log: %w", err)
	}
	l := &evalLog{f: f, w: csv.NewWriter(f)}

	header := []string{"eval", "fitness", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing eval log header: %w", err)
	}
	return l, nil
}

func (l *evalLog) write(eval int, fitness, quality float64, values []float64) error {
	row := []string{
		strconv.Itoa(eval),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(quality, 'f', 4, 64),
	}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *evalLog) Close() error {
	l.w.Flush()
	return l.f.Close()
}

// tracker keeps the best evaluation seen and reports progress.
type tracker struct {
	maxEvals int
	dt       float64
	start    time.Time

	count       int
	bestFitness float64
	bestParams  []float64
}

func (t *tracker) record(fitness, quality float64, values []float64) {
	t.count++
	if t.bestParams == nil || fitness < t.bestFitness {
		t.bestFitness = fitness
		t.bestParams = append(t.bestParams[:0], values...)
	}

	elapsed := time.Since(t.start)
	remaining := time.Duration(t.maxEvals-t.count) * (elapsed / time.Duration(t.count))

	// fitness = -(survivalTicks * (1 + 0.2*quality))
	survivalSec := -fitness / (1.0 + 0.2*quality) * t.dt
	fmt.Printf("Eval %d/%d: survived=%.0fs quality=%.2f (best=%.0f) | elapsed: %s, ETA: %s\n",
		t.count, t.maxEvals, survivalSec, quality, t.bestFitness,
		formatDuration(elapsed), formatDuration(remaining))
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 20000, "Maximum simulation duration in ticks (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	workers := flag.Int("workers", 2, "Worker goroutines per simulation run")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(*configPath, *outputDir, *maxTicks, *seeds, *maxEvals, *population, *workers); err != nil {
		slog.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir string, maxTicks, seeds, maxEvals, population, workers int) error {
	if outputDir == "" {
		return fmt.Errorf("--output is required")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	evalSeeds := make([]uint64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, int32(maxTicks), evalSeeds, baseCfg, workers)

	evals, err := newEvalLog(filepath.Join(outputDir, "optimize_log.csv"), params)
	if err != nil {
		return err
	}
	defer evals.Close()

	track := &tracker{maxEvals: maxEvals, dt: baseCfg.Physics.DT, start: time.Now()}

	// CMA-ES searches the unit cube; the evaluator sees clamped raw values.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness, err := evaluator.Evaluate(raw)
			if err != nil {
				// Zero survival is the worst score a run can earn.
				slog.Warn("evaluation failed", "eval", track.count+1, "error", err)
				fitness = 0
			}
			quality := evaluator.LastQuality()

			track.record(fitness, quality, raw)
			if err := evals.write(track.count, fitness, quality, raw); err != nil {
				slog.Warn("failed to write eval log", "error", err)
			}
			return fitness
		},
	}

	dim := params.Dim()
	popSize := population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0, // seeds already run in parallel
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d, workers per run: %d\n", seeds, maxTicks, workers)

	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	best := track.bestParams
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return fmt.Errorf("no evaluation completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", track.count, formatDuration(time.Since(track.start)))
	fmt.Printf("Best fitness: %.0f\n", track.bestFitness)
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s (%s): %.6f\n", spec.Name, spec.Path, best[i])
	}

	return writeResults(outputDir, baseCfg, params, best, evaluator)
}

// writeResults saves the best config and the window series of its best run.
func writeResults(dir string, baseCfg *config.Config, params *ParamVector, best []float64, evaluator *FitnessEvaluator) error {
	bestCfg := baseCfg.Clone()
	if err := params.ApplyToConfig(bestCfg, best); err != nil {
		return fmt.Errorf("applying best parameters: %w", err)
	}

	configPath := filepath.Join(dir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configPath); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	fmt.Printf("\nBest config saved to: %s\n", configPath)

	windows := evaluator.BestWindowStats()
	if len(windows) == 0 {
		return nil
	}
	statsPath := filepath.Join(dir, "best_telemetry.csv")
	f, err := os.Create(statsPath)
	if err != nil {
		return fmt.Errorf("creating telemetry file: %w", err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&windows, f); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	fmt.Printf("Best run telemetry saved to: %s\n", statsPath)
	return nil
}
