package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/ecogrid/components"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeEnergyStats(t *testing.T) {
	values := []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1}
	mean, p10, p50, p90 := ComputeEnergyStats(values)

	if math.Abs(mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", mean)
	}
	if math.Abs(p10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", p10)
	}
	if math.Abs(p50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", p50)
	}
	if math.Abs(p90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", p90)
	}
	if values[0] != 1.0 {
		t.Error("input slice was reordered")
	}
}

func TestComputeTraitStats(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		std    float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{3}, 3, 0},
		{"constant", []float64{2, 2, 2}, 2, 0},
		// sample variance 32/7
		{"spread", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, math.Sqrt(32.0 / 7.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := ComputeTraitStats(tt.values)
			if math.Abs(mean-tt.mean) > 1e-9 || math.Abs(std-tt.std) > 1e-9 {
				t.Errorf("got (%v, %v), want (%v, %v)", mean, std, tt.mean, tt.std)
			}
		})
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(1.0, 0.1)
	if c.WindowTicks() != 10 {
		t.Fatalf("WindowTicks = %d, want 10", c.WindowTicks())
	}

	c.RecordBirth(components.Herbivore)
	c.RecordBirth(components.Herbivore)
	c.RecordBirth(components.Predator)
	c.RecordDeath(components.Predator)
	c.RecordPredationAttempt()
	c.RecordPredationAttempt()
	c.RecordKill()
	c.RecordStale()
	c.RecordGraze()

	if c.ShouldFlush(9) {
		t.Error("window not yet complete at tick 9")
	}
	if !c.ShouldFlush(10) {
		t.Error("window complete at tick 10")
	}

	sample := &Sample{
		HerbivoreEnergies: []float64{100, 300},
		PredatorEnergies:  []float64{1000},
		Sizes:             []float64{1, 1, 2},
		Speeds:            []float64{1, 1, 1},
		Senses:            []float64{5, 5, 6},
		MaxGeneration:     3,
		ResourceRatioSum:  12.5,
	}
	stats := c.Flush(10, sample)

	if stats.HerbivoreCount != 2 || stats.PredatorCount != 1 {
		t.Errorf("counts = %d/%d", stats.HerbivoreCount, stats.PredatorCount)
	}
	if stats.HerbivoreBirths != 2 || stats.PredatorBirths != 1 || stats.PredatorDeaths != 1 {
		t.Errorf("events = %+v", stats)
	}
	if stats.KillRate != 0.5 {
		t.Errorf("KillRate = %v, want 0.5", stats.KillRate)
	}
	if stats.HerbivoreEnergyMean != 200 {
		t.Errorf("HerbivoreEnergyMean = %v, want 200", stats.HerbivoreEnergyMean)
	}
	if stats.TotalAgentEnergy != 1400 {
		t.Errorf("TotalAgentEnergy = %v, want 1400", stats.TotalAgentEnergy)
	}
	if stats.SpeedStd != 0 || stats.SpeedMean != 1 {
		t.Errorf("speed stats = %v/%v", stats.SpeedMean, stats.SpeedStd)
	}
	if math.Abs(stats.SimTimeSec-1.0) > 1e-9 {
		t.Errorf("SimTimeSec = %v", stats.SimTimeSec)
	}

	next := c.Flush(20, &Sample{})
	if next.HerbivoreBirths != 0 || next.Kills != 0 || next.WindowStartTick != 10 {
		t.Errorf("counters not reset: %+v", next)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: int32(i * 10), HerbivoreCount: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkPredatorExtinct, Tick: 30, Description: "No predators left"}); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var rows []WindowStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (header written once)", len(rows))
	}
	if rows[2].WindowEndTick != 30 || rows[2].HerbivoreCount != 3 {
		t.Errorf("last row = %+v", rows[2])
	}

	data, err := os.ReadFile(filepath.Join(dir, "bookmarks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "predator_extinct") {
		t.Errorf("bookmarks.csv = %q", data)
	}
}

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("empty dir should disable output, got %v, %v", om, err)
	}
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}
