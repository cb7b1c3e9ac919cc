package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is a self-contained copy of the simulation state at one tick.
// Nothing in it aliases engine memory.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    uint64 `json:"seed"`
	Tick    int32  `json:"tick"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Terrain layers, row-major.
	Resource    []float64 `json:"resource"`
	ResourceCap []float64 `json:"resource_cap"`
	Nutrient    []float64 `json:"nutrient"`

	// Occupancy holds the serial of the agent on each cell; 0 is empty.
	Occupancy []uint64 `json:"occupancy"`

	// Agents sorted by serial.
	Agents []AgentState `json:"agents"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// AgentState holds one agent's complete state.
type AgentState struct {
	Serial  uint64 `json:"serial"`
	Species string `json:"species"`

	X     int `json:"x"`
	Y     int `json:"y"`
	HomeX int `json:"home_x"`
	HomeY int `json:"home_y"`

	Energy     float64 `json:"energy"`
	EnergyMax  float64 `json:"energy_max"`
	Fatigue    float64 `json:"fatigue"`
	FatigueMax float64 `json:"fatigue_max"`
	Resting    bool    `json:"resting"`

	Size  float64 `json:"size"`
	Speed float64 `json:"speed"`
	Sense float64 `json:"sense"`

	ReplicationThreshold float64 `json:"replication_threshold"`
	ReplicateChance      float64 `json:"replicate_chance"`
	MutationChance       float64 `json:"mutation_chance"`

	PathLen    int   `json:"path_len"`
	BirthTick  int32 `json:"birth_tick"`
	Generation int   `json:"generation"`
}

// CellIndex returns the row-major index of (x, y), or -1 when out of bounds.
func (s *Snapshot) CellIndex(x, y int) int {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return -1
	}
	return y*s.Width + x
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
