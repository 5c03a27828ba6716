package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultCanvasSize is the viewport edge used when no size is configured.
const DefaultCanvasSize = 800

// Tuning is the JSON tuning file schema. All fields are pointers so a
// partial file only overrides what it names; the Get* methods provide the
// fallback defaults.
type Tuning struct {
	CanvasSize *int     `json:"canvas_size,omitempty"`
	SpawnRate  *float64 `json:"spawn_rate,omitempty"`
	Mode       *string  `json:"mode,omitempty"`

	// Per-approach green seconds.
	North *float64 `json:"north,omitempty"`
	South *float64 `json:"south,omitempty"`
	East  *float64 `json:"east,omitempty"`
	West  *float64 `json:"west,omitempty"`

	FrameInterval *string `json:"frame_interval,omitempty"` // duration string like "33ms"
	SpawnInterval *string `json:"spawn_interval,omitempty"` // duration string like "800ms"

	Seed *int64 `json:"seed,omitempty"`
}

// LoadTuning reads and validates a tuning file. Fields omitted from the
// JSON keep their defaults, so partial configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("tuning file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("tuning file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	t := &Tuning{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Validate checks that configured values are usable.
func (t *Tuning) Validate() error {
	if t.CanvasSize != nil && *t.CanvasSize <= 0 {
		return fmt.Errorf("canvas_size must be positive, got %d", *t.CanvasSize)
	}
	if t.SpawnRate != nil {
		if *t.SpawnRate < 0 || *t.SpawnRate > 1 {
			return fmt.Errorf("spawn_rate must be between 0 and 1, got %f", *t.SpawnRate)
		}
	}
	if t.Mode != nil {
		if _, err := ParseMode(*t.Mode); err != nil {
			return err
		}
	}
	if t.FrameInterval != nil && *t.FrameInterval != "" {
		if _, err := time.ParseDuration(*t.FrameInterval); err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *t.FrameInterval, err)
		}
	}
	if t.SpawnInterval != nil && *t.SpawnInterval != "" {
		if _, err := time.ParseDuration(*t.SpawnInterval); err != nil {
			return fmt.Errorf("invalid spawn_interval '%s': %w", *t.SpawnInterval, err)
		}
	}
	return nil
}

// GetCanvasSize returns the canvas_size value or the default.
func (t *Tuning) GetCanvasSize() int {
	if t.CanvasSize == nil {
		return DefaultCanvasSize
	}
	return *t.CanvasSize
}

// GetSpawnRate returns the spawn_rate value or the default.
func (t *Tuning) GetSpawnRate() float64 {
	if t.SpawnRate == nil {
		return DefaultSpawnRate
	}
	return *t.SpawnRate
}

// GetMode returns the parsed mode value or round-robin.
func (t *Tuning) GetMode() Mode {
	if t.Mode == nil {
		return ModeRoundRobin
	}
	mode, err := ParseMode(*t.Mode)
	if err != nil {
		return ModeRoundRobin
	}
	return mode
}

// GetDurations returns the per-approach green seconds, zero where unset.
func (t *Tuning) GetDurations() Durations {
	var d Durations
	if t.North != nil {
		d.North = *t.North
	}
	if t.South != nil {
		d.South = *t.South
	}
	if t.East != nil {
		d.East = *t.East
	}
	if t.West != nil {
		d.West = *t.West
	}
	return d
}

// GetFrameInterval parses and returns the frame_interval as a Duration.
func (t *Tuning) GetFrameInterval() time.Duration {
	if t.FrameInterval == nil || *t.FrameInterval == "" {
		return DefaultFrameInterval
	}
	d, err := time.ParseDuration(*t.FrameInterval)
	if err != nil {
		return DefaultFrameInterval
	}
	return d
}

// GetSpawnInterval parses and returns the spawn_interval as a Duration.
func (t *Tuning) GetSpawnInterval() time.Duration {
	if t.SpawnInterval == nil || *t.SpawnInterval == "" {
		return DefaultSpawnInterval
	}
	d, err := time.ParseDuration(*t.SpawnInterval)
	if err != nil {
		return DefaultSpawnInterval
	}
	return d
}

// GetSeed returns the seed value, zero when unset.
func (t *Tuning) GetSeed() int64 {
	if t.Seed == nil {
		return 0
	}
	return *t.Seed
}

// RunConfig expands the tuning into a run configuration.
func (t *Tuning) RunConfig() Config {
	return Config{
		CanvasSize:    t.GetCanvasSize(),
		SpawnRate:     t.GetSpawnRate(),
		Mode:          t.GetMode(),
		Durations:     t.GetDurations(),
		FrameInterval: t.GetFrameInterval(),
		SpawnInterval: t.GetSpawnInterval(),
		Seed:          t.GetSeed(),
	}
}
