// Package config loads respicam tuning from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"respicam/detection"
	"respicam/tracking"

	"gopkg.in/yaml.v3"
)

// Config represents the complete respicam configuration
type Config struct {
	ROI      ROIConfig      `yaml:"roi" json:"roi"`
	Features FeatureConfig  `yaml:"features" json:"features"`
	Flow     FlowConfig     `yaml:"flow" json:"flow"`
	Detector DetectorConfig `yaml:"detector" json:"detector"`
	Plot     PlotConfig     `yaml:"plot" json:"plot"`
}

// ROIConfig sizes the torso rectangle
type ROIConfig struct {
	SizeX  int `yaml:"size_x" json:"size_x"` // half width in pixels
	SizeY  int `yaml:"size_y" json:"size_y"` // height above the shoulder line
	ShiftX int `yaml:"shift_x" json:"shift_x"`
	ShiftY int `yaml:"shift_y" json:"shift_y"`
}

// FeatureConfig contains corner detection settings
type FeatureConfig struct {
	MaxCorners   int     `yaml:"max_corners" json:"max_corners"`
	QualityLevel float64 `yaml:"quality_level" json:"quality_level"`
	MinDistance  float64 `yaml:"min_distance" json:"min_distance"`
	BlockSize    int     `yaml:"block_size" json:"block_size"` // only 3 is supported
}

// FlowConfig contains Lucas-Kanade settings
type FlowConfig struct {
	WinSize       int     `yaml:"win_size" json:"win_size"`
	MaxLevel      int     `yaml:"max_level" json:"max_level"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
	Epsilon       float64 `yaml:"epsilon" json:"epsilon"`
	MinEigThresh  float64 `yaml:"min_eig_threshold" json:"min_eig_threshold"`
}

// DetectorConfig selects and configures the pose provider
type DetectorConfig struct {
	Backend         string   `yaml:"backend" json:"backend"` // auto, cpu, gpu, worker
	ModelPath       string   `yaml:"model_path" json:"model_path"`
	ConfigPath      string   `yaml:"config_path" json:"config_path"`
	InputSize       int      `yaml:"input_size" json:"input_size"`
	SwapRB          bool     `yaml:"swap_rb" json:"swap_rb"`
	MinConfidence   float64  `yaml:"min_confidence" json:"min_confidence"`
	WorkerCommand   []string `yaml:"worker_command" json:"worker_command"`
	WorkerTimeoutMS int      `yaml:"worker_timeout_ms" json:"worker_timeout_ms"`
}

// PlotConfig contains the live chart layout
type PlotConfig struct {
	Window int  `yaml:"window" json:"window"` // samples kept on screen
	Width  int  `yaml:"width" json:"width"`
	Height int  `yaml:"height" json:"height"`
	Smooth bool `yaml:"smooth" json:"smooth"`
}

// Default returns the published tuning
func Default() *Config {
	roi := tracking.DefaultROIParams()
	feat := tracking.DefaultFeatureParams()
	flow := tracking.DefaultFlowParams()
	det := detection.DefaultConfig()

	return &Config{
		ROI: ROIConfig{SizeX: roi.SizeX, SizeY: roi.SizeY, ShiftX: roi.ShiftX, ShiftY: roi.ShiftY},
		Features: FeatureConfig{
			MaxCorners:   feat.MaxPoints,
			QualityLevel: feat.QualityLevel,
			MinDistance:  feat.MinDistance,
			BlockSize:    feat.BlockSize,
		},
		Flow: FlowConfig{
			WinSize:       flow.WindowSize,
			MaxLevel:      flow.MaxLevel,
			MaxIterations: flow.MaxIterations,
			Epsilon:       flow.Epsilon,
			MinEigThresh:  flow.MinEigThreshold,
		},
		Detector: DetectorConfig{
			Backend:         string(det.Backend),
			InputSize:       det.InputSize,
			SwapRB:          det.SwapRB,
			MinConfidence:   det.MinConfidence,
			WorkerTimeoutMS: int(det.WorkerTimeout / time.Millisecond),
		},
		Plot: PlotConfig{Window: 100, Width: 640, Height: 480, Smooth: true},
	}
}

// Load reads a YAML (.yaml/.yml) or JSON (.json) file on top of the
// defaults, so a file only needs the values it changes
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration values
func (c *Config) Validate() error {
	if c.ROI.SizeX <= 0 || c.ROI.SizeY <= 0 {
		return fmt.Errorf("roi size must be positive, got %dx%d", c.ROI.SizeX, c.ROI.SizeY)
	}

	if c.Features.MaxCorners <= 0 {
		return fmt.Errorf("features.max_corners must be positive")
	}
	if c.Features.QualityLevel <= 0 || c.Features.QualityLevel >= 1 {
		return fmt.Errorf("features.quality_level must be in (0,1), got %v", c.Features.QualityLevel)
	}
	if c.Features.MinDistance < 0 {
		return fmt.Errorf("features.min_distance must not be negative")
	}
	if c.Features.BlockSize != 3 {
		return fmt.Errorf("features.block_size %d is not supported, only 3", c.Features.BlockSize)
	}

	if c.Flow.WinSize < 3 || c.Flow.WinSize%2 == 0 {
		return fmt.Errorf("flow.win_size must be an odd number >= 3, got %d", c.Flow.WinSize)
	}
	if c.Flow.MaxLevel < 0 {
		return fmt.Errorf("flow.max_level must not be negative")
	}
	if c.Flow.MaxIterations <= 0 || c.Flow.Epsilon <= 0 {
		return fmt.Errorf("flow termination needs max_iterations > 0 and epsilon > 0")
	}

	switch detection.Backend(c.Detector.Backend) {
	case detection.BackendAuto, detection.BackendCPU, detection.BackendGPU:
	case detection.BackendWorker:
		if len(c.Detector.WorkerCommand) == 0 {
			return fmt.Errorf("detector.worker_command is required for the worker backend")
		}
	default:
		return fmt.Errorf("unknown detector backend %q", c.Detector.Backend)
	}
	if c.Detector.InputSize <= 0 {
		return fmt.Errorf("detector.input_size must be positive")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be in [0,1]")
	}

	if c.Plot.Window <= 0 || c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot window and size must be positive")
	}
	return nil
}

// SessionConfig converts the tracking sections
func (c *Config) SessionConfig() tracking.SessionConfig {
	return tracking.SessionConfig{
		ROI: tracking.ROIParams{
			SizeX:  c.ROI.SizeX,
			SizeY:  c.ROI.SizeY,
			ShiftX: c.ROI.ShiftX,
			ShiftY: c.ROI.ShiftY,
		},
		Features: tracking.FeatureParams{
			MaxPoints:    c.Features.MaxCorners,
			QualityLevel: c.Features.QualityLevel,
			MinDistance:  c.Features.MinDistance,
			BlockSize:    c.Features.BlockSize,
		},
		Flow: tracking.FlowParams{
			WindowSize:      c.Flow.WinSize,
			MaxLevel:        c.Flow.MaxLevel,
			MaxIterations:   c.Flow.MaxIterations,
			Epsilon:         c.Flow.Epsilon,
			MinEigThreshold: c.Flow.MinEigThresh,
		},
	}
}

// DetectionConfig converts the detector section
func (c *Config) DetectionConfig() detection.Config {
	return detection.Config{
		Backend:       detection.Backend(c.Detector.Backend),
		ModelPath:     c.Detector.ModelPath,
		ConfigPath:    c.Detector.ConfigPath,
		InputSize:     c.Detector.InputSize,
		SwapRB:        c.Detector.SwapRB,
		MinConfidence: c.Detector.MinConfidence,
		WorkerCommand: c.Detector.WorkerCommand,
		WorkerTimeout: time.Duration(c.Detector.WorkerTimeoutMS) * time.Millisecond,
	}
}
