package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config carries the render-run settings.
type Config struct {
	ScriptPath   string `yaml:"script"`
	AudioDir     string `yaml:"audio_dir"`
	OutputVideo  string `yaml:"output"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	FPS          int    `yaml:"fps"`
	Workers      int    `yaml:"workers"`
	VideoEncoder string `yaml:"video_encoder"`
	Quality      int    `yaml:"quality"`
	MaterialsURL string `yaml:"materials_url"` // non-empty adds a QR outro step
	FontPath     string `yaml:"font_path"`
	Subtitles    bool   `yaml:"subtitles"`
	WriteScript  bool   `yaml:"write_script"`
	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
	Timing       Policy `yaml:"timing"`
}

// Policy is the timing/layout policy injected into each stage, so tests
// can vary the floors and tolerances without touching package constants.
type Policy struct {
	MinStepDuration  float64 `yaml:"min_step_duration"`
	DriftToleranceS  float64 `yaml:"drift_tolerance"`
	DriftTolerancePc float64 `yaml:"drift_tolerance_percent"`
	CaptionReserve   float64 `yaml:"caption_reserve"` // floor for safe_zone.bottom
}

// Default returns the settings used when neither a YAML file nor flags
// override them.
func Default() *Config {
	return &Config{
		Width:        1920,
		Height:       1080,
		FPS:          30,
		Workers:      runtime.NumCPU(),
		VideoEncoder: "libx264",
		Quality:      23,
		Subtitles:    true,
		Timing:       DefaultPolicy(),
	}
}

// DefaultPolicy returns the stock timing policy.
func DefaultPolicy() Policy {
	return Policy{
		MinStepDuration:  0.1,
		DriftToleranceS:  1.0,
		DriftTolerancePc: 0.05,
		CaptionReserve:   0.15,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills zero-valued policy fields back in from the defaults
// so a partial YAML file cannot zero out a floor.
func (c *Config) Normalize() {
	def := DefaultPolicy()
	if c.Timing.MinStepDuration <= 0 {
		c.Timing.MinStepDuration = def.MinStepDuration
	}
	if c.Timing.DriftToleranceS <= 0 {
		c.Timing.DriftToleranceS = def.DriftToleranceS
	}
	if c.Timing.DriftTolerancePc <= 0 {
		c.Timing.DriftTolerancePc = def.DriftTolerancePc
	}
	if c.Timing.CaptionReserve <= 0 {
		c.Timing.CaptionReserve = def.CaptionReserve
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
}

// ApplyPreset switches resolution to a named aspect preset.
func (c *Config) ApplyPreset(preset string) {
	switch preset {
	case "16:9":
		c.Width, c.Height = 1920, 1080
	case "9:16":
		c.Width, c.Height = 1080, 1920
	case "4:5":
		c.Width, c.Height = 1080, 1350
	}
}
