// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"beatgrid/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file at path. If path is empty it
// searches default locations ("beatgrid.yaml"); if no file is found the
// built-in defaults are used. Environment overrides are applied after the
// file, and the final configuration is validated.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{"beatgrid.yaml", "config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every tunable against its documented range.
func (c *Config) Validate() error {
	a := &c.Analysis
	if !bitint.IsPowerOfTwo(a.WindowSize) {
		return fmt.Errorf("analysis.window_size must be a power of 2, got %d", a.WindowSize)
	}
	if a.WindowSize < MinWindowSize || a.WindowSize > MaxWindowSize {
		return fmt.Errorf("analysis.window_size %d outside [%d, %d]", a.WindowSize, MinWindowSize, MaxWindowSize)
	}
	if a.MaxKickFrequency < MinKickFrequency || a.MaxKickFrequency > MaxKickFrequency {
		return fmt.Errorf("analysis.max_kick_frequency %.1f outside [%.0f, %.0f]", a.MaxKickFrequency, MinKickFrequency, MaxKickFrequency)
	}
	if a.Sensitivity < MinSensitivity || a.Sensitivity > MaxSensitivity {
		return fmt.Errorf("analysis.sensitivity %.2f outside [%.1f, %.1f]", a.Sensitivity, MinSensitivity, MaxSensitivity)
	}
	if a.MinGainFraction < MinGainFractionLow || a.MinGainFraction > MinGainFractionHigh {
		return fmt.Errorf("analysis.min_gain_fraction %.3f outside [%.2f, %.2f]", a.MinGainFraction, MinGainFractionLow, MinGainFractionHigh)
	}
	if c.Grid.BPM <= 0 {
		return fmt.Errorf("grid.bpm must be positive, got %d", c.Grid.BPM)
	}
	return nil
}

// applyEnvOverrides applies BEATGRID_* environment variables on top of
// whatever the file (or defaults) provided.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("BEATGRID_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("BEATGRID_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("BEATGRID_SENSITIVITY"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Analysis.Sensitivity = f
		}
	}
	if val, ok := os.LookupEnv("BEATGRID_MAX_KICK_FREQUENCY"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Analysis.MaxKickFrequency = f
		}
	}
	if val, ok := os.LookupEnv("BEATGRID_MIN_GAIN_FRACTION"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Analysis.MinGainFraction = f
		}
	}
	if val, ok := os.LookupEnv("BEATGRID_LISTEN_ADDR"); ok {
		c.Serve.ListenAddr = val
	}
	if val, ok := os.LookupEnv("BEATGRID_STORE_PATH"); ok {
		c.Serve.StorePath = val
	}
}
