// SPDX-License-Identifier: MIT
package config

// Tunable parameter boundaries and defaults for the detection engine.
// The three analysis parameters deliberately mirror what the UI exposes;
// everything else is fixed by the algorithm.
const (
	// Spectral analysis defaults
	DefaultWindowSize       = 2048  // Samples per FFT window (power of 2)
	DefaultMaxKickFrequency = 100.0 // Upper edge of the kick band (Hz)
	DefaultSensitivity      = 2.5   // Onset threshold in local std deviations
	DefaultMinGainFraction  = 0.1   // Significance floor vs. global peak
	DefaultWindowFunc       = "hann"

	// Parameter limits
	MinWindowSize       = 256
	MaxWindowSize       = 16384
	MinKickFrequency    = 60.0
	MaxKickFrequency    = 200.0
	MinSensitivity      = 1.0
	MaxSensitivity      = 5.0
	MinGainFractionLow  = 0.05
	MinGainFractionHigh = 0.3

	// Grid defaults
	DefaultBPM = 120

	// Serve mode defaults
	DefaultListenAddr       = ":8080"
	DefaultStorePath        = "beatgrid.db"
	DefaultSnapshotInterval = "100ms"
)

// Config holds all runtime configuration, populated from defaults, an
// optional YAML file, environment overrides, and CLI flags in that order.
type Config struct {
	Debug    bool   `yaml:"debug"`     // Verbose logging and debug features.
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error".

	Analysis AnalysisConfig `yaml:"analysis"` // Detection parameters.
	Grid     GridConfig     `yaml:"grid"`     // Grid defaults.
	Serve    ServeConfig    `yaml:"serve"`    // Snapshot/event server settings.
}

// AnalysisConfig holds the user-tunable detection parameters.
type AnalysisConfig struct {
	WindowSize       int     `yaml:"window_size"`        // FFT window in samples (power of 2).
	MaxKickFrequency float64 `yaml:"max_kick_frequency"` // Kick band upper edge, 60-200 Hz.
	Sensitivity      float64 `yaml:"sensitivity"`        // Peak threshold, 1.0-5.0 std deviations.
	MinGainFraction  float64 `yaml:"min_gain_fraction"`  // Significance floor, 0.05-0.3.
	WindowFunc       string  `yaml:"window_func"`        // FFT window function name.
}

// GridConfig holds defaults for newly created grids.
type GridConfig struct {
	BPM int `yaml:"bpm"` // Initial tempo for assets with no stored grid.
}

// ServeConfig holds settings for the websocket snapshot server.
type ServeConfig struct {
	ListenAddr       string `yaml:"listen_addr"`       // Address for the websocket endpoint.
	StorePath        string `yaml:"store_path"`        // SQLite file for per-asset grid settings.
	SnapshotInterval string `yaml:"snapshot_interval"` // Minimum interval between broadcasts.
}

// NewConfig returns a Config populated with defaults. This is the base
// before YAML, env, or flag values are applied.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Analysis: AnalysisConfig{
			WindowSize:       DefaultWindowSize,
			MaxKickFrequency: DefaultMaxKickFrequency,
			Sensitivity:      DefaultSensitivity,
			MinGainFraction:  DefaultMinGainFraction,
			WindowFunc:       DefaultWindowFunc,
		},
		Grid: GridConfig{
			BPM: DefaultBPM,
		},
		Serve: ServeConfig{
			ListenAddr:       DefaultListenAddr,
			StorePath:        DefaultStorePath,
			SnapshotInterval: DefaultSnapshotInterval,
		},
	}
}
