// SPDX-License-Identifier: MIT
// Package cmd wires the cobra CLI: analyze (one-shot detection over a WAV
// file), tap (interactive tap tempo), and serve (websocket snapshot server
// with hot-reloaded parameters and persisted grids).
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"beatgrid/internal/analysis"
	"beatgrid/internal/audio"
	"beatgrid/internal/config"
	"beatgrid/internal/engine"
	"beatgrid/internal/grid"
	applog "beatgrid/internal/log"
	"beatgrid/internal/store"
	"beatgrid/internal/transport"
	"beatgrid/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// version is injected via -ldflags at release time.
var version = "dev"

type cliFlags struct {
	configPath  string
	sensitivity float64
	minGain     float64
	maxKickHz   float64
	jsonOutput  bool
	assetID     string
	storePath   string
}

// Execute parses arguments and runs the selected command.
func Execute() error {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "beatgrid",
		Short:         "Beat detection and grid alignment for audio assets",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Path to YAML config file (default: beatgrid.yaml if present)")
	rootCmd.PersistentFlags().Float64VarP(&flags.sensitivity, "sensitivity", "s", 0,
		"Onset threshold in std deviations (1.0-5.0)")
	rootCmd.PersistentFlags().Float64VarP(&flags.minGain, "min-gain", "g", 0,
		"Significance floor as fraction of peak energy (0.05-0.3)")
	rootCmd.PersistentFlags().Float64VarP(&flags.maxKickHz, "max-kick-freq", "k", 0,
		"Upper edge of the kick band in Hz (60-200)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Detect tempo and onsets in a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(flags, args[0])
		},
	}
	analyzeCmd.Flags().BoolVar(&flags.jsonOutput, "json", false,
		"Emit machine-readable JSON instead of text")
	analyzeCmd.Flags().StringVar(&flags.assetID, "asset", "",
		"Asset ID to persist the resulting grid under (default: file name)")
	analyzeCmd.Flags().StringVar(&flags.storePath, "store", "",
		"SQLite file for grid persistence (empty: don't persist)")
	rootCmd.AddCommand(analyzeCmd)

	tapCmd := &cobra.Command{
		Use:   "tap",
		Short: "Set the tempo interactively by tapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTap(flags)
		},
	}
	rootCmd.AddCommand(tapCmd)

	serveCmd := &cobra.Command{
		Use:   "serve <file.wav>",
		Short: "Analyze a file and stream grid snapshots over websocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags, args[0])
		},
	}
	rootCmd.AddCommand(serveCmd)

	return rootCmd.Execute()
}

// loadConfig builds the effective config: file, env, then CLI flags.
func loadConfig(flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.Config, flags *cliFlags) {
	if flags.sensitivity != 0 {
		cfg.Analysis.Sensitivity = flags.sensitivity
	}
	if flags.minGain != 0 {
		cfg.Analysis.MinGainFraction = flags.minGain
	}
	if flags.maxKickHz != 0 {
		cfg.Analysis.MaxKickFrequency = flags.maxKickHz
	}
}

func runAnalyze(flags *cliFlags, path string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	buf, err := audio.DecodeWAVFile(path)
	if err != nil {
		return err
	}

	controller := grid.NewController(grid.NewState(cfg.Grid.BPM))
	eng := engine.New(cfg.Analysis, controller, nil)

	result := eng.AnalyzeSync(context.Background(), buf)
	if result.Err != nil {
		return result.Err
	}

	snap := controller.Snapshot()

	if flags.storePath != "" {
		assetID := flags.assetID
		if assetID == "" {
			assetID = filepath.Base(path)
		}
		st, err := store.Open(flags.storePath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Save(assetID, snap); err != nil {
			return err
		}
		applog.Infof("CLI: grid for %s saved to %s", assetID, flags.storePath)
	}

	if flags.jsonOutput {
		out := struct {
			Status string        `json:"status"`
			Grid   grid.Snapshot `json:"grid"`
			Onsets []float64     `json:"onsets"`
		}{Status: result.Status.String(), Grid: snap}
		for _, o := range result.Onsets {
			out.Onsets = append(out.Onsets, o.Time)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("%s: %.1fs, %d energy frames, %d onsets\n",
		filepath.Base(path), buf.Duration().Seconds(), result.Frames, len(result.Onsets))
	if result.Status == analysis.StatusOK {
		fmt.Printf("tempo: %d BPM\n", snap.BPM)
	} else {
		fmt.Printf("tempo: unchanged (%d BPM), status: %s\n", snap.BPM, result.Status)
	}
	return nil
}

func runTap(flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	controller := grid.NewController(grid.NewState(cfg.Grid.BPM))
	program := tea.NewProgram(tui.NewTapModel(controller))
	if _, err := program.Run(); err != nil {
		return err
	}

	snap := controller.Snapshot()
	fmt.Printf("final tempo: %d BPM\n", snap.BPM)
	return nil
}

func runServe(flags *cliFlags, path string) error {
	hot, err := config.NewHotConfig(flags.configPath)
	if err != nil {
		return err
	}
	cfg := hot.Get()
	applyFlagOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	buf, err := audio.DecodeWAVFile(path)
	if err != nil {
		return err
	}
	assetID := filepath.Base(path)

	st, err := store.Open(cfg.Serve.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	interval, err := time.ParseDuration(cfg.Serve.SnapshotInterval)
	if err != nil {
		interval = 100 * time.Millisecond
	}
	publisher := transport.NewWebSocketPublisher(cfg.Serve.ListenAddr, interval)
	defer publisher.Close()

	initial := grid.NewState(cfg.Grid.BPM)
	if saved, err := st.Load(assetID); err == nil {
		initial = saved
		applog.Infof("Serve: restored grid for %s (%d BPM)", assetID, saved.BPM)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	controller := grid.NewController(initial)
	controller.OnChange(func(snap grid.Snapshot) {
		_ = publisher.Send(transport.Event{Type: "grid", Data: snap})
		if err := st.Save(assetID, snap); err != nil {
			applog.Errorf("Serve: persist grid: %v", err)
		}
	})

	eng := engine.New(cfg.Analysis, controller, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Re-run detection whenever the tunables change on disk. Kicking off
	// a new request cancels the in-flight one; only the newest result
	// lands on the grid.
	hot.OnReload(func(next *config.Config) {
		eng.SetParams(next.Analysis)
		eng.Analyze(ctx, buf)
	})
	if flags.configPath != "" {
		hot.Watch()
	} else {
		applog.Warnf("Serve: no --config file, hot reload disabled")
	}

	// Initial pass.
	eng.Analyze(ctx, buf)

	applog.Infof("Serve: %s on %s, ctrl-c to stop", assetID, cfg.Serve.ListenAddr)
	<-ctx.Done()
	return nil
}
