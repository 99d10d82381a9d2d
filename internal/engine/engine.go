// SPDX-License-Identifier: MIT
/*
Package engine orchestrates the detection pipeline around a grid
controller. An analysis request runs the spectral pass, onset picking,
and tempo estimation on a worker goroutine; re-triggering while one is in
flight cancels the older request, and only the most recent request may
commit its tempo to the grid (last-writer-wins via per-request contexts
and a generation counter, never a shared mutable flag).
*/
package engine

import (
	"context"
	"sync"

	"beatgrid/internal/analysis"
	"beatgrid/internal/audio"
	"beatgrid/internal/config"
	"beatgrid/internal/grid"
	applog "beatgrid/internal/log"
	"beatgrid/internal/transport"
)

// Result is the outcome of one analysis request.
type Result struct {
	BPM      int                   // Committed tempo; 0 when Status is non-OK.
	Status   analysis.Status       // OK or the recoverable failure reason.
	Onsets   []analysis.OnsetEvent // Detected onsets, for visualization.
	Frames   int                   // Energy frames produced.
	Canceled bool                  // True when a newer request superseded this one.
	Err      error                 // Setup failure; analysis outcomes use Status instead.
}

// Engine owns the pipeline parameters and the grid controller. It is the
// only component that turns analysis output into grid mutations.
type Engine struct {
	mu         sync.Mutex
	params     config.AnalysisConfig
	controller *grid.Controller
	publisher  transport.Publisher

	generation uint64             // Increments per request under mu.
	cancelPrev context.CancelFunc // Cancels the in-flight request, nil when idle.
}

// New creates an engine around the given controller. publisher may be
// nil, in which case events are logged and dropped.
func New(params config.AnalysisConfig, controller *grid.Controller, publisher transport.Publisher) *Engine {
	if publisher == nil {
		publisher = transport.LogPublisher{}
	}
	return &Engine{
		params:     params,
		controller: controller,
		publisher:  publisher,
	}
}

// Controller returns the grid controller the engine writes to.
func (e *Engine) Controller() *grid.Controller {
	return e.controller
}

// SetParams replaces the analysis parameters for subsequent requests.
// In-flight requests keep the parameters they started with.
func (e *Engine) SetParams(params config.AnalysisConfig) {
	e.mu.Lock()
	e.params = params
	e.mu.Unlock()
}

// Analyze schedules a detection pass over buf and returns a channel that
// yields exactly one Result. A previously in-flight request is canceled;
// its Result reports Canceled and leaves the grid untouched.
func (e *Engine) Analyze(ctx context.Context, buf *audio.PCMBuffer) <-chan Result {
	out := make(chan Result, 1)

	e.mu.Lock()
	if e.cancelPrev != nil {
		e.cancelPrev()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	e.cancelPrev = cancel
	e.generation++
	gen := e.generation
	params := e.params
	e.mu.Unlock()

	go func() {
		defer cancel()
		out <- e.run(reqCtx, gen, params, buf)
		close(out)
	}()

	return out
}

// AnalyzeSync runs a detection pass on the calling goroutine. Used by
// the CLI, where there is no interactive thread to protect.
func (e *Engine) AnalyzeSync(ctx context.Context, buf *audio.PCMBuffer) Result {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	params := e.params
	e.mu.Unlock()

	return e.run(ctx, gen, params, buf)
}

func (e *Engine) run(ctx context.Context, gen uint64, params config.AnalysisConfig, buf *audio.PCMBuffer) Result {
	windowType, err := analysis.ParseWindowFunc(params.WindowFunc)
	if err != nil {
		applog.Warnf("Engine: %v, using Hann", err)
	}

	analyzer, err := analysis.NewSpectralEnergyAnalyzer(params.WindowSize, params.MaxKickFrequency, windowType)
	if err != nil {
		// Parameters are validated at config load; reaching this means a
		// programmatic caller passed bad values. Degrade, don't panic.
		applog.Errorf("Engine: analyzer setup: %v", err)
		return Result{Err: err}
	}

	frames := analyzer.Analyze(buf)
	if ctx.Err() != nil {
		return Result{Canceled: true}
	}

	detector := analysis.NewOnsetDetector(params.Sensitivity, params.MinGainFraction)
	onsets := detector.Detect(frames)
	if ctx.Err() != nil {
		return Result{Canceled: true}
	}

	estimator := analysis.NewTempoEstimator()
	bpm, status := estimator.Estimate(onsets)
	if ctx.Err() != nil {
		return Result{Canceled: true}
	}

	result := Result{
		Status: status,
		Onsets: onsets,
		Frames: len(frames),
	}

	if status == analysis.StatusOK {
		// Commit only while still the newest request. The generation
		// check and the grid write happen under the same lock that
		// Analyze uses to hand out generations, so a superseded request
		// can never clobber a newer result.
		e.mu.Lock()
		current := e.generation == gen && ctx.Err() == nil
		if current && e.controller.ApplyBPM(bpm, grid.SourceSpectral) {
			result.BPM = bpm
		}
		e.mu.Unlock()

		if !current {
			return Result{Canceled: true}
		}
	}

	e.publish(result)
	return result
}

func (e *Engine) publish(r Result) {
	_ = e.publisher.Send(transport.Event{Type: "tempo", Data: map[string]any{
		"bpm":    r.BPM,
		"status": r.Status.String(),
	}})
	if len(r.Onsets) > 0 {
		times := make([]float64, len(r.Onsets))
		for i, o := range r.Onsets {
			times[i] = o.Time
		}
		_ = e.publisher.Send(transport.Event{Type: "onsets", Data: times})
	}
}

// ApplyTap records a tap-tempo estimate on the grid. Returns true when
// the tempo changed.
func (e *Engine) ApplyTap(bpm int) bool {
	return e.controller.ApplyBPM(bpm, grid.SourceTap)
}
