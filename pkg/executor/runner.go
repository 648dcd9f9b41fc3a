// Package executor runs parsed flows against an attached session window.
package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/window"
)

// ArtifactMode controls when screenshots and element dumps are captured.
type ArtifactMode int

const (
	// ArtifactOnFailure captures artifacts for failed steps only.
	ArtifactOnFailure ArtifactMode = iota
	// ArtifactAlways captures a screenshot after every step.
	ArtifactAlways
	// ArtifactNever disables artifact capture.
	ArtifactNever
)

// RunnerConfig configures a run.
type RunnerConfig struct {
	RunID      string        // Unique run identifier, generated when empty
	RunName    string        // Display name for the suite
	OutputDir  string        // Base output directory
	Platform   string        // Platform name exposed to scripts
	Window     window.Config // Session window settings
	StopOnFail bool          // Stop the run after the first failed flow
	Artifacts  ArtifactMode  // Screenshot and dump capture policy

	// Progress callbacks, all optional.
	OnFlowStart    func(index, total int, name, file string)
	OnFlowEnd      func(name string, passed bool, duration time.Duration)
	OnStepComplete func(index int, description string, status core.StepStatus, duration time.Duration, errMsg string)
	OnNestedStep   func(depth int, description string, status core.StepStatus, duration time.Duration, errMsg string)
}

// Runner executes flows sequentially against a single session window.
type Runner struct {
	config RunnerConfig
	window *window.Window
	layout core.OutputLayout
}

// New creates a runner for the given backend.
func New(backend core.Backend, cfg RunnerConfig) *Runner {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Runner{
		config: cfg,
		window: window.New(backend, cfg.Window),
		layout: core.NewOutputLayout(cfg.OutputDir, cfg.RunID),
	}
}

// RunID returns the run identifier.
func (r *Runner) RunID() string {
	return r.config.RunID
}

// Layout returns the output layout of this run.
func (r *Runner) Layout() core.OutputLayout {
	return r.layout
}

// Run executes the flows in order and returns the suite result. The result
// is non-nil even when an error is returned.
func (r *Runner) Run(ctx context.Context, flows []*flow.Flow) (*core.SuiteResult, error) {
	suite := &core.SuiteResult{
		Name:      r.config.RunName,
		RunID:     r.config.RunID,
		StartTime: time.Now(),
	}

	if err := r.layout.Ensure(); err != nil {
		return suite, core.ErrInvalidConfig.WithCause(err).WithMessage("output directory could not be created")
	}

	stopped := false
	for i, f := range flows {
		if stopped || ctx.Err() != nil {
			suite.Flows = append(suite.Flows, skippedFlowResult(f, "run stopped"))
			continue
		}

		fres := r.executeFlow(ctx, f, i, len(flows))
		suite.Flows = append(suite.Flows, fres)

		if !fres.Status.IsSuccess() && fres.Status != core.StatusSkipped && r.config.StopOnFail {
			stopped = true
		}
	}

	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()

	err := writeResults(r.layout, suite)
	return suite, err
}

// executeFlow runs a single flow.
func (r *Runner) executeFlow(ctx context.Context, f *flow.Flow, idx, total int) core.FlowResult {
	fr := &FlowRunner{
		ctx:        ctx,
		flow:       *f,
		window:     r.window,
		config:     r.config,
		layout:     r.layout,
		flowIdx:    idx,
		totalFlows: total,
	}
	return fr.Run()
}

// skippedFlowResult builds the result of a flow that never ran.
func skippedFlowResult(f *flow.Flow, reason string) core.FlowResult {
	return core.FlowResult{
		Name:      flowNameFromPath(f),
		FilePath:  f.SourcePath,
		Tags:      f.Config.Tags,
		Status:    core.StatusSkipped,
		StartTime: time.Now(),
		Message:   reason,
	}
}

// flowNameFromPath returns the configured flow name, falling back to the
// file name without extension.
func flowNameFromPath(f *flow.Flow) string {
	if f.Config.Name != "" {
		return f.Config.Name
	}
	if f.SourcePath == "" {
		return "flow"
	}
	base := filepath.Base(f.SourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeResults persists the suite result as JSON in the run directory.
func writeResults(layout core.OutputLayout, suite *core.SuiteResult) error {
	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(layout.ResultsPath(), data, 0644)
}
