package executor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/window"
)

// SessionWorker opens one scripting session for a parallel run. Open is
// called on the worker's own goroutine so the backend lives on the thread
// that uses it.
type SessionWorker struct {
	ID   int
	Name string
	Open func() (core.Backend, func(), error)
}

type workItem struct {
	flow  *flow.Flow
	index int
}

// ParallelRunner distributes flows across several session windows.
type ParallelRunner struct {
	workers []SessionWorker
	config  RunnerConfig
	layout  core.OutputLayout
}

// NewParallelRunner creates a runner that spreads flows over the workers.
func NewParallelRunner(workers []SessionWorker, cfg RunnerConfig) *ParallelRunner {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &ParallelRunner{
		workers: workers,
		config:  cfg,
		layout:  core.NewOutputLayout(cfg.OutputDir, cfg.RunID),
	}
}

// RunID returns the run identifier.
func (pr *ParallelRunner) RunID() string {
	return pr.config.RunID
}

// Layout returns the output layout of this run.
func (pr *ParallelRunner) Layout() core.OutputLayout {
	return pr.layout
}

// Run executes the flows across the workers and returns the combined
// suite result. Flow order in the result matches the input order.
func (pr *ParallelRunner) Run(ctx context.Context, flows []*flow.Flow) (*core.SuiteResult, error) {
	suite := &core.SuiteResult{
		Name:      pr.config.RunName,
		RunID:     pr.config.RunID,
		StartTime: time.Now(),
	}

	if len(pr.workers) == 0 {
		return suite, core.ErrInvalidConfig.WithMessage("no session workers available")
	}
	if err := pr.layout.Ensure(); err != nil {
		return suite, core.ErrInvalidConfig.WithCause(err).WithMessage("output directory could not be created")
	}

	queue := make(chan workItem, len(flows))
	for i, f := range flows {
		queue <- workItem{flow: f, index: i}
	}
	close(queue)

	results := make([]core.FlowResult, len(flows))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		stopped  bool
		firstErr error
	)

	for _, w := range pr.workers {
		wg.Add(1)
		go func(w SessionWorker) {
			defer wg.Done()

			// COM objects are bound to the thread that created them,
			// so the session must open and run on one OS thread.
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			backend, cleanup, err := w.Open()
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			defer cleanup()

			runner := &Runner{
				config: pr.config,
				window: window.New(backend, pr.config.Window),
				layout: pr.layout,
			}

			for item := range queue {
				mu.Lock()
				skip := stopped
				mu.Unlock()

				if skip || ctx.Err() != nil {
					mu.Lock()
					results[item.index] = skippedFlowResult(item.flow, "run stopped")
					mu.Unlock()
					continue
				}

				fres := runner.executeFlow(ctx, item.flow, item.index, len(flows))

				mu.Lock()
				results[item.index] = fres
				if !fres.Status.IsSuccess() && fres.Status != core.StatusSkipped && pr.config.StopOnFail {
					stopped = true
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	// Flows nobody picked up (all workers failed to open) are skipped.
	for i, res := range results {
		if res.Status == core.StatusPending {
			results[i] = skippedFlowResult(flows[i], "no session worker available")
		}
	}

	suite.Flows = results
	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()

	if err := writeResults(pr.layout, suite); err != nil {
		return suite, err
	}
	if firstErr != nil && suite.TotalFlows == suite.SkippedFlows {
		return suite, core.ErrAttachFailed.WithCause(firstErr)
	}
	return suite, nil
}
