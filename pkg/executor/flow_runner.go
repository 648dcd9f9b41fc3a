package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/window"
)

// Bounds for compound steps.
const (
	DefaultRetryAttempts = 3
	maxWhileIterations   = 1000
)

// FlowRunner executes a single flow against one window.
type FlowRunner struct {
	ctx        context.Context
	flow       flow.Flow
	window     *window.Window
	script     *ScriptEngine
	config     RunnerConfig
	layout     core.OutputLayout
	flowIdx    int // Current flow index (0-based)
	totalFlows int // Total number of flows in the run
	depth      int // runFlow nesting depth
	seq        int // Monotonic step counter, keys artifact file names
}

// Run executes the flow and returns its result.
func (fr *FlowRunner) Run() core.FlowResult {
	result := core.FlowResult{
		Name:       fr.flowName(),
		FilePath:   fr.flow.SourcePath,
		Tags:       fr.flow.Config.Tags,
		Connection: fr.flow.Config.Connection,
		Session:    fr.flow.Config.Session,
		StartTime:  time.Now(),
	}

	// A flow timeout bounds everything, lifecycle hooks included.
	if fr.flow.Config.Timeout > 0 {
		var cancel context.CancelFunc
		fr.ctx, cancel = context.WithTimeout(fr.ctx, time.Duration(fr.flow.Config.Timeout)*time.Millisecond)
		defer cancel()
	}

	fr.script = NewScriptEngine()
	defer fr.script.Close()

	fr.script.ImportSystemEnv()
	if fr.flow.SourcePath != "" {
		fr.script.SetFlowDir(filepath.Dir(fr.flow.SourcePath))
	}
	fr.script.SetPlatform(fr.config.Platform)
	fr.script.SetVariables(fr.flow.Config.Env)
	fr.script.BindWindow(fr.window)

	if fr.config.OnFlowStart != nil {
		fr.config.OnFlowStart(fr.flowIdx, fr.totalFlows, result.Name, filepath.Base(fr.flow.SourcePath))
	}

	// onFlowComplete hooks run even when the flow fails. Their results
	// are intentionally not recorded.
	defer func() {
		for _, step := range fr.flow.Config.OnFlowComplete {
			fr.executeNestedStep(step)
		}
	}()

	if fr.flow.Config.Transaction != "" {
		if err := fr.window.StartTransaction(fr.flow.Config.Transaction); err != nil {
			result.Status = statusForError(err)
			result.Error = err.Error()
			result.Message = fmt.Sprintf("Transaction %s could not be started", fr.flow.Config.Transaction)
			return fr.finish(&result)
		}
	}

	for _, step := range fr.flow.Config.OnFlowStart {
		sr := fr.executeNestedStep(step)
		if !sr.Status.IsSuccess() && sr.Status != core.StatusSkipped {
			result.Status = sr.Status
			result.Error = sr.Error
			result.Message = "onFlowStart hook failed"
			return fr.finish(&result)
		}
	}

	for i := 0; i < len(fr.flow.Steps); i++ {
		if err := fr.ctx.Err(); err != nil {
			result.Steps = append(result.Steps, fr.skipRemaining(i)...)
			if errors.Is(err, context.DeadlineExceeded) {
				result.Status = core.StatusFailed
				result.Error = err.Error()
				result.Message = "Flow timeout exceeded"
			} else {
				result.Status = core.StatusSkipped
				result.Message = "Execution cancelled"
			}
			break
		}

		step := fr.flow.Steps[i]
		sr := fr.executeStep(i, step)
		result.Steps = append(result.Steps, sr)

		if !sr.Status.IsSuccess() && sr.Status != core.StatusSkipped {
			result.Steps = append(result.Steps, fr.skipRemaining(i+1)...)
			result.Error = sr.Error
			result.Message = fmt.Sprintf("Step %d (%s) %s", i+1, sr.Command, sr.Status)
			break
		}
	}

	if result.Status == core.StatusPending {
		result.Status = result.AggregateStatus()
	}
	return fr.finish(&result)
}

// finish stamps summary and duration and fires the flow end callback.
func (fr *FlowRunner) finish(result *core.FlowResult) core.FlowResult {
	result.ComputeSummary()
	result.Duration = time.Since(result.StartTime)
	if fr.config.OnFlowEnd != nil {
		fr.config.OnFlowEnd(result.Name, result.Status.IsSuccess(), result.Duration)
	}
	return *result
}

// flowName returns the display name of the flow.
func (fr *FlowRunner) flowName() string {
	return flowNameFromPath(&fr.flow)
}

// executeStep runs one top-level step, capturing artifacts and firing the
// step callback.
func (fr *FlowRunner) executeStep(idx int, step flow.Step) core.StepResult {
	sr := fr.runStep(step)
	sr.Index = idx

	fr.captureArtifacts(&sr)

	if fr.config.OnStepComplete != nil {
		fr.config.OnStepComplete(idx, step.Describe(), sr.Status, sr.Duration, sr.Error)
	}
	return sr
}

// executeNestedStep runs a step inside a compound step or lifecycle hook.
func (fr *FlowRunner) executeNestedStep(step flow.Step) core.StepResult {
	sr := fr.runStep(step)

	if fr.config.OnNestedStep != nil && fr.depth > 0 {
		fr.config.OnNestedStep(fr.depth, step.Describe(), sr.Status, sr.Duration, sr.Error)
	}
	return sr
}

// runStep executes a single step of any kind and produces its result.
func (fr *FlowRunner) runStep(step flow.Step) core.StepResult {
	fr.seq++
	sr := core.StepResult{
		Step:        step,
		Command:     string(step.Type()),
		Status:      core.StatusRunning,
		StartTime:   time.Now(),
		Attempt:     1,
		MaxAttempts: 1,
	}

	fr.script.ExpandStep(step)

	switch s := step.(type) {
	case *flow.RepeatStep:
		fr.executeRepeat(s, &sr)
	case *flow.RetryStep:
		fr.executeRetry(s, &sr)
	case *flow.RunFlowStep:
		fr.executeRunFlow(s, &sr)
	default:
		finishStep(&sr, fr.dispatch(step))
	}

	// Optional steps never block the flow.
	if step.IsOptional() && (sr.Status == core.StatusFailed || sr.Status == core.StatusErrored) {
		sr.Status = core.StatusWarned
	}

	sr.Duration = time.Since(sr.StartTime)
	return sr
}

// skipRemaining marks the steps from the given index on as skipped.
func (fr *FlowRunner) skipRemaining(from int) []core.StepResult {
	skipped := make([]core.StepResult, 0, len(fr.flow.Steps)-from)
	for i := from; i < len(fr.flow.Steps); i++ {
		step := fr.flow.Steps[i]
		skipped = append(skipped, core.StepResult{
			Step:      step,
			Index:     i,
			Command:   string(step.Type()),
			Status:    core.StatusSkipped,
			StartTime: time.Now(),
		})
	}
	return skipped
}

// executeRepeat runs the nested steps a fixed number of times or while a
// condition holds.
func (fr *FlowRunner) executeRepeat(step *flow.RepeatStep, sr *core.StepResult) {
	hasWhile := step.While.Exists != nil || step.While.NotExists != nil || step.While.Script != ""

	times := fr.script.ParseInt(step.Times, 1)
	if step.Times == "" && hasWhile {
		times = maxWhileIterations
	}
	if times <= 0 {
		times = maxWhileIterations
	}

	iterations := 0
	for i := 0; i < times; i++ {
		if err := fr.ctx.Err(); err != nil {
			failStep(sr, err, "Repeat cancelled")
			return
		}

		if hasWhile && !fr.script.CheckCondition(fr.ctx, step.While, fr.window) {
			break
		}

		iterations++
		for _, nested := range step.Steps {
			child := fr.executeNestedStep(nested)
			sr.Iterations = append(sr.Iterations, child)
			if !child.Status.IsSuccess() && child.Status != core.StatusSkipped {
				sr.Status = child.Status
				sr.Category = child.Category
				sr.Error = child.Error
				sr.Message = fmt.Sprintf("Repeat failed in iteration %d", iterations)
				return
			}
		}
	}

	sr.Status = core.StatusPassed
	sr.Message = fmt.Sprintf("Repeat completed (%d iteration(s))", iterations)
}

// executeRetry retries its nested steps (or a flow file) until they pass.
func (fr *FlowRunner) executeRetry(step *flow.RetryStep, sr *core.StepResult) {
	maxAttempts := fr.script.ParseInt(step.MaxAttempts, DefaultRetryAttempts)
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryAttempts
	}
	sr.MaxAttempts = maxAttempts

	restore := fr.script.withEnvVars(step.Env)
	defer restore()

	// A file retries the whole sub-flow; inline steps retry in place.
	if step.File != "" && len(step.Steps) == 0 {
		fr.retryFile(step, sr, maxAttempts)
		return
	}

	var last *core.StepResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sr.Attempt = attempt
		if err := fr.ctx.Err(); err != nil {
			failStep(sr, err, "Retry cancelled")
			return
		}

		var failed *core.StepResult
		for _, nested := range step.Steps {
			child := fr.executeNestedStep(nested)
			sr.Iterations = append(sr.Iterations, child)
			if !child.Status.IsSuccess() && child.Status != core.StatusSkipped {
				failed = &child
				break
			}
		}

		if failed == nil {
			sr.Status = core.StatusPassed
			sr.Flaky = attempt > 1
			sr.Message = fmt.Sprintf("Retry succeeded on attempt %d", attempt)
			return
		}
		sr.RetryErrors = append(sr.RetryErrors, failed.Error)
		last = failed
	}

	sr.Status = last.Status
	sr.Category = last.Category
	sr.Error = last.Error
	sr.Message = fmt.Sprintf("Retry failed after %d attempt(s)", maxAttempts)
}

// retryFile retries a flow file as a whole.
func (fr *FlowRunner) retryFile(step *flow.RetryStep, sr *core.StepResult, maxAttempts int) {
	subFlow, err := flow.ParseFile(fr.script.ResolvePath(step.File))
	if err != nil {
		failStep(sr, core.ErrInvalidConfig.WithCause(err).WithMessage("retry flow file could not be parsed"),
			fmt.Sprintf("Cannot parse flow file %s", step.File))
		return
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sr.Attempt = attempt
		if err := fr.ctx.Err(); err != nil {
			failStep(sr, err, "Retry cancelled")
			return
		}

		sub := fr.executeSubFlow(subFlow)
		sr.SubFlowResult = sub
		if sub.Status.IsSuccess() {
			sr.Status = core.StatusPassed
			sr.Flaky = attempt > 1
			sr.Message = fmt.Sprintf("Retry succeeded on attempt %d", attempt)
			return
		}
		sr.RetryErrors = append(sr.RetryErrors, sub.Error)
	}

	sr.Status = core.StatusFailed
	if sub := sr.SubFlowResult; sub != nil {
		sr.Error = sub.Error
	}
	sr.Message = fmt.Sprintf("Retry failed after %d attempt(s)", maxAttempts)
}

// executeRunFlow runs another flow, either inline steps or a file.
func (fr *FlowRunner) executeRunFlow(step *flow.RunFlowStep, sr *core.StepResult) {
	if step.When != nil && !fr.script.CheckCondition(fr.ctx, *step.When, fr.window) {
		sr.Status = core.StatusSkipped
		sr.Message = "Skipped (when condition not met)"
		return
	}

	fr.depth++
	defer func() { fr.depth-- }()

	restore := fr.script.withEnvVars(step.Env)
	defer restore()

	if len(step.Steps) > 0 {
		for _, nested := range step.Steps {
			child := fr.executeNestedStep(nested)
			sr.Iterations = append(sr.Iterations, child)
			if !child.Status.IsSuccess() && child.Status != core.StatusSkipped {
				sr.Status = child.Status
				sr.Category = child.Category
				sr.Error = child.Error
				sr.Message = "Inline flow failed"
				return
			}
		}
		sr.Status = core.StatusPassed
		sr.Message = "Inline flow completed"
		return
	}

	if step.File == "" {
		failStep(sr, core.ErrMissingRequired.WithMessage("runFlow requires a file or inline steps"),
			"runFlow requires a file or inline steps")
		return
	}

	subFlow, err := flow.ParseFile(fr.script.ResolvePath(step.File))
	if err != nil {
		failStep(sr, core.ErrInvalidConfig.WithCause(err).WithMessage("flow file could not be parsed"),
			fmt.Sprintf("Cannot parse flow file %s", step.File))
		return
	}

	sub := fr.executeSubFlow(subFlow)
	sr.SubFlowResult = sub
	if sub.Status.IsSuccess() {
		sr.Status = core.StatusPassed
		sr.Message = fmt.Sprintf("Sub-flow %s completed", sub.Name)
		return
	}
	sr.Status = sub.Status
	sr.Error = sub.Error
	sr.Message = fmt.Sprintf("Sub-flow %s %s", sub.Name, sub.Status)
}

// executeSubFlow runs a parsed flow inline, sharing the window, variables
// and script state of the parent.
func (fr *FlowRunner) executeSubFlow(subFlow *flow.Flow) *core.FlowResult {
	sub := &core.FlowResult{
		Name:      flowNameFromPath(subFlow),
		FilePath:  subFlow.SourcePath,
		Tags:      subFlow.Config.Tags,
		StartTime: time.Now(),
	}

	// Relative paths inside the sub-flow resolve against its own directory.
	prevDir := fr.script.flowDir
	if subFlow.SourcePath != "" {
		fr.script.SetFlowDir(filepath.Dir(subFlow.SourcePath))
	}
	defer func() { fr.script.flowDir = prevDir }()

	restore := fr.script.withEnvVars(subFlow.Config.Env)
	defer restore()

	for i, step := range subFlow.Steps {
		if fr.ctx.Err() != nil {
			sub.Status = core.StatusSkipped
			sub.Message = "Sub-flow cancelled"
			break
		}

		child := fr.executeNestedStep(step)
		child.Index = i
		sub.Steps = append(sub.Steps, child)
		if !child.Status.IsSuccess() && child.Status != core.StatusSkipped {
			sub.Error = child.Error
			break
		}
	}

	sub.ComputeSummary()
	if sub.Status == core.StatusPending {
		sub.Status = sub.AggregateStatus()
	}
	sub.Duration = time.Since(sub.StartTime)
	return sub
}

// captureArtifacts saves a screenshot (and an element dump on failure)
// when the artifact mode asks for them. Capture failures never affect the
// step outcome.
func (fr *FlowRunner) captureArtifacts(sr *core.StepResult) {
	failed := sr.Status == core.StatusFailed || sr.Status == core.StatusErrored || sr.Status == core.StatusWarned

	switch fr.config.Artifacts {
	case ArtifactNever:
		return
	case ArtifactOnFailure:
		if !failed {
			return
		}
	}

	if path := fr.layout.ScreenshotPath(fr.flowName(), fr.seq); fr.window.Screenshot(path) == nil {
		sr.Artifacts = append(sr.Artifacts, path)
	}
	if failed {
		if path := fr.layout.DumpPath(fr.flowName(), fr.seq, "yaml"); fr.window.DumpElements(path, "yaml") == nil {
			sr.Artifacts = append(sr.Artifacts, path)
		}
	}
}
