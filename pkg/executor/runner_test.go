package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/provider/mock"
)

// orderBackend builds an order entry screen with a menu bar, a status bar,
// two input rows, a checkbox and a save button.
func orderBackend() *mock.Backend {
	root := &mock.Node{
		ID: "wnd[0]", Type: "GuiMainWindow", Width: 800, Height: 600,
		Children: []*mock.Node{
			{
				ID: "wnd[0]/mbar", Type: "GuiMenubar", Width: 800, Height: 20,
				Children: []*mock.Node{
					{
						ID: "wnd[0]/mbar/menu[0]", Type: "GuiMenu", Text: "System",
						Children: []*mock.Node{
							{ID: "wnd[0]/mbar/menu[0]/menu[3]", Type: "GuiMenu", Text: "Log Off"},
						},
					},
				},
			},
			{
				ID: "wnd[0]/sbar", Type: "GuiStatusbar", Top: 580, Width: 800, Height: 20,
				Text:  "Order 4711 saved",
				Props: map[string]any{"messageType": "S"},
			},
			{ID: "wnd[0]/usr/lblOrder", Type: "GuiLabel", Text: "Order", Left: 10, Top: 40, Width: 60, Height: 12},
			{ID: "wnd[0]/usr/txtOrder", Type: "GuiTextField", Text: "4711", Left: 80, Top: 40, Width: 120, Height: 12, Changeable: true},
			{ID: "wnd[0]/usr/lblMaterial", Type: "GuiLabel", Text: "Material", Left: 10, Top: 60, Width: 60, Height: 12},
			{ID: "wnd[0]/usr/txtMaterial", Type: "GuiTextField", Left: 80, Top: 60, Width: 120, Height: 12, Changeable: true},
			{
				ID: "wnd[0]/usr/chkComplete", Type: "GuiCheckBox", Text: "Complete delivery",
				Left: 80, Top: 90, Width: 20, Height: 12, Changeable: true,
				Props: map[string]any{"selected": false},
			},
			{
				ID: "wnd[0]/tbar[1]/btnSave", Type: "GuiButton", Text: "Save", Tooltip: "Save (Ctrl+S)",
				Left: 80, Top: 120, Width: 60, Height: 16,
			},
		},
	}
	return mock.New(mock.Config{WindowKey: "wnd[0]:VA01", Windows: []*mock.Node{root}})
}

func newTestRunner(t *testing.T, b *mock.Backend) *Runner {
	t.Helper()
	return New(b, RunnerConfig{
		OutputDir: t.TempDir(),
		Platform:  "mock",
		Artifacts: ArtifactNever,
	})
}

// runFlow executes one flow and returns its result.
func runFlow(t *testing.T, b *mock.Backend, f *flow.Flow) core.FlowResult {
	t.Helper()
	suite, err := newTestRunner(t, b).Run(context.Background(), []*flow.Flow{f})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(suite.Flows) != 1 {
		t.Fatalf("got %d flow results, want 1", len(suite.Flows))
	}
	return suite.Flows[0]
}

func runSteps(t *testing.T, b *mock.Backend, steps ...flow.Step) core.FlowResult {
	t.Helper()
	return runFlow(t, b, &flow.Flow{Steps: steps})
}

func base(st flow.StepType) flow.BaseStep {
	return flow.BaseStep{StepType: st}
}

func hasCall(calls []string, want string) bool {
	for _, c := range calls {
		if c == want {
			return true
		}
	}
	return false
}

func countCalls(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}

func TestRunnerAllStepsPass(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b,
		&flow.WriteStep{BaseStep: base(flow.StepWrite), Target: flow.Target{Locator: "Order"}, Text: "9000"},
		&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		&flow.AssertStatusBarStep{BaseStep: base(flow.StepAssertStatusBar), Kind: "S", Contains: "saved"},
	)

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	if result.PassedSteps != 3 {
		t.Errorf("PassedSteps = %d, want 3", result.PassedSteps)
	}
	if got := b.Node("wnd[0]/usr/txtOrder").Text; got != "9000" {
		t.Errorf("order field = %q, want %q", got, "9000")
	}
	if !hasCall(b.Calls, "wnd[0]/tbar[1]/btnSave.press()") {
		t.Errorf("calls = %v, want press on btnSave", b.Calls)
	}
}

func TestRunnerStepFailureSkipsRest(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b,
		&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Nope"}},
		&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
	)

	if result.Status != core.StatusFailed {
		t.Fatalf("flow status = %v, want %v", result.Status, core.StatusFailed)
	}
	if got := result.Steps[0].Status; got != core.StatusFailed {
		t.Errorf("step 0 status = %v, want %v", got, core.StatusFailed)
	}
	if got := result.Steps[0].Category; got != core.ErrCategoryNotFound {
		t.Errorf("step 0 category = %v, want %v", got, core.ErrCategoryNotFound)
	}
	if got := result.Steps[1].Status; got != core.StatusSkipped {
		t.Errorf("step 1 status = %v, want %v", got, core.StatusSkipped)
	}
	if hasCall(b.Calls, "wnd[0]/tbar[1]/btnSave.press()") {
		t.Errorf("calls = %v, save must not run after a failure", b.Calls)
	}
}

func TestRunnerOptionalStepWarns(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b,
		&flow.PressStep{
			BaseStep: flow.BaseStep{StepType: flow.StepPress, Optional: true},
			Target:   flow.Target{Locator: "=Nope"},
		},
		&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
	)

	if result.Status != core.StatusWarned {
		t.Fatalf("flow status = %v, want %v", result.Status, core.StatusWarned)
	}
	if got := result.Steps[0].Status; got != core.StatusWarned {
		t.Errorf("step 0 status = %v, want %v", got, core.StatusWarned)
	}
	if got := result.Steps[1].Status; got != core.StatusPassed {
		t.Errorf("step 1 status = %v, want %v", got, core.StatusPassed)
	}
	if result.WarnedSteps != 1 {
		t.Errorf("WarnedSteps = %d, want 1", result.WarnedSteps)
	}
}

func TestRunnerReadFeedsVariables(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b,
		&flow.ReadStep{BaseStep: base(flow.StepRead), Target: flow.Target{Locator: "Order"}, Into: "ORDER_NO"},
		&flow.WriteStep{BaseStep: base(flow.StepWrite), Target: flow.Target{Locator: "Material"}, Text: "$ORDER_NO"},
	)

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	if got := b.Node("wnd[0]/usr/txtMaterial").Text; got != "4711" {
		t.Errorf("material field = %q, want %q", got, "4711")
	}
}

func TestRunnerRepeatTimes(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b, &flow.RepeatStep{
		BaseStep: base(flow.StepRepeat),
		Times:    "3",
		Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		},
	})

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	sr := result.Steps[0]
	if len(sr.Iterations) != 3 {
		t.Errorf("iterations = %d, want 3", len(sr.Iterations))
	}
	if got := countCalls(b.Calls, "wnd[0]/tbar[1]/btnSave.press()"); got != 3 {
		t.Errorf("press count = %d, want 3", got)
	}
	if want := "Repeat completed (3 iteration(s))"; sr.Message != want {
		t.Errorf("message = %q, want %q", sr.Message, want)
	}
}

func TestRunnerRepeatWhileCondition(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b,
		&flow.DefineVariablesStep{
			BaseStep: base(flow.StepDefineVariables),
			Env:      map[string]string{"counter": "0"},
		},
		&flow.RepeatStep{
			BaseStep: base(flow.StepRepeat),
			While:    flow.Condition{Script: "Number(counter) < 2"},
			Steps: []flow.Step{
				&flow.EvalScriptStep{BaseStep: base(flow.StepEvalScript), Script: "counter = Number(counter) + 1"},
			},
		},
	)

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	if got := len(result.Steps[1].Iterations); got != 2 {
		t.Errorf("iterations = %d, want 2", got)
	}
}

func TestRunnerRepeatFailsInIteration(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b, &flow.RepeatStep{
		BaseStep: base(flow.StepRepeat),
		Times:    "3",
		Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Nope"}},
		},
	})

	if result.Status != core.StatusFailed {
		t.Fatalf("flow status = %v, want %v", result.Status, core.StatusFailed)
	}
	sr := result.Steps[0]
	if want := "Repeat failed in iteration 1"; sr.Message != want {
		t.Errorf("message = %q, want %q", sr.Message, want)
	}
	if len(sr.Iterations) != 1 {
		t.Errorf("iterations = %d, want 1", len(sr.Iterations))
	}
}

func TestRunnerRetryFlaky(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b, &flow.RetryStep{
		BaseStep:    base(flow.StepRetry),
		MaxAttempts: "3",
		Steps: []flow.Step{
			&flow.EvalScriptStep{
				BaseStep: base(flow.StepEvalScript),
				Script:   "attempts = (typeof attempts === 'number' ? attempts : 0) + 1",
			},
			&flow.AssertTrueStep{BaseStep: base(flow.StepAssertTrue), Script: "attempts >= 2"},
		},
	})

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	sr := result.Steps[0]
	if !sr.Flaky {
		t.Error("Flaky = false, want true")
	}
	if sr.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", sr.Attempt)
	}
	if len(sr.RetryErrors) != 1 {
		t.Errorf("RetryErrors = %v, want one entry", sr.RetryErrors)
	}
	if result.FlakySteps != 1 {
		t.Errorf("FlakySteps = %d, want 1", result.FlakySteps)
	}
}

func TestRunnerRetryExhausted(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b, &flow.RetryStep{
		BaseStep:    base(flow.StepRetry),
		MaxAttempts: "2",
		Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Nope"}},
		},
	})

	if result.Status != core.StatusFailed {
		t.Fatalf("flow status = %v, want %v", result.Status, core.StatusFailed)
	}
	sr := result.Steps[0]
	if sr.MaxAttempts != 2 || sr.Attempt != 2 {
		t.Errorf("attempts = %d/%d, want 2/2", sr.Attempt, sr.MaxAttempts)
	}
	if len(sr.RetryErrors) != 2 {
		t.Errorf("RetryErrors = %v, want two entries", sr.RetryErrors)
	}
	if want := "Retry failed after 2 attempt(s)"; sr.Message != want {
		t.Errorf("message = %q, want %q", sr.Message, want)
	}
}

func TestRunnerRunFlowInline(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b, &flow.RunFlowStep{
		BaseStep: base(flow.StepRunFlow),
		When:     &flow.Condition{Exists: &flow.Target{ID: "wnd[0]/usr/txtOrder"}},
		Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		},
	})

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	sr := result.Steps[0]
	if len(sr.Iterations) != 1 {
		t.Errorf("iterations = %d, want 1", len(sr.Iterations))
	}
	if want := "Inline flow completed"; sr.Message != want {
		t.Errorf("message = %q, want %q", sr.Message, want)
	}
}

func TestRunnerRunFlowWhenNotMet(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b, &flow.RunFlowStep{
		BaseStep: base(flow.StepRunFlow),
		When:     &flow.Condition{Exists: &flow.Target{Locator: "=Nope"}},
		Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		},
	})

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v", result.Status, core.StatusPassed)
	}
	sr := result.Steps[0]
	if sr.Status != core.StatusSkipped {
		t.Errorf("step status = %v, want %v", sr.Status, core.StatusSkipped)
	}
	if hasCall(b.Calls, "wnd[0]/tbar[1]/btnSave.press()") {
		t.Errorf("calls = %v, inline steps must not run", b.Calls)
	}
}

func TestRunnerRunFlowFile(t *testing.T) {
	dir := t.TempDir()
	sub := "name: sub-save\n---\n- press: \"=Save\"\n"
	if err := os.WriteFile(filepath.Join(dir, "sub.yaml"), []byte(sub), 0644); err != nil {
		t.Fatal(err)
	}

	b := orderBackend()
	result := runFlow(t, b, &flow.Flow{
		SourcePath: filepath.Join(dir, "main.yaml"),
		Steps: []flow.Step{
			&flow.RunFlowStep{BaseStep: base(flow.StepRunFlow), File: "sub.yaml"},
		},
	})

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	sr := result.Steps[0]
	if sr.SubFlowResult == nil {
		t.Fatal("SubFlowResult = nil, want sub-flow result")
	}
	if got := sr.SubFlowResult.Name; got != "sub-save" {
		t.Errorf("sub-flow name = %q, want %q", got, "sub-save")
	}
	if !hasCall(b.Calls, "wnd[0]/tbar[1]/btnSave.press()") {
		t.Errorf("calls = %v, want press from the sub-flow", b.Calls)
	}
}

func TestRunnerRunFlowMissingFile(t *testing.T) {
	b := orderBackend()
	result := runSteps(t, b, &flow.RunFlowStep{BaseStep: base(flow.StepRunFlow)})

	if result.Status != core.StatusFailed {
		t.Fatalf("flow status = %v, want %v", result.Status, core.StatusFailed)
	}
	if got := result.Steps[0].Category; got != core.ErrCategoryConfig {
		t.Errorf("category = %v, want %v", got, core.ErrCategoryConfig)
	}
}

func TestRunnerFlowTimeout(t *testing.T) {
	b := orderBackend()
	result := runFlow(t, b, &flow.Flow{
		Config: flow.Config{Timeout: 50},
		Steps: []flow.Step{
			&flow.WaitStep{BaseStep: base(flow.StepWait), Ms: 5000},
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		},
	})

	if result.Status != core.StatusFailed {
		t.Fatalf("flow status = %v, want %v", result.Status, core.StatusFailed)
	}
	if got := result.Steps[0].Status; got != core.StatusErrored {
		t.Errorf("step 0 status = %v, want %v", got, core.StatusErrored)
	}
	if got := result.Steps[1].Status; got != core.StatusSkipped {
		t.Errorf("step 1 status = %v, want %v", got, core.StatusSkipped)
	}
}

func TestRunnerTransactionBootstrap(t *testing.T) {
	b := orderBackend()
	result := runFlow(t, b, &flow.Flow{
		Config: flow.Config{Transaction: "VA01"},
		Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		},
	})

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	if !hasCall(b.Calls, ".startTransaction(VA01)") {
		t.Errorf("calls = %v, want startTransaction", b.Calls)
	}
}

func TestRunnerLifecycleHooks(t *testing.T) {
	b := orderBackend()
	result := runFlow(t, b, &flow.Flow{
		Config: flow.Config{
			OnFlowStart: []flow.Step{
				&flow.WriteStep{BaseStep: base(flow.StepWrite), Target: flow.Target{Locator: "Order"}, Text: "INIT"},
			},
			OnFlowComplete: []flow.Step{
				&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
			},
		},
		Steps: []flow.Step{
			&flow.ReadStep{BaseStep: base(flow.StepRead), Target: flow.Target{Locator: "Order"}},
		},
	})

	if result.Status != core.StatusPassed {
		t.Fatalf("flow status = %v, want %v (error: %s)", result.Status, core.StatusPassed, result.Error)
	}
	if result.TotalSteps != 1 {
		t.Errorf("TotalSteps = %d, hook steps must not be counted", result.TotalSteps)
	}
	if got := b.Node("wnd[0]/usr/txtOrder").Text; got != "INIT" {
		t.Errorf("order field = %q, want %q from onFlowStart", got, "INIT")
	}
	if !hasCall(b.Calls, "wnd[0]/tbar[1]/btnSave.press()") {
		t.Errorf("calls = %v, want press from onFlowComplete", b.Calls)
	}
}

func TestRunnerCallbacks(t *testing.T) {
	var flowStarts, flowEnds, stepEvents []string

	b := orderBackend()
	r := New(b, RunnerConfig{
		OutputDir: t.TempDir(),
		Platform:  "mock",
		Artifacts: ArtifactNever,
		OnFlowStart: func(index, total int, name, file string) {
			flowStarts = append(flowStarts, fmt.Sprintf("%d/%d %s", index+1, total, name))
		},
		OnFlowEnd: func(name string, passed bool, _ time.Duration) {
			flowEnds = append(flowEnds, fmt.Sprintf("%s passed=%v", name, passed))
		},
		OnStepComplete: func(index int, description string, status core.StepStatus, _ time.Duration, _ string) {
			stepEvents = append(stepEvents, fmt.Sprintf("%d %s %s", index, description, status))
		},
	})

	f := &flow.Flow{
		Config: flow.Config{Name: "order-check"},
		Steps: []flow.Step{
			&flow.AssertExistsStep{BaseStep: base(flow.StepAssertExists), Target: flow.Target{Locator: "=Save"}},
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		},
	}
	if _, err := r.Run(context.Background(), []*flow.Flow{f}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(flowStarts) != 1 || flowStarts[0] != "1/1 order-check" {
		t.Errorf("flow starts = %v, want one 1/1 order-check", flowStarts)
	}
	if len(stepEvents) != 2 {
		t.Errorf("step events = %v, want two", stepEvents)
	}
	if len(flowEnds) != 1 || flowEnds[0] != "order-check passed=true" {
		t.Errorf("flow ends = %v, want one passing end", flowEnds)
	}
}

func TestRunnerStopOnFail(t *testing.T) {
	b := orderBackend()
	r := New(b, RunnerConfig{
		OutputDir:  t.TempDir(),
		Platform:   "mock",
		Artifacts:  ArtifactNever,
		StopOnFail: true,
	})

	flows := []*flow.Flow{
		{Config: flow.Config{Name: "bad"}, Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Nope"}},
		}},
		{Config: flow.Config{Name: "good"}, Steps: []flow.Step{
			&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		}},
	}
	suite, err := r.Run(context.Background(), flows)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if suite.FailedFlows != 1 || suite.SkippedFlows != 1 {
		t.Errorf("failed/skipped = %d/%d, want 1/1", suite.FailedFlows, suite.SkippedFlows)
	}
	if got := suite.Flows[1].Status; got != core.StatusSkipped {
		t.Errorf("second flow status = %v, want %v", got, core.StatusSkipped)
	}
	if suite.Success() {
		t.Error("Success() = true, want false")
	}
}

func TestRunnerWritesResults(t *testing.T) {
	b := orderBackend()
	r := newTestRunner(t, b)

	f := &flow.Flow{Steps: []flow.Step{
		&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
	}}
	if _, err := r.Run(context.Background(), []*flow.Flow{f}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(r.Layout().ResultsPath())
	if err != nil {
		t.Fatalf("results.json missing: %v", err)
	}
	var saved core.SuiteResult
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("results.json invalid: %v", err)
	}
	if saved.TotalFlows != 1 || saved.PassedFlows != 1 {
		t.Errorf("saved summary = %d/%d, want 1 total 1 passed", saved.TotalFlows, saved.PassedFlows)
	}
	if saved.RunID != r.RunID() {
		t.Errorf("saved run ID = %q, want %q", saved.RunID, r.RunID())
	}
}

func TestRunnerArtifactsOnFailure(t *testing.T) {
	b := orderBackend()
	r := New(b, RunnerConfig{
		OutputDir: t.TempDir(),
		Platform:  "mock",
		Artifacts: ArtifactOnFailure,
	})

	f := &flow.Flow{Config: flow.Config{Name: "order-entry"}, Steps: []flow.Step{
		&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
		&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Nope"}},
	}}
	suite, err := r.Run(context.Background(), []*flow.Flow{f})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	steps := suite.Flows[0].Steps
	if len(steps[0].Artifacts) != 0 {
		t.Errorf("passing step artifacts = %v, want none", steps[0].Artifacts)
	}
	if len(steps[1].Artifacts) != 2 {
		t.Fatalf("failing step artifacts = %v, want screenshot and dump", steps[1].Artifacts)
	}
	for _, path := range steps[1].Artifacts {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact %s missing: %v", path, err)
		}
	}
}

func TestParallelRunnerDistributesFlows(t *testing.T) {
	var mu sync.Mutex
	opens := 0

	open := func() (core.Backend, func(), error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return orderBackend(), func() {}, nil
	}
	workers := []SessionWorker{
		{ID: 0, Name: "ses[0]", Open: open},
		{ID: 1, Name: "ses[1]", Open: open},
	}

	pr := NewParallelRunner(workers, RunnerConfig{
		OutputDir: t.TempDir(),
		Platform:  "mock",
		Artifacts: ArtifactNever,
	})

	var flows []*flow.Flow
	for i := 0; i < 3; i++ {
		flows = append(flows, &flow.Flow{
			Config: flow.Config{Name: fmt.Sprintf("flow-%d", i)},
			Steps: []flow.Step{
				&flow.PressStep{BaseStep: base(flow.StepPress), Target: flow.Target{Locator: "=Save"}},
			},
		})
	}

	suite, err := pr.Run(context.Background(), flows)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if suite.PassedFlows != 3 {
		t.Errorf("PassedFlows = %d, want 3", suite.PassedFlows)
	}
	for i, fres := range suite.Flows {
		if want := fmt.Sprintf("flow-%d", i); fres.Name != want {
			t.Errorf("result %d name = %q, want %q (order must match input)", i, fres.Name, want)
		}
	}
	if opens != 2 {
		t.Errorf("session opens = %d, want 2", opens)
	}
}

func TestParallelRunnerNoWorkers(t *testing.T) {
	pr := NewParallelRunner(nil, RunnerConfig{OutputDir: t.TempDir()})
	_, err := pr.Run(context.Background(), []*flow.Flow{{}})
	if err == nil {
		t.Fatal("Run() error = nil, want invalid_config")
	}
	var autoErr *core.AutomationError
	if !errors.As(err, &autoErr) || autoErr.Code != "invalid_config" {
		t.Errorf("error = %v, want code invalid_config", err)
	}
}

func TestParallelRunnerAllWorkersFail(t *testing.T) {
	workers := []SessionWorker{{
		ID:   0,
		Open: func() (core.Backend, func(), error) { return nil, nil, errors.New("no session") },
	}}
	pr := NewParallelRunner(workers, RunnerConfig{
		OutputDir: t.TempDir(),
		Artifacts: ArtifactNever,
	})

	flows := []*flow.Flow{
		{Config: flow.Config{Name: "a"}},
		{Config: flow.Config{Name: "b"}},
	}
	suite, err := pr.Run(context.Background(), flows)
	if err == nil {
		t.Fatal("Run() error = nil, want attach_failed")
	}
	var autoErr *core.AutomationError
	if !errors.As(err, &autoErr) || autoErr.Code != "attach_failed" {
		t.Errorf("error = %v, want code attach_failed", err)
	}
	if suite.SkippedFlows != 2 {
		t.Errorf("SkippedFlows = %d, want 2", suite.SkippedFlows)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.StepStatus
	}{
		{"nil", nil, core.StatusFailed},
		{"plain error", errors.New("boom"), core.StatusErrored},
		{"not found", core.ErrElementNotFound, core.StatusFailed},
		{"status bar", core.ErrStatusBarTimeout, core.StatusFailed},
		{"attach", core.ErrAttachFailed, core.StatusErrored},
		{"source", core.ErrSourceUnavailable, core.StatusErrored},
		{"config", core.ErrInvalidConfig, core.StatusErrored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCategoryOf(t *testing.T) {
	if got := categoryOf(core.ErrElementNotFound); got != core.ErrCategoryNotFound {
		t.Errorf("categoryOf = %v, want %v", got, core.ErrCategoryNotFound)
	}
	if got := categoryOf(errors.New("boom")); got != core.ErrCategoryNone {
		t.Errorf("categoryOf = %v, want %v", got, core.ErrCategoryNone)
	}
}

func TestFlowNameFromPath(t *testing.T) {
	tests := []struct {
		name string
		flow flow.Flow
		want string
	}{
		{"configured name", flow.Flow{Config: flow.Config{Name: "logon"}}, "logon"},
		{"file fallback", flow.Flow{SourcePath: "flows/create-order.yaml"}, "create-order"},
		{"empty", flow.Flow{}, "flow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flowNameFromPath(&tt.flow); got != tt.want {
				t.Errorf("flowNameFromPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
