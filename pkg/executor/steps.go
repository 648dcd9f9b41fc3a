package executor

import (
	"fmt"
	"time"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/window"
)

// Polling defaults for waitUntilExists.
const (
	DefaultWaitTimeout  = 10 * time.Second
	DefaultWaitInterval = 250 * time.Millisecond
)

// dispatch routes a simple (non-compound) step to its handler.
//
//nolint:gocyclo // one switch over every step type keeps routing in a single place
func (fr *FlowRunner) dispatch(step flow.Step) *core.ActionResult {
	switch s := step.(type) {
	// Scripting steps, handled by the script engine
	case *flow.DefineVariablesStep:
		return fr.script.ExecuteDefineVariables(s)
	case *flow.RunScriptStep:
		return fr.script.ExecuteRunScript(s)
	case *flow.EvalScriptStep:
		return fr.script.ExecuteEvalScript(s)
	case *flow.AssertTrueStep:
		return fr.script.ExecuteAssertTrue(s)

	// Element actions
	case *flow.PressStep:
		return fr.executePress(s)
	case *flow.WriteStep:
		return fr.executeWrite(s)
	case *flow.ReadStep:
		return fr.executeRead(s)
	case *flow.SelectStep:
		return fr.executeSelect(s)
	case *flow.SetCheckboxStep:
		return fr.executeSetCheckbox(s)
	case *flow.ScrollStep:
		return fr.executeScroll(s)

	// Assertions
	case *flow.AssertExistsStep:
		return fr.executeAssertExists(s)
	case *flow.AssertNotExistsStep:
		return fr.executeAssertNotExists(s)
	case *flow.AssertChangeableStep:
		return fr.executeAssertChangeable(s)
	case *flow.AssertStatusBarStep:
		return fr.executeAssertStatusBar(s)

	// Status bar, keyboard, transactions, menus
	case *flow.ReadStatusBarStep:
		return fr.executeReadStatusBar(s)
	case *flow.SendVKeyStep:
		return fr.executeSendVKey(s)
	case *flow.NavigateStep:
		return fr.executeNavigate(s)
	case *flow.StartTransactionStep:
		return fr.executeStartTransaction(s)
	case *flow.EndTransactionStep:
		return fr.executeEndTransaction()
	case *flow.SelectMenuStep:
		return fr.executeSelectMenu(s)

	// Window
	case *flow.MaximizeStep:
		return fr.executeMaximize()
	case *flow.ScreenshotStep:
		return fr.executeScreenshot(s)
	case *flow.DumpElementsStep:
		return fr.executeDumpElements(s)

	// Waiting
	case *flow.WaitStep:
		return fr.executeWait(s)
	case *flow.WaitUntilExistsStep:
		return fr.executeWaitUntilExists(s)

	case *flow.UnsupportedStep:
		return &core.ActionResult{
			Success: false,
			Error:   core.ErrInvalidConfig.WithMessage(s.Describe()),
			Message: s.Describe(),
		}

	default:
		return &core.ActionResult{
			Success: false,
			Error: core.ErrInvalidConfig.WithMessage(
				fmt.Sprintf("no handler for step type %q", step.Type())),
			Message: fmt.Sprintf("No handler for step type %q", step.Type()),
		}
	}
}

func (fr *FlowRunner) executePress(s *flow.PressStep) *core.ActionResult {
	var err error
	if s.Target.ID != "" {
		err = fr.window.PressID(s.Target.ID)
	} else {
		err = fr.window.Press(s.Target.Locator, s.Target.Types...)
	}
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Press failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Pressed " + s.Target.Describe()}
}

func (fr *FlowRunner) executeWrite(s *flow.WriteStep) *core.ActionResult {
	var err error
	if s.Target.ID != "" {
		err = fr.window.WriteID(s.Target.ID, s.Text)
	} else {
		err = fr.window.Write(s.Target.Locator, s.Text, s.Target.Types...)
	}
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Write failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: fmt.Sprintf("Wrote %q into %s", s.Text, s.Target.Describe())}
}

// executeRead reads an element's text. The value always lands in
// sapwiz.copiedText; an into name stores it as a flow variable too.
func (fr *FlowRunner) executeRead(s *flow.ReadStep) *core.ActionResult {
	var (
		text string
		err  error
	)
	if s.Target.ID != "" {
		text, err = fr.window.ReadID(s.Target.ID)
	} else {
		text, err = fr.window.Read(s.Target.Locator, s.Target.Types...)
	}
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Read failed: %v", err)}
	}

	fr.script.SetCopiedText(text)
	if s.Into != "" {
		fr.script.SetVariable(s.Into, text)
	}

	return &core.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Read %q from %s", text, s.Target.Describe()),
		Data:    text,
	}
}

func (fr *FlowRunner) executeSelect(s *flow.SelectStep) *core.ActionResult {
	var err error
	if s.Target.ID != "" {
		err = fr.window.SelectID(s.Target.ID)
	} else {
		err = fr.window.Select(s.Target.Locator, s.Target.Types...)
	}
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Select failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Selected " + s.Target.Describe()}
}

func (fr *FlowRunner) executeSetCheckbox(s *flow.SetCheckboxStep) *core.ActionResult {
	var err error
	if s.Target.ID != "" {
		err = fr.window.SetCheckboxID(s.Target.ID, s.Checked)
	} else {
		err = fr.window.SetCheckbox(s.Target.Locator, s.Checked, s.Target.Types...)
	}
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("SetCheckbox failed: %v", err)}
	}
	state := "unchecked"
	if s.Checked {
		state = "checked"
	}
	return &core.ActionResult{Success: true, Message: fmt.Sprintf("Set %s %s", s.Target.Describe(), state)}
}

func (fr *FlowRunner) executeScroll(s *flow.ScrollStep) *core.ActionResult {
	var err error
	if s.Target.ID != "" {
		err = fr.window.ScrollVerticallyID(s.Target.ID, s.Position)
	} else {
		err = fr.window.ScrollVertically(s.Target.Locator, s.Position, s.Target.Types...)
	}
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Scroll failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: fmt.Sprintf("Scrolled %s to position %d", s.Target.Describe(), s.Position)}
}

func (fr *FlowRunner) executeAssertExists(s *flow.AssertExistsStep) *core.ActionResult {
	if s.Target.ID != "" {
		if !fr.window.ExistsID(s.Target.ID) {
			return &core.ActionResult{
				Success: false,
				Error:   core.ErrElementNotFound.WithDetails(map[string]interface{}{"id": s.Target.ID}),
				Message: fmt.Sprintf("Element %s not found", s.Target.Describe()),
			}
		}
		return &core.ActionResult{Success: true, Message: s.Target.Describe() + " exists"}
	}

	snap, err := fr.window.FindElement(s.Target.Locator, s.Target.Types...)
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Lookup failed: %v", err)}
	}
	if snap == nil {
		return &core.ActionResult{
			Success: false,
			Error:   core.ErrElementNotFound.WithDetails(map[string]interface{}{"locator": s.Target.Locator}),
			Message: fmt.Sprintf("Element %s not found", s.Target.Describe()),
		}
	}
	return &core.ActionResult{Success: true, Element: snap, Message: s.Target.Describe() + " exists"}
}

func (fr *FlowRunner) executeAssertNotExists(s *flow.AssertNotExistsStep) *core.ActionResult {
	present := &core.ActionResult{
		Success: false,
		Error: core.NewAutomationError(core.ErrCategoryAction, "element_present",
			fmt.Sprintf("element %s unexpectedly present", s.Target.Describe())),
		Message: fmt.Sprintf("Element %s unexpectedly present", s.Target.Describe()),
	}

	if s.Target.ID != "" {
		if fr.window.ExistsID(s.Target.ID) {
			return present
		}
		return &core.ActionResult{Success: true, Message: s.Target.Describe() + " is absent"}
	}

	snap, err := fr.window.FindElement(s.Target.Locator, s.Target.Types...)
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Lookup failed: %v", err)}
	}
	if snap != nil {
		present.Element = snap
		return present
	}
	return &core.ActionResult{Success: true, Message: s.Target.Describe() + " is absent"}
}

func (fr *FlowRunner) executeAssertChangeable(s *flow.AssertChangeableStep) *core.ActionResult {
	var (
		changeable bool
		err        error
	)
	if s.Target.ID != "" {
		changeable, err = fr.window.IsChangeableID(s.Target.ID)
	} else {
		changeable, err = fr.window.IsChangeable(s.Target.Locator, s.Target.Types...)
	}
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Lookup failed: %v", err)}
	}
	if !changeable {
		return &core.ActionResult{
			Success: false,
			Error: core.ErrElementNotChangeable.WithDetails(map[string]interface{}{
				"target": s.Target.Describe(),
			}),
			Message: fmt.Sprintf("Element %s is not changeable", s.Target.Describe()),
		}
	}
	return &core.ActionResult{Success: true, Message: s.Target.Describe() + " is changeable"}
}

func (fr *FlowRunner) executeAssertStatusBar(s *flow.AssertStatusBarStep) *core.ActionResult {
	timeout := time.Duration(s.TimeoutMs) * time.Millisecond
	if err := fr.window.AssertStatusBar(s.Kind, s.Contains, timeout, 0); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Status bar assertion failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Status bar matched " + s.Describe()}
}

// executeReadStatusBar reads the status bar. Like read, the message text
// lands in sapwiz.copiedText and optionally in a flow variable.
func (fr *FlowRunner) executeReadStatusBar(s *flow.ReadStatusBarStep) *core.ActionResult {
	sb, err := fr.window.ReadStatusBar()
	if err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Status bar read failed: %v", err)}
	}

	fr.script.SetCopiedText(sb.Text)
	if s.Into != "" {
		fr.script.SetVariable(s.Into, sb.Text)
	}

	return &core.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Status bar: [%s] %s", sb.Kind, sb.Text),
		Data:    map[string]string{"kind": sb.Kind, "text": sb.Text},
	}
}

func (fr *FlowRunner) executeSendVKey(s *flow.SendVKeyStep) *core.ActionResult {
	if err := fr.window.SendVKey(s.Code); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("SendVKey failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: fmt.Sprintf("Sent VKey %d", s.Code)}
}

func (fr *FlowRunner) executeNavigate(s *flow.NavigateStep) *core.ActionResult {
	if err := fr.window.Navigate(window.NavigateAction(s.Action)); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Navigate failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Navigated " + s.Action}
}

func (fr *FlowRunner) executeStartTransaction(s *flow.StartTransactionStep) *core.ActionResult {
	if err := fr.window.StartTransaction(s.Code); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Transaction %s failed: %v", s.Code, err)}
	}
	return &core.ActionResult{Success: true, Message: "Started transaction " + s.Code}
}

func (fr *FlowRunner) executeEndTransaction() *core.ActionResult {
	if err := fr.window.EndTransaction(); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("End transaction failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Ended transaction"}
}

func (fr *FlowRunner) executeSelectMenu(s *flow.SelectMenuStep) *core.ActionResult {
	if err := fr.window.SelectMenu(s.Path...); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Menu selection failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: s.Describe()}
}

func (fr *FlowRunner) executeMaximize() *core.ActionResult {
	if err := fr.window.Maximize(); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Maximize failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Window maximized"}
}

func (fr *FlowRunner) executeScreenshot(s *flow.ScreenshotStep) *core.ActionResult {
	path := s.Path
	if path == "" {
		path = fr.layout.ScreenshotPath(fr.flowName(), fr.seq)
	} else {
		path = fr.script.ResolvePath(path)
	}
	if err := fr.window.Screenshot(path); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Screenshot failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Screenshot saved to " + path, Data: path}
}

func (fr *FlowRunner) executeDumpElements(s *flow.DumpElementsStep) *core.ActionResult {
	path := s.Path
	if path == "" {
		path = fr.layout.DumpPath(fr.flowName(), fr.seq, s.Format)
	} else {
		path = fr.script.ResolvePath(path)
	}
	if err := fr.window.DumpElements(path, s.Format); err != nil {
		return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Element dump failed: %v", err)}
	}
	return &core.ActionResult{Success: true, Message: "Elements dumped to " + path, Data: path}
}

func (fr *FlowRunner) executeWait(s *flow.WaitStep) *core.ActionResult {
	ms := s.Ms
	if ms <= 0 {
		ms = 1000
	}

	select {
	case <-fr.ctx.Done():
		return &core.ActionResult{Success: false, Error: fr.ctx.Err(), Message: "Wait cancelled"}
	case <-time.After(time.Duration(ms) * time.Millisecond):
	}
	return &core.ActionResult{Success: true, Message: fmt.Sprintf("Waited %dms", ms)}
}

// executeWaitUntilExists polls for the target. The element engine never
// waits on its own, so the poll loop lives here.
func (fr *FlowRunner) executeWaitUntilExists(s *flow.WaitUntilExistsStep) *core.ActionResult {
	timeout := DefaultWaitTimeout
	if s.TimeoutMs > 0 {
		timeout = time.Duration(s.TimeoutMs) * time.Millisecond
	} else if s.Target.TimeoutMs > 0 {
		timeout = time.Duration(s.Target.TimeoutMs) * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := fr.ctx.Err(); err != nil {
			return &core.ActionResult{Success: false, Error: err, Message: "Wait cancelled"}
		}

		// New elements can appear without a window key change, so the
		// cached snapshot is dropped before every poll.
		fr.window.Invalidate()

		if s.Target.ID != "" {
			if fr.window.ExistsID(s.Target.ID) {
				return &core.ActionResult{Success: true, Message: s.Target.Describe() + " appeared"}
			}
		} else {
			snap, err := fr.window.FindElement(s.Target.Locator, s.Target.Types...)
			if err != nil {
				return &core.ActionResult{Success: false, Error: err, Message: fmt.Sprintf("Lookup failed: %v", err)}
			}
			if snap != nil {
				return &core.ActionResult{Success: true, Element: snap, Message: s.Target.Describe() + " appeared"}
			}
		}

		if time.Now().After(deadline) {
			return &core.ActionResult{
				Success: false,
				Error: core.ErrWaitTimeout.WithDetails(map[string]interface{}{
					"target":  s.Target.Describe(),
					"timeout": timeout.String(),
				}),
				Message: fmt.Sprintf("%s did not appear within %s", s.Target.Describe(), timeout),
			}
		}

		select {
		case <-fr.ctx.Done():
		case <-time.After(DefaultWaitInterval):
		}
	}
}
