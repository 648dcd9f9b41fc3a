// Package flow handles parsing and representation of sapwiz YAML flow files.
package flow

import (
	"strconv"
	"strings"
)

// StepType identifies a step kind by its YAML key.
type StepType string

// Step kinds, grouped by what they act on.
const (
	// Element actions
	StepPress       StepType = "press"
	StepWrite       StepType = "write"
	StepRead        StepType = "read"
	StepSelect      StepType = "select"
	StepSetCheckbox StepType = "setCheckbox"
	StepScroll      StepType = "scroll"

	// Assertions
	StepAssertExists     StepType = "assertExists"
	StepAssertNotExists  StepType = "assertNotExists"
	StepAssertChangeable StepType = "assertChangeable"
	StepAssertStatusBar  StepType = "assertStatusBar"
	StepAssertTrue       StepType = "assertTrue"

	// Status bar & keyboard
	StepReadStatusBar StepType = "readStatusBar"
	StepSendVKey      StepType = "sendVKey"
	StepNavigate      StepType = "navigate"

	// Transactions & menus
	StepStartTransaction StepType = "startTransaction"
	StepEndTransaction   StepType = "endTransaction"
	StepSelectMenu       StepType = "selectMenu"

	// Window
	StepMaximize     StepType = "maximize"
	StepScreenshot   StepType = "screenshot"
	StepDumpElements StepType = "dumpElements"

	// Waiting
	StepWait            StepType = "wait"
	StepWaitUntilExists StepType = "waitUntilExists"

	// Flow control & scripting
	StepRepeat          StepType = "repeat"
	StepRetry           StepType = "retry"
	StepRunFlow         StepType = "runFlow"
	StepRunScript       StepType = "runScript"
	StepEvalScript      StepType = "evalScript"
	StepDefineVariables StepType = "defineVariables"
)

// Step is what the executor dispatches on. Concrete step structs embed
// BaseStep and add their own fields.
type Step interface {
	Type() StepType
	IsOptional() bool
	Label() string
	Describe() string
}

// BaseStep holds the options every step accepts.
type BaseStep struct {
	StepType  StepType `yaml:"-"`
	Optional  bool     `yaml:"optional"` // Failures don't fail the flow
	StepLabel string   `yaml:"label"`    // Shown instead of the description
	TimeoutMs int      `yaml:"timeout"`
}

// Type returns the step kind.
func (b *BaseStep) Type() StepType { return b.StepType }

// IsOptional reports whether a failure should be tolerated.
func (b *BaseStep) IsOptional() bool { return b.Optional }

// Label returns the user-supplied label, if any.
func (b *BaseStep) Label() string { return b.StepLabel }

// Describe returns the step kind as a fallback description.
func (b *BaseStep) Describe() string { return string(b.StepType) }

// ============================================
// Element Action Steps
// ============================================

// PressStep presses a button or tab.
type PressStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
}

// WriteStep writes text into an input field.
type WriteStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
	Text     string `yaml:"text"`
}

// ReadStep reads an element's text into a variable.
type ReadStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
	Into     string `yaml:"into"` // Variable name; empty stores only sapwiz.copiedText
}

// SelectStep selects a checkbox, radio button, tab or menu entry.
type SelectStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
}

// SetCheckboxStep sets a checkbox to a definite state.
type SetCheckboxStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
	Checked  bool   `yaml:"checked"`
}

// ScrollStep scrolls a scrollable element to a vertical position.
type ScrollStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
	Position int    `yaml:"position"`
}

// ============================================
// Assertion Steps
// ============================================

// AssertExistsStep asserts an element resolves on the current screen.
type AssertExistsStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
}

// AssertNotExistsStep asserts an element does not resolve.
type AssertNotExistsStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
}

// AssertChangeableStep asserts an element is editable.
type AssertChangeableStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
}

// AssertStatusBarStep asserts the status bar shows a message of a kind.
type AssertStatusBarStep struct {
	BaseStep `yaml:",inline"`
	Kind     string `yaml:"kind"`     // S, W, E, A or I
	Contains string `yaml:"contains"` // Substring the message must contain
}

// AssertTrueStep asserts a JavaScript condition.
type AssertTrueStep struct {
	BaseStep `yaml:",inline"`
	Script   string `yaml:"condition"`
}

// Condition represents a test condition.
type Condition struct {
	Exists    *Target `yaml:"exists"`
	NotExists *Target `yaml:"notExists"`
	Script    string  `yaml:"scriptCondition"`
}

// ============================================
// Status Bar & Keyboard Steps
// ============================================

// ReadStatusBarStep reads the status bar into a variable.
type ReadStatusBarStep struct {
	BaseStep `yaml:",inline"`
	Into     string `yaml:"into"`
}

// SendVKeyStep sends a virtual key code to the active window.
type SendVKeyStep struct {
	BaseStep `yaml:",inline"`
	Code     int `yaml:"code"`
}

// NavigateStep sends a named navigation key (enter, back, end, cancel, save).
type NavigateStep struct {
	BaseStep `yaml:",inline"`
	Action   string `yaml:"action"`
}

// ============================================
// Transaction & Menu Steps
// ============================================

// StartTransactionStep starts a transaction by code.
type StartTransactionStep struct {
	BaseStep `yaml:",inline"`
	Code     string `yaml:"code"`
}

// EndTransactionStep ends the current transaction.
type EndTransactionStep struct {
	BaseStep `yaml:",inline"`
}

// SelectMenuStep selects a menu entry by its text path.
type SelectMenuStep struct {
	BaseStep `yaml:",inline"`
	Path     []string `yaml:"path"`
}

// ============================================
// Window Steps
// ============================================

// MaximizeStep maximizes the active window.
type MaximizeStep struct {
	BaseStep `yaml:",inline"`
}

// ScreenshotStep captures the active window to a file.
type ScreenshotStep struct {
	BaseStep `yaml:",inline"`
	Path     string `yaml:"path"`
}

// DumpElementsStep writes the current screen snapshot to a file.
type DumpElementsStep struct {
	BaseStep `yaml:",inline"`
	Path     string `yaml:"path"`
	Format   string `yaml:"format"` // yaml or json
}

// ============================================
// Waiting Steps
// ============================================

// WaitStep pauses the flow.
type WaitStep struct {
	BaseStep `yaml:",inline"`
	Ms       int `yaml:"ms"`
}

// WaitUntilExistsStep polls until an element resolves.
type WaitUntilExistsStep struct {
	BaseStep `yaml:",inline"`
	Target   Target `yaml:"target"`
}

// ============================================
// Flow Control & Scripting Steps
// ============================================

// RepeatStep repeats steps.
type RepeatStep struct {
	BaseStep `yaml:",inline"`
	Times    string    `yaml:"times"` // String for variable support
	While    Condition `yaml:"while"`
	Steps    []Step    `yaml:"-"`
}

// RetryStep retries steps on failure.
type RetryStep struct {
	BaseStep    `yaml:",inline"`
	MaxAttempts string            `yaml:"maxAttempts"` // String for variable support
	Steps       []Step            `yaml:"-"`
	File        string            `yaml:"file"`
	Env         map[string]string `yaml:"env"`
}

// RunFlowStep runs another flow.
type RunFlowStep struct {
	BaseStep `yaml:",inline"`
	File     string            `yaml:"file"`
	Steps    []Step            `yaml:"-"` // Inline steps
	When     *Condition        `yaml:"when"`
	Env      map[string]string `yaml:"env"`
}

// RunScriptStep runs a JavaScript file or inline script.
type RunScriptStep struct {
	BaseStep `yaml:",inline"`
	Script   string            `yaml:"script"` // Script content or filename (string form)
	File     string            `yaml:"file"`   // Script filename (map form)
	Env      map[string]string `yaml:"env"`
}

// ScriptPath returns the script path (either Script or File field).
func (s *RunScriptStep) ScriptPath() string {
	if s.File != "" {
		return s.File
	}
	return s.Script
}

// EvalScriptStep evaluates JavaScript inline.
type EvalScriptStep struct {
	BaseStep `yaml:",inline"`
	Script   string `yaml:"script"`
}

// DefineVariablesStep defines variables.
type DefineVariablesStep struct {
	BaseStep `yaml:",inline"`
	Env      map[string]string `yaml:"env"`
}

// UnsupportedStep represents an unsupported step.
type UnsupportedStep struct {
	BaseStep `yaml:",inline"`
	Reason   string
}

// Describe returns a description including the unsupported reason.
func (s *UnsupportedStep) Describe() string {
	return string(s.StepType) + " (unsupported: " + s.Reason + ")"
}

// ============================================
// Describe() implementations for detailed output
// ============================================

// Describe returns a human-readable description of the press step.
func (s *PressStep) Describe() string {
	return "press: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the write step.
func (s *WriteStep) Describe() string {
	return "write: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the read step.
func (s *ReadStep) Describe() string {
	return "read: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the select step.
func (s *SelectStep) Describe() string {
	return "select: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the set checkbox step.
func (s *SetCheckboxStep) Describe() string {
	if s.Checked {
		return "setCheckbox: " + s.Target.DescribeQuoted() + " checked"
	}
	return "setCheckbox: " + s.Target.DescribeQuoted() + " unchecked"
}

// Describe returns a human-readable description of the assert exists step.
func (s *AssertExistsStep) Describe() string {
	return "assertExists: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the assert not exists step.
func (s *AssertNotExistsStep) Describe() string {
	return "assertNotExists: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the assert changeable step.
func (s *AssertChangeableStep) Describe() string {
	return "assertChangeable: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the assert status bar step.
func (s *AssertStatusBarStep) Describe() string {
	if s.Contains != "" {
		return "assertStatusBar: " + s.Kind + " containing \"" + s.Contains + "\""
	}
	return "assertStatusBar: " + s.Kind
}

// Describe returns a human-readable description of the send vkey step.
func (s *SendVKeyStep) Describe() string {
	return "sendVKey: " + strconv.Itoa(s.Code)
}

// Describe returns a human-readable description of the navigate step.
func (s *NavigateStep) Describe() string {
	return "navigate: " + s.Action
}

// Describe returns a human-readable description of the start transaction step.
func (s *StartTransactionStep) Describe() string {
	return "startTransaction: " + s.Code
}

// Describe returns a human-readable description of the select menu step.
func (s *SelectMenuStep) Describe() string {
	return "selectMenu: " + strings.Join(s.Path, " > ")
}

// Describe returns a human-readable description of the screenshot step.
func (s *ScreenshotStep) Describe() string {
	if s.Path != "" {
		return "screenshot: " + s.Path
	}
	return "screenshot"
}

// Describe returns a human-readable description of the wait step.
func (s *WaitStep) Describe() string {
	return "wait: " + strconv.Itoa(s.Ms) + "ms"
}

// Describe returns a human-readable description of the wait until exists step.
func (s *WaitUntilExistsStep) Describe() string {
	return "waitUntilExists: " + s.Target.DescribeQuoted()
}

// Describe returns a human-readable description of the run flow step.
func (s *RunFlowStep) Describe() string {
	if s.File != "" {
		return "runFlow: " + s.File
	}
	return "runFlow"
}
