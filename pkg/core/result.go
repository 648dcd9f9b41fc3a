package core

import (
	"time"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
)

// ActionResult is the outcome of a single window or scripting action.
type ActionResult struct {
	Success bool             // Whether the action succeeded
	Message string           // Human-readable explanation
	Error   error            // Underlying error, if any
	Element *ElementSnapshot // Element the action resolved to, if any
	Data    interface{}      // Action-specific data (read values, dump paths)
}

// StepResult records everything a single step execution produced.
type StepResult struct {
	// Identity
	Step    flow.Step `json:"-"`       // The step as parsed
	Index   int       `json:"index"`   // Position within the flow, from 0
	Command string    `json:"command"` // Command type: press, write, assertStatusBar, etc.

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Output
	Message string           `json:"message,omitempty"` // Human-readable explanation
	Element *ElementSnapshot `json:"element,omitempty"` // Element interacted with
	Data    interface{}      `json:"data,omitempty"`    // Command-specific data

	// Error Details
	Error string `json:"error,omitempty"` // Error text for the log and history

	// Retry Tracking
	Attempt     int      `json:"attempt"`               // Attempt number, from 1
	MaxAttempts int      `json:"maxAttempts"`           // Attempt ceiling from the retry step
	RetryErrors []string `json:"retryErrors,omitempty"` // What the earlier attempts failed with
	Flaky       bool     `json:"flaky,omitempty"`       // Passed, but needed a retry

	// Artifact paths (screenshots, element dumps) relative to the output dir
	Artifacts []string `json:"artifacts,omitempty"`

	// Nested step results
	SubFlowResult *FlowResult  `json:"subFlowResult,omitempty"` // Set by runFlow
	Iterations    []StepResult `json:"iterations,omitempty"`    // Set by repeat and retry
}

// FlowResult records the outcome of one flow, step by step.
type FlowResult struct {
	// Identity
	Name     string   `json:"name"`
	FilePath string   `json:"filePath"`
	Tags     []string `json:"tags,omitempty"`

	// Session the flow ran against (connection/session indexes)
	Connection int `json:"connection"`
	Session    int `json:"session"`

	// Aggregate of the step statuses
	Status StepStatus `json:"status"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Steps []StepResult `json:"steps"`

	// Counts filled in by ComputeSummary
	TotalSteps   int `json:"totalSteps"`
	PassedSteps  int `json:"passedSteps"`
	FailedSteps  int `json:"failedSteps"`
	SkippedSteps int `json:"skippedSteps"`
	WarnedSteps  int `json:"warnedSteps"`
	FlakySteps   int `json:"flakySteps,omitempty"` // Passed only after a retry

	// Set when the flow failed outright
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ComputeSummary recounts the per-status step totals. Call after the
// Steps slice is final.
func (f *FlowResult) ComputeSummary() {
	f.TotalSteps = len(f.Steps)
	f.PassedSteps, f.FailedSteps, f.SkippedSteps, f.WarnedSteps, f.FlakySteps = 0, 0, 0, 0, 0

	for _, step := range f.Steps {
		switch step.Status {
		case StatusPassed:
			f.PassedSteps++
		case StatusFailed, StatusErrored:
			f.FailedSteps++
		case StatusSkipped:
			f.SkippedSteps++
		case StatusWarned:
			f.WarnedSteps++
		}
		if step.Flaky {
			f.FlakySteps++
		}
	}
}

// AggregateStatus derives the flow status from its steps. Any failure
// fails the flow; warnings alone mark it warned.
func (f *FlowResult) AggregateStatus() StepStatus {
	status := StatusPassed
	for _, step := range f.Steps {
		switch step.Status {
		case StatusFailed, StatusErrored:
			return StatusFailed
		case StatusWarned:
			status = StatusWarned
		}
	}
	return status
}

// SuiteResult records the outcome of a whole run across flows.
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"` // Unique execution ID

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Flows []FlowResult `json:"flows"`

	// Summary
	TotalFlows   int `json:"totalFlows"`
	PassedFlows  int `json:"passedFlows"`
	FailedFlows  int `json:"failedFlows"`
	SkippedFlows int `json:"skippedFlows"`
	FlakyFlows   int `json:"flakyFlows,omitempty"` // Flows with flaky steps
}

// ComputeSummary recounts the per-status flow totals. Warned flows count
// as passed here; the per-flow status still records the distinction.
func (s *SuiteResult) ComputeSummary() {
	s.TotalFlows = len(s.Flows)
	s.PassedFlows, s.FailedFlows, s.SkippedFlows, s.FlakyFlows = 0, 0, 0, 0

	for _, fl := range s.Flows {
		switch fl.Status {
		case StatusPassed, StatusWarned:
			s.PassedFlows++
		case StatusFailed, StatusErrored:
			s.FailedFlows++
		case StatusSkipped:
			s.SkippedFlows++
		}
		if fl.FlakySteps > 0 {
			s.FlakyFlows++
		}
	}
}

// Success reports whether the run as a whole passed. An empty suite is
// not a success; it usually means no flows matched the filters.
func (s *SuiteResult) Success() bool {
	for _, fl := range s.Flows {
		if !fl.Status.IsSuccess() {
			return false
		}
	}
	return len(s.Flows) > 0
}
