package executor

import (
	"errors"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// categoryOf extracts the error category from an error chain.
func categoryOf(err error) core.ErrorCategory {
	var autoErr *core.AutomationError
	if errors.As(err, &autoErr) {
		return autoErr.Category
	}
	return core.ErrCategoryNone
}

// statusForError maps an error to the step status it produces. Expected
// automation failures (element missing, assertion failed, timeout) fail
// the step; infrastructure breakage (attach lost, window gone, bad
// config) errors it. Anything outside the error taxonomy is treated as
// infrastructure breakage.
func statusForError(err error) core.StepStatus {
	if err == nil {
		return core.StatusFailed
	}
	var autoErr *core.AutomationError
	if !errors.As(err, &autoErr) {
		return core.StatusErrored
	}
	switch autoErr.Category {
	case core.ErrCategoryAttach, core.ErrCategorySource, core.ErrCategoryConfig:
		return core.StatusErrored
	default:
		return core.StatusFailed
	}
}

// finishStep folds an action result into the step result.
func finishStep(sr *core.StepResult, res *core.ActionResult) {
	sr.Message = res.Message
	sr.Element = res.Element
	sr.Data = res.Data
	if res.Success {
		sr.Status = core.StatusPassed
		return
	}
	sr.Status = statusForError(res.Error)
	sr.Category = categoryOf(res.Error)
	if res.Error != nil {
		sr.Error = res.Error.Error()
	}
}

// failStep marks a step result failed with the given error and message.
func failStep(sr *core.StepResult, err error, message string) {
	sr.Status = statusForError(err)
	sr.Category = categoryOf(err)
	if err != nil {
		sr.Error = err.Error()
	}
	sr.Message = message
}
