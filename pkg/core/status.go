package core

// StepStatus represents the execution status of a step
type StepStatus int

const (
	StatusPending StepStatus = iota // Not yet started
	StatusRunning                   // Currently executing
	StatusPassed                    // Completed successfully
	StatusFailed                    // Assertion failed (expected behavior didn't occur)
	StatusErrored                   // Unexpected error (attach lost, scripting failure)
	StatusSkipped                   // Condition not met or previous step failed
	StatusWarned                    // Optional step failed (non-blocking)
)

var statusNames = [...]string{
	StatusPending: "pending",
	StatusRunning: "running",
	StatusPassed:  "passed",
	StatusFailed:  "failed",
	StatusErrored: "errored",
	StatusSkipped: "skipped",
	StatusWarned:  "warned",
}

func (s StepStatus) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// IsTerminal reports whether the status is a final state.
func (s StepStatus) IsTerminal() bool {
	return s != StatusPending && s != StatusRunning
}

// IsSuccess reports whether the status counts as a pass. Warned steps do:
// the failure was in an optional step.
func (s StepStatus) IsSuccess() bool {
	return s == StatusPassed || s == StatusWarned
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone        ErrorCategory = iota // No error
	ErrCategorySyntax                           // Locator could not be parsed
	ErrCategoryNotFound                         // Element or menu entry not found
	ErrCategorySource                           // Element source unreachable (window gone, COM failure)
	ErrCategoryProperty                         // Property read or write failed
	ErrCategoryAction                           // Action not valid for the element
	ErrCategoryAttach                           // Session attach or scripting interface failure
	ErrCategoryStatusBar                        // Status bar assertion failed
	ErrCategoryTransaction                      // Transaction could not be started or ended
	ErrCategoryTimeout                          // Operation timed out
	ErrCategoryConfig                           // Invalid configuration, missing required field
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategorySyntax:
		return "syntax"
	case ErrCategoryNotFound:
		return "not_found"
	case ErrCategorySource:
		return "source"
	case ErrCategoryProperty:
		return "property"
	case ErrCategoryAction:
		return "action"
	case ErrCategoryAttach:
		return "attach"
	case ErrCategoryStatusBar:
		return "statusbar"
	case ErrCategoryTransaction:
		return "transaction"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
