package core

import (
	"fmt"
)

// AutomationError represents a structured error with category and details
type AutomationError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, attach_failed, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *AutomationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AutomationError) Unwrap() error {
	return e.Cause
}

func (e *AutomationError) clone() *AutomationError {
	dup := *e
	return &dup
}

// WithCause returns a copy of the error carrying cause, leaving the
// predefined errors below untouched.
func (e *AutomationError) WithCause(cause error) *AutomationError {
	dup := e.clone()
	dup.Cause = cause
	return dup
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AutomationError) WithMessage(msg string) *AutomationError {
	dup := e.clone()
	dup.Message = msg
	return dup
}

// WithDetails returns a copy of the error with details merged in.
func (e *AutomationError) WithDetails(details map[string]interface{}) *AutomationError {
	merged := make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	dup := e.clone()
	dup.Details = merged
	return dup
}

// Predefined errors mirroring the scripting interface failure modes
var (
	// Locator errors
	ErrInvalidLocator = &AutomationError{
		Category: ErrCategorySyntax,
		Code:     "invalid_locator",
		Message:  "invalid locator syntax",
	}

	// Lookup errors
	ErrElementNotFound = &AutomationError{
		Category: ErrCategoryNotFound,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrMenuNotFound = &AutomationError{
		Category: ErrCategoryNotFound,
		Code:     "menu_not_found",
		Message:  "menu entry not found",
	}

	// Source errors
	ErrSourceUnavailable = &AutomationError{
		Category: ErrCategorySource,
		Code:     "source_unavailable",
		Message:  "element source unavailable",
	}
	ErrPropertyUnavailable = &AutomationError{
		Category: ErrCategoryProperty,
		Code:     "property_unavailable",
		Message:  "property could not be read",
	}

	// Action errors
	ErrInvalidElementType = &AutomationError{
		Category: ErrCategoryAction,
		Code:     "invalid_element_type",
		Message:  "element type does not support this action",
	}
	ErrElementNotChangeable = &AutomationError{
		Category: ErrCategoryAction,
		Code:     "element_not_changeable",
		Message:  "element is not changeable",
	}

	// Session errors
	ErrAttachFailed = &AutomationError{
		Category: ErrCategoryAttach,
		Code:     "attach_failed",
		Message:  "could not attach to scripting session",
	}
	ErrScriptingDisabled = &AutomationError{
		Category: ErrCategoryAttach,
		Code:     "scripting_disabled",
		Message:  "scripting interface is not available",
	}

	// Status bar errors
	ErrStatusBarTimeout = &AutomationError{
		Category: ErrCategoryStatusBar,
		Code:     "statusbar_timeout",
		Message:  "status bar did not show the expected message",
	}

	// Transaction errors
	ErrTransactionFailed = &AutomationError{
		Category: ErrCategoryTransaction,
		Code:     "transaction_failed",
		Message:  "transaction could not be started",
	}

	// Timeout errors
	ErrTimeout = &AutomationError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}
	ErrWaitTimeout = &AutomationError{
		Category: ErrCategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}

	// Config errors
	ErrInvalidConfig = &AutomationError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &AutomationError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}
)

// NewAutomationError creates a new AutomationError with the given parameters
func NewAutomationError(category ErrorCategory, code, message string) *AutomationError {
	return &AutomationError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
