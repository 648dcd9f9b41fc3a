package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestAutomationErrorMessage(t *testing.T) {
	err := &AutomationError{
		Category: ErrCategoryNotFound,
		Code:     "element_not_found",
		Message:  "element not found",
	}

	if got := err.Error(); got != "element not found" {
		t.Errorf("Error() = %q, want %q", got, "element not found")
	}

	withCause := err.WithCause(fmt.Errorf("COM call failed"))
	if got := withCause.Error(); got != "element not found: COM call failed" {
		t.Errorf("Error() with cause = %q", got)
	}
}

func TestAutomationErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := ErrSourceUnavailable.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	var autoErr *AutomationError
	if !errors.As(err, &autoErr) {
		t.Fatal("errors.As should find AutomationError")
	}
	if autoErr.Code != "source_unavailable" {
		t.Errorf("code = %q, want source_unavailable", autoErr.Code)
	}
}

func TestAutomationErrorCopySemantics(t *testing.T) {
	base := ErrElementNotFound

	modified := base.WithMessage("no field matched locator")
	if base.Message == modified.Message {
		t.Error("WithMessage must not mutate the original")
	}
	if modified.Code != base.Code || modified.Category != base.Category {
		t.Error("WithMessage must preserve code and category")
	}
}

func TestAutomationErrorWithDetails(t *testing.T) {
	err := ErrElementNotFound.WithDetails(map[string]interface{}{"locator": "User"})
	err = err.WithDetails(map[string]interface{}{"types": "GuiButton"})

	if err.Details["locator"] != "User" {
		t.Errorf("details[locator] = %v, want User", err.Details["locator"])
	}
	if err.Details["types"] != "GuiButton" {
		t.Errorf("details[types] = %v, want GuiButton", err.Details["types"])
	}
	if len(ErrElementNotFound.Details) != 0 {
		t.Error("WithDetails must not mutate the predefined error")
	}
}

func TestPredefinedErrorCategories(t *testing.T) {
	tests := []struct {
		err  *AutomationError
		want ErrorCategory
	}{
		{ErrInvalidLocator, ErrCategorySyntax},
		{ErrElementNotFound, ErrCategoryNotFound},
		{ErrSourceUnavailable, ErrCategorySource},
		{ErrAttachFailed, ErrCategoryAttach},
		{ErrStatusBarTimeout, ErrCategoryStatusBar},
		{ErrTransactionFailed, ErrCategoryTransaction},
		{ErrInvalidConfig, ErrCategoryConfig},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if tt.err.Category != tt.want {
				t.Errorf("category = %v, want %v", tt.err.Category, tt.want)
			}
		})
	}
}
