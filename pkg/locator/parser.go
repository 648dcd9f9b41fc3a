package locator

import (
	"strings"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// Separators require the surrounding spaces, so text like an e-mail address
// stays a plain label.
const (
	sepLabels  = " @ "
	sepContent = " >> "
)

// Parse converts a locator string into a Strategy. Parsing is total and
// deterministic: every non-empty input maps to exactly one strategy, only
// an empty (or all-space) input is an error. Rules, in priority order:
//
//  1. Leading "=": Content, the value is everything after the "=".
//  2. Leading "@": VLabel of the trimmed remainder.
//  3. First " @ ": HLabelVLabel, both sides trimmed.
//  4. First " >> ": HLabelHLabel, both sides trimmed.
//  5. Otherwise: HLabel of the whole trimmed input.
func Parse(input string) (Strategy, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, core.ErrInvalidLocator.WithDetails(map[string]interface{}{
			"locator": input,
		})
	}

	if rest, ok := strings.CutPrefix(trimmed, "="); ok {
		return Content{Value: rest}, nil
	}

	if rest, ok := strings.CutPrefix(trimmed, "@"); ok {
		return VLabel{Label: strings.TrimSpace(rest)}, nil
	}

	if left, right, ok := strings.Cut(trimmed, sepLabels); ok {
		return HLabelVLabel{
			HLabel: strings.TrimSpace(left),
			VLabel: strings.TrimSpace(right),
		}, nil
	}

	if left, right, ok := strings.Cut(trimmed, sepContent); ok {
		return HLabelHLabel{
			LeftAnchor:  strings.TrimSpace(left),
			RightAnchor: strings.TrimSpace(right),
		}, nil
	}

	return HLabel{Label: trimmed}, nil
}
