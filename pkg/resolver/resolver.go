// Package resolver matches locator strategies against window snapshots.
//
// Resolution is purely geometric and textual: anchors are found by exact
// text match, candidates are filtered by directional predicates and ranked
// by axis distance. Distances are always measured along one axis, never as
// 2-D point distance. Absence is not an error at this layer.
package resolver

import (
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/locator"
)

// DefaultTargetTypes are the interactive element types a locator resolves
// to when the caller does not narrow the set.
var DefaultTargetTypes = []string{
	"GuiTextField",
	"GuiCTextField",
	"GuiPasswordField",
	"GuiComboBox",
	"GuiCheckBox",
	"GuiRadioButton",
	"GuiButton",
	"GuiTab",
}

// LabelTypes are tried first when looking up label anchors. Label elements
// are never resolution targets unless listed in the target types.
var LabelTypes = []string{"GuiLabel", "GuiTextField", "GuiCTextField"}

// DefaultAlignFraction is the minimum span-overlap fraction for the
// alignment predicates.
const DefaultAlignFraction = 0.5

// Config controls a Resolver.
type Config struct {
	AlignFraction float64  // Minimum span-overlap fraction; 0 means DefaultAlignFraction
	TargetTypes   []string // Default target types; nil means DefaultTargetTypes
}

// Resolver resolves strategies against snapshot sets.
type Resolver struct {
	alignFrac   float64
	targetTypes []string
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	frac := cfg.AlignFraction
	if frac <= 0 {
		frac = DefaultAlignFraction
	}
	types := cfg.TargetTypes
	if len(types) == 0 {
		types = DefaultTargetTypes
	}
	return &Resolver{alignFrac: frac, targetTypes: types}
}

// Resolve finds the element matching the strategy. A non-empty targetTypes
// replaces the resolver's default set for this call. When several elements
// qualify equally, the first in scan order wins.
func (r *Resolver) Resolve(set *core.SnapshotSet, strat locator.Strategy, targetTypes []string) (core.ElementSnapshot, bool) {
	if set == nil || set.Len() == 0 || strat == nil {
		return core.ElementSnapshot{}, false
	}
	types := targetTypes
	if len(types) == 0 {
		types = r.targetTypes
	}

	switch s := strat.(type) {
	case locator.Content:
		return r.byContent(set, s.Value, types)
	case locator.HLabel:
		return r.byHLabel(set, s.Label, types)
	case locator.VLabel:
		return r.byVLabel(set, s.Label, types)
	case locator.HLabelVLabel:
		return r.byHLabelVLabel(set, s.HLabel, s.VLabel, types)
	case locator.HLabelHLabel:
		return r.byHLabelHLabel(set, s.LeftAnchor, s.RightAnchor, types)
	default:
		return core.ElementSnapshot{}, false
	}
}

// byContent picks the first target-typed element whose text or tooltip
// equals the value. Scan order decides between duplicates.
func (r *Resolver) byContent(set *core.SnapshotSet, value string, types []string) (core.ElementSnapshot, bool) {
	for _, el := range set.Elements {
		if !hasType(types, el.Type) {
			continue
		}
		if el.Text == value || el.Tooltip == value {
			return el, true
		}
	}
	return core.ElementSnapshot{}, false
}

// byHLabel picks the target closest to the right of the label anchor.
func (r *Resolver) byHLabel(set *core.SnapshotSet, label string, types []string) (core.ElementSnapshot, bool) {
	anchor, ok := r.findLabel(set, label)
	if !ok {
		return core.ElementSnapshot{}, false
	}

	var best core.ElementSnapshot
	bestGap := 0
	found := false
	for _, el := range set.Elements {
		if el.ID == anchor.ID || !hasType(types, el.Type) {
			continue
		}
		if !el.Position.RightOf(anchor.Position) {
			continue
		}
		if !el.Position.HorizontallyAligned(anchor.Position, r.alignFrac) {
			continue
		}
		gap := el.Position.HorizontalGapTo(anchor.Position)
		if !found || gap < bestGap {
			best, bestGap, found = el, gap, true
		}
	}
	return best, found
}

// byVLabel picks the target closest below the label anchor.
func (r *Resolver) byVLabel(set *core.SnapshotSet, label string, types []string) (core.ElementSnapshot, bool) {
	anchor, ok := r.findLabel(set, label)
	if !ok {
		return core.ElementSnapshot{}, false
	}

	var best core.ElementSnapshot
	bestGap := 0
	found := false
	for _, el := range set.Elements {
		if el.ID == anchor.ID || !hasType(types, el.Type) {
			continue
		}
		if !el.Position.Below(anchor.Position) {
			continue
		}
		if !el.Position.VerticallyAligned(anchor.Position, r.alignFrac) {
			continue
		}
		gap := el.Position.VerticalGapTo(anchor.Position)
		if !found || gap < bestGap {
			best, bestGap, found = el, gap, true
		}
	}
	return best, found
}

// byHLabelVLabel intersects a row anchor and a column anchor. Candidates
// must satisfy both directional relations; the score is the sum of the two
// axis gaps, ties break on the horizontal gap, then scan order.
func (r *Resolver) byHLabelVLabel(set *core.SnapshotSet, hLabel, vLabel string, types []string) (core.ElementSnapshot, bool) {
	hAnchor, ok := r.findLabel(set, hLabel)
	if !ok {
		return core.ElementSnapshot{}, false
	}
	vAnchor, ok := r.findLabel(set, vLabel)
	if !ok {
		return core.ElementSnapshot{}, false
	}

	var best core.ElementSnapshot
	bestScore, bestHGap := 0, 0
	found := false
	for _, el := range set.Elements {
		if el.ID == hAnchor.ID || el.ID == vAnchor.ID || !hasType(types, el.Type) {
			continue
		}
		if !el.Position.RightOf(hAnchor.Position) ||
			!el.Position.HorizontallyAligned(hAnchor.Position, r.alignFrac) {
			continue
		}
		if !el.Position.Below(vAnchor.Position) ||
			!el.Position.VerticallyAligned(vAnchor.Position, r.alignFrac) {
			continue
		}
		hGap := el.Position.HorizontalGapTo(hAnchor.Position)
		vGap := el.Position.VerticalGapTo(vAnchor.Position)
		score := hGap + vGap
		if !found || score < bestScore || (score == bestScore && hGap < bestHGap) {
			best, bestScore, bestHGap, found = el, score, hGap, true
		}
	}
	return best, found
}

// byHLabelHLabel anchors on the first element whose text or tooltip equals
// the left anchor, then picks the closest target to its right whose own
// text or tooltip equals the right anchor.
func (r *Resolver) byHLabelHLabel(set *core.SnapshotSet, leftAnchor, rightAnchor string, types []string) (core.ElementSnapshot, bool) {
	anchor, ok := findByContent(set, leftAnchor)
	if !ok {
		return core.ElementSnapshot{}, false
	}

	var best core.ElementSnapshot
	bestGap := 0
	found := false
	for _, el := range set.Elements {
		if el.ID == anchor.ID || !hasType(types, el.Type) {
			continue
		}
		if el.Text != rightAnchor && el.Tooltip != rightAnchor {
			continue
		}
		if !el.Position.RightOf(anchor.Position) {
			continue
		}
		if !el.Position.HorizontallyAligned(anchor.Position, r.alignFrac) {
			continue
		}
		gap := el.Position.HorizontalGapTo(anchor.Position)
		if !found || gap < bestGap {
			best, bestGap, found = el, gap, true
		}
	}
	return best, found
}

// findLabel returns the first label-typed element with the exact text,
// falling back to the first element of any type. First match wins.
func (r *Resolver) findLabel(set *core.SnapshotSet, label string) (core.ElementSnapshot, bool) {
	for _, el := range set.Elements {
		if hasType(LabelTypes, el.Type) && el.Text == label {
			return el, true
		}
	}
	for _, el := range set.Elements {
		if el.Text == label {
			return el, true
		}
	}
	return core.ElementSnapshot{}, false
}

// findByContent returns the first element of any type whose text or
// tooltip equals the value.
func findByContent(set *core.SnapshotSet, value string) (core.ElementSnapshot, bool) {
	for _, el := range set.Elements {
		if el.Text == value || el.Tooltip == value {
			return el, true
		}
	}
	return core.ElementSnapshot{}, false
}

func hasType(types []string, typ string) bool {
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}
