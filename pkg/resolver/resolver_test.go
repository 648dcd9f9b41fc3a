package resolver

import (
	"testing"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/locator"
)

func set(elements ...core.ElementSnapshot) *core.SnapshotSet {
	return &core.SnapshotSet{WindowKey: "test", Elements: elements}
}

func el(id, typ, text string, left, top, width, height int) core.ElementSnapshot {
	return core.ElementSnapshot{
		ID:       id,
		Type:     typ,
		Text:     text,
		Position: core.Position{Left: left, Top: top, Width: width, Height: height},
	}
}

func TestResolveContent(t *testing.T) {
	r := New(Config{})
	s := set(
		el("lbl", "GuiLabel", "Save", 0, 0, 40, 10),
		el("btn1", "GuiButton", "Save", 50, 0, 40, 10),
		el("btn2", "GuiButton", "Save", 100, 0, 40, 10),
	)

	got, ok := r.Resolve(s, locator.Content{Value: "Save"}, nil)
	if !ok {
		t.Fatal("content locator should resolve")
	}
	if got.ID != "btn1" {
		t.Errorf("got %q, want btn1 (first target-typed match in scan order)", got.ID)
	}
}

func TestResolveContentByTooltip(t *testing.T) {
	r := New(Config{})
	s := set(core.ElementSnapshot{
		ID: "btn", Type: "GuiButton", Tooltip: "Execute (F8)",
		Position: core.Position{Left: 10, Top: 10, Width: 20, Height: 20},
	})

	got, ok := r.Resolve(s, locator.Content{Value: "Execute (F8)"}, nil)
	if !ok || got.ID != "btn" {
		t.Errorf("tooltip content match failed: got %v, %v", got.ID, ok)
	}
}

func TestResolveContentIgnoresNonTargets(t *testing.T) {
	r := New(Config{})
	s := set(el("lbl", "GuiLabel", "Save", 0, 0, 40, 10))

	if _, ok := r.Resolve(s, locator.Content{Value: "Save"}, nil); ok {
		t.Error("label should not resolve as content target with default types")
	}
	if got, ok := r.Resolve(s, locator.Content{Value: "Save"}, []string{"GuiLabel"}); !ok || got.ID != "lbl" {
		t.Error("explicit target types should include the label")
	}
}

func TestResolveHLabelPicksClosest(t *testing.T) {
	r := New(Config{})
	s := set(
		el("lbl", "GuiLabel", "User", 0, 0, 50, 10),
		el("far", "GuiTextField", "", 200, 0, 100, 10),
		el("near", "GuiTextField", "", 60, 0, 100, 10),
	)

	got, ok := r.Resolve(s, locator.HLabel{Label: "User"}, nil)
	if !ok {
		t.Fatal("hLabel should resolve")
	}
	if got.ID != "near" {
		t.Errorf("got %q, want near (Left=60 beats Left=200)", got.ID)
	}
}

func TestResolveHLabelTieGoesToScanOrder(t *testing.T) {
	r := New(Config{})
	s := set(
		el("lbl", "GuiLabel", "User", 0, 0, 50, 10),
		el("first", "GuiTextField", "", 60, 0, 100, 10),
		el("second", "GuiCTextField", "", 60, 2, 100, 10),
	)

	got, ok := r.Resolve(s, locator.HLabel{Label: "User"}, nil)
	if !ok || got.ID != "first" {
		t.Errorf("got %q, want first (equal gap resolves by scan order)", got.ID)
	}
}

func TestResolveHLabelAnchorPreference(t *testing.T) {
	r := New(Config{})
	// A button carries the same text earlier in scan order, but label
	// types are preferred for anchoring.
	s := set(
		el("btn", "GuiButton", "User", 0, 100, 50, 10),
		el("lbl", "GuiLabel", "User", 0, 0, 50, 10),
		el("fieldAtLabel", "GuiTextField", "", 60, 0, 100, 10),
		el("fieldAtButton", "GuiTextField", "", 60, 100, 100, 10),
	)

	got, ok := r.Resolve(s, locator.HLabel{Label: "User"}, nil)
	if !ok || got.ID != "fieldAtLabel" {
		t.Errorf("got %q, want fieldAtLabel (label-typed anchor wins)", got.ID)
	}
}

func TestResolveHLabelAnchorFallback(t *testing.T) {
	r := New(Config{})
	// No label-typed element matches; any element with the text anchors.
	s := set(
		el("btn", "GuiButton", "Docs", 0, 0, 50, 10),
		el("field", "GuiTextField", "", 60, 0, 100, 10),
	)

	got, ok := r.Resolve(s, locator.HLabel{Label: "Docs"}, nil)
	if !ok || got.ID != "field" {
		t.Errorf("got %q, want field via fallback anchor", got.ID)
	}
}

func TestResolveHLabelSkipsAnchorItself(t *testing.T) {
	r := New(Config{})
	// Zero-width anchor in the target set: without the identity guard it
	// would qualify as right of itself at gap zero.
	s := set(
		el("anchor", "GuiTextField", "Ref", 50, 0, 0, 10),
		el("field", "GuiTextField", "", 60, 0, 100, 10),
	)

	got, ok := r.Resolve(s, locator.HLabel{Label: "Ref"}, nil)
	if !ok || got.ID != "field" {
		t.Errorf("got %q, want field (anchor must not match itself)", got.ID)
	}
}

func TestResolveHLabelNoAnchor(t *testing.T) {
	r := New(Config{})
	s := set(el("field", "GuiTextField", "", 60, 0, 100, 10))

	if _, ok := r.Resolve(s, locator.HLabel{Label: "Missing"}, nil); ok {
		t.Error("missing anchor must resolve to absence")
	}
}

func TestResolveHLabelIgnoresMisaligned(t *testing.T) {
	r := New(Config{})
	s := set(
		el("lbl", "GuiLabel", "User", 0, 0, 50, 10),
		el("otherRow", "GuiTextField", "", 60, 40, 100, 10),
	)

	if _, ok := r.Resolve(s, locator.HLabel{Label: "User"}, nil); ok {
		t.Error("field on a different row must not resolve")
	}
}

func TestResolveVLabelPicksClosest(t *testing.T) {
	r := New(Config{})
	s := set(
		el("lbl", "GuiLabel", "Amount", 0, 0, 50, 10),
		el("far", "GuiTextField", "", 0, 100, 50, 10),
		el("near", "GuiTextField", "", 0, 20, 50, 10),
	)

	got, ok := r.Resolve(s, locator.VLabel{Label: "Amount"}, nil)
	if !ok {
		t.Fatal("vLabel should resolve")
	}
	if got.ID != "near" {
		t.Errorf("got %q, want near (Top=20 beats Top=100)", got.ID)
	}
}

func TestResolveVLabelRequiresColumnAlignment(t *testing.T) {
	r := New(Config{})
	s := set(
		el("lbl", "GuiLabel", "Amount", 0, 0, 50, 10),
		el("offColumn", "GuiTextField", "", 200, 20, 50, 10),
	)

	if _, ok := r.Resolve(s, locator.VLabel{Label: "Amount"}, nil); ok {
		t.Error("field in another column must not resolve")
	}
}

func TestResolveHLabelVLabelIntersection(t *testing.T) {
	r := New(Config{})
	s := set(
		el("rate", "GuiLabel", "Rate", 0, 100, 40, 10),
		el("amount", "GuiLabel", "Amount", 100, 0, 60, 10),
		el("hit", "GuiTextField", "", 100, 100, 60, 10),
		el("sameRow", "GuiTextField", "", 200, 100, 60, 10),
		el("sameColumn", "GuiTextField", "", 100, 200, 60, 10),
	)

	got, ok := r.Resolve(s, locator.HLabelVLabel{HLabel: "Rate", VLabel: "Amount"}, nil)
	if !ok {
		t.Fatal("intersection should resolve")
	}
	if got.ID != "hit" {
		t.Errorf("got %q, want hit (must satisfy both relations)", got.ID)
	}
}

func TestResolveHLabelVLabelMinimizesGapSum(t *testing.T) {
	r := New(Config{})
	// Tall row label keeps two stacked fields horizontally aligned; the
	// one with the smaller combined axis distance wins.
	s := set(
		el("rate", "GuiLabel", "Rate", 0, 100, 40, 30),
		el("amount", "GuiLabel", "Amount", 100, 0, 60, 10),
		el("lower", "GuiTextField", "", 100, 115, 60, 10),
		el("upper", "GuiTextField", "", 100, 100, 60, 10),
	)

	got, ok := r.Resolve(s, locator.HLabelVLabel{HLabel: "Rate", VLabel: "Amount"}, nil)
	if !ok || got.ID != "upper" {
		t.Errorf("got %q, want upper (smaller gap sum)", got.ID)
	}
}

func TestResolveHLabelVLabelTieBreaksOnHorizontalGap(t *testing.T) {
	r := New(Config{})
	// Both candidates score hGap+vGap = 165; the smaller horizontal gap
	// must win even though the other comes first in scan order.
	s := set(
		el("rate", "GuiLabel", "Rate", 0, 100, 40, 30),
		el("amount", "GuiLabel", "Amount", 100, 0, 60, 10),
		el("wideGap", "GuiTextField", "", 115, 100, 60, 10),
		el("narrowGap", "GuiTextField", "", 100, 115, 60, 10),
	)

	got, ok := r.Resolve(s, locator.HLabelVLabel{HLabel: "Rate", VLabel: "Amount"}, nil)
	if !ok || got.ID != "narrowGap" {
		t.Errorf("got %q, want narrowGap (tie breaks on horizontal gap)", got.ID)
	}
}

func TestResolveHLabelVLabelMissingAnchor(t *testing.T) {
	r := New(Config{})
	s := set(
		el("rate", "GuiLabel", "Rate", 0, 100, 40, 10),
		el("field", "GuiTextField", "", 100, 100, 60, 10),
	)

	if _, ok := r.Resolve(s, locator.HLabelVLabel{HLabel: "Rate", VLabel: "Amount"}, nil); ok {
		t.Error("missing column anchor must resolve to absence")
	}
}

func TestResolveHLabelHLabelPicksClosest(t *testing.T) {
	r := New(Config{})
	s := set(
		el("from", "GuiLabel", "From", 0, 0, 40, 10),
		el("farTo", "GuiTextField", "To", 300, 0, 60, 10),
		el("nearTo", "GuiTextField", "To", 50, 0, 60, 10),
	)

	got, ok := r.Resolve(s, locator.HLabelHLabel{LeftAnchor: "From", RightAnchor: "To"}, nil)
	if !ok {
		t.Fatal("hLabel>>hLabel should resolve")
	}
	if got.ID != "nearTo" {
		t.Errorf("got %q, want nearTo (Left=50 beats Left=300)", got.ID)
	}
}

func TestResolveHLabelHLabelAnchorByTooltip(t *testing.T) {
	r := New(Config{})
	s := set(
		core.ElementSnapshot{
			ID: "fromBtn", Type: "GuiButton", Tooltip: "From",
			Position: core.Position{Left: 0, Top: 0, Width: 40, Height: 10},
		},
		core.ElementSnapshot{
			ID: "toField", Type: "GuiTextField", Tooltip: "To",
			Position: core.Position{Left: 50, Top: 0, Width: 60, Height: 10},
		},
	)

	got, ok := r.Resolve(s, locator.HLabelHLabel{LeftAnchor: "From", RightAnchor: "To"}, nil)
	if !ok || got.ID != "toField" {
		t.Errorf("got %q, want toField (tooltip matches on both sides)", got.ID)
	}
}

func TestResolveHLabelHLabelMissingLeftAnchor(t *testing.T) {
	r := New(Config{})
	s := set(el("toField", "GuiTextField", "To", 50, 0, 60, 10))

	if _, ok := r.Resolve(s, locator.HLabelHLabel{LeftAnchor: "From", RightAnchor: "To"}, nil); ok {
		t.Error("missing left anchor must resolve to absence")
	}
}

func TestResolveEmptySet(t *testing.T) {
	r := New(Config{})
	if _, ok := r.Resolve(nil, locator.HLabel{Label: "User"}, nil); ok {
		t.Error("nil set must resolve to absence")
	}
	if _, ok := r.Resolve(set(), locator.HLabel{Label: "User"}, nil); ok {
		t.Error("empty set must resolve to absence")
	}
}

func TestResolveAlignFraction(t *testing.T) {
	// Overlap of 4 out of 10: included at fraction 0.3, excluded at 0.9
	// (the centers fall outside each other's spans).
	anchor := el("lbl", "GuiLabel", "User", 0, 0, 50, 10)
	field := el("field", "GuiTextField", "", 60, 6, 100, 10)

	loose := New(Config{AlignFraction: 0.3})
	if _, ok := loose.Resolve(set(anchor, field), locator.HLabel{Label: "User"}, nil); !ok {
		t.Error("fraction 0.3 should accept 40% overlap")
	}

	strict := New(Config{AlignFraction: 0.9})
	if _, ok := strict.Resolve(set(anchor, field), locator.HLabel{Label: "User"}, nil); ok {
		t.Error("fraction 0.9 should reject 40% overlap")
	}
}

func TestResolveCustomDefaultTargetTypes(t *testing.T) {
	r := New(Config{TargetTypes: []string{"GuiCustomControl"}})
	s := set(
		el("lbl", "GuiLabel", "User", 0, 0, 50, 10),
		el("std", "GuiTextField", "", 60, 0, 100, 10),
		el("custom", "GuiCustomControl", "", 170, 0, 100, 10),
	)

	got, ok := r.Resolve(s, locator.HLabel{Label: "User"}, nil)
	if !ok || got.ID != "custom" {
		t.Errorf("got %q, want custom (configured default types)", got.ID)
	}
}
