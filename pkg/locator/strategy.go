// Package locator parses human-readable element locators into strategies.
//
// A locator names a target element by its content or by nearby label text:
//
//	=Save              element whose own text or tooltip is "Save"
//	User               element right of the label "User"
//	@ Amount           element below the label "Amount"
//	User @ Details     element right of "User" and below "Details"
//	From >> To         "To"-labeled element right of the "From" element
package locator

import "fmt"

// Kind identifies a strategy variant.
type Kind string

const (
	KindContent      Kind = "content"
	KindHLabel       Kind = "hLabel"
	KindVLabel       Kind = "vLabel"
	KindHLabelVLabel Kind = "hLabelVLabel"
	KindHLabelHLabel Kind = "hLabelHLabel"
)

// Strategy is one parsed locator. The set of implementations is closed;
// resolution dispatches on the concrete type in exactly one place.
type Strategy interface {
	Kind() Kind
	Describe() string
}

// Content matches an element by its own text or tooltip.
type Content struct {
	Value string
}

func (c Content) Kind() Kind { return KindContent }

func (c Content) Describe() string {
	return fmt.Sprintf("content %q", c.Value)
}

// HLabel matches the element right of a label on the same row.
type HLabel struct {
	Label string
}

func (h HLabel) Kind() Kind { return KindHLabel }

func (h HLabel) Describe() string {
	return fmt.Sprintf("right of %q", h.Label)
}

// VLabel matches the element below a label in the same column.
type VLabel struct {
	Label string
}

func (v VLabel) Kind() Kind { return KindVLabel }

func (v VLabel) Describe() string {
	return fmt.Sprintf("below %q", v.Label)
}

// HLabelVLabel matches the element at the intersection of a row label and a
// column label.
type HLabelVLabel struct {
	HLabel string
	VLabel string
}

func (hv HLabelVLabel) Kind() Kind { return KindHLabelVLabel }

func (hv HLabelVLabel) Describe() string {
	return fmt.Sprintf("right of %q and below %q", hv.HLabel, hv.VLabel)
}

// HLabelHLabel matches the element right of a left anchor whose own content
// equals the right anchor text.
type HLabelHLabel struct {
	LeftAnchor  string
	RightAnchor string
}

func (hh HLabelHLabel) Kind() Kind { return KindHLabelHLabel }

func (hh HLabelHLabel) Describe() string {
	return fmt.Sprintf("%q right of %q", hh.RightAnchor, hh.LeftAnchor)
}
