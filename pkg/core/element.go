// Package core provides the element model and execution types for sapwiz-runner.
package core

// ElementSnapshot is one UI element captured during a window scan.
// Snapshots are immutable once captured; the ID is an opaque scripting path
// that stays valid only while the captured screen is still the active one.
type ElementSnapshot struct {
	ID         string   `json:"id" yaml:"id"`
	Type       string   `json:"type" yaml:"type"`
	Text       string   `json:"text,omitempty" yaml:"text,omitempty"`
	Tooltip    string   `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Position   Position `json:"position" yaml:"position"`
	Changeable bool     `json:"changeable,omitempty" yaml:"changeable,omitempty"`
}

// SnapshotSet is the ordered result of scanning one window. The order is
// scan order and is significant: resolution ties break toward earlier
// elements. All elements belong to the screen identified by WindowKey.
type SnapshotSet struct {
	WindowKey string            `json:"windowKey" yaml:"windowKey"`
	Elements  []ElementSnapshot `json:"elements" yaml:"elements"`
}

// Len returns the number of captured elements.
func (s *SnapshotSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Elements)
}
