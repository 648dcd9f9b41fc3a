// Package flow handles parsing and representation of sapwiz YAML flow files.
package flow

import "gopkg.in/yaml.v3"

// Target identifies the element a step operates on.
// Pure data structure - the executor decides how to resolve it.
type Target struct {
	// Locator is a locator expression resolved against the active window
	// ("Name", "Name @ Row", "Name @ >>GuiTextField", ...).
	Locator string `yaml:"locator"`

	// ID is a full backend element path ("wnd[0]/usr/txtRF02D-KUNNR").
	// When set it bypasses locator resolution entirely.
	ID string `yaml:"id"`

	// Types restricts the candidate element types for this step,
	// overriding the action's defaults.
	Types []string `yaml:"types"`

	// TimeoutMs bounds waiting steps operating on this target.
	TimeoutMs int `yaml:"timeoutMs"`
}

// targetRaw is used for YAML parsing so UnmarshalYAML can decode the
// mapping form without recursing into itself.
type targetRaw struct {
	Locator   string   `yaml:"locator"`
	ID        string   `yaml:"id"`
	Types     []string `yaml:"types"`
	TimeoutMs int      `yaml:"timeoutMs"`
}

// UnmarshalYAML allows Target to be unmarshaled from string or struct.
func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Locator = node.Value
		return nil
	}

	var raw targetRaw
	if err := node.Decode(&raw); err != nil {
		return err
	}

	t.Locator = raw.Locator
	t.ID = raw.ID
	t.Types = raw.Types
	t.TimeoutMs = raw.TimeoutMs
	return nil
}

// IsEmpty returns true if neither a locator nor an ID is set.
func (t *Target) IsEmpty() bool {
	return t.Locator == "" && t.ID == ""
}

// Describe returns a human-readable description.
func (t *Target) Describe() string {
	switch {
	case t.Locator != "":
		return t.Locator
	case t.ID != "":
		return "#" + t.ID
	default:
		return ""
	}
}

// DescribeQuoted returns a quoted description like locator="value" or id="value".
func (t *Target) DescribeQuoted() string {
	switch {
	case t.Locator != "":
		return "locator=\"" + t.Locator + "\""
	case t.ID != "":
		return "id=\"" + t.ID + "\""
	default:
		return ""
	}
}
