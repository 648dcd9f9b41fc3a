package core

// Property names understood by Provider.GetProperty. Every scripting tree
// node answers these; individual reads may still fail per property.
const (
	PropType       = "type"
	PropText       = "text"
	PropTooltip    = "tooltip"
	PropLeft       = "left"
	PropTop        = "top"
	PropWidth      = "width"
	PropHeight     = "height"
	PropName       = "name"
	PropChangeable = "changeable"
)

// Provider is the read-only view of a GUI scripting tree. Implementations
// wrap the live automation interface (COM bridge, in-memory mock).
type Provider interface {
	// ActiveWindowKey returns an opaque token identifying the currently
	// active screen. The token changes whenever the screen changes.
	ActiveWindowKey() (string, error)

	// RootHandle returns the handle of the window with the given index.
	RootHandle(windowIndex int) (string, error)

	// EnumerateChildren lists the direct children of a node, in tree order.
	EnumerateChildren(id string) ([]string, error)

	// GetProperty reads a single property of a node. Reads fail per
	// property; the caller decides what a failure means.
	GetProperty(id, name string) (any, error)
}

// Actuator is the write side of a scripting tree: property mutation and
// method invocation. An empty id addresses the session object itself;
// dotted property names (verticalScrollbar.position) traverse sub-objects.
type Actuator interface {
	SetProperty(id, name string, value any) error
	Call(id, method string, args ...any) (any, error)
}

// Backend is what the action layer drives: one attached session exposing
// both the readable tree and the mutation surface.
type Backend interface {
	Provider
	Actuator
}
