// Package mock provides an in-memory Backend for tests and dry runs.
//
// The simulated session is a scripted element tree. Tests mutate it
// directly through node pointers and flip the active window key to
// simulate screen changes.
package mock

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// Node is one element of the simulated tree.
type Node struct {
	ID         string
	Type       string
	Text       string
	Tooltip    string
	Name       string
	Left       int
	Top        int
	Width      int
	Height     int
	Changeable bool
	Children   []*Node

	// FailProps lists property names whose reads fail for this node.
	FailProps []string

	// Props holds extra properties (selected, messageType, scrollbar
	// positions) read and written outside the scan set.
	Props map[string]any
}

// Config controls the simulated session.
type Config struct {
	WindowKey  string  // Initial active window key
	Windows    []*Node // Root node per window index
	FailOnCall string  // Method name whose Call invocations fail
	KeyErr     error   // When set, ActiveWindowKey fails with this error

	// OnCall, when set, is consulted first for every Call invocation.
	// Returning true makes Call return the given value. The handler runs
	// under the backend lock and must not call back into the Backend.
	OnCall func(id, method string, args []any) (any, bool)
}

// Backend is an in-memory core.Backend over a scripted element tree.
type Backend struct {
	mu         sync.Mutex
	windowKey  string
	windows    []*Node
	nodes      map[string]*Node
	failOnCall string
	keyErr     error
	onCall     func(id, method string, args []any) (any, bool)

	// Counters and call logs for test assertions.
	KeyReads       int
	RootCalls      int
	EnumerateCalls int
	PropertyReads  int
	Calls          []string
	SetCalls       []string
}

// New creates a Backend from the scripted tree.
func New(cfg Config) *Backend {
	b := &Backend{
		windowKey:  cfg.WindowKey,
		windows:    cfg.Windows,
		nodes:      make(map[string]*Node),
		failOnCall: cfg.FailOnCall,
		keyErr:     cfg.KeyErr,
		onCall:     cfg.OnCall,
	}
	if b.windowKey == "" {
		b.windowKey = "wnd[0]:init"
	}
	for _, root := range cfg.Windows {
		b.index(root)
	}
	return b
}

func (b *Backend) index(n *Node) {
	if n == nil {
		return
	}
	b.nodes[n.ID] = n
	for _, child := range n.Children {
		b.index(child)
	}
}

// SetWindowKey simulates a screen change.
func (b *Backend) SetWindowKey(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowKey = key
}

// Node returns the node with the given ID for direct test mutation.
func (b *Backend) Node(id string) *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nodes[id]
}

// AddNode inserts a node under the given parent and indexes it.
func (b *Backend) AddNode(parentID string, n *Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	parent, ok := b.nodes[parentID]
	if !ok {
		return fmt.Errorf("mock: unknown node %s", parentID)
	}
	parent.Children = append(parent.Children, n)
	b.index(n)
	return nil
}

// ActiveWindowKey implements core.Provider.
func (b *Backend) ActiveWindowKey() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.KeyReads++
	if b.keyErr != nil {
		return "", b.keyErr
	}
	return b.windowKey, nil
}

// RootHandle implements core.Provider.
func (b *Backend) RootHandle(windowIndex int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RootCalls++
	if windowIndex < 0 || windowIndex >= len(b.windows) || b.windows[windowIndex] == nil {
		return "", fmt.Errorf("mock: no window with index %d", windowIndex)
	}
	return b.windows[windowIndex].ID, nil
}

// EnumerateChildren implements core.Provider.
func (b *Backend) EnumerateChildren(id string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.EnumerateCalls++
	n, ok := b.nodes[id]
	if !ok {
		return nil, fmt.Errorf("mock: unknown node %s", id)
	}
	ids := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		ids = append(ids, child.ID)
	}
	return ids, nil
}

// GetProperty implements core.Provider.
func (b *Backend) GetProperty(id, name string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PropertyReads++
	n, ok := b.nodes[id]
	if !ok {
		return nil, fmt.Errorf("mock: unknown node %s", id)
	}
	for _, failed := range n.FailProps {
		if failed == name {
			return nil, fmt.Errorf("mock: property %s not readable on %s", name, id)
		}
	}
	switch name {
	case core.PropType:
		return n.Type, nil
	case core.PropText:
		return n.Text, nil
	case core.PropTooltip:
		return n.Tooltip, nil
	case core.PropName:
		return n.Name, nil
	case core.PropLeft:
		return n.Left, nil
	case core.PropTop:
		return n.Top, nil
	case core.PropWidth:
		return n.Width, nil
	case core.PropHeight:
		return n.Height, nil
	case core.PropChangeable:
		return n.Changeable, nil
	default:
		if v, ok := n.Props[name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("mock: property %s not readable on %s", name, id)
	}
}

// SetProperty implements core.Actuator.
func (b *Backend) SetProperty(id, name string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		return fmt.Errorf("mock: unknown node %s", id)
	}
	b.SetCalls = append(b.SetCalls, fmt.Sprintf("%s.%s=%v", id, name, value))
	switch name {
	case core.PropText:
		n.Text = fmt.Sprint(value)
	default:
		if n.Props == nil {
			n.Props = make(map[string]any)
		}
		n.Props[name] = value
	}
	return nil
}

// Call implements core.Actuator. An empty id addresses the session itself.
func (b *Backend) Call(id, method string, args ...any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = fmt.Sprint(a)
	}
	b.Calls = append(b.Calls, fmt.Sprintf("%s.%s(%s)", id, method, strings.Join(rendered, ",")))

	if b.failOnCall != "" && method == b.failOnCall {
		return nil, fmt.Errorf("mock: call %s configured to fail", method)
	}

	if b.onCall != nil {
		if result, handled := b.onCall(id, method, args); handled {
			return result, nil
		}
	}

	if id != "" {
		n, ok := b.nodes[id]
		if !ok {
			return nil, fmt.Errorf("mock: unknown node %s", id)
		}
		switch method {
		case "select":
			if n.Props == nil {
				n.Props = make(map[string]any)
			}
			n.Props["selected"] = true
		case "press", "setFocus", "doubleClickNode", "expandNode", "collapseNode", "selectNode", "pressToolbarButton", "doubleClickCurrentCell", "maximize", "close":
			// recorded only
		case "hardCopy":
			if len(args) > 0 {
				return nil, writeMinimalPNG(fmt.Sprint(args[0]))
			}
		}
	}
	return nil, nil
}

// minimalPNG is the smallest valid PNG file (1x1 transparent pixel).
var minimalPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func writeMinimalPNG(path string) error {
	return os.WriteFile(path, minimalPNG, 0644)
}
