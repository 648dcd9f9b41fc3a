// Package scanner walks a GUI scripting tree into an ordered snapshot set.
package scanner

import (
	"fmt"
	"strconv"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// DefaultMaxDepth bounds the breadth-first walk.
const DefaultMaxDepth = 50

// Config controls a Scanner.
type Config struct {
	MaxDepth int // Walk depth bound; 0 means DefaultMaxDepth
}

// Scanner captures window snapshots through a Provider.
type Scanner struct {
	provider core.Provider
	maxDepth int
}

// New creates a Scanner over the given provider.
func New(provider core.Provider, cfg Config) *Scanner {
	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Scanner{provider: provider, maxDepth: depth}
}

type queued struct {
	id    string
	depth int
}

// Scan walks the window with the given index breadth-first and returns the
// ordered snapshot set, tagged with the window key current at scan start.
// An unreachable root is a source error; everything below it degrades
// per element instead of failing the scan.
func (s *Scanner) Scan(windowIndex int) (*core.SnapshotSet, error) {
	key, err := s.provider.ActiveWindowKey()
	if err != nil {
		return nil, core.ErrSourceUnavailable.WithCause(err)
	}
	root, err := s.provider.RootHandle(windowIndex)
	if err != nil {
		return nil, core.ErrSourceUnavailable.WithCause(err).WithDetails(map[string]interface{}{
			"window": windowIndex,
		})
	}

	set := &core.SnapshotSet{WindowKey: key}
	queue := []queued{{id: root, depth: 0}}
	seen := map[string]bool{root: true}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if snap, ok := s.snapshot(n.id); ok {
			set.Elements = append(set.Elements, snap)
		}

		if n.depth >= s.maxDepth {
			continue
		}
		children, err := s.provider.EnumerateChildren(n.id)
		if err != nil {
			continue
		}
		for _, child := range children {
			if seen[child] {
				continue
			}
			seen[child] = true
			queue = append(queue, queued{id: child, depth: n.depth + 1})
		}
	}

	return set, nil
}

// snapshot reads one node. Type and position are required; an element whose
// required properties cannot be read is dropped while its children are
// still walked. Optional properties degrade to zero values.
func (s *Scanner) snapshot(id string) (core.ElementSnapshot, bool) {
	typ, err := s.getString(id, core.PropType)
	if err != nil || typ == "" {
		return core.ElementSnapshot{}, false
	}
	pos, ok := s.position(id)
	if !ok {
		return core.ElementSnapshot{}, false
	}

	snap := core.ElementSnapshot{ID: id, Type: typ, Position: pos}
	snap.Text, _ = s.getString(id, core.PropText)
	snap.Tooltip, _ = s.getString(id, core.PropTooltip)
	snap.Name, _ = s.getString(id, core.PropName)
	snap.Changeable, _ = s.getBool(id, core.PropChangeable)
	return snap, true
}

// position reads the four geometry properties, clamping negative sizes.
func (s *Scanner) position(id string) (core.Position, bool) {
	left, err := s.getInt(id, core.PropLeft)
	if err != nil {
		return core.Position{}, false
	}
	top, err := s.getInt(id, core.PropTop)
	if err != nil {
		return core.Position{}, false
	}
	width, err := s.getInt(id, core.PropWidth)
	if err != nil {
		return core.Position{}, false
	}
	height, err := s.getInt(id, core.PropHeight)
	if err != nil {
		return core.Position{}, false
	}
	return core.Position{
		Left:   left,
		Top:    top,
		Width:  max(width, 0),
		Height: max(height, 0),
	}, true
}

func (s *Scanner) getString(id, prop string) (string, error) {
	raw, err := s.provider.GetProperty(id, prop)
	if err != nil {
		return "", err
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (s *Scanner) getInt(id, prop string) (int, error) {
	raw, err := s.provider.GetProperty(id, prop)
	if err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, core.ErrPropertyUnavailable.WithCause(err)
		}
		return n, nil
	default:
		return 0, core.ErrPropertyUnavailable.WithMessage(fmt.Sprintf("property %s has unexpected type %T", prop, raw))
	}
}

func (s *Scanner) getBool(id, prop string) (bool, error) {
	raw, err := s.provider.GetProperty(id, prop)
	if err != nil {
		return false, err
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return v == "true" || v == "True" || v == "1", nil
	case int:
		return v != 0, nil
	default:
		return false, nil
	}
}
