// Package tree drives column and simple tree controls.
package tree

import (
	"fmt"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// Tree wraps the scripting shell element of a tree control. Nodes are
// addressed by their node key as reported by the control.
type Tree struct {
	backend core.Backend
	id      string
}

// New wraps the tree with the given scripting ID.
func New(backend core.Backend, id string) *Tree {
	return &Tree{backend: backend, id: id}
}

// ID returns the scripting ID of the wrapped tree.
func (t *Tree) ID() string {
	return t.id
}

// NodeKeys returns the keys of all nodes currently known to the control.
func (t *Tree) NodeKeys() ([]string, error) {
	raw, err := t.backend.Call(t.id, "getAllNodeKeys")
	if err != nil {
		return nil, t.callErr("getAllNodeKeys", err)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		keys := make([]string, len(v))
		for i, item := range v {
			keys[i] = fmt.Sprint(item)
		}
		return keys, nil
	case nil:
		return nil, nil
	default:
		return []string{fmt.Sprint(v)}, nil
	}
}

// NodeText returns the display text of a node.
func (t *Tree) NodeText(key string) (string, error) {
	raw, err := t.backend.Call(t.id, "getNodeTextByKey", key)
	if err != nil {
		return "", t.callErr("getNodeTextByKey", err)
	}
	if raw == nil {
		return "", nil
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return fmt.Sprint(raw), nil
}

// Expand expands a node.
func (t *Tree) Expand(key string) error {
	if _, err := t.backend.Call(t.id, "expandNode", key); err != nil {
		return t.callErr("expandNode", err)
	}
	return nil
}

// Collapse collapses a node.
func (t *Tree) Collapse(key string) error {
	if _, err := t.backend.Call(t.id, "collapseNode", key); err != nil {
		return t.callErr("collapseNode", err)
	}
	return nil
}

// SelectNode selects a node.
func (t *Tree) SelectNode(key string) error {
	if _, err := t.backend.Call(t.id, "selectNode", key); err != nil {
		return t.callErr("selectNode", err)
	}
	return nil
}

// DoubleClickNode double clicks a node, which typically opens it.
func (t *Tree) DoubleClickNode(key string) error {
	if _, err := t.backend.Call(t.id, "doubleClickNode", key); err != nil {
		return t.callErr("doubleClickNode", err)
	}
	return nil
}

func (t *Tree) callErr(method string, err error) error {
	return core.NewAutomationError(core.ErrCategoryAction, "tree_call_failed",
		fmt.Sprintf("tree call %s failed", method)).
		WithCause(err).
		WithDetails(map[string]interface{}{"id": t.id})
}
