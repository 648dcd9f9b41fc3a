// Package engine ties scanning, caching and resolution into the find API.
//
// One Engine belongs to one logical session owner and is not safe for
// concurrent use; give each worker its own engine. Freshness is keyed on
// the provider's active window key: the cached scan set is reused while
// the key is unchanged and rebuilt when it differs.
package engine

import (
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/locator"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/resolver"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/scanner"
)

// Config controls an Engine.
type Config struct {
	ScanDepth     int      // BFS depth bound; 0 means scanner.DefaultMaxDepth
	AlignFraction float64  // Span-overlap fraction; 0 means resolver.DefaultAlignFraction
	TargetTypes   []string // Default target types; nil means resolver.DefaultTargetTypes
	WindowIndex   int      // Window to scan; normally 0
}

// Engine resolves locator strings against the live window.
type Engine struct {
	provider core.Provider
	scanner  *scanner.Scanner
	resolver *resolver.Resolver
	window   int

	cached *core.SnapshotSet
}

// New creates an Engine over the provider.
func New(provider core.Provider, cfg Config) *Engine {
	return &Engine{
		provider: provider,
		scanner:  scanner.New(provider, scanner.Config{MaxDepth: cfg.ScanDepth}),
		resolver: resolver.New(resolver.Config{
			AlignFraction: cfg.AlignFraction,
			TargetTypes:   cfg.TargetTypes,
		}),
		window: cfg.WindowIndex,
	}
}

// FindElement resolves a locator string against the current screen. A
// non-empty targetTypes narrows the match for this call. Absence is not an
// error: a locator that matches nothing returns (nil, nil). Errors are
// reserved for locator syntax and source failures.
func (e *Engine) FindElement(loc string, targetTypes ...string) (*core.ElementSnapshot, error) {
	strat, err := locator.Parse(loc)
	if err != nil {
		return nil, err
	}
	set, err := e.ensureFresh()
	if err != nil {
		return nil, err
	}
	snap, ok := e.resolver.Resolve(set, strat, targetTypes)
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Snapshot returns the current snapshot set, scanning if needed.
func (e *Engine) Snapshot() (*core.SnapshotSet, error) {
	return e.ensureFresh()
}

// Invalidate drops the cached snapshot so the next find rescans.
func (e *Engine) Invalidate() {
	e.cached = nil
}

// ensureFresh rescans only when there is no snapshot yet or the active
// window key changed.
func (e *Engine) ensureFresh() (*core.SnapshotSet, error) {
	key, err := e.provider.ActiveWindowKey()
	if err != nil {
		return nil, core.ErrSourceUnavailable.WithCause(err)
	}
	if e.cached != nil && e.cached.WindowKey == key {
		return e.cached, nil
	}
	set, err := e.scanner.Scan(e.window)
	if err != nil {
		return nil, err
	}
	e.cached = set
	return set, nil
}
