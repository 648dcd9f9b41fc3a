package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputLayout resolves where a run writes its artifacts: the run log,
// screenshots, element dumps and the results summary.
type OutputLayout struct {
	Dir   string // Base output directory
	RunID string // Unique run identifier
}

// NewOutputLayout creates a layout rooted at dir for the given run.
func NewOutputLayout(dir, runID string) OutputLayout {
	if dir == "" {
		dir = "sapwiz-output"
	}
	return OutputLayout{Dir: dir, RunID: runID}
}

// RunDir returns the directory holding this run's artifacts.
func (o OutputLayout) RunDir() string {
	return filepath.Join(o.Dir, o.RunID)
}

// Ensure creates the run directory.
func (o OutputLayout) Ensure() error {
	return os.MkdirAll(o.RunDir(), 0755)
}

// LogPath returns the run log file path.
func (o OutputLayout) LogPath() string {
	return filepath.Join(o.RunDir(), "sapwiz.log")
}

// ResultsPath returns the path of the JSON results summary.
func (o OutputLayout) ResultsPath() string {
	return filepath.Join(o.RunDir(), "results.json")
}

// ScreenshotPath returns the path for a step screenshot.
func (o OutputLayout) ScreenshotPath(flowName string, stepIndex int) string {
	name := fmt.Sprintf("%s-step%03d.png", sanitizeName(flowName), stepIndex)
	return filepath.Join(o.RunDir(), name)
}

// DumpPath returns the path for an element dump in the given format.
func (o OutputLayout) DumpPath(flowName string, stepIndex int, format string) string {
	ext := "yaml"
	if strings.EqualFold(format, "json") {
		ext = "json"
	}
	name := fmt.Sprintf("%s-step%03d-elements.%s", sanitizeName(flowName), stepIndex, ext)
	return filepath.Join(o.RunDir(), name)
}

// sanitizeName makes a flow name safe for use in file names.
func sanitizeName(name string) string {
	if name == "" {
		return "flow"
	}
	mapper := func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}
	return strings.Map(mapper, name)
}
