package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Steps slower than this get flagged in the live output.
const slowThreshold = 5 * time.Second

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func statusSymbol(status core.StepStatus) (symbol, col string) {
	switch status {
	case core.StatusPassed:
		return "✓", colorGreen
	case core.StatusWarned:
		return "⚠", colorYellow
	case core.StatusSkipped:
		return "-", colorGray
	default:
		return "✗", colorRed
	}
}

// Live progress callbacks wired into executor.RunnerConfig.

func onFlowStart(idx, total int, name, file string) {
	fmt.Printf("\n  %s[%d/%d]%s %s%s%s (%s)\n",
		color(colorCyan), idx+1, total, color(colorReset),
		color(colorBold), name, color(colorReset), file)
	fmt.Println(strings.Repeat("─", 60))
}

func onStepComplete(idx int, desc string, status core.StepStatus, duration time.Duration, errMsg string) {
	symbol, col := statusSymbol(status)
	durColor := ""
	if status == core.StatusPassed && duration >= slowThreshold {
		symbol, col = "⚠", colorYellow
		durColor = color(colorYellow)
	}
	fmt.Printf("    %s%s%s %s %s(%s)%s\n",
		color(col), symbol, color(colorReset), desc, durColor, formatDuration(duration), color(colorReset))
	if errMsg != "" && !status.IsSuccess() {
		fmt.Printf("      %s╰─%s %s\n", color(colorGray), color(colorReset), errMsg)
	}
}

func onNestedStep(depth int, desc string, status core.StepStatus, duration time.Duration, errMsg string) {
	indent := strings.Repeat("  ", 2+depth)
	symbol, col := statusSymbol(status)
	fmt.Printf("%s%s%s%s %s (%s)\n",
		indent, color(col), symbol, color(colorReset), desc, formatDuration(duration))
	if errMsg != "" && !status.IsSuccess() {
		fmt.Printf("%s  %s╰─%s %s\n", indent, color(colorGray), color(colorReset), errMsg)
	}
}

func onFlowEnd(name string, passed bool, duration time.Duration) {
	if passed {
		fmt.Printf("  %s✓ %s passed%s (%s)\n", color(colorGreen), name, color(colorReset), formatDuration(duration))
	} else {
		fmt.Printf("  %s✗ %s failed%s (%s)\n", color(colorRed), name, color(colorReset), formatDuration(duration))
	}
}

// printSummary prints the end-of-run flow table and totals.
func printSummary(suite *core.SuiteResult) {
	fmt.Printf("\n%sSummary%s\n", color(colorBold), color(colorReset))
	fmt.Println(strings.Repeat("─", 60))

	for _, fl := range suite.Flows {
		symbol, col := "✓", colorGreen
		if !fl.Status.IsSuccess() {
			symbol, col = "✗", colorRed
			if fl.Status == core.StatusSkipped {
				symbol, col = "-", colorGray
			}
		}
		fmt.Printf("  %s%s%s %-40s %s\n",
			color(col), symbol, color(colorReset), fl.Name, formatDuration(fl.Duration))
	}

	fmt.Println()
	fmt.Printf("  %d flow(s): %s%d passed%s, %s%d failed%s, %d skipped (%s)\n",
		suite.TotalFlows,
		color(colorGreen), suite.PassedFlows, color(colorReset),
		color(colorRed), suite.FailedFlows, color(colorReset),
		suite.SkippedFlows, formatDuration(suite.Duration))
}

// formatDuration renders durations the way the live output shows them:
// millisecond precision under a second, tenths of a second above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
