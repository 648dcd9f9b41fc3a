package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/config"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/engine"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/executor"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/flow"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/history"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/logger"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/provider/sapgui"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/window"
)

const defaultOutputDir = "sapwiz-output"

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run flows against an attached SAP GUI session",
	ArgsUsage: "<flow-file-or-folder>...",
	Description: `Run one or more sapwiz flow files against the scripting engine of a
running SAP GUI. Flows are YAML files; folders are searched recursively.

Examples:
  sapwiz run logon.yaml
  sapwiz run flows/ -e USER=demo -e PASS=secret
  sapwiz run flows/ --include-tags smoke --parallel 2
  sapwiz run flows/ --mock`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "mock",
			Usage: "Run against the built-in mock screen instead of SAP GUI",
		},
		&cli.IntFlag{
			Name:  "connection",
			Usage: "Connection index on the scripting engine",
		},
		&cli.IntFlag{
			Name:  "session",
			Usage: "Session index within the connection",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Distribute flows over N sessions of the connection",
		},
		&cli.BoolFlag{
			Name:  "stop-on-fail",
			Usage: "Stop the run after the first failed flow",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for run artifacts (default: ./" + defaultOutputDir + ")",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Skip recording the run in the history database",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Environment variables (KEY=VALUE)",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only include flows with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Exclude flows with these tags",
		},
		&cli.StringFlag{
			Name:  "artifacts",
			Usage: "Screenshot capture policy (on-failure, always, never)",
			Value: "on-failure",
		},
	},
	Action: runRun,
}

func runRun(c *cli.Context) error {
	if err := loadEnvFile(c); err != nil {
		return err
	}
	workspace, err := loadWorkspaceConfig(c)
	if err != nil {
		return err
	}

	// CLI env overrides workspace env; both land in the process environment
	// where the script engine imports them from.
	for k, v := range workspace.Env {
		os.Setenv(k, v)
	}
	for k, v := range parseEnvVars(c.StringSlice("env")) {
		os.Setenv(k, v)
	}

	flowPaths := c.Args().Slice()
	if len(flowPaths) == 0 {
		flowPaths, err = expandFlowGlobs(workspace.Flows)
		if err != nil {
			return err
		}
	}
	if len(flowPaths) == 0 {
		return fmt.Errorf("at least one flow file or folder is required")
	}

	includeTags := c.StringSlice("include-tags")
	if len(includeTags) == 0 {
		includeTags = workspace.IncludeTags
	}
	excludeTags := c.StringSlice("exclude-tags")
	if len(excludeTags) == 0 {
		excludeTags = workspace.ExcludeTags
	}

	flows, err := collectFlows(flowPaths, includeTags, excludeTags)
	if err != nil {
		return err
	}
	if len(flows) == 0 {
		return fmt.Errorf("no flows matched")
	}

	artifacts, err := parseArtifactMode(c.String("artifacts"))
	if err != nil {
		return err
	}

	outputDir := c.String("output")
	if outputDir == "" {
		outputDir = workspace.Output.Dir
	}
	if outputDir == "" {
		outputDir = defaultOutputDir
	}

	mockMode := c.Bool("mock")
	platform := "sapgui"
	if mockMode {
		platform = "mock"
	}

	runnerCfg := executor.RunnerConfig{
		RunName:   "sapwiz run",
		OutputDir: outputDir,
		Platform:  platform,
		Window: window.Config{
			Engine: engineConfig(workspace),
		},
		StopOnFail:     c.Bool("stop-on-fail"),
		Artifacts:      artifacts,
		OnFlowStart:    onFlowStart,
		OnFlowEnd:      onFlowEnd,
		OnStepComplete: onStepComplete,
		OnNestedStep:   onNestedStep,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n%ssapwiz %s%s — %d flow(s)\n", color(colorBold), Version, color(colorReset), len(flows))

	parallel := c.Int("parallel")
	connection := c.Int("connection")

	var (
		suite  *executorSuite
		runErr error
	)
	if parallel > 1 {
		suite, runErr = runParallel(ctx, c, runnerCfg, flows, parallel, connection, mockMode)
	} else {
		suite, runErr = runSequential(ctx, c, runnerCfg, flows, connection, c.Int("session"), mockMode)
	}
	if suite == nil {
		return runErr
	}

	if !c.Bool("no-history") {
		recordHistory(workspace, flowPaths, suite.result, suite.layout)
	}

	printSummary(suite.result)
	fmt.Printf("\n  Artifacts: %s\n", suite.layout.RunDir())

	if runErr != nil {
		return runErr
	}
	if !suite.result.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

// executorSuite pairs a run's result with the layout it was written to.
type executorSuite struct {
	result *core.SuiteResult
	layout core.OutputLayout
}

func runSequential(ctx context.Context, c *cli.Context, cfg executor.RunnerConfig, flows []*flow.Flow, connection, session int, mockMode bool) (*executorSuite, error) {
	backend, cleanup, err := openBackend(mockMode, connection, session)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	runner := executor.New(backend, cfg)
	if err := setupRunLog(c, runner.Layout()); err != nil {
		return nil, err
	}
	defer logger.Close()

	result, err := runner.Run(ctx, flows)
	return &executorSuite{result: result, layout: runner.Layout()}, err
}

func runParallel(ctx context.Context, c *cli.Context, cfg executor.RunnerConfig, flows []*flow.Flow, parallel, connection int, mockMode bool) (*executorSuite, error) {
	workers := make([]executor.SessionWorker, parallel)
	for i := 0; i < parallel; i++ {
		sessionIdx := i
		workers[i] = executor.SessionWorker{
			ID:   i,
			Name: fmt.Sprintf("session-%d", sessionIdx),
			Open: func() (core.Backend, func(), error) {
				return openBackend(mockMode, connection, sessionIdx)
			},
		}
	}

	// Per-step output from several sessions would interleave; keep only
	// the per-flow lines.
	cfg.OnFlowStart = nil
	cfg.OnStepComplete = nil
	cfg.OnNestedStep = nil

	runner := executor.NewParallelRunner(workers, cfg)
	if err := setupRunLog(c, runner.Layout()); err != nil {
		return nil, err
	}
	defer logger.Close()

	fmt.Printf("  %sℹ%s Parallel mode: %d sessions, live step output disabled\n",
		color(colorCyan), color(colorReset), parallel)

	result, err := runner.Run(ctx, flows)
	return &executorSuite{result: result, layout: runner.Layout()}, err
}

func setupRunLog(c *cli.Context, layout core.OutputLayout) error {
	if err := layout.Ensure(); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := logger.Init(layout.LogPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize log file: %v\n", err)
		return nil
	}
	logger.SetVerbose(globalBool(c, "verbose"))
	logger.Info("run started, output: %s", layout.RunDir())
	return nil
}

// openBackend attaches to SAP GUI or builds the mock screen.
func openBackend(mockMode bool, connection, session int) (core.Backend, func(), error) {
	if mockMode {
		return demoBackend(), func() {}, nil
	}
	sess, err := sapgui.Attach(connection, session)
	if err != nil {
		return nil, nil, err
	}
	return sess, sess.Close, nil
}

func recordHistory(workspace *config.Config, flowPaths []string, suite *core.SuiteResult, layout core.OutputLayout) {
	path := workspace.History.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
		return
	}
	defer store.Close()

	id, err := store.StartRun(strings.Join(flowPaths, " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
		return
	}

	status := "passed"
	errMsg := ""
	if !suite.Success() {
		status = "failed"
		errMsg = fmt.Sprintf("%d of %d flow(s) failed", suite.FailedFlows, suite.TotalFlows)
	}
	if err := store.FinishRun(id, status, errMsg, layout.LogPath(), ""); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history record incomplete: %v\n", err)
	}
}

func parseArtifactMode(mode string) (executor.ArtifactMode, error) {
	switch mode {
	case "on-failure", "":
		return executor.ArtifactOnFailure, nil
	case "always":
		return executor.ArtifactAlways, nil
	case "never":
		return executor.ArtifactNever, nil
	default:
		return 0, fmt.Errorf("unknown artifacts mode %q (want on-failure, always or never)", mode)
	}
}

// engineConfig maps the workspace engine section onto engine.Config.
func engineConfig(workspace *config.Config) engine.Config {
	return engine.Config{
		ScanDepth:     workspace.Engine.ScanDepth,
		AlignFraction: workspace.Engine.AlignFraction,
		TargetTypes:   workspace.Engine.TargetTypes,
	}
}

// parseEnvVars parses KEY=VALUE pairs; entries without a value are dropped.
func parseEnvVars(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && parts[0] != "" {
			env[parts[0]] = parts[1]
		}
	}
	return env
}

// expandFlowGlobs resolves the workspace flows: glob patterns.
func expandFlowGlobs(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad flow pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

// collectFlows expands files and folders into parsed flows, applying tag
// filters. Explicitly named files must parse; unparsable files inside a
// folder are skipped with a warning by the directory walk.
func collectFlows(paths []string, includeTags, excludeTags []string) ([]*flow.Flow, error) {
	var flows []*flow.Flow
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("flow path %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := flow.ParseDirectory(path, includeTags, excludeTags)
			if err != nil {
				return nil, err
			}
			flows = append(flows, found...)
			continue
		}
		f, err := flow.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if flow.ShouldIncludeFlow(f, includeTags, excludeTags) {
			flows = append(flows, f)
		}
	}
	return flows, nil
}
