// Package cli provides the command-line interface for sapwiz-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/config"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"SAPWIZ_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to workspace sapwiz.yaml",
		EnvVars: []string{"SAPWIZ_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "env-file",
		Usage:   "Load environment variables from a .env file",
		EnvVars: []string{"SAPWIZ_ENV_FILE"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "sapwiz",
		Usage:   "SAP GUI automation runner",
		Version: Version,
		Description: `sapwiz drives SAP GUI through its scripting interface: it resolves
semantic locators against the visible screen and executes YAML flows.

Examples:
  sapwiz run logon.yaml
  sapwiz run flows/ --parallel 2
  sapwiz sessions
  sapwiz dump --format json`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			sessionsCommand,
			historyCommand,
			dumpCommand,
			versionCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print the sapwiz version",
	Action: func(c *cli.Context) error {
		fmt.Printf("sapwiz %s\n", Version)
		return nil
	},
}

// globalString reads a global flag from the current or parent context;
// subcommands see global flags through the lineage.
func globalString(c *cli.Context, name string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if lineage := c.Lineage(); len(lineage) > 1 && lineage[1] != nil {
		return lineage[1].String(name)
	}
	return c.String(name)
}

func globalBool(c *cli.Context, name string) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	if lineage := c.Lineage(); len(lineage) > 1 && lineage[1] != nil {
		return lineage[1].Bool(name)
	}
	return c.Bool(name)
}

// loadEnvFile loads --env-file when given, or a plain .env from the working
// directory when one exists. A named file that fails to load is an error; a
// missing default .env is not.
func loadEnvFile(c *cli.Context) error {
	if path := globalString(c, "env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	return nil
}

// loadWorkspaceConfig reads --config when given, otherwise looks for
// sapwiz.yaml in the working directory.
func loadWorkspaceConfig(c *cli.Context) (*config.Config, error) {
	if path := globalString(c, "config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.LoadFromDir(".")
}
