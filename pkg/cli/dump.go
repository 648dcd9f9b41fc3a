package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/engine"
)

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "Scan the active window and dump its element snapshot",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "mock",
			Usage: "Dump the built-in mock screen instead of SAP GUI",
		},
		&cli.IntFlag{
			Name:  "connection",
			Usage: "Connection index on the scripting engine",
		},
		&cli.IntFlag{
			Name:  "session",
			Usage: "Session index within the connection",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format (yaml, json)",
			Value: "yaml",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Write to a file instead of stdout",
		},
	},
	Action: runDump,
}

func runDump(c *cli.Context) error {
	format := c.String("format")
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}

	workspace, err := loadWorkspaceConfig(c)
	if err != nil {
		return err
	}

	backend, cleanup, err := openBackend(c.Bool("mock"), c.Int("connection"), c.Int("session"))
	if err != nil {
		return err
	}
	defer cleanup()

	eng := engine.New(backend, engineConfig(workspace))
	snap, err := eng.Snapshot()
	if err != nil {
		return err
	}

	var data []byte
	if format == "json" {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = yaml.Marshal(snap)
	}
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %d element(s) to %s\n", snap.Len(), out)
		return nil
	}
	_, err = os.Stdout.Write(data)
	return err
}
