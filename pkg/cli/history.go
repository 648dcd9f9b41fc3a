package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/config"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/history"
)

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "List recorded runs",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of runs to list",
			Value: 20,
		},
	},
	Action: runHistoryList,
	Subcommands: []*cli.Command{
		{
			Name:   "clear",
			Usage:  "Delete all recorded runs",
			Action: runHistoryClear,
		},
	},
}

func openHistory(c *cli.Context) (*history.Store, error) {
	workspace, err := loadWorkspaceConfig(c)
	if err != nil {
		return nil, err
	}
	path := workspace.History.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	return history.Open(path)
}

func runHistoryList(c *cli.Context) error {
	store, err := openHistory(c)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, run := range runs {
		statusColor := colorGreen
		if run.Status != "passed" {
			statusColor = colorRed
		}
		fmt.Printf("%s  %s%-7s%s  %s\n",
			run.StartTime.Format("2006-01-02 15:04:05"),
			color(statusColor), run.Status, color(colorReset), run.Script)
		if run.ErrorMessage != "" {
			fmt.Printf("    %s╰─%s %s\n", color(colorGray), color(colorReset), run.ErrorMessage)
		}
	}
	return nil
}

func runHistoryClear(c *cli.Context) error {
	store, err := openHistory(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("History cleared.")
	return nil
}
