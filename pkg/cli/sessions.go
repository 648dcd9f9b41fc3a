package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/config"
	"github.com/scriptwizard-dev/sapwiz-runner/pkg/provider/sapgui"
)

var sessionsCommand = &cli.Command{
	Name:  "sessions",
	Usage: "List open SAP GUI connections and their sessions",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "logon",
			Usage: "Also list saved systems from this saplogon.ini",
		},
	},
	Action: runSessions,
}

func runSessions(c *cli.Context) error {
	workspace, err := loadWorkspaceConfig(c)
	if err != nil {
		return err
	}

	conns, err := sapgui.Connections()
	if err != nil {
		return err
	}

	if len(conns) == 0 {
		fmt.Println("No open connections.")
	}
	for _, conn := range conns {
		fmt.Printf("%sconn[%d]%s %s\n", color(colorBold), conn.Index, color(colorReset), conn.Description)
		for _, sess := range conn.Sessions {
			state := ""
			if sess.Busy {
				state = " (busy)"
			}
			fmt.Printf("  ses[%d] %s client %s user %s tcode %s%s\n",
				sess.Index, sess.SystemName, sess.Client, sess.User, sess.Transaction, state)
		}
	}

	logonPath := c.String("logon")
	if logonPath == "" {
		logonPath = workspace.Logon.Path
	}
	if logonPath != "" {
		entries, err := config.ReadLogonEntries(logonPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", logonPath, err)
		}
		fmt.Printf("\nSaved systems (%s):\n", logonPath)
		for _, entry := range entries {
			fmt.Printf("  %3d  %s\n", entry.Index, entry.Description)
		}
	}

	return nil
}
