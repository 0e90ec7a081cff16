package cli

import (
	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/dashboard"
	"github.com/invdash/invdash/internal/progress"
)

func newDashboardCmd() *cobra.Command {
	var noMonitor bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the interactive dashboard",
		Long: `Start an interactive session. The processed file listing is loaded on
start, the server is probed every 30 seconds in the background and the
prompt shows whether it is online.

Type 'help' inside the dashboard for the command list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := validConfig()
			if err != nil {
				return err
			}

			out := dashboard.NewSyncWriter(cmd.OutOrStdout())
			app, err := dashboard.NewApp(cfg, GetLogger(), out)
			if err != nil {
				return err
			}
			defer app.Close()

			shell := dashboard.NewShell(app, cmd.InOrStdin(), out)
			shell.Animate = progress.IsTerminal(stdoutFile(cmd))
			shell.StartMonitor = !noMonitor
			return shell.Run(GetContext())
		},
	}

	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "Do not probe the server in the background")

	return cmd
}
