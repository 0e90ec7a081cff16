package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/connectivity"
	"github.com/invdash/invdash/internal/events"
)

type statusDoc struct {
	Server    string    `json:"server" yaml:"server"`
	Status    string    `json:"status" yaml:"status"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at" yaml:"checked_at"`
}

func newStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the backend is reachable",
		Long: `Probe the backend's liveness endpoint once and print Online or Offline.

With --watch the probe repeats on the monitor interval (30s by default)
until interrupted, printing every result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			report := func(status connectivity.Status) error {
				doc := statusDoc{
					Server:    app.Client.BaseURL(),
					Status:    status.String(),
					CheckedAt: app.Monitor.LastProbe(),
				}
				if err := app.Monitor.LastError(); err != nil {
					doc.Error = api.Message(err)
				}
				if ok, err := printStructured(out, doc); ok {
					return err
				}
				line := fmt.Sprintf("%s  %s  %s", doc.CheckedAt.Format("15:04:05"), doc.Server, doc.Status)
				if doc.Error != "" {
					line += " (" + doc.Error + ")"
				}
				_, err := fmt.Fprintln(out, line)
				return err
			}

			if !watch {
				return report(app.Monitor.Probe(GetContext()))
			}

			ch := app.Bus.Subscribe(events.EventConnectivity)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range ch {
					c, ok := ev.(*events.ConnectivityEvent)
					if !ok {
						continue
					}
					status := connectivity.StatusOffline
					if c.Online {
						status = connectivity.StatusOnline
					}
					if err := report(status); err != nil {
						GetLogger().Debug().Err(err).Msg("Failed to print status")
					}
				}
			}()

			app.Monitor.Run(GetContext())
			// closing the bus ends the printer
			app.Bus.Close()
			<-done
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep probing until interrupted")

	return cmd
}
