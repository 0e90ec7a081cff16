package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/browser"
	"github.com/invdash/invdash/internal/dashboard"
	"github.com/invdash/invdash/internal/state"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Browse, download and delete processed files",
		Long:  "Commands for the processed daily files and the master summary held by the backend.",
	}

	cmd.AddCommand(newFilesListCmd())
	cmd.AddCommand(newFilesDetailsCmd())
	cmd.AddCommand(newFilesDeleteCmd())
	cmd.AddCommand(newFilesDownloadCmd())
	cmd.AddCommand(newFilesDownloadAllCmd())

	return cmd
}

func newFilesListCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List processed files",
		Long: `List the processed daily files with a sample of each, newest listing from
the backend. --search keeps the files whose name or grand total date
contains the text.

Examples:
  invdash files list
  invdash files list --search 2024-03
  invdash files list --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			view, err := app.Browser.Load(GetContext(), search)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ok, err := printStructured(out, browser.Filter(app.Browser.State().Files(), search)); ok {
				return err
			}
			return view.Render(out)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show files whose name or date contains this text")

	return cmd
}

func newFilesDetailsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "details <name>",
		Short: "Show one file's statistics and sample rows",
		Long: `Show the statistics and sample rows of one processed file.

The details come from the listing saved by the last 'files list'; when
there is none the listing is fetched first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := restoreOrLoad(cmd, app); err != nil {
				return err
			}

			d, err := app.Browser.Details(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary, _ := app.Browser.State().FindByName(args[0])
			if ok, err := printStructured(out, summary); ok {
				return err
			}
			return d.Render(out)
		},
	}

	return cmd
}

// restoreOrLoad fills the browser from the snapshot cache, fetching the
// listing when nothing usable is cached.
func restoreOrLoad(cmd *cobra.Command, app *dashboard.App) error {
	_, err := app.Browser.Restore()
	if err == nil {
		return nil
	}
	if !errors.Is(err, state.ErrNoSnapshot) {
		GetLogger().Debug().Err(err).Msg("Snapshot cache unusable, fetching listing")
	}
	_, err = app.Browser.Load(GetContext(), "")
	return err
}

func newFilesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a processed file",
		Long: `Delete a processed file on the backend after confirmation, then reload
the listing.

Examples:
  invdash files delete march_01.xlsx
  invdash files delete march_01.xlsx --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			confirm := confirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), yes)
			sent, err := app.Browser.Delete(GetContext(), args[0], confirm)
			if err != nil {
				return err
			}
			if !sent {
				fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")

	return cmd
}

func newFilesDownloadCmd() *cobra.Command {
	var outputDir string
	var inspect bool

	cmd := &cobra.Command{
		Use:   "download <name>",
		Short: "Download a processed file",
		Long: `Download one processed file (or master_summary.xlsx).

With --inspect the downloaded workbook's sheets and header rows are
printed.

Examples:
  invdash files download march_01.xlsx
  invdash files download master_summary.xlsx -o ./reports --inspect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			path, err := app.Browser.Download(GetContext(), args[0], outputDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %s\n", path)

			if !inspect {
				return nil
			}
			info, err := browser.Inspect(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			return info.Render(out)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", ".", "Directory to save the file in")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "Print the workbook's sheets after downloading")

	return cmd
}

func newFilesDownloadAllCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download-all",
		Short: "Download every processed file as one zip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			path, err := app.Browser.DownloadAll(GetContext(), outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", ".", "Directory to save the zip in")

	return cmd
}
