package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/charts"
	"github.com/invdash/invdash/internal/models"
)

func newChartsCmd() *cobra.Command {
	var start, end string
	var htmlPath string

	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Show the sales visualizations",
		Long: `Load the four sales charts (by brand, by category, monthly and weekly).

Without dates the charts cover all data; --start and --end (both
required together, YYYY-MM-DD) restrict them. The charts are summarised
as text, or written as an interactive HTML page with --html.

Examples:
  invdash charts
  invdash charts --start 2024-03-01 --end 2024-03-31
  invdash charts --html charts.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var rng *models.DateRange
			if start != "" || end != "" {
				rng = &models.DateRange{Start: start, End: end}
			}

			view, err := app.Charts.Load(GetContext(), rng)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if htmlPath == "" {
				return charts.TextRenderer{}.Render(out, view)
			}
			if err := writeChartsPage(htmlPath, view, app.Theme.Current()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", htmlPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Write an HTML page with the charts to this file")

	return cmd
}

func writeChartsPage(path string, view *charts.View, theme string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := (charts.HTMLRenderer{Theme: theme}).Render(f, view); err != nil {
		f.Close()
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return f.Close()
}
