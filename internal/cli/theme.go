package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/theme"
)

func newThemeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the colour theme",
		Long: `Show or change the colour theme used by chart pages and the dashboard.
The choice is remembered between runs. The default is dark.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := themeManager()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.Current())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := themeManager()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.Current())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := themeManager()
			if err != nil {
				return err
			}
			current, err := m.Toggle()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), current)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set <light|dark>",
		Short:     "Choose a theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{theme.Light, theme.Dark},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := themeManager()
			if err != nil {
				return err
			}
			if err := m.Set(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		},
	})

	return cmd
}

// themeManager works without a reachable backend, so it only needs the
// state directory.
func themeManager() (*theme.Manager, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	prefs := config.NewPreferences(appConfig.StateDir)
	if err := prefs.Load(); err != nil {
		return nil, err
	}
	return theme.NewManager(prefs, nil), nil
}
