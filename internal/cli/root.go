// Package cli provides the command-line interface for invdash.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/version"
)

var (
	// Global flags
	cfgFile      string
	baseURL      string
	logFile      string
	outputFormat string
	verbose      bool
	debug        bool

	// Loaded once per invocation by the root PersistentPreRunE
	appConfig *config.Config

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "invdash",
		Short: "Inventory Dashboard - terminal client for the inventory reporting service",
		Long: `Inventory Dashboard ` + version.Version + ` - Built: ` + version.BuildTime + `
Terminal client for the inventory reporting service.

Upload daily inventory sheets, browse the processed files, preview and
export the merged data, and view the sales charts. Run 'invdash dashboard'
for an interactive session.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
			if err := checkOutputFormat(outputFormat); err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			appConfig = cfg

			// stdout carries command output; logs and toasts go to stderr.
			// The log file records the activity log at INFO even when the
			// console stays quiet.
			opts := logging.Options{Console: cmd.ErrOrStderr(), File: cfg.LogFile}
			if cfg.LogFile != "" && !verbose && !debug {
				logging.SetGlobalLevel(zerolog.InfoLevel)
				opts.ConsoleLevel = zerolog.WarnLevel
			}
			logger = logging.NewLogger(opts)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "Backend base URL (overrides config and "+config.EnvBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this rotating file")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", outputTable, "Output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Enable tab-completion for invdash commands",
		Long: `Generate shell completion scripts to enable tab-completion for invdash.

QUICK START:

  zsh:
    mkdir -p ~/.zsh/completions
    invdash completion zsh > ~/.zsh/completions/_invdash
    # Then add to ~/.zshrc: fpath=(~/.zsh/completions $fpath)

  Linux with bash:
    invdash completion bash | sudo tee /etc/bash_completion.d/invdash

For detailed instructions, use: invdash completion [shell] --help`,
	}
	rootCmd.AddCommand(completionCmd)

	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		Long: `Generate the autocompletion script for bash.

QUICK TEST (temporary, current session only):
  source <(invdash completion bash)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		Long: `Generate the autocompletion script for zsh.

QUICK TEST (temporary, current session only):
  source <(invdash completion zsh)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		Long: `Generate the autocompletion script for fish.

QUICK TEST (temporary, current session only):
  invdash completion fish | source`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		Long: `Generate the autocompletion script for PowerShell.

QUICK TEST (temporary, current session only):
  invdash completion powershell | Out-String | Invoke-Expression`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	// Disable default completion command (we're adding our own above)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C presses don't block the channel
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newChartsCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newThemeCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDashboardCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
