package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/dashboard"
)

// Output formats for --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func checkOutputFormat(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("--output must be table, json or yaml, got %q", format)
	}
}

// loadConfig layers the config file, .env, the environment and the global
// flags, in that order. It does not validate.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if cmd.Flags().Changed("url") {
		cfg.BaseURL = baseURL
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	cfg.Normalize()
	return cfg, nil
}

// validConfig returns the loaded configuration once it passes validation.
func validConfig() (*config.Config, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return appConfig, nil
}

// getApp is the standard way for a command to reach the backend. Toasts go
// to stderr so stdout stays parseable.
func getApp(cmd *cobra.Command) (*dashboard.App, error) {
	cfg, err := validConfig()
	if err != nil {
		return nil, err
	}
	app, err := dashboard.NewApp(cfg, GetLogger(), cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard: %w", err)
	}
	return app, nil
}

// printStructured encodes v when --output asks for json or yaml and
// reports whether it did.
func printStructured(w io.Writer, v interface{}) (bool, error) {
	switch outputFormat {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

// stdoutFile returns the command's output as a file when it is one, for
// terminal detection.
func stdoutFile(cmd *cobra.Command) *os.File {
	f, _ := cmd.OutOrStdout().(*os.File)
	return f
}
