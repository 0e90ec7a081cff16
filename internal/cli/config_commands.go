// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/display"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage invdash configuration",
		Long: `Configuration management commands for invdash.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool
	var useDefaults bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for invdash.

The configuration is saved to ~/.config/invdash/config unless --config
names another file. Press Enter to keep the value shown in brackets.

Use --force to overwrite an existing configuration and --defaults to
write the current values without prompting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", path)
			}

			cfg := appConfig
			if !useDefaults {
				if err := promptConfig(cmd, cfg); err != nil {
					return err
				}
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Write the current values without prompting")

	return cmd
}

func promptConfig(cmd *cobra.Command, cfg *config.Config) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "invdash configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	cfg.BaseURL = readLine(reader, out, "Backend URL", cfg.BaseURL)

	timeout := readLine(reader, out, "Request timeout (seconds)", strconv.Itoa(int(cfg.Timeout/time.Second)))
	secs, err := strconv.Atoi(timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	cfg.Timeout = time.Duration(secs) * time.Second

	cfg.ProxyMode = readLine(reader, out, "Proxy mode (no-proxy, system, basic, ntlm)", cfg.ProxyMode)
	if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
		cfg.ProxyHost = readLine(reader, out, "Proxy host", cfg.ProxyHost)
		port := readLine(reader, out, "Proxy port", strconv.Itoa(cfg.ProxyPort))
		if cfg.ProxyPort, err = strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid proxy port %q: %w", port, err)
		}
		cfg.ProxyUser = readLine(reader, out, "Proxy user", cfg.ProxyUser)
	}

	desktop := readLine(reader, out, "Desktop notifications (true/false)", strconv.FormatBool(cfg.DesktopNotifications))
	if cfg.DesktopNotifications, err = strconv.ParseBool(desktop); err != nil {
		return fmt.Errorf("invalid value %q: %w", desktop, err)
	}

	cfg.LogFile = readLine(reader, out, "Log file (blank for none)", cfg.LogFile)
	fmt.Fprintln(out)
	return nil
}

// configDoc is the shape of 'config show' in json and yaml.
type configDoc struct {
	BaseURL              string  `json:"base_url" yaml:"base_url"`
	TimeoutSeconds       int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	RetryMax             int     `json:"retry_max" yaml:"retry_max"`
	RequestsPerSecond    float64 `json:"requests_per_second" yaml:"requests_per_second"`
	ProxyMode            string  `json:"proxy_mode" yaml:"proxy_mode"`
	ProxyHost            string  `json:"proxy_host,omitempty" yaml:"proxy_host,omitempty"`
	ProxyPort            int     `json:"proxy_port,omitempty" yaml:"proxy_port,omitempty"`
	SearchDebounceMS     int64   `json:"debounce_ms" yaml:"debounce_ms"`
	PreviewRows          int     `json:"preview_rows" yaml:"preview_rows"`
	ProbeIntervalSeconds int     `json:"probe_interval_seconds" yaml:"probe_interval_seconds"`
	NotificationsEnabled bool    `json:"notifications" yaml:"notifications"`
	DesktopNotifications bool    `json:"desktop_notifications" yaml:"desktop_notifications"`
	LogFile              string  `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	StateDir             string  `json:"state_dir" yaml:"state_dir"`
}

func newConfigDoc(cfg *config.Config) configDoc {
	doc := configDoc{
		BaseURL:              cfg.BaseURL,
		TimeoutSeconds:       int(cfg.Timeout / time.Second),
		RetryMax:             cfg.RetryMax,
		RequestsPerSecond:    cfg.RequestsPerSecond,
		ProxyMode:            cfg.ProxyMode,
		SearchDebounceMS:     cfg.SearchDebounce.Milliseconds(),
		PreviewRows:          cfg.PreviewRows,
		ProbeIntervalSeconds: int(cfg.ProbeInterval / time.Second),
		NotificationsEnabled: cfg.NotificationsEnabled,
		DesktopNotifications: cfg.DesktopNotifications,
		LogFile:              cfg.LogFile,
		StateDir:             cfg.StateDir,
	}
	if cfg.ProxyHost != "" {
		doc.ProxyHost = cfg.ProxyHost
		doc.ProxyPort = cfg.ProxyPort
	}
	return doc
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/invdash/config)
  2. .env in the working directory and environment variables
     (` + config.EnvBaseURL + `, ` + config.EnvLogFile + `, ` + config.EnvNoDesktop + `)
  3. Command-line flags (--url, --log-file)

Priority: flags > environment > config file > defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			doc := newConfigDoc(appConfig)
			if ok, err := printStructured(out, doc); ok {
				return err
			}

			pairs := [][2]string{
				{"Backend URL", doc.BaseURL},
				{"Timeout", (time.Duration(doc.TimeoutSeconds) * time.Second).String()},
				{"Retry Max", strconv.Itoa(doc.RetryMax)},
				{"Requests/Second", strconv.FormatFloat(doc.RequestsPerSecond, 'f', -1, 64)},
				{"Proxy Mode", doc.ProxyMode},
			}
			if doc.ProxyHost != "" {
				pairs = append(pairs, [2]string{"Proxy", fmt.Sprintf("%s:%d", doc.ProxyHost, doc.ProxyPort)})
			}
			pairs = append(pairs,
				[2]string{"Search Debounce", appConfig.SearchDebounce.String()},
				[2]string{"Preview Rows", strconv.Itoa(doc.PreviewRows)},
				[2]string{"Probe Interval", appConfig.ProbeInterval.String()},
				[2]string{"Notifications", strconv.FormatBool(doc.NotificationsEnabled)},
				[2]string{"Desktop Notifications", strconv.FormatBool(doc.DesktopNotifications)},
				[2]string{"Log File", dashIfEmpty(doc.LogFile)},
				[2]string{"State Directory", doc.StateDir},
			)

			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)
			if err := display.KeyValues(out, pairs); err != nil {
				return err
			}

			path, err := configPath()
			if err != nil {
				return nil
			}
			fmt.Fprintf(out, "\nConfiguration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, path)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "Status:   File exists (%s, modified %s)\n",
					display.Bytes(info.Size()), info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status:   File does not exist")
				fmt.Fprintln(out, "Create a configuration file with: invdash config init")
			}
			return nil
		},
	}

	return cmd
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
