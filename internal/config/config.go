// Package config provides configuration management for the dashboard client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/invdash/invdash/internal/constants"
)

// Config is the client configuration.
//
// Config file location: ~/.config/invdash/config
//
// INI format:
//
//	[server]
//	base_url = http://localhost:5000
//	timeout_seconds = 60
//	retry_max = 0
//	requests_per_second = 10
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	no_proxy =
//
//	[workflow]
//	persist_delay_ms = 500
//	report_delay_ms = 500
//	upload_timeout_seconds = 300
//
//	[browser]
//	debounce_ms = 300
//	preview_rows = 10
//
//	[monitor]
//	interval_seconds = 30
//
//	[notifications]
//	enabled = true
//	desktop = false
//
//	[logging]
//	file =
type Config struct {
	// Backend connection
	BaseURL           string
	Timeout           time.Duration
	RetryMax          int // 0: a failed call is terminal for that operation
	RequestsPerSecond float64

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string // never written to disk
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// Upload workflow
	PersistDelay  time.Duration
	ReportDelay   time.Duration
	UploadTimeout time.Duration

	// File browser
	SearchDebounce time.Duration
	PreviewRows    int

	// Connectivity monitor
	ProbeInterval time.Duration

	// Notifications
	NotificationsEnabled bool
	DesktopNotifications bool

	// Logging
	LogFile string

	// StateDir holds the preference store and the file snapshot cache
	StateDir string
}

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL       = "INVDASH_URL"
	EnvLogFile       = "INVDASH_LOG_FILE"
	EnvNoDesktop     = "INVDASH_NO_DESKTOP"
	EnvProxyPassword = "INVDASH_PROXY_PASSWORD"
	EnvStateDir      = "INVDASH_STATE_DIR"
)

var (
	ErrMissingBaseURL   = errors.New("base_url is required")
	ErrInvalidProxyMode = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
)

// NewConfig returns a config populated with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:              constants.DefaultBaseURL,
		Timeout:              constants.DefaultHTTPTimeout,
		RetryMax:             0,
		RequestsPerSecond:    constants.DefaultRequestsPerSecond,
		ProxyMode:            "no-proxy",
		ProxyPort:            8080,
		PersistDelay:         constants.PersistDelay,
		ReportDelay:          constants.ReportDelay,
		UploadTimeout:        constants.UploadPhaseTimeout,
		SearchDebounce:       constants.SearchDebounce,
		PreviewRows:          constants.PreviewRows,
		ProbeInterval:        constants.ProbeInterval,
		NotificationsEnabled: true,
		DesktopNotifications: false,
		StateDir:             StateDirectory(),
	}
}

// DefaultConfigPath returns ~/.config/invdash/config (or the Windows equivalent).
func DefaultConfigPath() (string, error) {
	dir, err := configDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// LoadConfig loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	server := iniFile.Section("server")
	cfg.BaseURL = server.Key("base_url").MustString(cfg.BaseURL)
	cfg.Timeout = time.Duration(server.Key("timeout_seconds").MustInt(int(cfg.Timeout/time.Second))) * time.Second
	cfg.RetryMax = server.Key("retry_max").MustInt(cfg.RetryMax)
	cfg.RequestsPerSecond = server.Key("requests_per_second").MustFloat64(cfg.RequestsPerSecond)

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	workflow := iniFile.Section("workflow")
	cfg.PersistDelay = time.Duration(workflow.Key("persist_delay_ms").MustInt(int(cfg.PersistDelay/time.Millisecond))) * time.Millisecond
	cfg.ReportDelay = time.Duration(workflow.Key("report_delay_ms").MustInt(int(cfg.ReportDelay/time.Millisecond))) * time.Millisecond
	cfg.UploadTimeout = time.Duration(workflow.Key("upload_timeout_seconds").MustInt(int(cfg.UploadTimeout/time.Second))) * time.Second

	browser := iniFile.Section("browser")
	cfg.SearchDebounce = time.Duration(browser.Key("debounce_ms").MustInt(int(cfg.SearchDebounce/time.Millisecond))) * time.Millisecond
	cfg.PreviewRows = browser.Key("preview_rows").MustInt(cfg.PreviewRows)

	monitor := iniFile.Section("monitor")
	cfg.ProbeInterval = time.Duration(monitor.Key("interval_seconds").MustInt(int(cfg.ProbeInterval/time.Second))) * time.Second

	notify := iniFile.Section("notifications")
	cfg.NotificationsEnabled = notify.Key("enabled").MustBool(true)
	cfg.DesktopNotifications = notify.Key("desktop").MustBool(false)

	cfg.LogFile = iniFile.Section("logging").Key("file").String()

	return cfg, nil
}

// SaveConfig writes the configuration to an INI file.
// The proxy password is never persisted.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()
	sections := []struct {
		name string
		keys [][2]string
	}{
		{"server", [][2]string{
			{"base_url", cfg.BaseURL},
			{"timeout_seconds", strconv.Itoa(int(cfg.Timeout / time.Second))},
			{"retry_max", strconv.Itoa(cfg.RetryMax)},
			{"requests_per_second", strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)},
		}},
		{"proxy", [][2]string{
			{"mode", cfg.ProxyMode},
			{"host", cfg.ProxyHost},
			{"port", strconv.Itoa(cfg.ProxyPort)},
			{"user", cfg.ProxyUser},
			{"no_proxy", cfg.NoProxy},
			{"warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		}},
		{"workflow", [][2]string{
			{"persist_delay_ms", strconv.Itoa(int(cfg.PersistDelay / time.Millisecond))},
			{"report_delay_ms", strconv.Itoa(int(cfg.ReportDelay / time.Millisecond))},
			{"upload_timeout_seconds", strconv.Itoa(int(cfg.UploadTimeout / time.Second))},
		}},
		{"browser", [][2]string{
			{"debounce_ms", strconv.Itoa(int(cfg.SearchDebounce / time.Millisecond))},
			{"preview_rows", strconv.Itoa(cfg.PreviewRows)},
		}},
		{"monitor", [][2]string{
			{"interval_seconds", strconv.Itoa(int(cfg.ProbeInterval / time.Second))},
		}},
		{"notifications", [][2]string{
			{"enabled", strconv.FormatBool(cfg.NotificationsEnabled)},
			{"desktop", strconv.FormatBool(cfg.DesktopNotifications)},
		}},
		{"logging", [][2]string{
			{"file", cfg.LogFile},
		}},
	}

	for _, s := range sections {
		sec, err := iniFile.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.name, err)
		}
		for _, kv := range s.keys {
			sec.Key(kv[0]).SetValue(kv[1])
		}
	}

	return writeINIAtomic(iniFile, path)
}

// writeINIAtomic saves through a temporary file and rename.
func writeINIAtomic(f *ini.File, path string) error {
	tmpPath := path + ".tmp"
	if err := f.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadDotEnv loads a .env file from the working directory, if present.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables on the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvNoDesktop); v == "1" || strings.EqualFold(v, "true") {
		c.DesktopNotifications = false
	}
	if v := os.Getenv(EnvProxyPassword); v != "" {
		c.ProxyPassword = v
	}
	if v := os.Getenv(EnvStateDir); v != "" {
		c.StateDir = v
	}
}

// Normalize trims the base URL and adds a scheme when missing.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http") {
		c.BaseURL = "http://" + c.BaseURL
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxyMode
	}

	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.By(isHTTPURL)),
		validation.Field(&c.RetryMax, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.PreviewRows, validation.Required, validation.Min(1)),
		validation.Field(&c.ProbeInterval, validation.Min(time.Second)),
		validation.Field(&c.Timeout, validation.Min(time.Second)),
		validation.Field(&c.ProxyPort, validation.Min(0), validation.Max(65535)),
	)
}

func isHTTPURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}
