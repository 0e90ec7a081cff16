// Package dashboard wires the client components together and runs the
// interactive shell.
package dashboard

import (
	"fmt"
	"io"

	"github.com/invdash/invdash/internal/activity"
	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/archive"
	"github.com/invdash/invdash/internal/browser"
	"github.com/invdash/invdash/internal/charts"
	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/connectivity"
	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/events"
	inthttp "github.com/invdash/invdash/internal/http"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/notify"
	"github.com/invdash/invdash/internal/preview"
	"github.com/invdash/invdash/internal/state"
	"github.com/invdash/invdash/internal/theme"
	"github.com/invdash/invdash/internal/workflow"
)

// App holds one instance of every component, sharing a log, a notifier
// and an event bus.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Bus      *events.EventBus
	Client   *api.Client
	Log      *activity.Log
	Notifier *notify.Notifier
	Prefs    *config.Preferences

	Workflow *workflow.Controller
	Browser  *browser.Browser
	Preview  *preview.Panel
	Charts   *charts.Panel
	Monitor  *connectivity.Monitor
	Theme    *theme.Manager
}

// NewApp builds the components from cfg. Toasts are written to out.
func NewApp(cfg *config.Config, logger *logging.Logger, out io.Writer) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client, err := api.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	log := activity.NewLog(bus, logger)
	notifier := notify.NewNotifier(&notify.Config{
		Enabled: cfg.NotificationsEnabled,
		Desktop: cfg.DesktopNotifications,
	}, out, bus, logger)

	// Both stores are optional; the dashboard still works without them.
	store, err := state.NewSnapshotStore(cfg.StateDir)
	if err != nil {
		logger.Warn().Err(err).Msg("File snapshot cache disabled")
		store = nil
	}
	prefs := config.NewPreferences(cfg.StateDir)
	if err := prefs.Load(); err != nil {
		logger.Warn().Err(err).Msg("Preferences not loaded, using defaults")
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Bus:      bus,
		Client:   client,
		Log:      log,
		Notifier: notifier,
		Prefs:    prefs,
		Workflow: workflow.NewController(client, log, notifier, bus, logger, workflow.OptionsFromConfig(cfg)),
		Browser: browser.New(client, log, notifier, bus, logger, browser.Options{
			PreviewRows: cfg.PreviewRows,
			Debounce:    cfg.SearchDebounce,
			Store:       store,
			BaseURL:     client.BaseURL(),
		}),
		Preview: preview.NewPanel(client, log, notifier, logger),
		Charts:  charts.NewPanel(client, log, notifier, logger),
		Monitor: connectivity.NewMonitor(client, log, bus, logger, cfg.ProbeInterval),
		Theme:   theme.NewManager(prefs, bus),
	}, nil
}

// Archiver returns an uploader for an s3:// or azblob:// URL using the
// configured proxy settings.
func (a *App) Archiver(rawURL string) (*archive.Archiver, error) {
	httpClient, err := inthttp.CreateClient(a.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	opts := archive.OptionsFromEnv()
	opts.HTTPClient = httpClient
	return archive.New(rawURL, opts, a.Logger)
}

// Close stops background work and releases the bus.
func (a *App) Close() {
	a.Browser.Close()
	a.Bus.Close()
}
