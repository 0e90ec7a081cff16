// Package notify shows transient toasts: a line on the terminal and,
// when enabled, a desktop notification through github.com/gen2brain/beeep.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/logging"
)

const appTitle = "Inventory Dashboard"

// Notifier delivers toasts.
type Notifier struct {
	logger  *logging.Logger
	bus     *events.EventBus
	out     io.Writer
	desktop bool
	enabled bool
	mu      sync.RWMutex

	// sender delivers desktop notifications; replaced in tests
	sender func(kind events.ToastKind, title, message string) error
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if toasts are shown at all.
	Enabled bool

	// Desktop also sends each toast as an OS notification.
	Desktop bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Desktop: false, // terminal only unless asked for
	}
}

// NewNotifier creates a notifier writing terminal toasts to out.
func NewNotifier(cfg *Config, out io.Writer, bus *events.EventBus, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Notifier{
		logger:  logger,
		bus:     bus,
		out:     out,
		desktop: cfg.Desktop,
		enabled: cfg.Enabled,
		sender:  sendDesktop,
	}
}

// SetEnabled enables or disables toasts.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether toasts are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// SetDesktop toggles OS notifications.
func (n *Notifier) SetDesktop(desktop bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.desktop = desktop
}

// Toast shows one notification of the given kind.
// The bus always sees it so a disabled terminal sink does not hide it from tests.
func (n *Notifier) Toast(kind events.ToastKind, message string) {
	n.bus.PublishToast(kind, message)

	n.mu.RLock()
	enabled, desktop := n.enabled, n.desktop
	n.mu.RUnlock()
	if !enabled {
		return
	}

	fmt.Fprintf(n.out, "%s %s\n", badge(kind), message)

	if desktop {
		if err := n.sender(kind, appTitle, truncate(message, 200)); err != nil {
			n.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to send desktop notification")
		}
	}
}

// Success shows a success toast.
func (n *Notifier) Success(message string) { n.Toast(events.ToastSuccess, message) }

// Info shows an info toast.
func (n *Notifier) Info(message string) { n.Toast(events.ToastInfo, message) }

// Warning shows a warning toast.
func (n *Notifier) Warning(message string) { n.Toast(events.ToastWarning, message) }

// Error shows an error toast.
func (n *Notifier) Error(message string) { n.Toast(events.ToastError, message) }

func badge(kind events.ToastKind) string {
	switch kind {
	case events.ToastSuccess:
		return "[✓]"
	case events.ToastWarning:
		return "[!]"
	case events.ToastError:
		return "[✗]"
	default:
		return "[i]"
	}
}

// sendDesktop uses beeep.Alert for errors, which is more prominent on
// some platforms, and falls back to a plain notification.
func sendDesktop(kind events.ToastKind, title, message string) error {
	if kind == events.ToastError {
		if err := beeep.Alert(title, message, ""); err == nil {
			return nil
		}
	}
	return beeep.Notify(title, message, "")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
