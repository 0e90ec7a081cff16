// Package theme reads and writes the light/dark preference.
package theme

import (
	"fmt"
	"time"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/events"
)

// Theme values.
const (
	Light = "light"
	Dark  = "dark"
)

// PrefKey is the preference store key.
const PrefKey = "theme"

// Manager owns the current theme. Anything but an explicit "light"
// preference is dark.
type Manager struct {
	prefs *config.Preferences
	bus   *events.EventBus
}

// NewManager wraps a loaded preference store. bus may be nil.
func NewManager(prefs *config.Preferences, bus *events.EventBus) *Manager {
	return &Manager{prefs: prefs, bus: bus}
}

// Current returns the stored theme.
func (m *Manager) Current() string {
	if v, ok := m.prefs.Get(PrefKey); ok && v == Light {
		return Light
	}
	return Dark
}

// Set persists theme. A failed save leaves the previous theme in place.
func (m *Manager) Set(theme string) error {
	if theme != Light && theme != Dark {
		return fmt.Errorf("unknown theme %q (want light or dark)", theme)
	}
	prev, had := m.prefs.Get(PrefKey)
	m.prefs.Set(PrefKey, theme)
	if err := m.prefs.Save(); err != nil {
		if had {
			m.prefs.Set(PrefKey, prev)
		} else {
			m.prefs.Delete(PrefKey)
		}
		return fmt.Errorf("failed to save theme: %w", err)
	}
	m.bus.Publish(&events.ThemeChangedEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventThemeChanged, Time: time.Now()},
		Theme:     theme,
	})
	return nil
}

// Toggle flips the theme, persists it and returns the new value.
func (m *Manager) Toggle() (string, error) {
	next := Light
	if m.Current() == Light {
		next = Dark
	}
	if err := m.Set(next); err != nil {
		return "", err
	}
	return next, nil
}
