package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"
)

// PrefsFileName is the preference store file inside the state directory.
const PrefsFileName = "prefs"

// Preferences is a small persisted key-value store for client state
// such as the theme.
type Preferences struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// NewPreferences returns an empty store backed by dir/prefs.
func NewPreferences(dir string) *Preferences {
	return &Preferences{
		path:   filepath.Join(dir, PrefsFileName),
		values: make(map[string]string),
	}
}

// Path returns the backing file.
func (p *Preferences) Path() string { return p.path }

// Load reads the store. A missing file leaves it empty.
func (p *Preferences) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.values = make(map[string]string)
	if _, err := os.Stat(p.path); os.IsNotExist(err) {
		return nil
	}

	f, err := ini.Load(p.path)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	for _, key := range f.Section(ini.DefaultSection).Keys() {
		p.values[key.Name()] = key.String()
	}
	return nil
}

// Save writes the store.
func (p *Preferences) Save() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := EnsureDir(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	f := ini.Empty()
	sec := f.Section(ini.DefaultSection)
	for k, v := range p.values {
		sec.Key(k).SetValue(v)
	}
	return writeINIAtomic(f, p.path)
}

// Get returns a value and whether it is set.
func (p *Preferences) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Set stores a value in memory; call Save to persist.
func (p *Preferences) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// Delete removes key from memory; call Save to persist.
func (p *Preferences) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
}
