package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/models"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no saved file listing; run 'files list' first")

// snapshotVersion is bumped when the on-disk layout changes.
const snapshotVersion = 1

// SavedSnapshot is the on-disk form of a listing.
type SavedSnapshot struct {
	Version   int                        `json:"version"`
	BaseURL   string                     `json:"base_url"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Listing   *models.LocalFilesResponse `json:"listing"`
}

// SnapshotStore saves the last listing under the state directory so a
// later invocation can answer detail queries without a network call.
type SnapshotStore struct {
	stateDir  string
	stateFile string
}

// NewSnapshotStore creates a store in dir, creating dir if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if dir == "" {
		return nil, errors.New("state directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &SnapshotStore{
		stateDir:  dir,
		stateFile: constants.SnapshotFileName,
	}, nil
}

// GetStatePath returns the full path to the snapshot file.
func (sm *SnapshotStore) GetStatePath() string {
	return filepath.Join(sm.stateDir, sm.stateFile)
}

// Save writes the listing fetched from baseURL.
func (sm *SnapshotStore) Save(baseURL string, listing *models.LocalFilesResponse, fetchedAt time.Time) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(&SavedSnapshot{
		Version:   snapshotVersion,
		BaseURL:   baseURL,
		FetchedAt: fetchedAt.UTC(),
		Listing:   listing,
	}); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	statePath := sm.GetStatePath()
	tmpPath := statePath + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, statePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load reads the saved listing. A snapshot taken from a different backend
// or by an older layout is treated as missing.
func (sm *SnapshotStore) Load(baseURL string) (*SavedSnapshot, error) {
	data, err := os.ReadFile(sm.GetStatePath())
	if os.IsNotExist(err) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var snap SavedSnapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if snap.Version != snapshotVersion || snap.Listing == nil || (baseURL != "" && snap.BaseURL != baseURL) {
		return nil, ErrNoSnapshot
	}
	return &snap, nil
}

// Restore loads the saved listing into s. It returns ErrNoSnapshot when
// there is nothing usable.
func (sm *SnapshotStore) Restore(s *FileListState, baseURL string) error {
	snap, err := sm.Load(baseURL)
	if err != nil {
		return err
	}
	s.SetSnapshot(snap.Listing, snap.FetchedAt)
	return nil
}

// Clear removes the saved listing.
func (sm *SnapshotStore) Clear() error {
	if err := os.Remove(sm.GetStatePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}
