// Package state holds the file browser's snapshot of the processed-file
// listing and persists it between CLI invocations.
package state

import (
	"sync"
	"time"

	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/models"
)

// FileListState is the most recent /local-files listing plus the loading
// and error flags. A refresh replaces the listing wholesale.
// Thread-safe for concurrent access.
type FileListState struct {
	snapshot  *models.LocalFilesResponse
	fetchedAt time.Time
	loading   bool
	lastError error

	mu sync.RWMutex
}

// NewFileListState creates an empty state.
func NewFileListState() *FileListState {
	return &FileListState{}
}

// SetSnapshot replaces the listing and clears the loading and error flags.
func (s *FileListState) SetSnapshot(snap *models.LocalFilesResponse, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.fetchedAt = fetchedAt
	s.loading = false
	s.lastError = nil
}

// Snapshot returns the current listing, or nil before the first load.
func (s *FileListState) Snapshot() *models.LocalFilesResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// FetchedAt returns when the current listing was fetched.
func (s *FileListState) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// SetLoading marks the list as loading.
func (s *FileListState) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// IsLoading returns whether the list is currently loading.
func (s *FileListState) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetError records a failed refresh. The listing is left as it was.
func (s *FileListState) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.loading = false
}

// GetError returns the last error.
func (s *FileListState) GetError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Files returns a copy of the daily file entries.
func (s *FileListState) Files() []models.FileSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil
	}
	result := make([]models.FileSummary, len(s.snapshot.DailyFiles.LatestFilesInfo))
	copy(result, s.snapshot.DailyFiles.LatestFilesInfo)
	return result
}

// FindByName finds a daily file by name. The master summary is found
// under constants.MasterSummaryFile.
func (s *FileListState) FindByName(name string) (models.FileSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return models.FileSummary{}, false
	}

	for _, item := range s.snapshot.DailyFiles.LatestFilesInfo {
		if item.File == name {
			return item, true
		}
	}

	m := s.snapshot.MasterSummary
	if name == constants.MasterSummaryFile && m.Available() {
		return models.FileSummary{
			File:           constants.MasterSummaryFile,
			Rows:           m.RowCount,
			GrandTotalDate: m.GrandTotalDate,
			Columns:        m.Columns,
			CreatedAt:      m.CreatedAt,
			Sample:         m.Sample,
			Stats:          m.Stats,
		}, true
	}
	return models.FileSummary{}, false
}

// Count returns the number of daily entries in the listing.
func (s *FileListState) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return 0
	}
	return len(s.snapshot.DailyFiles.LatestFilesInfo)
}
