// Package browser lists, filters, downloads and deletes the processed
// files the backend keeps, and shows per-file details from the last fetch.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/invdash/invdash/internal/activity"
	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/debounce"
	"github.com/invdash/invdash/internal/diskspace"
	"github.com/invdash/invdash/internal/display"
	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/state"
	"github.com/invdash/invdash/internal/validation"
)

// ZipFileName is where DownloadAll saves the archive.
const ZipFileName = "processed_files.zip"

// ErrFileNotInSnapshot is returned by Details for a name the last fetch
// did not contain.
var ErrFileNotInSnapshot = errors.New("file not in the current listing")

// FilesAPI is the part of the backend the browser uses.
type FilesAPI interface {
	LocalFiles(ctx context.Context) (*models.LocalFilesResponse, error)
	DeleteFile(ctx context.Context, name string) (*models.DeleteResponse, error)
	Download(ctx context.Context, name string, w io.Writer) (int64, error)
	DownloadZip(ctx context.Context, w io.Writer) (int64, error)
}

// Toaster shows transient notifications.
type Toaster interface {
	Toast(kind events.ToastKind, message string)
}

// Options configure a Browser.
type Options struct {
	PreviewRows int
	Debounce    time.Duration

	// Store, when set, receives every successful listing.
	Store   *state.SnapshotStore
	BaseURL string
}

// Browser owns the listing snapshot and the search text.
type Browser struct {
	api     FilesAPI
	state   *state.FileListState
	log     *activity.Log
	toaster Toaster
	bus     *events.EventBus
	logger  *logging.Logger
	opts    Options

	search *debounce.Debouncer[string]

	mu       sync.Mutex
	filter   string
	view     *View
	onRender []func(*View)
}

// New creates a browser. bus and logger may be nil.
func New(filesAPI FilesAPI, log *activity.Log, toaster Toaster, bus *events.EventBus, logger *logging.Logger, opts Options) *Browser {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = constants.PreviewRows
	}
	if opts.Debounce <= 0 {
		opts.Debounce = constants.SearchDebounce
	}

	b := &Browser{
		api:     filesAPI,
		state:   state.NewFileListState(),
		log:     log,
		toaster: toaster,
		bus:     bus,
		logger:  logger,
		opts:    opts,
	}
	b.search = debounce.New(opts.Debounce, func(text string) {
		b.Refilter(text)
	})
	return b
}

// OnRender registers fn to receive every new view.
func (b *Browser) OnRender(fn func(*View)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onRender = append(b.onRender, fn)
}

// State exposes the snapshot container.
func (b *Browser) State() *state.FileListState {
	return b.state
}

// Filter returns the active search text.
func (b *Browser) Filter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// View returns the last rendered view, or nil.
func (b *Browser) View() *View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// Load fetches the listing, replaces the snapshot and renders it with
// filter. On failure the previous snapshot is kept and an error view is
// rendered.
func (b *Browser) Load(ctx context.Context, filter string) (*View, error) {
	b.mu.Lock()
	b.filter = filter
	b.mu.Unlock()

	b.state.SetLoading(true)
	resp, err := b.api.LocalFiles(ctx)
	if err == nil && resp.Error != "" {
		err = &api.AppError{Op: "local-files", Message: resp.Error}
	}
	if err != nil {
		b.state.SetError(err)
		msg := api.Message(err)

		var view *View
		if api.IsApp(err) {
			view = errorView(filter, "❌ "+msg)
			b.log.Error("Failed to load local files: " + msg)
		} else {
			view = errorView(filter, LoadErrorLine)
			b.log.Error(msg)
		}
		b.toaster.Toast(events.ToastError, "Error: "+msg)
		b.publish(view)
		return view, err
	}

	fetchedAt := time.Now()
	b.state.SetSnapshot(resp, fetchedAt)
	if b.opts.Store != nil {
		if err := b.opts.Store.Save(b.opts.BaseURL, resp, fetchedAt); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to cache file listing")
		}
	}

	view := buildView(resp, filter, b.opts.PreviewRows)
	b.publish(view)

	b.log.Info(fmt.Sprintf("Loaded %d files.", view.Shown))
	b.toaster.Toast(events.ToastSuccess, "Local files loaded successfully!")
	return view, nil
}

// Restore renders the listing cached by an earlier invocation, without
// a network call.
func (b *Browser) Restore() (*View, error) {
	if b.opts.Store == nil {
		return nil, state.ErrNoSnapshot
	}
	if err := b.opts.Store.Restore(b.state, b.opts.BaseURL); err != nil {
		return nil, err
	}
	return b.Refilter(b.Filter()), nil
}

// SetFilter records text and re-renders once input has been quiet for the
// debounce period. Nothing is fetched.
func (b *Browser) SetFilter(text string) {
	b.mu.Lock()
	b.filter = text
	b.mu.Unlock()
	b.search.Trigger(text)
}

// Refilter renders the current snapshot with text immediately. It returns
// nil before the first successful load.
func (b *Browser) Refilter(text string) *View {
	b.mu.Lock()
	b.filter = text
	b.mu.Unlock()

	snap := b.state.Snapshot()
	if snap == nil {
		return nil
	}
	view := buildView(snap, text, b.opts.PreviewRows)
	b.publish(view)
	return view
}

// Close drops any pending debounced render.
func (b *Browser) Close() {
	b.search.Cancel()
}

func (b *Browser) publish(v *View) {
	b.mu.Lock()
	b.view = v
	fns := append(([]func(*View))(nil), b.onRender...)
	b.mu.Unlock()

	if v.Error == "" {
		b.bus.Publish(&events.FilesLoadedEvent{
			BaseEvent:       events.BaseEvent{EventType: events.EventFilesLoaded, Time: time.Now()},
			Shown:           v.Shown,
			Total:           v.Total,
			MasterAvailable: v.MasterAvailable,
			Filter:          v.Filter,
		})
	}
	for _, fn := range fns {
		fn(v)
	}
}

// Download saves name into dir and returns the written path.
func (b *Browser) Download(ctx context.Context, name, dir string) (string, error) {
	if err := validation.ValidateFilename(name); err != nil {
		b.reportError(err)
		return "", err
	}
	b.log.Info("Downloading " + name)
	b.toaster.Toast(events.ToastSuccess, "Downloading "+name)

	path, n, err := b.saveTo(dir, name, func(w io.Writer) (int64, error) {
		return b.api.Download(ctx, name, w)
	})
	if err != nil {
		b.reportError(err)
		return "", err
	}
	b.logger.Info().Str("file", name).Str("path", path).Str("size", display.Bytes(n)).Msg("Download complete")
	return path, nil
}

// DownloadAll saves the archive of every processed file into dir.
func (b *Browser) DownloadAll(ctx context.Context, dir string) (string, error) {
	b.log.Info("Downloading all files as ZIP")
	b.toaster.Toast(events.ToastSuccess, "Downloading all files")

	path, n, err := b.saveTo(dir, ZipFileName, func(w io.Writer) (int64, error) {
		return b.api.DownloadZip(ctx, w)
	})
	if err != nil {
		b.reportError(err)
		return "", err
	}
	b.logger.Info().Str("path", path).Str("size", display.Bytes(n)).Msg("Archive download complete")
	return path, nil
}

// partFile is the temporary download target. It refuses a transfer the
// destination filesystem cannot hold.
type partFile struct {
	*os.File
	dir string
}

func (p partFile) Reserve(size int64) error {
	return diskspace.Check(p.dir, size, constants.DiskSpaceMargin)
}

// saveTo writes through a temporary file so a failed transfer leaves
// nothing behind.
func (b *Browser) saveTo(dir, name string, fetch func(io.Writer) (int64, error)) (string, int64, error) {
	if dir == "" {
		dir = "."
	}
	path, err := validation.JoinInDirectory(dir, name)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := fetch(partFile{File: tmp, dir: dir})
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, n, nil
}

// DeletePrompt is the confirmation question for name.
func DeletePrompt(name string) string {
	return fmt.Sprintf("Delete %s? This cannot be undone.", name)
}

// Delete asks confirm, then removes name on the backend and reloads the
// listing with the active filter. It reports whether the delete was sent.
func (b *Browser) Delete(ctx context.Context, name string, confirm func(prompt string) bool) (bool, error) {
	if confirm == nil || !confirm(DeletePrompt(name)) {
		return false, nil
	}

	resp, err := b.api.DeleteFile(ctx, name)
	if err == nil && resp.Error != "" {
		err = &api.AppError{Op: "delete", Message: resp.Error}
	}
	if err != nil {
		b.reportError(err)
		return true, err
	}

	b.log.Info("Deleted " + name)
	b.toaster.Toast(events.ToastSuccess, "Deleted "+name)

	if _, err := b.Load(ctx, b.Filter()); err != nil {
		return true, err
	}
	return true, nil
}

func (b *Browser) reportError(err error) {
	msg := api.Message(err)
	b.log.Error(msg)
	b.toaster.Toast(events.ToastError, "Error: "+msg)
}

// Details is the per-file modal.
type Details struct {
	Name             string
	TotalSales       string
	TotalPurchases   string
	UniqueBrands     string
	UniqueCategories string
	CreatedAt        string
	Sample           display.Table
	HasSample        bool
}

// Details builds the modal for name from the current snapshot.
func (b *Browser) Details(name string) (*Details, error) {
	f, ok := b.state.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotInSnapshot, name)
	}

	d := &Details{
		Name:             name,
		TotalSales:       "-",
		TotalPurchases:   "-",
		UniqueBrands:     "-",
		UniqueCategories: "-",
		CreatedAt:        dash(display.DateTime(f.CreatedAt)),
	}
	if s := f.Stats; s != nil {
		d.TotalSales = display.Number(s.TotalSales)
		d.TotalPurchases = display.Number(s.TotalPurchases)
		if s.UniqueBrands != 0 {
			d.UniqueBrands = display.Count(s.UniqueBrands)
		}
		if s.UniqueCategories != 0 {
			d.UniqueCategories = display.Count(s.UniqueCategories)
		}
	}
	d.Sample, d.HasSample = SampleTable(f.Sample, f.Columns, 0)
	return d, nil
}

// Render writes the details as text.
func (d *Details) Render(w io.Writer) error {
	fmt.Fprintf(w, "Details for %s\n\n", d.Name)
	if err := display.KeyValues(w, [][2]string{
		{"File", d.Name},
		{"Total Sales", d.TotalSales},
		{"Total Purchases", d.TotalPurchases},
		{"Unique Brands", d.UniqueBrands},
		{"Unique Categories", d.UniqueCategories},
		{"Created At", d.CreatedAt},
	}); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if !d.HasSample {
		_, err := fmt.Fprintln(w, NoSampleLine)
		return err
	}
	return d.Sample.Render(w)
}
