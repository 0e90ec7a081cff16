package dashboard

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/connectivity"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/preview"
	"github.com/invdash/invdash/internal/testbackend"
	"github.com/invdash/invdash/internal/theme"
)

// safeBuffer is read by the test after Run returns, but debounced renders
// may still be writing.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	app     *App
	backend *testbackend.Backend
	out     *safeBuffer
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testbackend.New()
	t.Cleanup(backend.Close)

	cfg := config.NewConfig()
	cfg.BaseURL = backend.URL
	cfg.StateDir = t.TempDir()
	cfg.SearchDebounce = 10 * time.Millisecond
	cfg.PersistDelay = 0
	cfg.ReportDelay = 0

	out := &safeBuffer{}
	app, err := NewApp(cfg, nil, out)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &fixture{app: app, backend: backend, out: out, cfg: cfg}
}

// run feeds script to a shell with the monitor and animation off.
func (f *fixture) run(t *testing.T, script string) {
	t.Helper()
	sh := NewShell(f.app, strings.NewReader(script), f.out)
	sh.Animate = false
	sh.StartMonitor = false
	require.NoError(t, sh.Run(context.Background()))
}

func (f *fixture) messages() []string {
	var msgs []string
	for _, e := range f.app.Log.Entries() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter()
	var got []string
	r.Handle(Route{Name: "files", Aliases: []string{"ls"}, Usage: "files [filter]", Handler: func(ctx context.Context, args []string) error {
		got = args
		return nil
	}})
	r.Handle(Route{Name: "upload", Usage: "upload <file> <date>", Handler: func(ctx context.Context, args []string) error {
		return ErrUsage
	}})

	require.NoError(t, r.Dispatch(context.Background(), "  LS march  02 "))
	assert.Equal(t, []string{"march", "02"}, got)

	assert.NoError(t, r.Dispatch(context.Background(), "   "))

	err := r.Dispatch(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	err = r.Dispatch(context.Background(), "upload")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "upload <file> <date>")

	assert.Equal(t, []string{"files", "ls", "upload"}, r.Names())

	var help bytes.Buffer
	require.NoError(t, r.Help(&help))
	assert.Contains(t, help.String(), "files [filter]")
}

func TestRouter_DuplicatePanics(t *testing.T) {
	r := NewRouter()
	noop := func(ctx context.Context, args []string) error { return nil }
	r.Handle(Route{Name: "quit", Aliases: []string{"exit"}, Handler: noop})
	assert.Panics(t, func() {
		r.Handle(Route{Name: "exit", Handler: noop})
	})
}

func TestShell_EveryCommandRouted(t *testing.T) {
	f := newFixture(t)
	sh := NewShell(f.app, strings.NewReader(""), f.out)
	for _, name := range []string{"upload", "files", "search", "details", "download", "download-all",
		"delete", "preview", "export", "charts", "status", "theme", "logs", "clear", "quit", "help"} {
		_, ok := sh.Router().Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestShell_Startup(t *testing.T) {
	f := newFixture(t)
	f.run(t, "quit\n")

	msgs := f.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, MsgReady, msgs[0])
	assert.Equal(t, 1, f.backend.Calls(testbackend.RouteLocalFiles))

	out := f.out.String()
	assert.Contains(t, out, "Theme: dark")
	assert.Contains(t, out, "march_01.xlsx")
}

func TestShell_EndOfInputStops(t *testing.T) {
	f := newFixture(t)
	f.run(t, "files march\n")
	assert.Equal(t, 2, f.backend.Calls(testbackend.RouteLocalFiles))
	assert.Equal(t, "march", f.app.Browser.Filter())
}

func TestShell_UnknownAndUsage(t *testing.T) {
	f := newFixture(t)
	f.run(t, "bogus\nupload only-one-arg\nquit\n")

	out := f.out.String()
	assert.Contains(t, out, "unknown command: bogus")
	assert.Contains(t, out, "usage: upload <file> <YYYY-MM-DD>")
	assert.Zero(t, f.backend.Calls(testbackend.RouteProcess))
}

func TestShell_Upload(t *testing.T) {
	f := newFixture(t)
	sheet := filepath.Join(t.TempDir(), "march_01.xlsx")
	require.NoError(t, os.WriteFile(sheet, []byte("sheet"), 0644))

	f.run(t, "upload "+sheet+" 2024-03-01\nquit\n")

	require.NotNil(t, f.backend.LastUpload())
	assert.Equal(t, "2024-03-01", f.backend.LastUpload().Date)
	assert.Contains(t, f.out.String(), "Processed file: march_01.xlsx")
	// listing is refreshed after a successful run
	assert.Equal(t, 2, f.backend.Calls(testbackend.RouteLocalFiles))
}

func TestShell_DeleteConfirmed(t *testing.T) {
	f := newFixture(t)
	f.run(t, "delete march_02.xlsx\ny\nquit\n")

	assert.Equal(t, []string{"march_02.xlsx"}, f.backend.Deleted())
	assert.Contains(t, f.out.String(), "Delete march_02.xlsx? This cannot be undone. [y/N]: ")
}

func TestShell_DeleteDeclined(t *testing.T) {
	f := newFixture(t)
	f.run(t, "delete march_02.xlsx\nn\nquit\n")
	assert.Empty(t, f.backend.Deleted())
}

func TestShell_Search(t *testing.T) {
	f := newFixture(t)
	f.run(t, "search feb\nquit\n")

	assert.Equal(t, "feb", f.app.Browser.Filter())
	// search never fetches
	assert.Equal(t, 1, f.backend.Calls(testbackend.RouteLocalFiles))
}

func TestShell_PreviewRefreshToastAlwaysShown(t *testing.T) {
	tests := []struct {
		name  string
		reply testbackend.Reply
		want  string
	}{
		{"warning", testbackend.Reply{Body: map[string]string{"warning": "No data found in database"}}, "No data found in database"},
		{"failure", testbackend.Reply{Status: http.StatusInternalServerError, Body: map[string]string{"error": "database unavailable"}}, preview.MsgLoadErrorRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.Set(testbackend.RoutePreview, tt.reply)
			f.run(t, "preview\nquit\n")

			out := f.out.String()
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, MsgRefreshed)
		})
	}
}

func TestShell_PreviewAndExport(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(t.TempDir(), "out.csv")
	f.run(t, "preview\nexport "+dest+"\nquit\n")

	out := f.out.String()
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, MsgRefreshed)
	assert.Contains(t, out, "Wrote 2 records to "+dest)
	assert.FileExists(t, dest)
}

func TestShell_ChartsRange(t *testing.T) {
	f := newFixture(t)
	f.run(t, "charts 2024-03-01 2024-03-31\ncharts 2024-03-01\nquit\n")

	assert.Equal(t, &models.DateRange{Start: "2024-03-01", End: "2024-03-31"}, f.backend.LastRange())
	assert.Equal(t, 1, f.backend.Calls(testbackend.RouteVisualizationsRange))
	out := f.out.String()
	assert.Contains(t, out, MsgFiltersApplied)
	assert.Contains(t, out, "[brand] Sales by Brand")
}

func TestShell_ThemePersists(t *testing.T) {
	f := newFixture(t)
	f.run(t, "theme toggle\ntheme\nquit\n")
	assert.Contains(t, f.out.String(), "Theme: light")

	prefs := config.NewPreferences(f.cfg.StateDir)
	require.NoError(t, prefs.Load())
	assert.Equal(t, theme.Light, theme.NewManager(prefs, nil).Current())
}

func TestShell_LogsAndClear(t *testing.T) {
	f := newFixture(t)
	f.run(t, "clear\nlogs\nquit\n")

	assert.Equal(t, []string{"Logs cleared."}, f.messages())
	assert.Contains(t, f.out.String(), "Logs cleared.")
}

func TestShell_Status(t *testing.T) {
	f := newFixture(t)
	f.run(t, "status\nquit\n")

	assert.Equal(t, connectivity.StatusOnline, f.app.Monitor.Status())
	assert.Contains(t, f.out.String(), "Server "+f.backend.URL+": Online")
}

func TestShell_MonitorRunsInBackground(t *testing.T) {
	f := newFixture(t)
	in, script := io.Pipe()
	sh := NewShell(f.app, in, f.out)
	sh.Animate = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, m := range f.messages() {
			if m == connectivity.MsgOnline {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "monitor checks at startup")

	_, err := io.WriteString(script, "quit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("quit did not stop the shell while the monitor was running")
	}
	assert.NoError(t, ctx.Err(), "shell returned on quit, not on the deadline")
	assert.Equal(t, 1, f.backend.Calls(testbackend.RouteGrandTotal))
}

func TestShell_EndOfInputStopsMonitor(t *testing.T) {
	f := newFixture(t)
	sh := NewShell(f.app, strings.NewReader(""), f.out)
	sh.Animate = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sh.Run(ctx))
	assert.NoError(t, ctx.Err(), "shell returned at end of input, not on the deadline")
	for _, m := range f.messages() {
		assert.NotEqual(t, connectivity.MsgOffline, m, "an abandoned check is not reported")
	}
}
