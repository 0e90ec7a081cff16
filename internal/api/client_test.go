package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/progress"
	"github.com/invdash/invdash/internal/testbackend"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.NewConfig()
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = 0
	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return client
}

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "march_01.xlsx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type countingReporter struct {
	total    int64
	last     int64
	finished bool
}

func (r *countingReporter) Start(total int64, description string) { r.total = total }
func (r *countingReporter) Update(current int64)                  { r.last = current }
func (r *countingReporter) Finish()                               { r.finished = true }
func (r *countingReporter) Error(err error)                       {}

// TestNewClientRejectsEmptyBaseURL verifies that NewClient fails with a clear error
// instead of creating a client that fails every request.
func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.NewConfig()
	cfg.BaseURL = ""

	_, err := NewClient(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API base URL is empty")
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	client := newTestClient(t, "http://localhost:5000/")
	assert.Equal(t, "http://localhost:5000", client.BaseURL())
}

func TestProcess_Success(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()

	client := newTestClient(t, backend.URL)
	path := writeSheet(t, "sheet-bytes")
	reporter := &countingReporter{}

	resp, err := client.Process(context.Background(), path, "2024-03-01", reporter)
	require.NoError(t, err)
	require.NotNil(t, resp.Results)
	assert.Equal(t, int64(120), resp.Results.TotalRecords)
	assert.Len(t, resp.Logs, 3)

	up := backend.LastUpload()
	require.NotNil(t, up)
	assert.Equal(t, "march_01.xlsx", up.FileName)
	assert.Equal(t, "2024-03-01", up.Date)
	assert.Equal(t, int64(len("sheet-bytes")), up.Size)

	assert.Equal(t, int64(len("sheet-bytes")), reporter.total)
	assert.Equal(t, reporter.total, reporter.last)
	assert.True(t, reporter.finished)
}

// finishRecorder notes whether the server was already handling the
// request when the last file byte went through the reporter.
type finishRecorder struct {
	progress.NoOpProgress
	serverStarted *atomic.Bool
	finished      atomic.Bool
	sawServer     atomic.Bool
}

func (r *finishRecorder) Finish() {
	r.sawServer.Store(r.serverStarted.Load())
	r.finished.Store(true)
}

func TestUploadForProcessing_StreamsBody(t *testing.T) {
	const size = 32 << 20

	var started atomic.Bool
	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started.Store(true)
		n, _ := io.Copy(io.Discard, r.Body)
		received.Store(n)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "large.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	rec := &finishRecorder{serverStarted: &started}
	r, err := newTestClient(t, srv.URL).UploadForProcessing(context.Background(), path, "2024-05-01", rec)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, r.StatusCode)

	assert.True(t, rec.finished.Load())
	assert.True(t, rec.sawServer.Load(), "body must reach the server while the file is still being read")
	assert.Greater(t, received.Load(), int64(size))
}

func TestProcess_AppError(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	backend.Set(testbackend.RouteProcess, testbackend.Reply{
		Status: http.StatusInternalServerError,
		Body:   map[string]interface{}{"error": "Invalid file format", "logs": []string{"x - [ERROR] bad sheet"}},
	})

	client := newTestClient(t, backend.URL)
	_, err := client.Process(context.Background(), writeSheet(t, "x"), "2024-03-01", nil)

	require.Error(t, err)
	assert.True(t, IsApp(err))
	assert.False(t, IsTransport(err))
	assert.Equal(t, "Invalid file format", Message(err))
	assert.Equal(t, 1, backend.Calls(testbackend.RouteProcess), "no retry by default")
}

func TestProcess_NonJSONErrorStatus(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	backend.Set(testbackend.RouteProcess, testbackend.Reply{Status: http.StatusBadGateway, Raw: "<html>bad gateway</html>"})

	client := newTestClient(t, backend.URL)
	_, err := client.Process(context.Background(), writeSheet(t, "x"), "2024-03-01", nil)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Equal(t, "server returned status 502", Message(err))
}

func TestProcess_MissingResults(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	backend.Set(testbackend.RouteProcess, testbackend.Reply{Body: map[string]interface{}{"logs": []string{}}})

	client := newTestClient(t, backend.URL)
	_, err := client.Process(context.Background(), writeSheet(t, "x"), "2024-03-01", nil)
	assert.True(t, IsTransport(err))
}

func TestProcess_MissingFile(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	_, err := client.Process(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), "2024-03-01", nil)
	require.Error(t, err)
	assert.False(t, IsTransport(err))
}

func TestConnectionRefusedIsTransport(t *testing.T) {
	backend := testbackend.New()
	url := backend.URL
	backend.Close()

	client := newTestClient(t, url)
	_, err := client.LocalFiles(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestPreview(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	client := newTestClient(t, backend.URL)

	resp, err := client.Preview(context.Background())
	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(8), resp.Metrics.UniqueBrands)

	backend.Set(testbackend.RoutePreview, testbackend.Reply{Body: map[string]string{"warning": "No data found in database"}})
	_, err = client.Preview(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Equal(t, "No data found in database", Message(err))
}

func TestVisualizations(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	client := newTestClient(t, backend.URL)

	resp, err := client.Visualizations(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, resp.Visualizations, 4)
	assert.Equal(t, 1, backend.Calls(testbackend.RouteVisualizations))

	rng := &models.DateRange{Start: "2024-03-01", End: "2024-03-31"}
	_, err = client.Visualizations(context.Background(), rng)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Calls(testbackend.RouteVisualizationsRange))
	assert.Equal(t, rng, backend.LastRange())
}

func TestLocalFilesAndDelete(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	client := newTestClient(t, backend.URL)

	files, err := client.LocalFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files.DailyFiles.LatestFilesInfo, 3)
	assert.True(t, files.MasterSummary.Available())

	_, err = client.DeleteFile(context.Background(), "march_01.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"march_01.xlsx"}, backend.Deleted())

	backend.Set(testbackend.RouteDelete, testbackend.Reply{Status: http.StatusNotFound, Body: map[string]string{"error": "File not found"}})
	_, err = client.DeleteFile(context.Background(), "gone.xlsx")
	assert.True(t, IsApp(err))
}

func TestDownload(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	backend.PutFile("march_01.xlsx", []byte("workbook"))
	client := newTestClient(t, backend.URL)

	var buf bytes.Buffer
	n, err := client.Download(context.Background(), "march_01.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "workbook", buf.String())

	buf.Reset()
	_, err = client.Download(context.Background(), "missing.xlsx", &buf)
	require.Error(t, err)
	assert.True(t, IsApp(err))
	assert.Equal(t, "File not found", Message(err))
	assert.Zero(t, buf.Len())
}

type reservingWriter struct {
	bytes.Buffer
	reserved int64
	err      error
}

func (w *reservingWriter) Reserve(size int64) error {
	w.reserved = size
	return w.err
}

func TestDownload_ReservesAnnouncedSize(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	backend.PutFile("march_01.xlsx", []byte("workbook"))
	client := newTestClient(t, backend.URL)

	w := &reservingWriter{}
	_, err := client.Download(context.Background(), "march_01.xlsx", w)
	require.NoError(t, err)
	assert.Equal(t, int64(8), w.reserved)
	assert.Equal(t, "workbook", w.String())

	full := errors.New("disk full")
	w = &reservingWriter{err: full}
	_, err = client.Download(context.Background(), "march_01.xlsx", w)
	assert.ErrorIs(t, err, full)
	assert.Zero(t, w.Len(), "nothing is copied after a refused reservation")
}

func TestDownloadZip(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	backend.SetZip([]byte("zipdata"))
	client := newTestClient(t, backend.URL)

	var buf bytes.Buffer
	_, err := client.DownloadZip(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, "zipdata", buf.String())
}

func TestGrandTotal(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	client := newTestClient(t, backend.URL)

	require.NoError(t, client.GrandTotal(context.Background()))

	backend.Set(testbackend.RouteGrandTotal, testbackend.Reply{Raw: "maintenance"})
	err := client.GrandTotal(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestDecode_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"ok", 200, `{"logs":[]}`, func(t *testing.T, err error) { assert.NoError(t, err) }},
		{"app error on 200", 200, `{"error":"boom"}`, func(t *testing.T, err error) { assert.True(t, IsApp(err)) }},
		{"warning", 200, `{"warning":"empty"}`, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoData) }},
		{"bare error status", 500, `{}`, func(t *testing.T, err error) { assert.True(t, IsTransport(err)) }},
		{"not json", 200, `nope`, func(t *testing.T, err error) { assert.True(t, IsTransport(err)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Decode(&Response{Op: "test", StatusCode: tt.status, Body: []byte(tt.body)}, nil))
		})
	}
}

func TestMessage_LongBodySnippet(t *testing.T) {
	s := snippet([]byte(strings.Repeat("x", 500)))
	assert.True(t, strings.HasSuffix(s, "..."))
	assert.Equal(t, "empty response", snippet(nil))
}
