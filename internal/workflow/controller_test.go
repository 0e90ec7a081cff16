package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invdash/invdash/internal/activity"
	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/progress"
	"github.com/invdash/invdash/internal/testbackend"
)

type toast struct {
	kind    events.ToastKind
	message string
}

type recordingToaster struct {
	mu     sync.Mutex
	toasts []toast
}

func (r *recordingToaster) Toast(kind events.ToastKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast{kind, message})
}

func (r *recordingToaster) all() []toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toast(nil), r.toasts...)
}

type stubUploader struct {
	calls   atomic.Int32
	fn      func(ctx context.Context) (*api.Response, error)
	entered chan struct{}
}

func (s *stubUploader) UploadForProcessing(ctx context.Context, filePath, date string, reporter progress.Reporter) (*api.Response, error) {
	s.calls.Add(1)
	if s.entered != nil {
		close(s.entered)
	}
	return s.fn(ctx)
}

func fastOptions() Options {
	return Options{
		UploadTimeout:  5 * time.Second,
		ProcessTimeout: time.Second,
		PersistDelay:   10 * time.Millisecond,
		ReportDelay:    10 * time.Millisecond,
	}
}

func tempSheet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "march_01.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("sheet"), 0644))
	return path
}

func messages(log *activity.Log) []string {
	var out []string
	for _, e := range log.Entries() {
		out = append(out, e.Message)
	}
	return out
}

func newBackendController(t *testing.T, backend *testbackend.Backend) (*Controller, *activity.Log, *recordingToaster) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.BaseURL = backend.URL
	cfg.RequestsPerSecond = 0
	client, err := api.NewClient(cfg, nil)
	require.NoError(t, err)

	log := activity.NewLog(nil, nil)
	toaster := &recordingToaster{}
	return NewController(client, log, toaster, nil, nil, fastOptions()), log, toaster
}

func TestSubmit_MissingInput(t *testing.T) {
	up := &stubUploader{fn: func(context.Context) (*api.Response, error) { return nil, nil }}
	log := activity.NewLog(nil, nil)
	toaster := &recordingToaster{}
	c := NewController(up, log, toaster, nil, nil, fastOptions())

	_, err := c.Submit(context.Background(), Submission{FilePath: "", Date: "2024-03-01"})
	require.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = c.Submit(context.Background(), Submission{FilePath: tempSheet(t), Date: "  "})
	require.ErrorIs(t, err, ErrInvalidSubmission)

	assert.Equal(t, int32(0), up.calls.Load())
	assert.Equal(t, []toast{
		{events.ToastError, MsgMissingInput},
		{events.ToastError, MsgMissingInput},
	}, toaster.all())
	assert.Zero(t, log.Len())
	assert.False(t, c.Busy())
}

func TestSubmit_InvalidDateAndMissingFile(t *testing.T) {
	up := &stubUploader{fn: func(context.Context) (*api.Response, error) { return nil, nil }}
	toaster := &recordingToaster{}
	c := NewController(up, activity.NewLog(nil, nil), toaster, nil, nil, fastOptions())

	_, err := c.Submit(context.Background(), Submission{FilePath: tempSheet(t), Date: "03/01/2024"})
	require.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = c.Submit(context.Background(), Submission{FilePath: filepath.Join(t.TempDir(), "missing.xlsx"), Date: "2024-03-01"})
	require.ErrorIs(t, err, ErrInvalidSubmission)

	toasts := toaster.all()
	require.Len(t, toasts, 2)
	assert.Contains(t, toasts[0].message, "YYYY-MM-DD")
	assert.Contains(t, toasts[1].message, "file not found")
	assert.Equal(t, int32(0), up.calls.Load())
}

func TestSubmit_Success(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	c, log, toaster := newBackendController(t, backend)

	var seen []events.PhaseEvent
	c.Observe(func(ev events.PhaseEvent) { seen = append(seen, ev) })

	out, err := c.Submit(context.Background(), Submission{FilePath: tempSheet(t), Date: "2024-03-01"})
	require.NoError(t, err)

	assert.Equal(t, "march_01.xlsx", out.DownloadName())
	assert.Equal(t, MsgCompleted, c.Status())
	assert.Equal(t, StateIdle, c.State())
	assert.Same(t, out, c.Last())
	assert.Equal(t, []string{"completed", "completed", "completed", "completed"}, c.Indicators())

	msgs := messages(log)
	require.Len(t, msgs, 7)
	assert.Equal(t, []string{
		"Starting file upload...",
		"Processing data...",
		"Updating database...",
		"Generating report...",
	}, msgs[:4])
	assert.Equal(t, "Reading march_01.xlsx", msgs[4])
	assert.Equal(t, 1, log.CountBySeverity(events.SeverityWarning))

	assert.Equal(t, []toast{{events.ToastSuccess, MsgSuccess}}, toaster.all())

	// 4 resets, then active+completed for each phase
	require.Len(t, seen, 12)
	for i := 0; i < 4; i++ {
		assert.Equal(t, progress.StepInactive, seen[i].State)
	}
	assert.Equal(t, PhaseUpload, seen[4].Phase)
	assert.Equal(t, progress.StepActive, seen[4].State)
	assert.Equal(t, progress.StepCompleted, seen[5].State)
	assert.Equal(t, PhaseReport, seen[11].Phase)

	summary := out.Summary()
	assert.Equal(t, [2]string{"Daily Total Sales", "15,400.5"}, summary[4])
}

func TestSubmit_AppErrorAtProcess(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()
	backend.Set(testbackend.RouteProcess, testbackend.Reply{
		Status: 400,
		Body:   map[string]string{"error": "Invalid file format"},
	})
	c, log, toaster := newBackendController(t, backend)

	_, err := c.Submit(context.Background(), Submission{FilePath: tempSheet(t), Date: "2024-03-01"})
	require.Error(t, err)

	var pe *PhaseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseProcess, pe.Phase)
	assert.True(t, api.IsApp(err))

	assert.Equal(t, []string{"completed", "inactive", "inactive", "inactive"}, c.Indicators())
	assert.Equal(t, "Error: Invalid file format", c.Status())
	assert.Equal(t, 1, log.CountBySeverity(events.SeverityError))
	assert.Equal(t, []toast{{events.ToastError, "Error: Invalid file format"}}, toaster.all())
	assert.Nil(t, c.Last())
	assert.False(t, c.Busy())
}

func TestSubmit_TransportErrorSamePath(t *testing.T) {
	up := &stubUploader{fn: func(context.Context) (*api.Response, error) {
		return nil, &api.TransportError{Op: "process", Err: errors.New("connection refused")}
	}}
	log := activity.NewLog(nil, nil)
	toaster := &recordingToaster{}
	c := NewController(up, log, toaster, nil, nil, fastOptions())

	_, err := c.Submit(context.Background(), Submission{FilePath: tempSheet(t), Date: "2024-03-01"})
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))

	assert.Equal(t, []string{"inactive", "inactive", "inactive", "inactive"}, c.Indicators())
	assert.Equal(t, "Error: connection refused", c.Status())
	assert.Equal(t, 1, log.CountBySeverity(events.SeverityError))
	assert.Len(t, toaster.all(), 1)
	assert.Equal(t, int32(1), up.calls.Load(), "no retry")
}

func TestSubmit_BusyGuard(t *testing.T) {
	release := make(chan struct{})
	up := &stubUploader{
		entered: make(chan struct{}),
		fn: func(ctx context.Context) (*api.Response, error) {
			<-release
			return nil, &api.TransportError{Op: "process", Err: errors.New("aborted")}
		},
	}
	c := NewController(up, activity.NewLog(nil, nil), &recordingToaster{}, nil, nil, fastOptions())
	sub := Submission{FilePath: tempSheet(t), Date: "2024-03-01"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Submit(context.Background(), sub)
	}()

	<-up.entered
	assert.True(t, c.Busy())
	_, err := c.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	<-done
	assert.Equal(t, int32(1), up.calls.Load())
	assert.False(t, c.Busy())
}

func TestSubmit_UploadTimeout(t *testing.T) {
	up := &stubUploader{fn: func(ctx context.Context) (*api.Response, error) {
		<-ctx.Done()
		return nil, &api.TransportError{Op: "process", Err: ctx.Err()}
	}}
	opts := fastOptions()
	opts.UploadTimeout = 30 * time.Millisecond
	c := NewController(up, activity.NewLog(nil, nil), &recordingToaster{}, nil, nil, opts)

	_, err := c.Submit(context.Background(), Submission{FilePath: tempSheet(t), Date: "2024-03-01"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timed out"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_PublishesOnBus(t *testing.T) {
	backend := testbackend.New()
	defer backend.Close()

	cfg := config.NewConfig()
	cfg.BaseURL = backend.URL
	client, err := api.NewClient(cfg, nil)
	require.NoError(t, err)

	bus := events.NewEventBus(100)
	defer bus.Close()
	phases := bus.Subscribe(events.EventPhase)

	c := NewController(client, activity.NewLog(nil, nil), &recordingToaster{}, bus, nil, fastOptions())
	_, err = c.Submit(context.Background(), Submission{FilePath: tempSheet(t), Date: "2024-03-01"})
	require.NoError(t, err)

	assert.Len(t, phases, 12)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.UploadTimeout = time.Minute
	cfg.PersistDelay = 0

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, time.Minute, opts.UploadTimeout)
	assert.Equal(t, time.Duration(0), opts.PersistDelay)
	assert.Equal(t, 30*time.Second, opts.ProcessTimeout)
}
