// Package workflow runs the upload → process → persist → report sequence
// for one spreadsheet at a time and drives the four step indicators.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/invdash/invdash/internal/activity"
	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/display"
	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/progress"
)

// Phase names in execution order.
const (
	PhaseUpload  = "upload"
	PhaseProcess = "process"
	PhasePersist = "persist"
	PhaseReport  = "report"
)

// User-facing messages.
const (
	MsgCompleted = "Processing Completed Successfully!"
	MsgSuccess   = "Data processed successfully!"
)

// State is where the current session is.
type State int

const (
	StateIdle State = iota
	StateUploading
	StateProcessing
	StatePersisting
	StateReporting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateProcessing:
		return "processing"
	case StatePersisting:
		return "persisting"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Uploader sends the spreadsheet to the backend.
type Uploader interface {
	UploadForProcessing(ctx context.Context, filePath, date string, reporter progress.Reporter) (*api.Response, error)
}

// Toaster shows transient notifications.
type Toaster interface {
	Toast(kind events.ToastKind, message string)
}

// Options are the per-phase timings.
type Options struct {
	UploadTimeout  time.Duration
	ProcessTimeout time.Duration
	PersistDelay   time.Duration
	ReportDelay    time.Duration
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		UploadTimeout:  constants.UploadPhaseTimeout,
		ProcessTimeout: constants.ProcessPhaseTimeout,
		PersistDelay:   constants.PersistDelay,
		ReportDelay:    constants.ReportDelay,
	}
}

// OptionsFromConfig takes the configurable timings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg.UploadTimeout > 0 {
		opts.UploadTimeout = cfg.UploadTimeout
	}
	if cfg.PersistDelay >= 0 {
		opts.PersistDelay = cfg.PersistDelay
	}
	if cfg.ReportDelay >= 0 {
		opts.ReportDelay = cfg.ReportDelay
	}
	return opts
}

// Outcome is the result of a successful run.
type Outcome struct {
	SessionID string                `json:"session_id" yaml:"session_id"`
	Results   models.ProcessResults `json:"results" yaml:"results"`
	Logs      []string              `json:"logs,omitempty" yaml:"logs,omitempty"`
	Status    string                `json:"status" yaml:"status"`
}

// DownloadName is the processed file offered for download.
func (o *Outcome) DownloadName() string {
	return o.Results.FileName
}

// Summary is the result table shown after a successful run.
func (o *Outcome) Summary() [][2]string {
	r := o.Results
	return [][2]string{
		{"Date", r.Date},
		{"Total Records", display.Count(r.TotalRecords)},
		{"New Records", display.Count(r.NewRecords)},
		{"Updated Records", display.Count(r.UpdatedRecords)},
		{"Daily Total Sales", display.Number(r.DailyTotalSales)},
		{"Daily Total Purchases", display.Number(r.DailyTotalPurchases)},
	}
}

// PhaseError reports the phase a run failed in.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// run carries data between phases of one session.
type run struct {
	id       string
	sub      Submission
	response *api.Response
	decoded  *models.ProcessResponse
}

type step struct {
	name    string
	label   string
	state   State
	message string
	timeout time.Duration
	exec    func(ctx context.Context, r *run) error
}

// Controller owns the upload session, the indicators and the busy guard.
type Controller struct {
	uploader Uploader
	log      *activity.Log
	toaster  Toaster
	bus      *events.EventBus
	logger   *logging.Logger
	steps    []step

	busy atomic.Bool

	mu          sync.Mutex
	state       State
	indicators  []string
	status      string
	last        *Outcome
	observers   []func(events.PhaseEvent)
	newReporter func(sessionID string) progress.Reporter
}

// NewController wires a controller. bus and logger may be nil.
func NewController(uploader Uploader, log *activity.Log, toaster Toaster, bus *events.EventBus, logger *logging.Logger, opts Options) *Controller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Controller{
		uploader: uploader,
		log:      log,
		toaster:  toaster,
		bus:      bus,
		logger:   logger,
	}
	c.steps = []step{
		{PhaseUpload, "Uploading file", StateUploading, "Starting file upload...", opts.UploadTimeout, c.upload},
		{PhaseProcess, "Processing data", StateProcessing, "Processing data...", opts.ProcessTimeout, c.process},
		{PhasePersist, "Updating database", StatePersisting, "Updating database...", opts.PersistDelay + constants.FixedWaitTimeoutSlack, wait(opts.PersistDelay)},
		{PhaseReport, "Generating report", StateReporting, "Generating report...", opts.ReportDelay + constants.FixedWaitTimeoutSlack, wait(opts.ReportDelay)},
	}
	c.indicators = make([]string, len(c.steps))
	c.resetIndicators()
	return c
}

// PhaseLabels returns the indicator labels in order.
func (c *Controller) PhaseLabels() []string {
	labels := make([]string, len(c.steps))
	for i, s := range c.steps {
		labels[i] = s.label
	}
	return labels
}

// Observe registers fn for every indicator transition. Observers run
// synchronously in the order they were added.
func (c *Controller) Observe(fn func(events.PhaseEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// SetProgressReporter adds a byte progress reporter for each upload, next
// to the one publishing on the bus.
func (c *Controller) SetProgressReporter(fn func(sessionID string) progress.Reporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.newReporter = fn
}

// Busy reports whether a session is running.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// State returns the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Indicators returns a copy of the step indicator states.
func (c *Controller) Indicators() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.indicators...)
}

// Status returns the last status message.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Last returns the outcome of the most recent successful run, or nil.
func (c *Controller) Last() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Submit validates sub and runs every phase in order. A second call while
// a session is running returns ErrBusy without touching the network.
func (c *Controller) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	sub = sub.normalized()
	if err := sub.Validate(); err != nil {
		c.toaster.Toast(events.ToastError, sub.message(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	defer c.setState(StateIdle)

	id := uuid.NewString()
	c.begin(id)
	r := &run{id: id, sub: sub}

	c.logger.Info().Str("session", id).Str("file", sub.FilePath).Str("date", sub.Date).Msg("Upload session started")
	started := time.Now()

	for i, st := range c.steps {
		c.log.Info(st.message)
		c.setState(st.state)
		c.indicate(id, i, progress.StepActive, st.message)

		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, st.timeout)
		err := st.exec(stepCtx, r)
		timedOut := errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()

		if err != nil {
			if timedOut {
				err = fmt.Errorf("%s timed out after %s: %w", st.name, st.timeout, err)
			}
			return nil, c.fail(id, st.name, err)
		}

		c.indicate(id, i, progress.StepCompleted, "")
		c.logger.Debug().Str("session", id).Str("phase", st.name).Dur("took", time.Since(stepStart)).Msg("Phase completed")
	}

	out := &Outcome{
		SessionID: id,
		Results:   *r.decoded.Results,
		Logs:      r.decoded.Logs,
		Status:    MsgCompleted,
	}

	c.mu.Lock()
	c.last = out
	c.status = MsgCompleted
	c.state = StateDone
	c.mu.Unlock()

	c.log.AppendServerLines(out.Logs)
	c.toaster.Toast(events.ToastSuccess, MsgSuccess)

	c.logger.Info().Str("session", id).Dur("took", time.Since(started)).Msg("Upload session completed")
	return out, nil
}

func (c *Controller) upload(ctx context.Context, r *run) error {
	reporters := progress.Multi{progress.NewBusProgress(c.bus, r.id)}
	c.mu.Lock()
	if c.newReporter != nil {
		reporters = append(reporters, c.newReporter(r.id))
	}
	c.mu.Unlock()

	resp, err := c.uploader.UploadForProcessing(ctx, r.sub.FilePath, r.sub.Date, reporters)
	if err != nil {
		return err
	}
	r.response = resp
	return nil
}

func (c *Controller) process(ctx context.Context, r *run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	decoded, err := api.DecodeProcess(r.response)
	if err != nil {
		return err
	}
	r.decoded = decoded
	return nil
}

func wait(d time.Duration) func(ctx context.Context, r *run) error {
	return func(ctx context.Context, r *run) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// begin resets indicators and the previous result for a new session.
func (c *Controller) begin(id string) {
	c.mu.Lock()
	c.last = nil
	c.status = ""
	c.mu.Unlock()

	for i := range c.steps {
		c.indicate(id, i, progress.StepInactive, "")
	}
}

// fail reverts Active indicators, reports the error once and returns it.
func (c *Controller) fail(id, phase string, err error) error {
	for i, s := range c.Indicators() {
		if s == progress.StepActive {
			c.indicate(id, i, progress.StepInactive, "")
		}
	}

	msg := "Error: " + api.Message(err)

	c.mu.Lock()
	c.status = msg
	c.state = StateFailed
	c.mu.Unlock()

	c.log.Error(msg)
	c.toaster.Toast(events.ToastError, msg)
	c.logger.Warn().Str("session", id).Str("phase", phase).Err(err).Msg("Upload session failed")

	return &PhaseError{Phase: phase, Err: err}
}

func (c *Controller) resetIndicators() {
	for i := range c.indicators {
		c.indicators[i] = progress.StepInactive
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Controller) indicate(id string, index int, state, message string) {
	c.mu.Lock()
	c.indicators[index] = state
	observers := append(([]func(events.PhaseEvent))(nil), c.observers...)
	c.mu.Unlock()

	ev := events.PhaseEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventPhase, Time: time.Now()},
		SessionID: id,
		Phase:     c.steps[index].name,
		Index:     index,
		State:     state,
		Message:   message,
	}
	c.bus.Publish(&ev)
	for _, fn := range observers {
		fn(ev)
	}
}
