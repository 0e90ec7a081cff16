// Package progress renders workflow feedback in the terminal: byte
// progress for uploads, step indicators for the workflow phases and
// animated counters for preview metrics.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/invdash/invdash/internal/events"
)

// Reporter is the interface for reporting byte progress.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
}

// CLIProgress implements progress reporting using a progress bar.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a progress bar reporter writing to out (stderr when nil).
func NewCLIProgress(out io.Writer) *CLIProgress {
	if out == nil {
		out = os.Stderr
	}
	return &CLIProgress{out: out}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error leaves the bar where it stopped.
func (p *CLIProgress) Error(err error) {
	if p.bar != nil {
		_ = p.bar.Exit()
	}
}

// BusProgress publishes byte progress on the event bus.
type BusProgress struct {
	bus       *events.EventBus
	sessionID string
	total     int64
}

// NewBusProgress creates a reporter tagged with a workflow session id.
func NewBusProgress(bus *events.EventBus, sessionID string) *BusProgress {
	return &BusProgress{bus: bus, sessionID: sessionID}
}

// Start publishes the initial event.
func (p *BusProgress) Start(total int64, description string) {
	p.total = total
	p.bus.PublishProgress(p.sessionID, 0, total)
}

// Update publishes a progress event.
func (p *BusProgress) Update(current int64) {
	p.bus.PublishProgress(p.sessionID, current, p.total)
}

// Finish publishes completion.
func (p *BusProgress) Finish() {
	p.bus.PublishProgress(p.sessionID, p.total, p.total)
}

// Error does nothing; the workflow reports failures itself.
func (p *BusProgress) Error(err error) {}

// Multi fans out to several reporters.
type Multi []Reporter

func (m Multi) Start(total int64, description string) {
	for _, r := range m {
		r.Start(total, description)
	}
}

func (m Multi) Update(current int64) {
	for _, r := range m {
		r.Update(current)
	}
}

func (m Multi) Finish() {
	for _, r := range m {
		r.Finish()
	}
}

func (m Multi) Error(err error) {
	for _, r := range m {
		r.Error(err)
	}
}

// NoOpProgress is a progress reporter that does nothing.
type NoOpProgress struct{}

func (NoOpProgress) Start(total int64, description string) {}
func (NoOpProgress) Update(current int64)                  {}
func (NoOpProgress) Finish()                               {}
func (NoOpProgress) Error(err error)                       {}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
	}
}

// Read implements io.Reader interface with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (pr *ProgressReader) BytesRead() int64 {
	return pr.current
}
