package progress

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/invdash/invdash/internal/events"
)

type recordingReporter struct {
	started  int64
	updates  []int64
	finished bool
}

func (r *recordingReporter) Start(total int64, description string) { r.started = total }
func (r *recordingReporter) Update(current int64)                  { r.updates = append(r.updates, current) }
func (r *recordingReporter) Finish()                               { r.finished = true }
func (r *recordingReporter) Error(err error)                       {}

func TestProgressReader(t *testing.T) {
	rec := &recordingReporter{}
	pr := NewProgressReader(strings.NewReader("hello world"), rec)

	data, err := io.ReadAll(pr)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("unexpected data %q", data)
	}
	if pr.BytesRead() != 11 {
		t.Errorf("BytesRead() = %d, want 11", pr.BytesRead())
	}
	if len(rec.updates) == 0 || rec.updates[len(rec.updates)-1] != 11 {
		t.Errorf("last update should be 11, got %v", rec.updates)
	}
}

func TestMulti(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	m := Multi{a, b, NoOpProgress{}}

	m.Start(10, "upload")
	m.Update(5)
	m.Finish()

	for _, r := range []*recordingReporter{a, b} {
		if r.started != 10 || !r.finished || len(r.updates) != 1 {
			t.Errorf("reporter not driven: %+v", r)
		}
	}
}

func TestBusProgress(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventProgress)

	p := NewBusProgress(bus, "s1")
	p.Start(100, "upload")
	p.Update(40)

	var last *events.ProgressEvent
	for i := 0; i < 2; i++ {
		select {
		case ev := <-ch:
			last = ev.(*events.ProgressEvent)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("missing progress event")
		}
	}
	if last.BytesCurrent != 40 || last.BytesTotal != 100 || last.SessionID != "s1" {
		t.Errorf("unexpected event %+v", last)
	}
}

func TestStepUI_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	ui := NewStepUI(&buf, []string{"Uploading File", "Processing Data"})

	ui.PhaseChanged(events.PhaseEvent{Index: 0, Phase: "upload", State: StepActive})
	ui.PhaseChanged(events.PhaseEvent{Index: 0, Phase: "upload", State: StepCompleted})
	ui.PhaseChanged(events.PhaseEvent{Index: 7, State: StepActive}) // out of range, ignored
	ui.Close()

	if ui.State(0) != StepCompleted || ui.State(1) != StepInactive {
		t.Errorf("states = %s,%s", ui.State(0), ui.State(1))
	}
	out := buf.String()
	if !strings.Contains(out, "[1/2] Uploading File") || !strings.Contains(out, "COMPLETED") {
		t.Errorf("unexpected output %q", out)
	}
	if ui.Writer() != &buf {
		t.Error("non-terminal Writer() should be the underlying writer")
	}
}

func TestAnimateCounters_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	AnimateCounters(&buf, []string{"Total Records"}, [][]int64{{5, 10, 12}}, time.Millisecond, nil)

	if !strings.Contains(buf.String(), "Total Records:") || !strings.Contains(buf.String(), "12") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("non-terminal output must not contain escape sequences")
	}
}
