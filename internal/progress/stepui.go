package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/invdash/invdash/internal/events"
)

// Step indicator states as carried by events.PhaseEvent.State.
const (
	StepInactive  = "inactive"
	StepActive    = "active"
	StepCompleted = "completed"
)

// StepUI draws one line per workflow phase. On a terminal each line is an
// mpb bar updated in place; otherwise every transition prints one line.
type StepUI struct {
	progress   *mpb.Progress
	bars       []*mpb.Bar
	names      []string
	states     []string
	mu         sync.Mutex
	isTerminal bool
	out        io.Writer
	closed     bool
}

// NewStepUI creates indicators for the given phase labels, all inactive.
// out is normally os.Stderr; a non-terminal writer gets plain lines.
func NewStepUI(out io.Writer, names []string) *StepUI {
	f, _ := out.(*os.File)
	isTerminal := IsTerminal(f)

	u := &StepUI{
		names:      names,
		states:     make([]string, len(names)),
		isTerminal: isTerminal,
		out:        out,
	}
	for i := range u.states {
		u.states[i] = StepInactive
	}

	if !isTerminal {
		return u
	}

	prepareTerminal(f)
	u.progress = mpb.New(
		mpb.WithOutput(out),
		mpb.WithRefreshRate(100*time.Millisecond),
		mpb.WithWidth(60),
	)
	for i := range names {
		idx := i
		bar := u.progress.New(1,
			mpb.NopStyle(),
			mpb.PrependDecorators(
				decor.Any(func(decor.Statistics) string {
					return u.label(idx)
				}, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO), "done"),
			),
		)
		u.bars = append(u.bars, bar)
	}
	return u
}

func (u *StepUI) label(i int) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fmt.Sprintf("%s [%d/%d] %s", glyph(u.states[i]), i+1, len(u.names), u.names[i])
}

func glyph(state string) string {
	switch state {
	case StepActive:
		return "●"
	case StepCompleted:
		return "✓"
	default:
		return "○"
	}
}

// PhaseChanged applies a step indicator transition.
func (u *StepUI) PhaseChanged(ev events.PhaseEvent) {
	u.mu.Lock()
	if ev.Index < 0 || ev.Index >= len(u.states) || u.closed {
		u.mu.Unlock()
		return
	}
	u.states[ev.Index] = ev.State
	u.mu.Unlock()

	if !u.isTerminal {
		fmt.Fprintf(u.out, "[%d/%d] %-18s %s\n", ev.Index+1, len(u.names), u.names[ev.Index], strings.ToUpper(ev.State))
		return
	}
	if ev.State == StepCompleted {
		u.bars[ev.Index].SetCurrent(1)
	}
}

// State returns the current indicator state of phase i.
func (u *StepUI) State(i int) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.states[i]
}

// Writer returns a writer that prints above the indicators while they render.
func (u *StepUI) Writer() io.Writer {
	if u.isTerminal && u.progress != nil {
		return u.progress
	}
	return u.out
}

// Close stops rendering. Bars that never completed stay visible as they are.
func (u *StepUI) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	u.mu.Unlock()

	if u.progress == nil {
		return
	}
	for _, bar := range u.bars {
		if !bar.Completed() {
			bar.Abort(false)
		}
	}
	u.progress.Wait()
}
