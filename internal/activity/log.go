// Package activity holds the session activity log: timestamped entries
// with an explicit severity, appended by every dashboard component.
package activity

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/logging"
)

// TimeLayout is the timestamp format of log entries, matching the backend.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is one line of the activity log.
type Entry struct {
	Timestamp string          `json:"timestamp" yaml:"timestamp"`
	Severity  events.Severity `json:"severity" yaml:"severity"`
	Message   string          `json:"message" yaml:"message"`
	Server    bool            `json:"server,omitempty" yaml:"server,omitempty"`
}

// String renders the entry the way the log panel shows it.
func (e Entry) String() string {
	return "[" + e.Severity.String() + "] " + e.Timestamp + " - " + e.Message
}

// Log is an unbounded, in-memory activity log.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	bus     *events.EventBus
	logger  *logging.Logger
	now     func() time.Time
}

// NewLog creates an empty log. bus and logger may be nil.
func NewLog(bus *events.EventBus, logger *logging.Logger) *Log {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Log{
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Append adds a client-side entry stamped with the current time.
func (l *Log) Append(severity events.Severity, message string) Entry {
	return l.add(Entry{
		Timestamp: l.now().Format(TimeLayout),
		Severity:  severity,
		Message:   message,
	})
}

// Info appends an INFO entry.
func (l *Log) Info(message string) Entry { return l.Append(events.SeverityInfo, message) }

// Warning appends a WARNING entry.
func (l *Log) Warning(message string) Entry { return l.Append(events.SeverityWarning, message) }

// Error appends an ERROR entry.
func (l *Log) Error(message string) Entry { return l.Append(events.SeverityError, message) }

// AppendServerLines adds every line the backend returned, in order.
func (l *Log) AppendServerLines(lines []string) {
	for _, line := range lines {
		l.add(ParseServerLine(line, l.now))
	}
}

func (l *Log) add(e Entry) Entry {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	source := "client"
	if e.Server {
		source = "server"
	}
	l.bus.PublishLog(e.Severity, e.Timestamp, e.Message, source)

	var ev = l.logger.Info()
	switch e.Severity {
	case events.SeverityWarning:
		ev = l.logger.Warn()
	case events.SeverityError:
		ev = l.logger.Error()
	}
	ev.Str("severity", e.Severity.String()).Str("source", source).Msg(e.Message)
	return e
}

// Clear empties the log, leaving the single "Logs cleared." entry.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()

	l.bus.Publish(&events.BaseEvent{EventType: events.EventLogsCleared, Time: l.now()})
	l.Info("Logs cleared.")
}

// Entries returns a copy of the log.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// CountBySeverity returns how many entries carry the given severity.
func (l *Log) CountBySeverity(severity events.Severity) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if e.Severity == severity {
			n++
		}
	}
	return n
}

// "<timestamp> - [LEVEL] message"
var serverLineRe = regexp.MustCompile(`^(.*?) - \[([A-Z]+)\]\s?(.*)$`)

// ParseServerLine converts one backend log line into a structured entry.
// Lines that do not follow the backend format are kept verbatim as INFO,
// stamped with the current time.
func ParseServerLine(line string, now func() time.Time) Entry {
	line = strings.TrimRight(line, "\r\n")
	if m := serverLineRe.FindStringSubmatch(line); m != nil {
		if sev, ok := events.ParseSeverity(m[2]); ok {
			return Entry{
				Timestamp: strings.TrimSpace(m[1]),
				Severity:  sev,
				Message:   m[3],
				Server:    true,
			}
		}
	}
	return Entry{
		Timestamp: now().Format(TimeLayout),
		Severity:  events.SeverityInfo,
		Message:   line,
		Server:    true,
	}
}
