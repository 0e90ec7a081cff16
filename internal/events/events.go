// Package events carries dashboard notifications between components and
// whatever is rendering them (terminal, interactive shell, tests).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/invdash/invdash/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog          EventType = "log"
	EventToast        EventType = "toast"
	EventPhase        EventType = "phase_changed"
	EventProgress     EventType = "progress"
	EventConnectivity EventType = "connectivity"
	EventFilesLoaded  EventType = "files_loaded"
	EventThemeChanged EventType = "theme_changed"
	EventLogsCleared  EventType = "logs_cleared"
)

// Severity is the level carried by an activity log entry.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity maps a level token from a backend log line.
// Unknown tokens are reported as INFO with ok=false.
func ParseSeverity(token string) (Severity, bool) {
	switch token {
	case "INFO", "DEBUG":
		return SeverityInfo, true
	case "WARNING", "WARN":
		return SeverityWarning, true
	case "ERROR", "CRITICAL":
		return SeverityError, true
	default:
		return SeverityInfo, false
	}
}

// ToastKind is the style of a transient notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// LogEvent is published for every activity log append
type LogEvent struct {
	BaseEvent
	Severity Severity
	Message  string
	Stamp    string // display timestamp as shown in the log panel
	Source   string // "client" or "server"
}

// ToastEvent represents a transient user notification
type ToastEvent struct {
	BaseEvent
	Kind    ToastKind
	Message string
}

// PhaseEvent reports a step indicator transition in the upload workflow
type PhaseEvent struct {
	BaseEvent
	SessionID string
	Phase     string // "upload", "process", "persist", "report"
	Index     int
	State     string // "inactive", "active", "completed"
	Message   string
}

// ProgressEvent represents byte progress of the upload phase
type ProgressEvent struct {
	BaseEvent
	SessionID    string
	BytesCurrent int64
	BytesTotal   int64
}

// ConnectivityEvent carries the result of a liveness probe
type ConnectivityEvent struct {
	BaseEvent
	Online bool
	Error  error
}

// FilesLoadedEvent is published after the file browser replaces its snapshot
type FilesLoadedEvent struct {
	BaseEvent
	Shown           int
	Total           int
	MasterAvailable bool
	Filter          string
}

// ThemeChangedEvent is published when the theme preference is written
type ThemeChangedEvent struct {
	BaseEvent
	Theme string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// A nil bus is a valid no-op so components can run without one.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(severity Severity, stamp, message, source string) {
	eb.Publish(&LogEvent{
		BaseEvent: newBase(EventLog),
		Severity:  severity,
		Message:   message,
		Stamp:     stamp,
		Source:    source,
	})
}

// PublishToast is a convenience method for publishing toast events
func (eb *EventBus) PublishToast(kind ToastKind, message string) {
	eb.Publish(&ToastEvent{
		BaseEvent: newBase(EventToast),
		Kind:      kind,
		Message:   message,
	})
}

// PublishPhase is a convenience method for publishing step indicator changes
func (eb *EventBus) PublishPhase(sessionID, phase string, index int, state, message string) {
	eb.Publish(&PhaseEvent{
		BaseEvent: newBase(EventPhase),
		SessionID: sessionID,
		Phase:     phase,
		Index:     index,
		State:     state,
		Message:   message,
	})
}

// PublishProgress is a convenience method for publishing upload byte progress
func (eb *EventBus) PublishProgress(sessionID string, current, total int64) {
	eb.Publish(&ProgressEvent{
		BaseEvent:    newBase(EventProgress),
		SessionID:    sessionID,
		BytesCurrent: current,
		BytesTotal:   total,
	})
}

// PublishConnectivity is a convenience method for publishing probe results
func (eb *EventBus) PublishConnectivity(online bool, err error) {
	eb.Publish(&ConnectivityEvent{
		BaseEvent: newBase(EventConnectivity),
		Online:    online,
		Error:     err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from all event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
