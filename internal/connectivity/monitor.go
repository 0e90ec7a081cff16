// Package connectivity polls the backend's liveness endpoint and keeps the
// online/offline indicator current.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/invdash/invdash/internal/activity"
	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/logging"
)

// Log messages for probe results.
const (
	MsgOnline  = "Connected to server."
	MsgOffline = "Server offline."
)

// Status is the connectivity indicator value.
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "Online"
	case StatusOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// Prober is the liveness call.
type Prober interface {
	GrandTotal(ctx context.Context) error
}

// Monitor owns the indicator.
type Monitor struct {
	prober   Prober
	log      *activity.Log
	bus      *events.EventBus
	logger   *logging.Logger
	interval time.Duration

	mu        sync.RWMutex
	status    Status
	lastErr   error
	lastProbe time.Time
}

// NewMonitor creates a monitor. A zero interval uses the 30 second default.
// bus and logger may be nil.
func NewMonitor(prober Prober, log *activity.Log, bus *events.EventBus, logger *logging.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = constants.ProbeInterval
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Monitor{
		prober:   prober,
		log:      log,
		bus:      bus,
		logger:   logger,
		interval: interval,
	}
}

// Status returns the last probe result.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastError returns why the last probe failed, or nil.
func (m *Monitor) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastProbe returns when the last probe finished.
func (m *Monitor) LastProbe() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastProbe
}

// Probe checks the backend once. Any JSON reply counts as online.
// A check abandoned because ctx ended is not reported.
func (m *Monitor) Probe(ctx context.Context) Status {
	checkCtx, cancel := context.WithTimeout(ctx, constants.ProbeTimeout)
	defer cancel()

	err := m.prober.GrandTotal(checkCtx)
	if err != nil && ctx.Err() != nil {
		return m.Status()
	}

	status := StatusOnline
	if err != nil {
		status = StatusOffline
	}

	m.mu.Lock()
	m.status = status
	m.lastErr = err
	m.lastProbe = time.Now()
	m.mu.Unlock()

	if err != nil {
		m.log.Error(MsgOffline)
		m.logger.Debug().Str("reason", api.Message(err)).Msg("Liveness probe failed")
	} else {
		m.log.Info(MsgOnline)
	}

	m.bus.PublishConnectivity(status == StatusOnline, err)
	return status
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug().Msg("Connectivity monitor stopped")
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
