package constants

import (
	"time"
)

// Application identity
const (
	// AppName - binary and config directory name
	AppName = "invdash"

	// DefaultBaseURL - backend address used when nothing else is configured
	DefaultBaseURL = "http://localhost:5000"
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	// Large enough that a slow terminal renderer never drops phase events.
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for event channels (5000)
	EventBusMaxBuffer = 5000
)

// Upload workflow
const (
	// UploadPhaseTimeout - deadline for the multipart POST to /process (5 minutes)
	// The backend parses and merges the sheet before it answers, so this is
	// much longer than an ordinary API call.
	UploadPhaseTimeout = 5 * time.Minute

	// ProcessPhaseTimeout - deadline for decoding the /process response (30s)
	ProcessPhaseTimeout = 30 * time.Second

	// PersistDelay - fixed wait standing in for the database confirmation (500ms)
	PersistDelay = 500 * time.Millisecond

	// ReportDelay - fixed wait standing in for report generation (500ms)
	ReportDelay = 500 * time.Millisecond

	// FixedWaitTimeoutSlack - added to a fixed wait to form that phase's deadline
	FixedWaitTimeoutSlack = 5 * time.Second
)

// File browser
const (
	// SearchDebounce - quiet period before a search box change re-renders (300ms)
	SearchDebounce = 300 * time.Millisecond

	// PreviewRows - rows shown in a file's sample table
	PreviewRows = 10

	// MasterSummaryFile - file name of the aggregate workbook
	MasterSummaryFile = "master_summary.xlsx"

	// RecordIDColumn - internal identifier column hidden from sample tables
	RecordIDColumn = "record_id"

	// SnapshotFileName - msgpack cache of the last /local-files response
	SnapshotFileName = "files.snapshot"
)

// Preview panel
const (
	// CounterSteps - an animated counter reaches its value in this many increments
	CounterSteps = 20

	// CounterFrameInterval - delay between animated counter frames (50ms)
	CounterFrameInterval = 50 * time.Millisecond

	// DefaultExportName - file written by the CSV export
	DefaultExportName = "inventory_data.csv"
)

// Connectivity
const (
	// ProbeInterval - period of the /grand-total liveness probe (30s)
	ProbeInterval = 30 * time.Second

	// ProbeTimeout - deadline for a single liveness probe (10s)
	ProbeTimeout = 10 * time.Second
)

// API and Context Timeouts
const (
	// DefaultHTTPTimeout - timeout applied to ordinary API calls (60s)
	DefaultHTTPTimeout = 60 * time.Second

	// DownloadTimeout - timeout for /download and /download-zip (10 minutes)
	DownloadTimeout = 10 * time.Minute

	// DefaultRequestsPerSecond - client-side pacing of API calls
	DefaultRequestsPerSecond = 10.0

	// DefaultRequestBurst - token bucket burst for API calls
	DefaultRequestBurst = 20

	// DiskSpaceMargin - downloads need this multiple of their size free (10% headroom)
	DiskSpaceMargin = 1.1
)

// Logging
const (
	// LogFileMaxSizeMB - rotate the log file at this size
	LogFileMaxSizeMB = 10

	// LogFileMaxBackups - rotated log files kept
	LogFileMaxBackups = 5

	// LogFileMaxAgeDays - rotated log files older than this are removed
	LogFileMaxAgeDays = 30
)

// HTTP transport
const (
	// HTTPDialTimeout - TCP connect timeout (30s)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keep-alive period (30s)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - idle pooled connections are closed after this (90s)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake timeout (10s)
	HTTPTLSHandshakeTimeout = 10 * time.Second

	// HTTPExpectContinueTimeout - wait for 100-continue (1s)
	HTTPExpectContinueTimeout = 1 * time.Second

	// ProxyWarmupTimeout - deadline for the optional proxy warmup request (15s)
	ProxyWarmupTimeout = 15 * time.Second
)
