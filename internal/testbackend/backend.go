// Package testbackend runs an in-process stand-in for the inventory
// reporting backend. Tests point a client at URL and script the replies.
package testbackend

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/invdash/invdash/internal/models"
)

// Routes, keyed the way Set and Calls expect them.
const (
	RouteProcess             = "POST /process"
	RoutePreview             = "GET /preview"
	RouteVisualizations      = "GET /visualizations"
	RouteVisualizationsRange = "POST /visualizations"
	RouteLocalFiles          = "GET /local-files"
	RouteDelete              = "DELETE /delete/:name"
	RouteDownload            = "GET /download/:name"
	RouteDownloadZip         = "GET /download-zip"
	RouteGrandTotal          = "GET /grand-total"
)

// Reply scripts one route. Raw, when set, is sent verbatim instead of
// Body being JSON encoded.
type Reply struct {
	Status int
	Body   interface{}
	Raw    string
	Delay  time.Duration
}

// Upload is what the last POST /process carried.
type Upload struct {
	FileName string
	Date     string
	Size     int64
}

// Backend is a scripted fake of the reporting service.
type Backend struct {
	URL string

	e   *echo.Echo
	srv *httptest.Server

	mu        sync.Mutex
	replies   map[string]Reply
	calls     map[string]int
	files     map[string][]byte
	zip       []byte
	upload    *Upload
	lastRange *models.DateRange
	deleted   []string

	// OnDelete runs after a delete succeeds, before the reply is sent.
	OnDelete func(b *Backend, name string)
}

// New starts a backend with default replies.
func New() *Backend {
	b := &Backend{
		e:       echo.New(),
		replies: defaultReplies(),
		calls:   make(map[string]int),
		files:   make(map[string][]byte),
		zip:     []byte("PK\x05\x06" + string(make([]byte, 18))),
	}
	b.e.HideBanner = true
	b.e.HidePort = true
	b.e.Use(middleware.Recover())

	b.e.POST("/process", b.handleProcess)
	b.e.GET("/preview", b.reply(RoutePreview))
	b.e.GET("/visualizations", b.reply(RouteVisualizations))
	b.e.POST("/visualizations", b.handleRange)
	b.e.GET("/local-files", b.reply(RouteLocalFiles))
	b.e.DELETE("/delete/:name", b.handleDelete)
	b.e.GET("/download/:name", b.handleDownload)
	b.e.GET("/download-zip", b.handleZip)
	b.e.GET("/grand-total", b.reply(RouteGrandTotal))

	b.srv = httptest.NewServer(b.e)
	b.URL = b.srv.URL
	return b
}

// Close shuts the server down.
func (b *Backend) Close() {
	b.srv.Close()
}

// Set replaces the scripted reply for route.
func (b *Backend) Set(route string, r Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[route] = r
}

// Calls returns how many requests route has served.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// PutFile makes name downloadable.
func (b *Backend) PutFile(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = data
}

// SetZip replaces the body of GET /download-zip.
func (b *Backend) SetZip(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.zip = data
}

// LastUpload returns the most recent /process submission, or nil.
func (b *Backend) LastUpload() *Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.upload
}

// LastRange returns the body of the most recent POST /visualizations.
func (b *Backend) LastRange() *models.DateRange {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRange
}

// Deleted lists names removed through DELETE /delete/:name.
func (b *Backend) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

func (b *Backend) record(route string) Reply {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[route]++
	return b.replies[route]
}

func send(c echo.Context, r Reply) error {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-c.Request().Context().Done():
			return nil
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	if r.Raw != "" {
		return c.Blob(status, echo.MIMETextPlainCharsetUTF8, []byte(r.Raw))
	}
	return c.JSON(status, r.Body)
}

func (b *Backend) reply(route string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return send(c, b.record(route))
	}
}

func (b *Backend) handleProcess(c echo.Context) error {
	r := b.record(RouteProcess)

	up := &Upload{Date: c.FormValue("date")}
	if fh, err := c.FormFile("file"); err == nil {
		up.FileName = fh.Filename
		if f, err := fh.Open(); err == nil {
			up.Size, _ = io.Copy(io.Discard, f)
			f.Close()
		}
	}
	b.mu.Lock()
	b.upload = up
	b.mu.Unlock()

	return send(c, r)
}

func (b *Backend) handleRange(c echo.Context) error {
	r := b.record(RouteVisualizationsRange)

	var rng models.DateRange
	if err := c.Bind(&rng); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid date range"})
	}
	b.mu.Lock()
	b.lastRange = &rng
	b.mu.Unlock()

	return send(c, r)
}

func (b *Backend) handleDelete(c echo.Context) error {
	r := b.record(RouteDelete)
	name := c.Param("name")

	if r.Status == 0 || r.Status == http.StatusOK {
		b.mu.Lock()
		b.deleted = append(b.deleted, name)
		delete(b.files, name)
		hook := b.OnDelete
		b.mu.Unlock()
		if hook != nil {
			hook(b, name)
		}
	}
	return send(c, r)
}

func (b *Backend) handleDownload(c echo.Context) error {
	b.mu.Lock()
	b.calls[RouteDownload]++
	r, scripted := b.replies[RouteDownload]
	data, ok := b.files[c.Param("name")]
	b.mu.Unlock()

	if scripted {
		return send(c, r)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "File not found"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+c.Param("name")+`"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (b *Backend) handleZip(c echo.Context) error {
	b.mu.Lock()
	b.calls[RouteDownloadZip]++
	r, scripted := b.replies[RouteDownloadZip]
	data := b.zip
	b.mu.Unlock()

	if scripted {
		return send(c, r)
	}
	return c.Blob(http.StatusOK, "application/zip", data)
}
