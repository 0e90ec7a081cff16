package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/http"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/progress"
	"github.com/invdash/invdash/internal/ratelimit"
	"github.com/invdash/invdash/internal/version"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// retryPolicy keeps retryablehttp's decision but never turns an error
// status into a Go error, so the JSON error body reaches the caller.
func retryPolicy(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	retry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return retry, nil
}

// Client talks to the inventory reporting backend
type Client struct {
	httpClient *nethttp.Client
	config     *config.Config
	baseURL    string
	limiter    *ratelimit.RateLimiter
	logger     *logging.Logger
	userAgent  string

	// streamClient sends bodies that must not be buffered (uploads);
	// retryablehttp reads a plain io.Reader body fully before sending.
	streamClient *nethttp.Client
}

// Response is a fully read backend response.
type Response struct {
	Op         string
	StatusCode int
	Body       []byte
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("API base URL is empty")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := http.CreateClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	// RetryMax defaults to 0: every failure is terminal for the operation
	// and the user re-attempts explicitly.
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.CheckRetry = retryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = retryLogger{logger: logger}

	return &Client{
		httpClient:   retryClient.StandardClient(),
		config:       cfg,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		limiter:      ratelimit.NewAPIRateLimiter(cfg.RequestsPerSecond, constants.DefaultRequestBurst),
		logger:       logger,
		userAgent:    constants.AppName + "/" + version.Version,
		streamClient: httpClient,
	}, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetConfig returns the configuration used by this API client
func (c *Client) GetConfig() *config.Config {
	return c.config
}

// newRequest builds a request with the headers every call carries.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do paces and sends a request.
func (c *Client) do(req *nethttp.Request) (*nethttp.Response, error) {
	return c.send(c.httpClient, req)
}

func (c *Client) send(hc *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", req.Header.Get("X-Request-ID")).
			Msg("API call failed")
		return nil, err
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("API call")
	return resp, nil
}

// roundTrip sends a request and reads the whole body.
func (c *Client) roundTrip(op string, req *nethttp.Request) (*Response, error) {
	return c.roundTripWith(c.httpClient, op, req)
}

func (c *Client) roundTripWith(hc *nethttp.Client, op string, req *nethttp.Request) (*Response, error) {
	resp, err := c.send(hc, req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return &Response{Op: op, StatusCode: resp.StatusCode, Body: body}, nil
}

// Decode classifies a response and decodes its payload into out.
// An "error" field gives an *AppError, a "warning" field a *WarningError;
// a body that is not JSON, or an error status without either field,
// gives a *TransportError.
func Decode(r *Response, out interface{}) error {
	var env models.Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		if r.StatusCode >= 400 {
			return &TransportError{Op: r.Op, StatusCode: r.StatusCode, Err: errors.New(snippet(r.Body))}
		}
		return &TransportError{Op: r.Op, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}

	if env.Error != "" {
		return &AppError{Op: r.Op, Message: env.Error}
	}
	if env.Warning != "" {
		return &WarningError{Op: r.Op, Message: env.Warning, Logs: env.Logs}
	}
	if r.StatusCode >= 400 {
		return &TransportError{Op: r.Op, StatusCode: r.StatusCode, Err: errors.New(nethttp.StatusText(r.StatusCode))}
	}

	if out != nil {
		if err := json.Unmarshal(r.Body, out); err != nil {
			return &TransportError{Op: r.Op, Err: fmt.Errorf("failed to decode %s response: %w", r.Op, err)}
		}
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "empty response"
	}
	return s
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}

func (c *Client) getJSON(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := c.newRequest(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r, err := c.roundTrip(op, req)
	if err != nil {
		return err
	}
	return Decode(r, out)
}

// UploadForProcessing streams the file and date to /process as multipart
// form data, so the reporter tracks bytes as they go out. It returns once
// the response has been received; callers decode it with DecodeProcess.
// Only transport failures are returned here. Uploads are never retried.
func (c *Client) UploadForProcessing(ctx context.Context, filePath, date string, reporter progress.Reporter) (*Response, error) {
	const op = "process"

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	if reporter == nil {
		reporter = progress.NoOpProgress{}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		reporter.Start(info.Size(), "Uploading "+filepath.Base(filePath))
		if _, err := io.Copy(part, progress.NewProgressReader(f, reporter)); err != nil {
			reporter.Error(err)
			pw.CloseWithError(err)
			return
		}
		reporter.Finish()
		if err := mw.WriteField("date", date); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := c.newRequest(ctx, nethttp.MethodPost, "/process", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	r, err := c.roundTripWith(c.streamClient, op, req)
	pr.Close()
	return r, err
}

// DecodeProcess interprets a /process response.
func DecodeProcess(r *Response) (*models.ProcessResponse, error) {
	var out models.ProcessResponse
	if err := Decode(r, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		return nil, &TransportError{Op: r.Op, Err: errors.New("response has no results")}
	}
	return &out, nil
}

// Process uploads a file and decodes the result in one call.
func (c *Client) Process(ctx context.Context, filePath, date string, reporter progress.Reporter) (*models.ProcessResponse, error) {
	r, err := c.UploadForProcessing(ctx, filePath, date, reporter)
	if err != nil {
		return nil, err
	}
	return DecodeProcess(r)
}

// Preview fetches the record sample and metrics. A "warning" response is
// returned as a *WarningError (errors.Is(err, ErrNoData)).
func (c *Client) Preview(ctx context.Context) (*models.PreviewResponse, error) {
	var out models.PreviewResponse
	if err := c.getJSON(ctx, "preview", nethttp.MethodGet, "/preview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Visualizations fetches chart specifications, scoped to rng when non-nil.
func (c *Client) Visualizations(ctx context.Context, rng *models.DateRange) (*models.VisualizationsResponse, error) {
	var out models.VisualizationsResponse
	method := nethttp.MethodGet
	var body interface{}
	if rng != nil {
		method = nethttp.MethodPost
		body = rng
	}
	if err := c.getJSON(ctx, "visualizations", method, "/visualizations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LocalFiles fetches the processed file listing.
func (c *Client) LocalFiles(ctx context.Context) (*models.LocalFilesResponse, error) {
	var out models.LocalFilesResponse
	if err := c.getJSON(ctx, "local-files", nethttp.MethodGet, "/local-files", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFile removes a processed file on the backend.
func (c *Client) DeleteFile(ctx context.Context, name string) (*models.DeleteResponse, error) {
	var out models.DeleteResponse
	if err := c.getJSON(ctx, "delete", nethttp.MethodDelete, "/delete/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download streams /download/{name} into w.
func (c *Client) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	return c.download(ctx, "download", "/download/"+url.PathEscape(name), w)
}

// DownloadZip streams the archive of every processed file into w.
func (c *Client) DownloadZip(ctx context.Context, w io.Writer) (int64, error) {
	return c.download(ctx, "download-zip", "/download-zip", w)
}

// Reserver is implemented by download destinations that want the
// announced size before the body is copied.
type Reserver interface {
	Reserve(size int64) error
}

func (c *Client) download(ctx context.Context, op, path string, w io.Writer) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DownloadTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, nethttp.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.do(req)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err := Decode(&Response{Op: op, StatusCode: resp.StatusCode, Body: body}, nil); err != nil {
			return 0, err
		}
		return 0, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(nethttp.StatusText(resp.StatusCode))}
	}

	if r, ok := w.(Reserver); ok && resp.ContentLength > 0 {
		if err := r.Reserve(resp.ContentLength); err != nil {
			return 0, err
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: op, Err: fmt.Errorf("download interrupted: %w", err)}
	}
	return n, nil
}

// GrandTotal is the liveness probe: any JSON body counts as online.
func (c *Client) GrandTotal(ctx context.Context) error {
	const op = "grand-total"

	req, err := c.newRequest(ctx, nethttp.MethodGet, "/grand-total", nil)
	if err != nil {
		return err
	}
	r, err := c.roundTrip(op, req)
	if err != nil {
		return err
	}
	if !json.Valid(r.Body) {
		return &TransportError{Op: op, StatusCode: r.StatusCode, Err: errors.New("response is not JSON")}
	}
	return nil
}
