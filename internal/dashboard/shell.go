package dashboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/browser"
	"github.com/invdash/invdash/internal/charts"
	"github.com/invdash/invdash/internal/connectivity"
	"github.com/invdash/invdash/internal/display"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/preview"
	"github.com/invdash/invdash/internal/theme"
	"github.com/invdash/invdash/internal/workflow"
)

// Messages shown by shell commands.
const (
	MsgReady          = "System ready."
	MsgRefreshed      = "Data refreshed!"
	MsgFiltersApplied = "Filters applied!"
)

// SyncWriter serialises writes from the shell loop, debounced renders and
// toasts.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Shell reads commands line by line and routes them through its Router.
type Shell struct {
	app    *App
	router *Router
	out    io.Writer
	lines  *bufio.Scanner

	// Animate enables the preview counter animation.
	Animate bool
	// StartMonitor runs the connectivity monitor while the shell is open.
	StartMonitor bool
}

// NewShell builds the command table for app. out should be the same
// writer the app's notifier uses, wrapped in a SyncWriter.
func NewShell(app *App, in io.Reader, out io.Writer) *Shell {
	s := &Shell{
		app:          app,
		router:       NewRouter(),
		out:          out,
		lines:        bufio.NewScanner(in),
		Animate:      true,
		StartMonitor: true,
	}
	s.registerRoutes()
	return s
}

// Router exposes the command table.
func (s *Shell) Router() *Router {
	return s.router
}

func (s *Shell) registerRoutes() {
	routes := []Route{
		{Name: "help", Aliases: []string{"?"}, Usage: "help", Help: "Show this list", Handler: s.help},
		{Name: "upload", Usage: "upload <file> <YYYY-MM-DD>", Help: "Upload and process a daily sheet", Handler: s.upload},
		{Name: "files", Aliases: []string{"ls"}, Usage: "files [filter]", Help: "Reload the processed file listing", Handler: s.files},
		{Name: "search", Usage: "search [text]", Help: "Filter the listing as you type", Handler: s.search},
		{Name: "details", Usage: "details <name>", Help: "Show one file's statistics and sample", Handler: s.details},
		{Name: "download", Usage: "download <name> [dir]", Help: "Download one processed file", Handler: s.download},
		{Name: "download-all", Usage: "download-all [dir]", Help: "Download every file as a zip", Handler: s.downloadAll},
		{Name: "delete", Aliases: []string{"rm"}, Usage: "delete <name>", Help: "Delete a processed file", Handler: s.delete},
		{Name: "preview", Aliases: []string{"refresh"}, Usage: "preview", Help: "Load the data preview", Handler: s.preview},
		{Name: "export", Usage: "export [path] [archive-url]", Help: "Export the data as CSV or XLSX", Handler: s.export},
		{Name: "charts", Usage: "charts [start end]", Help: "Load the visualizations", Handler: s.charts},
		{Name: "status", Usage: "status", Help: "Probe the server", Handler: s.status},
		{Name: "theme", Usage: "theme [toggle|light|dark]", Help: "Show or change the theme", Handler: s.theme},
		{Name: "logs", Usage: "logs", Help: "Print the activity log", Handler: s.logs},
		{Name: "clear", Usage: "clear", Help: "Clear the activity log", Handler: s.clear},
		{Name: "quit", Aliases: []string{"exit"}, Usage: "quit", Help: "Leave the dashboard", Handler: s.quit},
	}
	for _, r := range routes {
		s.router.Handle(r)
	}
}

// Run starts the dashboard and processes commands until input ends, the
// quit command runs or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.app.Log.Info(MsgReady)
	fmt.Fprintf(s.out, "Theme: %s\n", s.app.Theme.Current())

	var wg sync.WaitGroup
	if s.StartMonitor {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.app.Monitor.Run(ctx)
		}()
	}
	// the monitor only returns once ctx is cancelled
	defer func() {
		cancel()
		wg.Wait()
	}()

	s.app.Browser.OnRender(func(v *browser.View) {
		if err := v.Render(s.out); err != nil {
			s.app.Logger.Debug().Err(err).Msg("Render failed")
		}
	})
	// load errors are already reported by the browser
	_, _ = s.app.Browser.Load(ctx, "")

	for {
		fmt.Fprintf(s.out, "%s> ", s.promptStatus())
		line, ok := s.readLine()
		if !ok {
			fmt.Fprintln(s.out)
			return s.lines.Err()
		}

		err := s.router.Dispatch(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, ErrQuit):
			return nil
		case errors.Is(err, ErrUnknownCommand), errors.Is(err, ErrUsage):
			fmt.Fprintf(s.out, "%v (type 'help')\n", err)
		default:
			s.app.Logger.Debug().Err(err).Str("command", line).Msg("Command failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Shell) readLine() (string, bool) {
	if !s.lines.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.lines.Text()), true
}

// confirm asks on the same input the commands come from.
func (s *Shell) confirm(prompt string) bool {
	fmt.Fprintf(s.out, "%s [y/N]: ", prompt)
	answer, ok := s.readLine()
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func (s *Shell) promptStatus() string {
	switch s.app.Monitor.Status() {
	case connectivity.StatusOnline:
		return "invdash [online]"
	case connectivity.StatusOffline:
		return "invdash [offline]"
	default:
		return "invdash"
	}
}

func (s *Shell) help(ctx context.Context, args []string) error {
	return s.router.Help(s.out)
}

func (s *Shell) upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	outcome, err := s.app.Workflow.Submit(ctx, workflow.Submission{FilePath: args[0], Date: args[1]})
	if err != nil {
		return err
	}
	if err := display.KeyValues(s.out, outcome.Summary()); err != nil {
		return err
	}
	if name := outcome.DownloadName(); name != "" {
		fmt.Fprintf(s.out, "Processed file: %s\n", name)
	}
	_, err = s.app.Browser.Load(ctx, s.app.Browser.Filter())
	return err
}

func (s *Shell) files(ctx context.Context, args []string) error {
	_, err := s.app.Browser.Load(ctx, strings.Join(args, " "))
	return err
}

func (s *Shell) search(ctx context.Context, args []string) error {
	s.app.Browser.SetFilter(strings.Join(args, " "))
	return nil
}

func (s *Shell) details(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	d, err := s.app.Browser.Details(args[0])
	if err != nil {
		fmt.Fprintln(s.out, err)
		return err
	}
	return d.Render(s.out)
}

func (s *Shell) download(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	dir := "."
	if len(args) == 2 {
		dir = args[1]
	}
	path, err := s.app.Browser.Download(ctx, args[0], dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", path)
	return nil
}

func (s *Shell) downloadAll(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	path, err := s.app.Browser.DownloadAll(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", path)
	return nil
}

func (s *Shell) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	_, err := s.app.Browser.Delete(ctx, args[0], s.confirm)
	return err
}

func (s *Shell) preview(ctx context.Context, args []string) error {
	view, err := s.app.Preview.Load(ctx)
	if view != nil {
		if rerr := view.Render(s.out, s.Animate); err == nil {
			err = rerr
		}
	}
	// every refresh is acknowledged, even when the panel ends up empty
	s.app.Notifier.Success(MsgRefreshed)
	return err
}

func (s *Shell) export(ctx context.Context, args []string) error {
	if len(args) > 2 {
		return ErrUsage
	}
	var opts preview.ExportOptions
	if len(args) > 0 {
		opts.Path = args[0]
	}
	if len(args) == 2 {
		archiver, err := s.app.Archiver(args[1])
		if err != nil {
			fmt.Fprintln(s.out, err)
			return err
		}
		opts.Archiver = archiver
	}
	res, err := s.app.Preview.Export(ctx, opts)
	if errors.Is(err, api.ErrNoData) {
		return nil
	}
	if res != nil {
		fmt.Fprintf(s.out, "Wrote %s records to %s\n", display.Count(int64(res.Records)), res.Path)
	}
	return err
}

func (s *Shell) charts(ctx context.Context, args []string) error {
	var rng *models.DateRange
	switch len(args) {
	case 0:
	case 2:
		rng = &models.DateRange{Start: args[0], End: args[1]}
	default:
		// one date is an incomplete range; the panel reports it
		rng = &models.DateRange{Start: args[0]}
	}
	view, err := s.app.Charts.Load(ctx, rng)
	if err != nil {
		return err
	}
	if rng != nil {
		s.app.Notifier.Success(MsgFiltersApplied)
	}
	return charts.TextRenderer{}.Render(s.out, view)
}

func (s *Shell) status(ctx context.Context, args []string) error {
	status := s.app.Monitor.Probe(ctx)
	fmt.Fprintf(s.out, "Server %s: %s\n", s.app.Client.BaseURL(), status)
	return nil
}

func (s *Shell) theme(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	if len(args) == 0 {
		fmt.Fprintf(s.out, "Theme: %s\n", s.app.Theme.Current())
		return nil
	}

	var (
		current string
		err     error
	)
	switch args[0] {
	case "toggle":
		current, err = s.app.Theme.Toggle()
	case theme.Light, theme.Dark:
		current, err = args[0], s.app.Theme.Set(args[0])
	default:
		return ErrUsage
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Theme: %s\n", current)
	return nil
}

func (s *Shell) logs(ctx context.Context, args []string) error {
	for _, e := range s.app.Log.Entries() {
		fmt.Fprintln(s.out, e.String())
	}
	return nil
}

func (s *Shell) clear(ctx context.Context, args []string) error {
	s.app.Log.Clear()
	return nil
}

func (s *Shell) quit(ctx context.Context, args []string) error {
	return ErrQuit
}
