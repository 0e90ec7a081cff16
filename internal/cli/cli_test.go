package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invdash/invdash/internal/charts"
	"github.com/invdash/invdash/internal/config"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/testbackend"
)

type cliEnv struct {
	backend *testbackend.Backend
	dir     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	backend := testbackend.New()
	t.Cleanup(backend.Close)

	dir := t.TempDir()
	t.Setenv(config.EnvStateDir, filepath.Join(dir, "state"))
	t.Setenv(config.EnvLogFile, "")
	t.Cleanup(func() { logging.SetGlobalLevel(zerolog.WarnLevel) })
	return &cliEnv{backend: backend, dir: dir}
}

// run executes one invocation with stdin and returns stdout and stderr.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	AddCommands(root)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{
		"--config", filepath.Join(e.dir, "config"),
		"--url", e.backend.URL,
	}, args...))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func findCommand(t *testing.T, root *cobra.Command, path ...string) *cobra.Command {
	t.Helper()
	cmd, _, err := root.Find(path)
	require.NoError(t, err, strings.Join(path, " "))
	require.Equal(t, path[len(path)-1], cmd.Name())
	return cmd
}

func TestCommandTree(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	for _, path := range [][]string{
		{"upload"}, {"files", "list"}, {"files", "details"}, {"files", "delete"},
		{"files", "download"}, {"files", "download-all"}, {"preview"}, {"export"},
		{"charts"}, {"status"}, {"theme", "show"}, {"theme", "toggle"}, {"theme", "set"},
		{"logs"}, {"config", "show"}, {"config", "init"}, {"config", "path"}, {"dashboard"},
		{"completion", "bash"},
	} {
		cmd := findCommand(t, root, path...)
		assert.NotEmpty(t, cmd.Short, path)
	}

	upload := findCommand(t, root, "upload")
	assert.NotNil(t, upload.Flags().Lookup("date"))
	assert.NotNil(t, upload.Flags().Lookup("download-to"))

	export := findCommand(t, root, "export")
	for _, name := range []string{"out", "format", "archive"} {
		assert.NotNil(t, export.Flags().Lookup(name), name)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("output"))
}

func TestOutputFormatRejected(t *testing.T) {
	e := newCLIEnv(t)
	_, _, err := e.run(t, "", "--output", "xml", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output must be table, json or yaml")
}

func TestFilesList(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "", "files", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "march_01.xlsx")

	stdout, _, err = e.run(t, "", "--output", "json", "files", "list", "--search", "feb")
	require.NoError(t, err)
	var files []models.FileSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "feb_28.xlsx", files[0].File)
}

func TestFilesDetails_UsesCachedListing(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run(t, "", "files", "list")
	require.NoError(t, err)

	stdout, _, err := e.run(t, "", "files", "details", "march_01.xlsx")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Details for march_01.xlsx")
	assert.Equal(t, 1, e.backend.Calls(testbackend.RouteLocalFiles))
}

func TestFilesDetails_Unknown(t *testing.T) {
	e := newCLIEnv(t)
	_, _, err := e.run(t, "", "files", "details", "nope.xlsx")
	assert.Error(t, err)
}

func TestFilesDelete(t *testing.T) {
	e := newCLIEnv(t)

	stdout, stderr, err := e.run(t, "n\n", "files", "delete", "march_02.xlsx")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Delete march_02.xlsx? This cannot be undone. [y/N]: ")
	assert.Contains(t, stdout, "Delete cancelled.")
	assert.Empty(t, e.backend.Deleted())

	stdout, _, err = e.run(t, "", "files", "delete", "march_02.xlsx", "--yes")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted march_02.xlsx")
	assert.Equal(t, []string{"march_02.xlsx"}, e.backend.Deleted())
}

func TestFilesDownload(t *testing.T) {
	e := newCLIEnv(t)
	e.backend.PutFile("march_01.xlsx", []byte("workbook"))
	out := filepath.Join(e.dir, "downloads")

	stdout, _, err := e.run(t, "", "files", "download", "march_01.xlsx", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Saved "+filepath.Join(out, "march_01.xlsx"))

	data, err := os.ReadFile(filepath.Join(out, "march_01.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(data))
}

func TestUpload(t *testing.T) {
	e := newCLIEnv(t)
	sheet := filepath.Join(e.dir, "march_01.xlsx")
	require.NoError(t, os.WriteFile(sheet, []byte("sheet"), 0644))

	stdout, stderr, err := e.run(t, "", "upload", sheet, "--date", "2024-03-01")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total Records")
	assert.Contains(t, stderr, "[4/4]")
	assert.Equal(t, "2024-03-01", e.backend.LastUpload().Date)
}

func TestUpload_MissingDate(t *testing.T) {
	e := newCLIEnv(t)
	sheet := filepath.Join(e.dir, "march_01.xlsx")
	require.NoError(t, os.WriteFile(sheet, []byte("sheet"), 0644))

	_, _, err := e.run(t, "", "upload", sheet)
	assert.Error(t, err)
	assert.Zero(t, e.backend.Calls(testbackend.RouteProcess))
}

func TestPreviewAndExport(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "", "preview", "--no-animate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total Records")
	assert.Contains(t, stdout, "Acme")

	dest := filepath.Join(e.dir, "inventory.xlsx")
	stdout, _, err = e.run(t, "", "export", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote 2 records to "+dest)
	assert.FileExists(t, dest)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	e := newCLIEnv(t)
	_, _, err := e.run(t, "", "export", "--format", "pdf")
	assert.Error(t, err)
	assert.Zero(t, e.backend.Calls(testbackend.RoutePreview))
}

func TestCharts(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "", "charts")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[brand] Sales by Brand")

	page := filepath.Join(e.dir, "charts.html")
	_, _, err = e.run(t, "", "charts", "--start", "2024-03-01", "--end", "2024-03-31", "--html", page)
	require.NoError(t, err)
	data, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(data), charts.PlotlyURL)

	_, _, err = e.run(t, "", "charts", "--start", "2024-03-01")
	assert.ErrorIs(t, err, charts.ErrInvalidRange)
}

func TestStatus(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "", "--output", "json", "status")
	require.NoError(t, err)
	var doc statusDoc
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "Online", doc.Status)
	assert.Equal(t, e.backend.URL, doc.Server)

	e.backend.Set(testbackend.RouteGrandTotal, testbackend.Reply{Status: 502, Raw: "<html>bad gateway</html>"})
	stdout, _, err = e.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Offline")
}

func TestTheme(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", stdout)

	stdout, _, err = e.run(t, "", "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "light\n", stdout)

	stdout, _, err = e.run(t, "", "theme", "show")
	require.NoError(t, err)
	assert.Equal(t, "light\n", stdout)

	_, _, err = e.run(t, "", "theme", "set", "blue")
	assert.Error(t, err)
}

func TestConfigShowAndInit(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "", "--output", "yaml", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "base_url: "+e.backend.URL)

	stdout, _, err = e.run(t, "", "config", "init", "--defaults")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration saved to")

	cfg, err := config.LoadConfig(filepath.Join(e.dir, "config"))
	require.NoError(t, err)
	assert.Equal(t, e.backend.URL, cfg.BaseURL)

	_, _, err = e.run(t, "", "config", "init", "--defaults")
	assert.Error(t, err)
}

func TestConfigInit_Prompts(t *testing.T) {
	e := newCLIEnv(t)

	// URL, timeout, proxy mode, desktop, log file
	input := "http://reports.internal:5000\n30\n\n\n\n"
	_, _, err := e.run(t, input, "config", "init")
	require.NoError(t, err)

	cfg, err := config.LoadConfig(filepath.Join(e.dir, "config"))
	require.NoError(t, err)
	assert.Equal(t, "http://reports.internal:5000", cfg.BaseURL)
	assert.Equal(t, "30s", cfg.Timeout.String())
}

func TestLogs(t *testing.T) {
	e := newCLIEnv(t)
	logPath := filepath.Join(e.dir, "invdash.log")

	_, _, err := e.run(t, "", "--log-file", logPath, "files", "list")
	require.NoError(t, err)

	stdout, _, err := e.run(t, "", "--log-file", logPath, "logs")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[INFO]")
	assert.Contains(t, stdout, "Loaded 3 files.")
}

func TestLogs_NoFile(t *testing.T) {
	e := newCLIEnv(t)
	_, _, err := e.run(t, "", "logs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log file configured")
}

func TestReadLogLines(t *testing.T) {
	input := strings.Join([]string{
		`{"level":"info","severity":"INFO","source":"client","time":"2024-03-01T10:00:00Z","message":"System ready."}`,
		`not json`,
		`{"level":"warn","time":"2024-03-01T10:00:01Z","message":"File snapshot cache disabled"}`,
		`{"level":"error","severity":"ERROR","source":"client","time":"2024-03-01T10:00:02Z","message":"Server offline."}`,
	}, "\n")

	lines, err := readLogLines(strings.NewReader(input), false)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "[INFO] 2024-03-01 10:00:00 - System ready.", lines[0].String())
	assert.Equal(t, "[ERROR] 2024-03-01 10:00:02 - Server offline.", lines[1].String())

	lines, err = readLogLines(strings.NewReader(input), true)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "[WARN] 2024-03-01 10:00:01 - File snapshot cache disabled", lines[1].String())
}

func TestDashboardCommand(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "theme\nquit\n", "dashboard", "--no-monitor")
	require.NoError(t, err)
	assert.Contains(t, stdout, "march_01.xlsx")
	assert.Contains(t, stdout, "Theme: dark")
}
