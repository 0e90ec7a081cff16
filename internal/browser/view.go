package browser

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/display"
	"github.com/invdash/invdash/internal/models"
)

// Master summary status lines.
const (
	MasterAvailableLine = "✔️ Master summary available."
	MasterMissingLine   = "⚠️ Master summary not found."
	NoSampleLine        = "No preview data available."
	LoadErrorLine       = "❌ Error loading local files."
)

// FileEntry is one collapsible entry of the listing.
type FileEntry struct {
	Name           string
	Title          string
	GrandTotalDate string
	CreatedAt      string
	Columns        string
	Sample         display.Table
	HasSample      bool
	Master         bool
	Summary        models.FileSummary
}

// View is the rendered listing for one filter over one snapshot.
type View struct {
	Filter          string
	Summary         string
	MasterLine      string
	MasterAvailable bool
	Shown           int
	Total           int
	Files           []FileEntry
	Master          *FileEntry

	// Error replaces everything else when the last load failed.
	Error string
}

// Filter keeps the files whose name or grand total date contains text,
// case-insensitively. Blank text keeps everything.
func Filter(files []models.FileSummary, text string) []models.FileSummary {
	if strings.TrimSpace(text) == "" {
		return files
	}
	q := strings.ToLower(text)

	out := make([]models.FileSummary, 0, len(files))
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.File), q) ||
			(f.GrandTotalDate != "" && strings.Contains(strings.ToLower(f.GrandTotalDate), q)) {
			out = append(out, f)
		}
	}
	return out
}

func buildView(snap *models.LocalFilesResponse, filter string, previewRows int) *View {
	daily := Filter(snap.DailyFiles.LatestFilesInfo, filter)
	master := snap.MasterSummary

	v := &View{
		Filter:          filter,
		Shown:           len(daily),
		Total:           snap.DailyFiles.FileCount,
		MasterAvailable: master.Available(),
		MasterLine:      MasterMissingLine,
	}
	v.Summary = fmt.Sprintf("%d daily files displayed (of %d).", v.Shown, v.Total)
	if v.MasterAvailable {
		v.MasterLine = MasterAvailableLine
	}

	for _, f := range daily {
		v.Files = append(v.Files, newEntry(f, fmt.Sprintf("📄 %s — %d rows", f.File, f.Rows), previewRows))
	}

	if v.MasterAvailable {
		ms := models.FileSummary{
			File:           constants.MasterSummaryFile,
			Rows:           master.RowCount,
			GrandTotalDate: master.GrandTotalDate,
			Columns:        master.Columns,
			CreatedAt:      master.CreatedAt,
			Sample:         master.Sample,
			Stats:          master.Stats,
		}
		entry := newEntry(ms, fmt.Sprintf("📊 %s — %d rows", constants.MasterSummaryFile, master.RowCount), previewRows)
		entry.Master = true
		v.Master = &entry
	}
	return v
}

func errorView(filter, message string) *View {
	return &View{Filter: filter, Error: message}
}

func newEntry(f models.FileSummary, title string, previewRows int) FileEntry {
	e := FileEntry{
		Name:           f.File,
		Title:          title,
		GrandTotalDate: dash(display.Date(f.GrandTotalDate)),
		CreatedAt:      dash(display.DateTime(f.CreatedAt)),
		Columns:        "-",
		Summary:        f,
	}
	if f.Columns != nil {
		e.Columns = strings.Join(f.Columns, ", ")
	}
	e.Sample, e.HasSample = SampleTable(f.Sample, f.Columns, previewRows)
	return e
}

// SampleTable renders up to limit rows. Column order follows columns where
// given, then any remaining keys sorted; the record id is never shown.
// The bool is false when there are no rows.
func SampleTable(rows []models.Record, columns []string, limit int) (display.Table, bool) {
	if len(rows) == 0 {
		return display.Table{}, false
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	keys := sampleKeys(rows[0], columns)
	t := display.Table{Headers: make([]string, len(keys))}
	for i, k := range keys {
		t.Headers[i] = capitalize(k)
	}
	for _, row := range rows {
		cells := make([]string, len(keys))
		for i, k := range keys {
			cells[i] = formatCell(k, row)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, true
}

func sampleKeys(first models.Record, columns []string) []string {
	seen := make(map[string]bool, len(first))
	var keys []string
	for _, c := range columns {
		if _, ok := first[c]; ok && c != constants.RecordIDColumn && !seen[c] {
			keys = append(keys, c)
			seen[c] = true
		}
	}

	var rest []string
	for k := range first {
		if k != constants.RecordIDColumn && !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func formatCell(key string, row models.Record) string {
	v, ok := row[key]
	if !ok || v == nil {
		return "-"
	}
	switch key {
	case "MRP":
		if f, ok := row.Float(key); ok {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
	case "date":
		if s := row.String(key); s != "" {
			return display.Date(s)
		}
	}
	return row.String(key)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Render writes the view as text.
func (v *View) Render(w io.Writer) error {
	if v.Error != "" {
		_, err := fmt.Fprintln(w, v.Error)
		return err
	}

	fmt.Fprintf(w, "%s %s\n", v.Summary, v.MasterLine)
	entries := v.Files
	if v.Master != nil {
		entries = append(append([]FileEntry(nil), entries...), *v.Master)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "\n%s\n", e.Title)
		if err := display.KeyValues(w, [][2]string{
			{"  Grand Total Date", e.GrandTotalDate},
			{"  Created At", e.CreatedAt},
			{"  Columns", e.Columns},
		}); err != nil {
			return err
		}
		if !e.HasSample {
			fmt.Fprintf(w, "  %s\n", NoSampleLine)
			continue
		}
		fmt.Fprintln(w, "  Preview (first 10 rows):")
		if err := renderIndented(w, e.Sample); err != nil {
			return err
		}
	}
	return nil
}

// renderIndented renders t and prefixes every line with two spaces.
func renderIndented(w io.Writer, t display.Table) error {
	var buf bytes.Buffer
	if err := t.Render(&buf); err != nil {
		return err
	}
	for _, line := range strings.SplitAfter(buf.String(), "\n") {
		if line == "" {
			continue
		}
		if _, err := io.WriteString(w, "  "+line); err != nil {
			return err
		}
	}
	return nil
}
