// Package display formats numbers and tables for terminal output.
package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// Number renders v with thousands separators and at most three decimals.
func Number(v float64) string {
	return humanize.CommafWithDigits(v, 3)
}

// Count renders an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Bytes renders a byte count as a human readable size.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Table is a header row plus data rows of equal width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render writes t as tab-aligned columns.
func (t Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
		underline := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			underline[i] = strings.Repeat("-", len([]rune(h)))
		}
		fmt.Fprintln(tw, strings.Join(underline, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// KeyValues renders label/value pairs as two aligned columns.
func KeyValues(w io.Writer, pairs [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, kv := range pairs {
		fmt.Fprintf(tw, "%s:\t%s\n", kv[0], kv[1])
	}
	return tw.Flush()
}

// Layouts the backend has been seen to emit for timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
}

// ParseTime tries each known backend timestamp layout.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date renders s as YYYY-MM-DD, or returns it unchanged when it does not
// parse.
func Date(s string) string {
	if s == "" {
		return ""
	}
	if t, ok := ParseTime(s); ok {
		return t.Format("2006-01-02")
	}
	return s
}

// DateTime renders s as YYYY-MM-DD HH:MM:SS, or returns it unchanged.
func DateTime(s string) string {
	if s == "" {
		return ""
	}
	if t, ok := ParseTime(s); ok {
		return t.Format("2006-01-02 15:04:05")
	}
	return s
}
