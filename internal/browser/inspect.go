package browser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/invdash/invdash/internal/display"
)

// SheetInfo summarises one worksheet.
type SheetInfo struct {
	Name     string
	DataRows int
	Header   []string
}

// WorkbookInfo summarises a downloaded report.
type WorkbookInfo struct {
	Path   string
	Sheets []SheetInfo
}

// Inspect opens an .xlsx report and reads each sheet's header and row count.
func Inspect(path string) (*WorkbookInfo, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	info := &WorkbookInfo{Path: path}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheet := SheetInfo{Name: name}
		if len(rows) > 0 {
			sheet.Header = rows[0]
			sheet.DataRows = len(rows) - 1
		}
		info.Sheets = append(info.Sheets, sheet)
	}
	return info, nil
}

// Render writes one line per sheet.
func (w *WorkbookInfo) Render(out io.Writer) error {
	fmt.Fprintf(out, "%s\n", w.Path)
	t := display.Table{Headers: []string{"Sheet", "Rows", "Columns"}}
	for _, s := range w.Sheets {
		t.Rows = append(t.Rows, []string{s.Name, display.Count(int64(s.DataRows)), strings.Join(s.Header, ", ")})
	}
	return t.Render(out)
}
