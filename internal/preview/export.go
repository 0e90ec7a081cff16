package preview

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/models"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Export messages.
const (
	MsgExported     = "Data exported successfully!"
	MsgExportFailed = "Failed to export data."
)

const exportSheet = "Inventory"

// Archiver copies an exported file somewhere durable and returns where.
type Archiver interface {
	Archive(ctx context.Context, path string) (string, error)
}

// ExportOptions select the output file.
type ExportOptions struct {
	// Path defaults to inventory_data.csv (or .xlsx) in the working directory.
	Path string
	// Format is csv or xlsx; empty means take it from Path's extension.
	Format string
	// Archiver, when set, receives the written file.
	Archiver Archiver
}

// ExportResult describes a written export.
type ExportResult struct {
	Path      string
	Format    string
	Records   int
	ArchiveTo string
}

// ResolveExport fills in the path and format defaults.
func ResolveExport(opts ExportOptions) (path, format string, err error) {
	path, format = opts.Path, strings.ToLower(opts.Format)
	if format == "" {
		format = FormatCSV
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			format = FormatXLSX
		}
	}
	if format != FormatCSV && format != FormatXLSX {
		return "", "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", opts.Format)
	}
	if path == "" {
		path = strings.TrimSuffix(constants.DefaultExportName, filepath.Ext(constants.DefaultExportName)) + "." + format
	}
	return path, format, nil
}

// Export re-fetches /preview and writes its records. A "no data" warning
// writes nothing and is returned (errors.Is(err, api.ErrNoData)).
func (p *Panel) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	path, format, err := ResolveExport(opts)
	if err != nil {
		return nil, err
	}

	resp, err := p.api.Preview(ctx)
	if err != nil {
		var warn *api.WarningError
		if errors.As(err, &warn) {
			p.toaster.Toast(events.ToastWarning, warn.Message)
			return nil, err
		}
		p.exportFailed(err)
		return nil, err
	}

	write := writeCSV
	if format == FormatXLSX {
		write = writeXLSX
	}
	if err := writeAtomic(path, func(w io.Writer) error { return write(w, resp.Data) }); err != nil {
		p.exportFailed(err)
		return nil, err
	}

	result := &ExportResult{Path: path, Format: format, Records: len(resp.Data)}
	p.logger.Info().Str("path", path).Str("format", format).Int("records", result.Records).Msg("Export written")

	if opts.Archiver != nil {
		dest, err := opts.Archiver.Archive(ctx, path)
		if err != nil {
			p.log.Error("Archive upload failed: " + err.Error())
			p.toaster.Toast(events.ToastError, "Archive upload failed.")
			return result, err
		}
		result.ArchiveTo = dest
		p.log.Info("Archived export to " + dest)
	}

	p.toaster.Toast(events.ToastSuccess, MsgExported)
	return result, nil
}

func (p *Panel) exportFailed(err error) {
	p.toaster.Toast(events.ToastError, MsgExportFailed)
	p.log.Error("Export failed: " + api.Message(err))
}

// Columns is the sorted union of the records' keys.
func Columns(rows []models.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func writeCSV(w io.Writer, rows []models.Record) error {
	cols := Columns(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			rec[i] = row.String(c)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, rows []models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	cols := Columns(rows)
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	for r, row := range rows {
		values := make([]interface{}, len(cols))
		for i, c := range cols {
			if v, ok := row[c]; ok && v != nil {
				values[i] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// writeAtomic writes through a temporary file in the target directory so
// a failure leaves nothing at path.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	err = write(tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
