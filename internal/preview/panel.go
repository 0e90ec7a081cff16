// Package preview shows the record sample and headline metrics the backend
// computes over the master data, and exports that sample to a file.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/invdash/invdash/internal/activity"
	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/constants"
	"github.com/invdash/invdash/internal/display"
	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/models"
	"github.com/invdash/invdash/internal/progress"
)

// User-facing messages.
const (
	MsgLoadFailed   = "Failed to load preview."
	MsgLoadErrorRow = "Error loading data"
)

// PreviewAPI is the part of the backend the panel uses.
type PreviewAPI interface {
	Preview(ctx context.Context) (*models.PreviewResponse, error)
}

// Toaster shows transient notifications.
type Toaster interface {
	Toast(kind events.ToastKind, message string)
}

// Metrics are the four headline figures.
type Metrics struct {
	TotalRecords     int64  `json:"total_records" yaml:"total_records"`
	UniqueBrands     int64  `json:"unique_brands" yaml:"unique_brands"`
	UniqueCategories int64  `json:"unique_categories" yaml:"unique_categories"`
	Ratio            string `json:"sales_purchase_ratio" yaml:"sales_purchase_ratio"`
}

// View is what the panel shows after a load. When Empty is set the table
// and metrics are absent and Empty is shown in their place.
type View struct {
	Table   display.Table
	Metrics *Metrics
	Empty   string
}

// Panel loads and renders the preview.
type Panel struct {
	api     PreviewAPI
	log     *activity.Log
	toaster Toaster
	logger  *logging.Logger

	mu   sync.Mutex
	view *View
}

// NewPanel creates a panel. logger may be nil.
func NewPanel(previewAPI PreviewAPI, log *activity.Log, toaster Toaster, logger *logging.Logger) *Panel {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Panel{api: previewAPI, log: log, toaster: toaster, logger: logger}
}

// View returns the last loaded view, or nil.
func (p *Panel) View() *View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Load fetches /preview. A "no data" warning is not an error: the view
// carries the warning text and a warning toast is shown.
func (p *Panel) Load(ctx context.Context) (*View, error) {
	resp, err := p.api.Preview(ctx)

	var warn *api.WarningError
	switch {
	case errors.As(err, &warn):
		view := &View{Empty: warn.Message}
		p.toaster.Toast(events.ToastWarning, warn.Message)
		p.log.AppendServerLines(warn.Logs)
		p.set(view)
		return view, nil

	case err != nil:
		view := &View{Empty: MsgLoadErrorRow}
		p.log.Error("Failed to load preview: " + api.Message(err))
		p.toaster.Toast(events.ToastError, MsgLoadFailed)
		p.set(view)
		return view, err
	}

	view := &View{
		Table: Table(resp.Data),
		Metrics: &Metrics{
			TotalRecords:     resp.Metrics.TotalRecords,
			UniqueBrands:     resp.Metrics.UniqueBrands,
			UniqueCategories: resp.Metrics.UniqueCategories,
			Ratio:            FormatRatio(resp.Metrics.NeonTotalSales, resp.Metrics.NeonTotalPurchases),
		},
	}
	p.log.AppendServerLines(resp.Logs)
	p.set(view)
	p.logger.Debug().Int("rows", len(resp.Data)).Msg("Preview loaded")
	return view, nil
}

func (p *Panel) set(v *View) {
	p.mu.Lock()
	p.view = v
	p.mu.Unlock()
}

var previewHeaders = []string{
	"Brand", "Category", "Size", "MRP", "Color",
	"Sales Qty", "Purchase Qty", "Week", "Month", "Created At",
}

// Table lays rows out in the fixed preview column order.
func Table(rows []models.Record) display.Table {
	t := display.Table{Headers: previewHeaders}
	for _, row := range rows {
		cells := make([]string, len(models.PreviewColumns))
		for i, col := range models.PreviewColumns {
			cells[i] = cell(row, col)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func cell(row models.Record, col string) string {
	switch col {
	case "mrp":
		if f, ok := row.Float(col); ok {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
	case "created_at":
		if s := row.String(col); s != "" {
			return display.DateTime(s)
		}
	}
	if s := row.String(col); s != "" {
		return s
	}
	return "-"
}

// Ratio is sales over purchases as a percentage rounded to one decimal
// place. It is zero when there are no purchases.
func Ratio(sales, purchases float64) decimal.Decimal {
	if purchases <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(sales).
		Div(decimal.NewFromFloat(purchases)).
		Mul(decimal.NewFromInt(100)).
		Round(1)
}

// FormatRatio renders Ratio with a percent sign.
func FormatRatio(sales, purchases float64) string {
	if purchases <= 0 {
		return "0%"
	}
	return Ratio(sales, purchases).StringFixed(1) + "%"
}

// CounterFrames is the sequence an animated counter shows on its way to v:
// it climbs by ceil(v/20) per frame and stops at v.
func CounterFrames(v int64) []int64 {
	step := (v + constants.CounterSteps - 1) / constants.CounterSteps
	if v <= 0 || step <= 0 {
		return []int64{v}
	}

	frames := make([]int64, 0, constants.CounterSteps)
	for cur := int64(0); cur < v; {
		cur += step
		if cur > v {
			cur = v
		}
		frames = append(frames, cur)
	}
	return frames
}

// Render writes the view. With animate the three counters count up in
// place on a terminal.
func (v *View) Render(w io.Writer, animate bool) error {
	if v.Empty != "" {
		_, err := fmt.Fprintln(w, v.Empty)
		return err
	}

	m := v.Metrics
	labels := []string{"Total Records", "Unique Brands", "Unique Categories"}
	values := []int64{m.TotalRecords, m.UniqueBrands, m.UniqueCategories}
	if animate {
		frames := make([][]int64, len(values))
		for i, val := range values {
			frames[i] = CounterFrames(val)
		}
		progress.AnimateCounters(w, labels, frames, constants.CounterFrameInterval, display.Count)
		fmt.Fprintf(w, "%-20s %s\n", "Sales/Purchase Ratio:", m.Ratio)
	} else {
		pairs := make([][2]string, 0, len(labels)+1)
		for i, label := range labels {
			pairs = append(pairs, [2]string{label, display.Count(values[i])})
		}
		pairs = append(pairs, [2]string{"Sales/Purchase Ratio", m.Ratio})
		if err := display.KeyValues(w, pairs); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	return v.Table.Render(w)
}
