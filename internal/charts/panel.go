// Package charts loads the backend's chart specifications and renders them
// in the terminal or as a standalone HTML page.
package charts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/invdash/invdash/internal/activity"
	"github.com/invdash/invdash/internal/api"
	"github.com/invdash/invdash/internal/events"
	"github.com/invdash/invdash/internal/logging"
	"github.com/invdash/invdash/internal/models"
)

// Slot names in display order.
var SlotNames = []string{"brand", "category", "monthly", "weekly"}

// User-facing messages.
const (
	MsgNoData        = "No data available"
	MsgLoadFailed    = "Failed to load visualizations."
	MsgRangeRequired = "Please select both start and end dates."
)

const dateLayout = "2006-01-02"

// ErrInvalidRange is returned by Load for an incomplete or inverted range.
var ErrInvalidRange = errors.New("invalid date range")

// VisualizationsAPI is the part of the backend the panel uses.
type VisualizationsAPI interface {
	Visualizations(ctx context.Context, rng *models.DateRange) (*models.VisualizationsResponse, error)
}

// Toaster shows transient notifications.
type Toaster interface {
	Toast(kind events.ToastKind, message string)
}

// Chart is one Plotly figure: a list of traces and a layout.
type Chart struct {
	Data   []map[string]interface{} `json:"data"`
	Layout map[string]interface{}   `json:"layout"`
}

// Title returns the layout title, which Plotly accepts either as a string
// or as {"text": ...}.
func (c *Chart) Title() string {
	switch t := c.Layout["title"].(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["text"].(string); ok {
			return s
		}
	}
	return ""
}

// ParseChart decodes a chart specification string.
func ParseChart(spec string) (*Chart, error) {
	if spec == "" {
		return nil, errors.New("empty chart specification")
	}
	var c Chart
	if err := json.Unmarshal([]byte(spec), &c); err != nil {
		return nil, fmt.Errorf("invalid chart specification: %w", err)
	}
	if c.Layout == nil {
		c.Layout = map[string]interface{}{}
	}
	return &c, nil
}

// Slot is one chart position. Chart is nil when Placeholder is shown.
type Slot struct {
	Name        string
	Chart       *Chart
	Placeholder string
}

// View is the four slots after a load.
type View struct {
	Range *models.DateRange
	Slots []Slot
}

// ValidateRange checks that both dates are present, well formed and in
// order.
func ValidateRange(rng *models.DateRange) error {
	err := validation.ValidateStruct(rng,
		validation.Field(&rng.Start, validation.Required.Error(MsgRangeRequired), validation.Date(dateLayout)),
		validation.Field(&rng.End, validation.Required.Error(MsgRangeRequired), validation.Date(dateLayout)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	// YYYY-MM-DD compares chronologically as text
	if rng.Start > rng.End {
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidRange, rng.Start, rng.End)
	}
	return nil
}

// Panel loads chart specifications.
type Panel struct {
	api     VisualizationsAPI
	log     *activity.Log
	toaster Toaster
	logger  *logging.Logger

	mu   sync.Mutex
	view *View
}

// NewPanel creates a panel. logger may be nil.
func NewPanel(visAPI VisualizationsAPI, log *activity.Log, toaster Toaster, logger *logging.Logger) *Panel {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Panel{api: visAPI, log: log, toaster: toaster, logger: logger}
}

// View returns the last loaded view, or nil.
func (p *Panel) View() *View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Load fetches every chart, scoped to rng when it is non-nil. On a failed
// request the previous view is kept.
func (p *Panel) Load(ctx context.Context, rng *models.DateRange) (*View, error) {
	if rng != nil {
		if err := ValidateRange(rng); err != nil {
			p.toaster.Toast(events.ToastWarning, MsgRangeRequired)
			return nil, err
		}
	}

	resp, err := p.api.Visualizations(ctx, rng)

	var warn *api.WarningError
	if errors.As(err, &warn) {
		view := &View{Range: rng}
		for _, name := range SlotNames {
			view.Slots = append(view.Slots, Slot{Name: name, Placeholder: MsgNoData})
		}
		p.toaster.Toast(events.ToastWarning, warn.Message)
		p.log.AppendServerLines(warn.Logs)
		p.set(view)
		return view, nil
	}
	if err != nil {
		p.log.Error("Failed to load visualizations: " + api.Message(err))
		p.toaster.Toast(events.ToastError, MsgLoadFailed)
		return nil, err
	}

	view := &View{Range: rng}
	for _, name := range SlotNames {
		slot := Slot{Name: name}
		chart, err := ParseChart(resp.Visualizations[name])
		if err != nil {
			slot.Placeholder = MsgNoData
			p.logger.Debug().Str("slot", name).Err(err).Msg("Chart not rendered")
		} else {
			slot.Chart = chart
		}
		view.Slots = append(view.Slots, slot)
	}
	p.log.AppendServerLines(resp.Logs)
	p.set(view)
	return view, nil
}

func (p *Panel) set(v *View) {
	p.mu.Lock()
	p.view = v
	p.mu.Unlock()
}
