package models

import (
	"fmt"
	"strconv"
)

// Record is one row as the backend serialises it. Keys vary by sheet, so
// rows stay maps; typed access goes through the helpers below.
type Record map[string]interface{}

// PreviewColumns is the column order of the preview table.
var PreviewColumns = []string{
	"brand", "category", "size", "mrp", "color",
	"sales_qty", "purchase_qty", "week", "month", "created_at",
}

// String returns the value for key rendered as text, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns the value for key as a number.
func (r Record) Float(key string) (float64, bool) {
	switch t := r[key].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// PreviewMetrics are the aggregates shown above the preview table
type PreviewMetrics struct {
	TotalRecords       int64   `json:"total_records" yaml:"total_records"`
	UniqueBrands       int64   `json:"unique_brands" yaml:"unique_brands"`
	UniqueCategories   int64   `json:"unique_categories" yaml:"unique_categories"`
	NeonTotalSales     float64 `json:"neon_total_sales" yaml:"neon_total_sales"`
	NeonTotalPurchases float64 `json:"neon_total_purchases" yaml:"neon_total_purchases"`
}

// PreviewResponse is the body of GET /preview
type PreviewResponse struct {
	Envelope
	Data    []Record       `json:"data,omitempty"`
	Metrics PreviewMetrics `json:"metrics"`
}

// DateRange scopes the visualizations request
type DateRange struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// VisualizationsResponse is the body of GET/POST /visualizations.
// Each slot holds a chart specification encoded as a JSON string.
type VisualizationsResponse struct {
	Envelope
	Visualizations map[string]string `json:"visualizations,omitempty"`
}
