package charts

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/invdash/invdash/internal/display"
)

// Renderer draws a loaded view.
type Renderer interface {
	Render(w io.Writer, v *View) error
}

// maxPoints limits how many points a text summary lists per trace.
const maxPoints = 8

// TextRenderer summarises each trace as label/value pairs.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, v *View) error {
	if v.Range != nil {
		fmt.Fprintf(w, "Range: %s to %s\n\n", v.Range.Start, v.Range.End)
	}
	for i, slot := range v.Slots {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if slot.Chart == nil {
			fmt.Fprintf(w, "[%s] %s\n", slot.Name, slot.Placeholder)
			continue
		}
		title := slot.Chart.Title()
		if title == "" {
			title = slot.Name
		}
		fmt.Fprintf(w, "[%s] %s\n", slot.Name, title)
		for _, trace := range slot.Chart.Data {
			fmt.Fprintf(w, "  %s\n", summarizeTrace(trace))
		}
	}
	return nil
}

func summarizeTrace(trace map[string]interface{}) string {
	kind, _ := trace["type"].(string)
	if kind == "" {
		kind = "scatter"
	}

	labels, values := trace["x"], trace["y"]
	if kind == "pie" || trace["labels"] != nil {
		labels, values = trace["labels"], trace["values"]
	}
	if name, ok := trace["name"].(string); ok && name != "" {
		kind += " " + name
	}
	ls, _ := labels.([]interface{})
	vs, _ := values.([]interface{})

	n := len(ls)
	if len(vs) < n {
		n = len(vs)
	}
	points := make([]string, 0, maxPoints)
	for i := 0; i < n && i < maxPoints; i++ {
		points = append(points, fmt.Sprintf("%s=%s", formatValue(ls[i]), formatValue(vs[i])))
	}
	out := kind + ": " + strings.Join(points, ", ")
	if n > maxPoints {
		out += fmt.Sprintf(" (+%d more)", n-maxPoints)
	}
	if n == 0 {
		out = kind + ": no points"
	}
	return out
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return display.Number(t)
	case nil:
		return "-"
	default:
		return fmt.Sprint(t)
	}
}

// PlotlyURL is the script the HTML page loads.
const PlotlyURL = "https://cdn.plot.ly/plotly-2.27.0.min.js"

// HTMLRenderer writes a self-contained page that draws every chart with
// Plotly.
type HTMLRenderer struct {
	// Theme is "light" or "dark".
	Theme string
}

type htmlSlot struct {
	ID          string
	Name        string
	Placeholder string
	Data        []map[string]interface{}
	Layout      map[string]interface{}
}

type htmlPage struct {
	Title     string
	Dark      bool
	PlotlyURL string
	Slots     []htmlSlot
}

var pageTemplate = template.Must(template.New("charts").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.PlotlyURL}}"></script>
<style>
body { font-family: sans-serif; margin: 2rem; {{if .Dark}}background: #1e1e1e; color: #e0e0e0;{{end}} }
.grid { display: grid; grid-template-columns: 1fr 1fr; gap: 1.5rem; }
.placeholder { text-align: center; padding: 4rem 0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="grid">
{{- range .Slots}}
<div id="{{.ID}}">{{if .Placeholder}}<p class="placeholder">{{.Placeholder}}</p>{{end}}</div>
{{- end}}
</div>
<script>
{{- range .Slots}}{{if not .Placeholder}}
Plotly.newPlot({{.ID}}, {{.Data}}, {{.Layout}}, {responsive: true});
{{- end}}{{end}}
</script>
</body>
</html>
`))

func (r HTMLRenderer) Render(w io.Writer, v *View) error {
	page := htmlPage{
		Title:     "Inventory Visualizations",
		Dark:      r.Theme == "dark",
		PlotlyURL: PlotlyURL,
	}
	if v.Range != nil {
		page.Title += fmt.Sprintf(" (%s to %s)", v.Range.Start, v.Range.End)
	}

	for _, slot := range v.Slots {
		hs := htmlSlot{ID: slot.Name + "-chart", Name: slot.Name, Placeholder: slot.Placeholder}
		if slot.Chart != nil {
			hs.Data = slot.Chart.Data
			hs.Layout = r.layout(slot.Chart.Layout)
		} else if hs.Placeholder == "" {
			hs.Placeholder = MsgNoData
		}
		page.Slots = append(page.Slots, hs)
	}
	return pageTemplate.Execute(w, page)
}

// layout copies l, applying dark colours when needed.
func (r HTMLRenderer) layout(l map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(l)+3)
	for k, v := range l {
		out[k] = v
	}
	if r.Theme == "dark" {
		out["paper_bgcolor"] = "#1e1e1e"
		out["plot_bgcolor"] = "#1e1e1e"
		out["font"] = map[string]interface{}{"color": "#e0e0e0"}
	}
	return out
}
