package analyzer

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

// Palette is the ten-colour categorical cycle ("tab10") used to tell
// functions apart.
var Palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, // blue
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}, // orange
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}, // green
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}, // red
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}, // purple
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff}, // brown
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff}, // pink
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}, // gray
	{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff}, // olive
	{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff}, // cyan
}

// GanttBar is one horizontal bar: a single execution of Function.
type GanttBar struct {
	Function   string  `json:"function"`
	Row        int     `json:"row"`
	StartMs    float64 `json:"startMs"`
	DurationMs float64 `json:"durationMs"`
}

// GanttRow is one lane of the chart.
type GanttRow struct {
	Function string     `json:"function"`
	Color    string     `json:"color"`
	RGBA     color.RGBA `json:"-"`
	Bars     int        `json:"bars"`
}

// GanttChart is the renderer-independent model of a Gantt chart.
type GanttChart struct {
	Rows []GanttRow `json:"rows"`
	Bars []GanttBar `json:"bars"`
}

// BuildGantt assigns one row and colour per distinct function, in the order
// functions first appear, and one bar per record in input order.
func BuildGantt(records []tracefile.Record) *GanttChart {
	functions := tracefile.Functions(records)
	chart := &GanttChart{
		Rows: make([]GanttRow, len(functions)),
		Bars: make([]GanttBar, 0, len(records)),
	}
	rowOf := make(map[string]int, len(functions))
	for i, fn := range functions {
		c := Palette[i%len(Palette)]
		chart.Rows[i] = GanttRow{Function: fn, Color: hexColor(c), RGBA: c}
		rowOf[fn] = i
	}
	for _, r := range records {
		row := rowOf[r.Function]
		chart.Rows[row].Bars++
		chart.Bars = append(chart.Bars, GanttBar{
			Function:   r.Function,
			Row:        row,
			StartMs:    r.StartMs(),
			DurationMs: r.DurationMs(),
		})
	}
	return chart
}

// AnalyzeGantt describes the Gantt chart of records in the given format.
func AnalyzeGantt(records []tracefile.Record, format string) (string, error) {
	logrus.WithFields(logrus.Fields{"records": len(records), "format": format}).Debug("Analyzing Gantt chart")
	chart := BuildGantt(records)

	switch format {
	case FormatText, FormatMarkdown:
		var b strings.Builder
		if format == FormatMarkdown {
			b.WriteString("```text\n")
		}
		b.WriteString("Gantt Chart of Traced Executions\n")
		b.WriteString(fmt.Sprintf("Bars: %s\n", FormatCount(len(chart.Bars))))
		if lo, hi, ok := timeRange(records); ok {
			b.WriteString(fmt.Sprintf("Time Range: %.3fms - %.3fms\n", nanosToMillis(lo), nanosToMillis(hi)))
		}
		b.WriteString("--------------------------------------------------\n")
		b.WriteString(fmt.Sprintf("%-5s %-9s %-8s %s\n", "Row", "Color", "Bars", "Function Name"))
		b.WriteString("--------------------------------------------------\n")
		for i, row := range chart.Rows {
			b.WriteString(fmt.Sprintf("%-5d %-9s %-8d %s\n", i, row.Color, row.Bars, row.Function))
		}
		if format == FormatMarkdown {
			b.WriteString("```\n")
		}
		return b.String(), nil

	case FormatJSON:
		jsonBytes, err := json.MarshalIndent(chart, "", "  ")
		if err != nil {
			logrus.WithError(err).Error("Error marshaling Gantt chart to JSON")
			errJSONBytes, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("Failed to marshal result to JSON: %v", err)})
			return string(errJSONBytes), nil
		}
		return string(jsonBytes), nil

	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// timeRange returns the earliest start and latest end in records.
func timeRange(records []tracefile.Record) (lo, hi int64, ok bool) {
	if len(records) == 0 {
		return 0, 0, false
	}
	lo, hi = records[0].StartNs, records[0].EndNs
	for _, r := range records[1:] {
		lo = min(lo, r.StartNs)
		hi = max(hi, r.EndNs)
	}
	return lo, hi, true
}
