package analyzer_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/trace-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

func TestBuildGantt(t *testing.T) {
	records := []tracefile.Record{
		{Function: "f1", StartNs: 0, EndNs: 1_000_000},
		{Function: "f2", StartNs: 500_000, EndNs: 2_500_000},
		{Function: "f1", StartNs: 3_000_000, EndNs: 3_250_000},
	}
	chart := analyzer.BuildGantt(records)

	require.Len(t, chart.Rows, 2)
	assert.Equal(t, "f1", chart.Rows[0].Function)
	assert.Equal(t, "f2", chart.Rows[1].Function)
	assert.Equal(t, "#1f77b4", chart.Rows[0].Color)
	assert.Equal(t, "#ff7f0e", chart.Rows[1].Color)
	assert.Equal(t, 2, chart.Rows[0].Bars)

	require.Len(t, chart.Bars, 3)
	assert.Equal(t, analyzer.GanttBar{Function: "f1", Row: 0, StartMs: 0, DurationMs: 1}, chart.Bars[0])
	assert.Equal(t, analyzer.GanttBar{Function: "f2", Row: 1, StartMs: 0.5, DurationMs: 2}, chart.Bars[1])
	assert.Equal(t, analyzer.GanttBar{Function: "f1", Row: 0, StartMs: 3, DurationMs: 0.25}, chart.Bars[2])
}

func TestBuildGanttPaletteWraps(t *testing.T) {
	var records []tracefile.Record
	for i := 0; i < len(analyzer.Palette)+2; i++ {
		records = append(records, tracefile.Record{Function: fmt.Sprintf("f%d", i)})
	}
	chart := analyzer.BuildGantt(records)
	require.Len(t, chart.Rows, 12)
	assert.Equal(t, chart.Rows[0].RGBA, chart.Rows[10].RGBA)
	assert.Equal(t, chart.Rows[1].RGBA, chart.Rows[11].RGBA)
	assert.NotEqual(t, chart.Rows[0].RGBA, chart.Rows[1].RGBA)
}

func TestBuildGanttEmpty(t *testing.T) {
	chart := analyzer.BuildGantt(nil)
	assert.Empty(t, chart.Rows)
	assert.Empty(t, chart.Bars)
}

func TestAnalyzeGantt(t *testing.T) {
	records := []tracefile.Record{
		{Function: "f1", StartNs: 0, EndNs: 1_000_000},
		{Function: "f2", StartNs: 2_000_000, EndNs: 4_000_000},
	}

	out, err := analyzer.AnalyzeGantt(records, analyzer.FormatText)
	require.NoError(t, err)
	assert.Contains(t, out, "Gantt Chart of Traced Executions")
	assert.Contains(t, out, "Time Range: 0.000ms - 4.000ms")
	assert.Contains(t, out, "#1f77b4")

	out, err = analyzer.AnalyzeGantt(records, analyzer.FormatJSON)
	require.NoError(t, err)
	var chart analyzer.GanttChart
	require.NoError(t, json.Unmarshal([]byte(out), &chart))
	assert.Len(t, chart.Rows, 2)
	assert.Len(t, chart.Bars, 2)

	_, err = analyzer.AnalyzeGantt(records, "yaml")
	assert.Error(t, err)
}
