package analyzer_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/trace-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

var summaryRecords = []tracefile.Record{
	{Function: "short", StartNs: ms(0), EndNs: ms(1)},
	{Function: "long", StartNs: ms(1), EndNs: ms(7)},
	{Function: "short", StartNs: ms(8), EndNs: ms(11)},
	{Function: "tiny", StartNs: ms(11), EndNs: ms(12)},
}

func TestAnalyzeSummaryJSON(t *testing.T) {
	out, err := analyzer.AnalyzeSummary(summaryRecords, 2, analyzer.FormatJSON)
	require.NoError(t, err)

	var result analyzer.SummaryResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4, result.TotalRecords)
	assert.Equal(t, 3, result.TotalFunctions)
	assert.Equal(t, 12.0, result.SpanMs)
	assert.Equal(t, 11.0, result.TotalMs)
	assert.Equal(t, 2, result.TopN)

	require.Len(t, result.Functions, 2)
	long := result.Functions[0]
	assert.Equal(t, "long", long.FunctionName)
	assert.Equal(t, 1, long.Calls)
	assert.Equal(t, 6.0, long.TotalMs)
	assert.Equal(t, "6.00ms", long.TotalFormatted)

	short := result.Functions[1]
	assert.Equal(t, "short", short.FunctionName)
	assert.Equal(t, 2, short.Calls)
	assert.Equal(t, 4.0, short.TotalMs)
	assert.Equal(t, 2.0, short.MeanMs)
	assert.Equal(t, 1.0, short.MinMs)
	assert.Equal(t, 3.0, short.MaxMs)
	assert.InDelta(t, 36.36, short.Percentage, 0.01)
}

func TestAnalyzeSummaryText(t *testing.T) {
	out, err := analyzer.AnalyzeSummary(summaryRecords, 0, analyzer.FormatText)
	require.NoError(t, err)
	assert.Contains(t, out, "Trace Summary (Top 3 Functions by Total Time)")
	assert.Contains(t, out, "Total Records: 4  Functions: 3")

	longIdx := strings.Index(out, "long")
	tinyIdx := strings.Index(out, "tiny")
	require.True(t, longIdx > 0 && tinyIdx > 0)
	assert.Less(t, longIdx, tinyIdx, "functions are sorted by total time")

	md, err := analyzer.AnalyzeSummary(summaryRecords, 1, analyzer.FormatMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "```text\n"))
	assert.True(t, strings.HasSuffix(md, "```\n"))
}

func TestAnalyzeSummaryEmpty(t *testing.T) {
	out, err := analyzer.AnalyzeSummary(nil, 5, analyzer.FormatJSON)
	require.NoError(t, err)
	var result analyzer.SummaryResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 0, result.TotalRecords)
	assert.Empty(t, result.Functions)
}

func TestAnalyzeSummaryFlameGraph(t *testing.T) {
	out, err := analyzer.AnalyzeSummary(summaryRecords, 5, analyzer.FormatFlameGraphJSON)
	require.NoError(t, err)

	var root analyzer.FlameGraphNode
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, ms(11), root.Value)
	require.Len(t, root.Children, 3)
	assert.Equal(t, "long", root.Children[0].Name)
	assert.Equal(t, ms(6), root.Children[0].Value)
}

func TestAnalyzeSummaryUnsupportedFormat(t *testing.T) {
	_, err := analyzer.AnalyzeSummary(summaryRecords, 5, "csv")
	assert.Error(t, err)
}

func TestFormatNanos(t *testing.T) {
	tests := map[int64]string{
		0:              "0ns",
		999:            "999ns",
		1_500:          "1.50us",
		2_250_000:      "2.25ms",
		3_000_000_000:  "3.00s",
		-4_000_000:     "-4.00ms",
		12_345_678_901: "12.35s",
	}
	for in, want := range tests {
		assert.Equal(t, want, analyzer.FormatNanos(in), "FormatNanos(%d)", in)
	}
	assert.Equal(t, "1.50ms", analyzer.FormatMillis(1.5))
	assert.Equal(t, "1,234,567", analyzer.FormatCount(1234567))
}
