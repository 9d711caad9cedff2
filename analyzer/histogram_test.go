package analyzer_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/trace-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

func ms(v int64) int64 { return v * 1_000_000 }

func TestFilterByFunction(t *testing.T) {
	records := []tracefile.Record{
		{Function: "update", StartNs: ms(1)},
		{Function: "Update", StartNs: ms(2)},
		{Function: "update", StartNs: ms(3)},
		{Function: "update_all", StartNs: ms(4)},
	}
	got := analyzer.FilterByFunction(records, "update")
	require.Len(t, got, 2)
	assert.Equal(t, ms(1), got[0].StartNs)
	assert.Equal(t, ms(3), got[1].StartNs)

	assert.Empty(t, analyzer.FilterByFunction(records, "missing"))
}

func TestIntervalsBetweenStarts(t *testing.T) {
	t.Run("Ordered", func(t *testing.T) {
		records := []tracefile.Record{
			{Function: "f", StartNs: ms(10), EndNs: ms(11)},
			{Function: "f", StartNs: ms(15), EndNs: ms(16)},
			{Function: "f", StartNs: ms(25), EndNs: ms(26)},
		}
		assert.Equal(t, []float64{5, 10}, analyzer.IntervalsBetweenStarts(records))
	})

	t.Run("Unordered", func(t *testing.T) {
		records := []tracefile.Record{
			{Function: "f", StartNs: ms(25)},
			{Function: "f", StartNs: ms(10)},
			{Function: "f", StartNs: ms(15)},
		}
		assert.Equal(t, []float64{5, 10}, analyzer.IntervalsBetweenStarts(records))
		assert.Equal(t, ms(25), records[0].StartNs, "input must not be reordered")
	})

	t.Run("TooFew", func(t *testing.T) {
		assert.Empty(t, analyzer.IntervalsBetweenStarts([]tracefile.Record{{Function: "f"}}))
	})
}

func TestFunctionIntervalsNotEnoughExecutions(t *testing.T) {
	records := []tracefile.Record{
		{Function: "f", StartNs: ms(1)},
		{Function: "g", StartNs: ms(2)},
		{Function: "g", StartNs: ms(3)},
	}

	_, n, err := analyzer.FunctionIntervals(records, "f")
	assert.Equal(t, 1, n)
	assert.True(t, errors.Is(err, analyzer.ErrNotEnoughExecutions))

	_, _, err = analyzer.FunctionIntervals(records, "missing")
	assert.True(t, errors.Is(err, analyzer.ErrNotEnoughExecutions))

	intervals, n, err := analyzer.FunctionIntervals(records, "g")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{1}, intervals)

	assert.Equal(t,
		"There are not enough executions of the function 'f' to calculate intervals.",
		analyzer.NotEnoughExecutionsMessage("f"))
}

func TestBuildHistogram(t *testing.T) {
	h, err := analyzer.BuildHistogram([]float64{10, 5}, analyzer.DefaultBins)
	require.NoError(t, err)
	require.Len(t, h.Bins, 10)

	assert.Equal(t, 5.0, h.Bins[0].Low)
	assert.Equal(t, 10.0, h.Bins[9].High)
	assert.Equal(t, 1, h.Bins[0].Count)
	assert.Equal(t, 1, h.Bins[9].Count, "maximum belongs to the last bin")
	total := 0
	for _, b := range h.Bins {
		total += b.Count
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, h.MaxCount())
}

func TestBuildHistogramDegenerateRange(t *testing.T) {
	h, err := analyzer.BuildHistogram([]float64{3, 3, 3}, 2)
	require.NoError(t, err)
	require.Len(t, h.Bins, 2)
	assert.Equal(t, 2.5, h.Bins[0].Low)
	assert.Equal(t, 3.5, h.Bins[1].High)
	assert.Equal(t, 0, h.Bins[0].Count)
	assert.Equal(t, 3, h.Bins[1].Count)
}

func TestBuildHistogramErrors(t *testing.T) {
	_, err := analyzer.BuildHistogram([]float64{1, 2}, 0)
	assert.Error(t, err)
	_, err = analyzer.BuildHistogram(nil, 10)
	assert.Error(t, err)
}

func TestComputeIntervalStats(t *testing.T) {
	s := analyzer.ComputeIntervalStats([]float64{10, 5})
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 5.0, s.MinMs)
	assert.Equal(t, 10.0, s.MaxMs)
	assert.Equal(t, 7.5, s.MeanMs)
	assert.InDelta(t, 3.5355, s.StdDev, 1e-4)
	assert.Equal(t, 5.0, s.P50Ms)
	assert.Equal(t, 10.0, s.P95Ms)

	single := analyzer.ComputeIntervalStats([]float64{4})
	assert.Equal(t, 0.0, single.StdDev)
}

func TestAnalyzeIntervals(t *testing.T) {
	records := []tracefile.Record{
		{Function: "tick", StartNs: ms(10), EndNs: ms(11)},
		{Function: "other", StartNs: ms(12), EndNs: ms(13)},
		{Function: "tick", StartNs: ms(15), EndNs: ms(16)},
		{Function: "tick", StartNs: ms(25), EndNs: ms(26)},
	}

	t.Run("Text", func(t *testing.T) {
		out, err := analyzer.AnalyzeIntervals(records, "tick", 4, analyzer.FormatText)
		require.NoError(t, err)
		assert.Contains(t, out, `Intervals Between Starts of "tick"`)
		assert.Contains(t, out, "Executions: 3  Intervals: 2")
	})

	t.Run("Markdown", func(t *testing.T) {
		out, err := analyzer.AnalyzeIntervals(records, "tick", 4, analyzer.FormatMarkdown)
		require.NoError(t, err)
		assert.True(t, len(out) > 8 && out[:7] == "```text")
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := analyzer.AnalyzeIntervals(records, "tick", 4, analyzer.FormatJSON)
		require.NoError(t, err)
		var result analyzer.HistogramResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "tick", result.Function)
		assert.Equal(t, 3, result.Executions)
		assert.Equal(t, 2, result.Stats.Count)
		assert.Len(t, result.Bins, 4)
	})

	t.Run("NotEnough", func(t *testing.T) {
		_, err := analyzer.AnalyzeIntervals(records, "other", 4, analyzer.FormatText)
		assert.True(t, errors.Is(err, analyzer.ErrNotEnoughExecutions))
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		_, err := analyzer.AnalyzeIntervals(records, "tick", 4, "xml")
		assert.Error(t, err)
	})
}
