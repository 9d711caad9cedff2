package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

// DefaultBins is the histogram resolution when none is given.
const DefaultBins = 10

// ErrNotEnoughExecutions is returned when a function has fewer than two
// executions, so no interval between starts exists.
var ErrNotEnoughExecutions = errors.New("not enough executions to calculate intervals")

// Bin is one histogram bucket. Bins are half-open [Low, High) except the
// last, which also holds High.
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Histogram is a renderer-independent equal-width histogram.
type Histogram struct {
	Bins []Bin
}

// MaxCount returns the largest bin count.
func (h *Histogram) MaxCount() int {
	m := 0
	for _, b := range h.Bins {
		m = max(m, b.Count)
	}
	return m
}

// FilterByFunction keeps the records whose function name equals name exactly.
func FilterByFunction(records []tracefile.Record, name string) []tracefile.Record {
	var out []tracefile.Record
	for _, r := range records {
		if r.Function == name {
			out = append(out, r)
		}
	}
	return out
}

// IntervalsBetweenStarts orders records by start time and returns the
// differences between consecutive starts, in milliseconds.
func IntervalsBetweenStarts(records []tracefile.Record) []float64 {
	if len(records) < 2 {
		return nil
	}
	ordered := slices.Clone(records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartNs < ordered[j].StartNs
	})
	intervals := make([]float64, len(ordered)-1)
	for i := range intervals {
		intervals[i] = ordered[i+1].StartMs() - ordered[i].StartMs()
	}
	return intervals
}

// FunctionIntervals filters records down to function and returns its
// start-to-start intervals. It returns ErrNotEnoughExecutions when fewer than
// two records match.
func FunctionIntervals(records []tracefile.Record, function string) ([]float64, int, error) {
	matching := FilterByFunction(records, function)
	if len(matching) < 2 {
		return nil, len(matching), fmt.Errorf("function '%s' has %d execution(s): %w", function, len(matching), ErrNotEnoughExecutions)
	}
	return IntervalsBetweenStarts(matching), len(matching), nil
}

// BuildHistogram sorts values into bins equal-width buckets spanning their
// range. A degenerate range (all values equal) is widened by 0.5 each side.
func BuildHistogram(values []float64, bins int) (*Histogram, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("number of bins must be positive, got %d", bins)
	}
	if len(values) == 0 {
		return nil, errors.New("no values to bin")
	}

	sorted := slices.Clone(values)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram treats the last divider as exclusive; nudge it so the
	// maximum lands in the last bin.
	edges := slices.Clone(dividers)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	h := &Histogram{Bins: make([]Bin, bins)}
	for i := range h.Bins {
		h.Bins[i] = Bin{Low: edges[i], High: edges[i+1], Count: int(counts[i])}
	}
	return h, nil
}

// ComputeIntervalStats summarises intervals. intervals must be non-empty.
func ComputeIntervalStats(intervals []float64) IntervalStats {
	sorted := slices.Clone(intervals)
	sort.Float64s(sorted)
	s := IntervalStats{
		Count:  len(sorted),
		MinMs:  sorted[0],
		MaxMs:  sorted[len(sorted)-1],
		MeanMs: stat.Mean(sorted, nil),
		P50Ms:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95Ms:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// AnalyzeIntervals reports the start-to-start intervals of function. It
// returns ErrNotEnoughExecutions (wrapped) when fewer than two executions
// exist.
func AnalyzeIntervals(records []tracefile.Record, function string, bins int, format string) (string, error) {
	logrus.WithFields(logrus.Fields{"function": function, "bins": bins, "format": format}).Debug("Analyzing intervals")

	intervals, executions, err := FunctionIntervals(records, function)
	if err != nil {
		return "", err
	}
	hist, err := BuildHistogram(intervals, bins)
	if err != nil {
		return "", err
	}
	stats := ComputeIntervalStats(intervals)

	switch format {
	case FormatText, FormatMarkdown:
		var b strings.Builder
		if format == FormatMarkdown {
			b.WriteString("```text\n")
		}
		b.WriteString(fmt.Sprintf("Intervals Between Starts of \"%s\"\n", function))
		b.WriteString(fmt.Sprintf("Executions: %s  Intervals: %s\n", FormatCount(executions), FormatCount(stats.Count)))
		b.WriteString(fmt.Sprintf("Min: %s  Max: %s  Mean: %s  StdDev: %s\n",
			FormatMillis(stats.MinMs), FormatMillis(stats.MaxMs), FormatMillis(stats.MeanMs), FormatMillis(stats.StdDev)))
		b.WriteString(fmt.Sprintf("P50: %s  P95: %s\n", FormatMillis(stats.P50Ms), FormatMillis(stats.P95Ms)))
		b.WriteString("--------------------------------------------------\n")
		b.WriteString(fmt.Sprintf("%-27s %s\n", "Interval (ms)", "Count"))
		b.WriteString("--------------------------------------------------\n")
		for _, bin := range hist.Bins {
			b.WriteString(fmt.Sprintf("[%11.4f, %11.4f] %d\n", bin.Low, bin.High, bin.Count))
		}
		if format == FormatMarkdown {
			b.WriteString("```\n")
		}
		return b.String(), nil

	case FormatJSON:
		result := HistogramResult{
			Function:   function,
			Executions: executions,
			Stats:      stats,
			Bins:       hist.Bins,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logrus.WithError(err).Error("Error marshaling interval analysis to JSON")
			errJSONBytes, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("Failed to marshal result to JSON: %v", err)})
			return string(errJSONBytes), nil
		}
		return string(jsonBytes), nil

	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// NotEnoughExecutionsMessage is the user-facing explanation printed instead
// of a histogram.
func NotEnoughExecutionsMessage(function string) string {
	return fmt.Sprintf("There are not enough executions of the function '%s' to calculate intervals.", function)
}
