package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

// aggregateByFunction groups record durations per function.
func aggregateByFunction(records []tracefile.Record) []*functionStat {
	byName := make(map[string]*functionStat)
	var stats []*functionStat
	for _, r := range records {
		d := r.EndNs - r.StartNs
		s, ok := byName[r.Function]
		if !ok {
			s = &functionStat{Name: r.Function, MinNs: d, MaxNs: d}
			byName[r.Function] = s
			stats = append(stats, s)
		}
		s.Calls++
		s.TotalNs += d
		s.MinNs = min(s.MinNs, d)
		s.MaxNs = max(s.MaxNs, d)
	}
	// Stable keeps first-seen order among equal totals.
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalNs > stats[j].TotalNs
	})
	return stats
}

// AnalyzeSummary reports per-function execution statistics, ordered by total
// time spent, limited to the topN functions.
func AnalyzeSummary(records []tracefile.Record, topN int, format string) (string, error) {
	logrus.WithFields(logrus.Fields{"records": len(records), "topN": topN, "format": format}).Debug("Analyzing trace summary")

	stats := aggregateByFunction(records)
	totalNs := int64(0)
	for _, s := range stats {
		totalNs += s.TotalNs
	}
	var spanNs int64
	if lo, hi, ok := timeRange(records); ok {
		spanNs = hi - lo
	}

	limit := topN
	if limit > len(stats) || limit <= 0 {
		limit = len(stats)
	}
	percentOf := func(v int64) float64 {
		if totalNs == 0 {
			return 0
		}
		return float64(v) / float64(totalNs) * 100
	}

	var b strings.Builder
	switch format {
	case FormatText, FormatMarkdown:
		if format == FormatMarkdown {
			b.WriteString("```text\n")
		}
		b.WriteString(fmt.Sprintf("Trace Summary (Top %d Functions by Total Time)\n", limit))
		b.WriteString(fmt.Sprintf("Total Records: %s  Functions: %s\n", FormatCount(len(records)), FormatCount(len(stats))))
		b.WriteString(fmt.Sprintf("Trace Span: %s  Total Time: %s\n", FormatNanos(spanNs), FormatNanos(totalNs)))
		b.WriteString("--------------------------------------------------\n")
		b.WriteString(fmt.Sprintf("%-12s %-8s %-8s %-12s %-12s %s\n", "Total", "%", "Calls", "Mean", "Max", "Function Name"))
		b.WriteString("--------------------------------------------------\n")
		for _, s := range stats[:limit] {
			b.WriteString(fmt.Sprintf("%-12s %-8.2f %-8d %-12s %-12s %s\n",
				FormatNanos(s.TotalNs), percentOf(s.TotalNs), s.Calls,
				FormatNanos(s.TotalNs/int64(s.Calls)), FormatNanos(s.MaxNs), s.Name))
		}
		if format == FormatMarkdown {
			b.WriteString("```\n")
		}

	case FormatJSON:
		result := SummaryResult{
			TotalRecords:   len(records),
			TotalFunctions: len(stats),
			SpanMs:         nanosToMillis(spanNs),
			TotalMs:        nanosToMillis(totalNs),
			TopN:           limit,
			Functions:      make([]FunctionStat, 0, limit),
		}
		for _, s := range stats[:limit] {
			result.Functions = append(result.Functions, FunctionStat{
				FunctionName:   s.Name,
				Calls:          s.Calls,
				TotalMs:        nanosToMillis(s.TotalNs),
				TotalFormatted: FormatNanos(s.TotalNs),
				MeanMs:         nanosToMillis(s.TotalNs) / float64(s.Calls),
				MinMs:          nanosToMillis(s.MinNs),
				MaxMs:          nanosToMillis(s.MaxNs),
				Percentage:     percentOf(s.TotalNs),
			})
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logrus.WithError(err).Error("Error marshaling trace summary to JSON")
			errJSONBytes, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("Failed to marshal result to JSON: %v", err), TopN: topN})
			return string(errJSONBytes), nil
		}
		return string(jsonBytes), nil

	case FormatFlameGraphJSON:
		root, err := BuildFlameGraphTree(ToProfile(records), wallValueIndex)
		if err != nil {
			logrus.WithError(err).Error("Error building flame graph tree")
			errJSONBytes, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("Failed to build flame graph tree: %v", err)})
			return string(errJSONBytes), nil
		}
		jsonBytes, err := json.Marshal(root)
		if err != nil {
			logrus.WithError(err).Error("Error marshaling flame graph tree to JSON")
			errJSONBytes, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("Failed to marshal flame graph tree to JSON: %v", err)})
			return string(errJSONBytes), nil
		}
		return string(jsonBytes), nil

	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}

	return b.String(), nil
}
