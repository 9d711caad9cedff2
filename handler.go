package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ZephyrDeng/trace-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/trace-analyzer-mcp/render"
	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

const (
	exportPprof       = "pprof"
	exportTraceEvents = "trace-events"
)

// requiredString reads a non-empty string argument.
func requiredString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing or invalid required argument: %s (string)", key)
	}
	return v, nil
}

// optionalInt reads a numeric argument. JSON numbers arrive as float64.
func optionalInt(args map[string]interface{}, key string, def int) int {
	f, ok := args[key].(float64)
	if !ok {
		return def
	}
	return int(f)
}

// loadTrace fetches and parses the trace named by the trace_uri argument,
// honouring max_traces.
func loadTrace(ctx context.Context, args map[string]interface{}) (string, []tracefile.Record, error) {
	uri, err := requiredString(args, "trace_uri")
	if err != nil {
		return "", nil, err
	}
	maxTraces := optionalInt(args, "max_traces", 0)
	if maxTraces < 0 {
		return "", nil, fmt.Errorf("max_traces must not be negative, got %d", maxTraces)
	}
	records, err := tracefile.Load(ctx, uri, maxTraces)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load trace: %w", err)
	}
	logrus.WithFields(logrus.Fields{"uri": uri, "records": len(records), "max_traces": maxTraces}).Info("Loaded trace")
	return uri, records, nil
}

// resolveOutputPath makes a relative output path absolute against the
// server's working directory.
func resolveOutputPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		logrus.WithError(err).Warnf("Could not resolve output path %q", p)
		return p
	}
	return abs
}

func textResult(texts ...string) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(texts))
	for _, t := range texts {
		content = append(content, mcp.TextContent{Type: "text", Text: t})
	}
	return &mcp.CallToolResult{Content: content}
}

// handleAnalyzeTrace backs the "analyze_trace" tool.
func handleAnalyzeTrace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	outputFormat, ok := args["output_format"].(string)
	if !ok || outputFormat == "" {
		outputFormat = analyzer.FormatText
	}
	topN := optionalInt(args, "top_n", 5)
	if topN <= 0 {
		topN = 5
	}

	_, records, err := loadTrace(ctx, args)
	if err != nil {
		return nil, err
	}

	report, err := analyzer.AnalyzeSummary(records, topN, outputFormat)
	if err != nil {
		logrus.WithError(err).WithField("format", outputFormat).Error("Analysis failed")
		return nil, err
	}
	logrus.WithField("length", len(report)).Debug("Analysis finished")
	return textResult(report), nil
}

// handleGenerateGanttChart backs the "generate_gantt_chart" tool.
func handleGenerateGanttChart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	outputPath, err := requiredString(args, "output_path")
	if err != nil {
		return nil, err
	}
	outputPath = resolveOutputPath(outputPath)

	uri, records, err := loadTrace(ctx, args)
	if err != nil {
		return nil, err
	}
	chart := analyzer.BuildGantt(records)
	if len(chart.Bars) == 0 {
		return nil, fmt.Errorf("no traces found in '%s'", uri)
	}
	if err := render.Gantt(chart, outputPath); err != nil {
		return nil, fmt.Errorf("failed to render gantt chart: %w", err)
	}

	report, err := analyzer.AnalyzeGantt(records, analyzer.FormatText)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Gantt chart written to: %s", outputPath), report), nil
}

// handleGenerateIntervalHistogram backs the "generate_interval_histogram"
// tool. Too few executions is reported as a normal result.
func handleGenerateIntervalHistogram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	function, err := requiredString(args, "function")
	if err != nil {
		return nil, err
	}
	outputPath, err := requiredString(args, "output_path")
	if err != nil {
		return nil, err
	}
	outputPath = resolveOutputPath(outputPath)
	bins := optionalInt(args, "bins", analyzer.DefaultBins)
	if bins <= 0 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}

	_, records, err := loadTrace(ctx, args)
	if err != nil {
		return nil, err
	}

	intervals, _, err := analyzer.FunctionIntervals(records, function)
	if errors.Is(err, analyzer.ErrNotEnoughExecutions) {
		return textResult(analyzer.NotEnoughExecutionsMessage(function)), nil
	} else if err != nil {
		return nil, err
	}
	hist, err := analyzer.BuildHistogram(intervals, bins)
	if err != nil {
		return nil, err
	}
	if err := render.Histogram(hist, function, outputPath); err != nil {
		return nil, fmt.Errorf("failed to render histogram: %w", err)
	}

	report, err := analyzer.AnalyzeIntervals(records, function, bins, analyzer.FormatText)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Histogram written to: %s", outputPath), report), nil
}

// handleExportTrace backs the "export_trace" tool.
func handleExportTrace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	format, ok := args["format"].(string)
	if !ok || format == "" {
		format = exportPprof
	}
	var write func(io.Writer, []tracefile.Record) error
	switch format {
	case exportPprof:
		write = analyzer.WriteProfile
	case exportTraceEvents:
		write = analyzer.WriteTraceEvents
	default:
		return nil, fmt.Errorf("unsupported export format: '%s'", format)
	}
	outputPath, err := requiredString(args, "output_path")
	if err != nil {
		return nil, err
	}
	outputPath = resolveOutputPath(outputPath)

	_, records, err := loadTrace(ctx, args)
	if err != nil {
		return nil, err
	}
	if err := writeFile(outputPath, records, write); err != nil {
		return nil, fmt.Errorf("failed to export trace: %w", err)
	}
	logrus.WithFields(logrus.Fields{"format": format, "path": outputPath}).Info("Exported trace")
	return textResult(fmt.Sprintf("Trace exported as %s to: %s", format, outputPath)), nil
}

func writeFile(path string, records []tracefile.Record, write func(io.Writer, []tracefile.Record) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeTempProfile stores records as a pprof profile in a temporary file for
// tools that only read files.
func writeTempProfile(records []tracefile.Record) (string, func(), error) {
	f, err := os.CreateTemp("", "trace-*.pb.gz")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary profile: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).Warnf("Failed to remove temporary profile %s", path)
		}
	}
	err = analyzer.WriteProfile(f, records)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write temporary profile: %w", err)
	}
	return path, cleanup, nil
}

const graphvizMissing = "Graphviz (the 'dot' command) was not found in PATH; it is required to render SVG flame graphs.\n" +
	"Install it first, for example:\n" +
	"- macOS (Homebrew): brew install graphviz\n" +
	"- Debian/Ubuntu: sudo apt-get update && sudo apt-get install graphviz\n" +
	"- CentOS/Fedora: sudo yum install graphviz or sudo dnf install graphviz\n" +
	"- Windows (Chocolatey): choco install graphviz"

// handleGenerateFlamegraph backs the "generate_flamegraph" tool. Wall time is
// rendered by 'go tool pprof' from a temporary profile of the trace.
func handleGenerateFlamegraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	outputSvgPath, err := requiredString(args, "output_svg_path")
	if err != nil {
		return nil, err
	}
	outputSvgPath = resolveOutputPath(outputSvgPath)

	if _, err := exec.LookPath("dot"); err != nil {
		logrus.Error(graphvizMissing)
		return nil, errors.New(graphvizMissing)
	}

	_, records, err := loadTrace(ctx, args)
	if err != nil {
		return nil, err
	}
	profilePath, cleanup, err := writeTempProfile(records)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cmdArgs := []string{"tool", "pprof", "-sample_index=wall", "-svg", "-output", outputSvgPath, profilePath}
	logrus.Infof("Executing command: go %s", strings.Join(cmdArgs, " "))

	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmdOutput, err := cmd.CombinedOutput()
	if err != nil {
		logrus.WithError(err).Errorf("'go tool pprof' failed:\n%s", cmdOutput)
		return nil, fmt.Errorf("failed to generate flamegraph: %w. Output: %s", err, cmdOutput)
	}
	logrus.WithField("path", outputSvgPath).Info("Generated flamegraph")

	textContent := fmt.Sprintf("Flame graph written to: %s", outputSvgPath)
	svgBytes, err := os.ReadFile(outputSvgPath)
	if err != nil {
		logrus.WithError(err).Warnf("Generated %s but could not read it back", outputSvgPath)
		return textResult(textContent), nil
	}
	return textResult(textContent, string(svgBytes)), nil
}
