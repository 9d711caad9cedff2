// Command trace-analyzer-mcp serves trace analysis tools over the Model
// Context Protocol on stdio.
package main

import (
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const traceURIDescription = "URI of the trace file: a local path, 'file://', 'http://' or 'https://'. " +
	"Each line is '<function> <start_ns> <end_ns>'."

func maxTracesOption() mcp.ToolOption {
	return mcp.WithNumber("max_traces",
		mcp.Description("Read at most this many lines of the trace. 0 or omitted reads the whole file."),
	)
}

// setupLogging configures logrus from TRACE_ANALYZER_LOG_LEVEL. Logs go to
// stderr because stdout carries the protocol.
func setupLogging() {
	v := viper.New()
	v.SetEnvPrefix("TRACE_ANALYZER")
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")

	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		logrus.WithError(err).Warn("Ignoring invalid TRACE_ANALYZER_LOG_LEVEL")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func newServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"TraceAnalyzer",
		"0.1.0",
		server.WithLogging(),
		server.WithRecovery(),
	)

	analyzeTool := mcp.NewTool("analyze_trace",
		mcp.WithDescription("Summarize a trace file: calls, total, mean, min and max duration per function, sorted by total time."),
		mcp.WithString("trace_uri", mcp.Description(traceURIDescription), mcp.Required()),
		mcp.WithNumber("top_n",
			mcp.Description("Number of functions to report (e.g. Top 5, Top 10)."),
			mcp.DefaultNumber(5.0),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format of the report."),
			mcp.DefaultString("text"),
			mcp.Enum("text", "markdown", "json", "flamegraph-json"),
		),
		maxTracesOption(),
	)

	ganttTool := mcp.NewTool("generate_gantt_chart",
		mcp.WithDescription("Render a Gantt chart of every traced execution, one row per function. The image format follows the output extension (png, svg, pdf, ...)."),
		mcp.WithString("trace_uri", mcp.Description(traceURIDescription), mcp.Required()),
		mcp.WithString("output_path",
			mcp.Description("Where to save the chart (absolute, or relative to the server's working directory)."),
			mcp.Required(),
		),
		maxTracesOption(),
	)

	histogramTool := mcp.NewTool("generate_interval_histogram",
		mcp.WithDescription("Render a log-scale histogram of the intervals between consecutive starts of one function."),
		mcp.WithString("trace_uri", mcp.Description(traceURIDescription), mcp.Required()),
		mcp.WithString("function", mcp.Description("Name of the traced function."), mcp.Required()),
		mcp.WithString("output_path",
			mcp.Description("Where to save the histogram (absolute, or relative to the server's working directory)."),
			mcp.Required(),
		),
		mcp.WithNumber("bins",
			mcp.Description("Number of bins."),
			mcp.DefaultNumber(10.0),
		),
		maxTracesOption(),
	)

	exportTool := mcp.NewTool("export_trace",
		mcp.WithDescription("Convert a trace file to a pprof profile or to Chrome Trace Event JSON (Perfetto, chrome://tracing)."),
		mcp.WithString("trace_uri", mcp.Description(traceURIDescription), mcp.Required()),
		mcp.WithString("format",
			mcp.Description("Export format."),
			mcp.DefaultString(exportPprof),
			mcp.Enum(exportPprof, exportTraceEvents),
		),
		mcp.WithString("output_path", mcp.Description("Where to save the export."), mcp.Required()),
		maxTracesOption(),
	)

	flamegraphTool := mcp.NewTool("generate_flamegraph",
		mcp.WithDescription("Use 'go tool pprof' to render an SVG graph of wall time per function. Requires Graphviz."),
		mcp.WithString("trace_uri", mcp.Description(traceURIDescription), mcp.Required()),
		mcp.WithString("output_svg_path",
			mcp.Description("Where to save the SVG (absolute, or relative to the server's working directory)."),
			mcp.Required(),
		),
		maxTracesOption(),
	)

	openInteractiveTool := mcp.NewTool("open_interactive_pprof",
		mcp.WithDescription("Start the 'go tool pprof' web UI for a trace in the background. Returns the PID needed to stop it."),
		mcp.WithString("trace_uri", mcp.Description(traceURIDescription), mcp.Required()),
		mcp.WithString("http_address",
			mcp.Description("Listen address of the pprof web UI (e.g. ':8081'). Defaults to ':8081'."),
		),
		maxTracesOption(),
	)

	disconnectTool := mcp.NewTool("disconnect_pprof_session",
		mcp.WithDescription("Stop a pprof process started by 'open_interactive_pprof'."),
		mcp.WithNumber("pid",
			mcp.Description("PID returned by 'open_interactive_pprof'."),
			mcp.Required(),
		),
	)

	mcpServer.AddTool(analyzeTool, handleAnalyzeTrace)
	mcpServer.AddTool(ganttTool, handleGenerateGanttChart)
	mcpServer.AddTool(histogramTool, handleGenerateIntervalHistogram)
	mcpServer.AddTool(exportTool, handleExportTrace)
	mcpServer.AddTool(flamegraphTool, handleGenerateFlamegraph)
	mcpServer.AddTool(openInteractiveTool, handleOpenInteractivePprof)
	mcpServer.AddTool(disconnectTool, handleDisconnectPprofSession)
	return mcpServer
}

func main() {
	setupLogging()
	mcpServer := newServer()
	setupSignalHandler()

	logrus.Info("Starting TraceAnalyzer MCP server via stdio...")
	if err := server.ServeStdio(mcpServer); err != nil {
		logrus.WithError(err).Fatal("Server error")
	}
}
