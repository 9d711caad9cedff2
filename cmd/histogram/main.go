// Command histogram renders a histogram of the intervals between consecutive
// starts of one function recorded in a trace file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZephyrDeng/trace-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/trace-analyzer-mcp/internal/cliutil"
	"github.com/ZephyrDeng/trace-analyzer-mcp/render"
	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

var histogramViper = cliutil.NewViper("HISTOGRAM")

var rootCmd = &cobra.Command{
	Use:   "histogram TRACE_FILE --function NAME",
	Short: "Generate a histogram of intervals between starts of a function",
	Long: `Generate a histogram of the intervals between consecutive starts of a
function recorded in a trace file, with a logarithmic frequency axis.

TRACE_FILE holds one execution per line: "<function> <start_ns> <end_ns>".
It may be a local path, a file:// URI or an http(s):// URL.`,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cliutil.SetupLogging(histogramViper.GetInt("verbose"))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		function := histogramViper.GetString("function")
		if function == "" {
			return errors.New(`required flag(s) "function" not set`)
		}
		bins := histogramViper.GetInt("bins")
		if bins <= 0 {
			return fmt.Errorf("--bins must be positive, got %d", bins)
		}
		maxTraces, err := cliutil.MaxTraces(histogramViper)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return run(cmd.Context(), cmd.OutOrStdout(), args[0], function, bins, maxTraces, cliutil.OutputFrom(histogramViper))
	},
}

func run(ctx context.Context, stdout io.Writer, traceURI, function string, bins, maxTraces int, out cliutil.Output) error {
	records, err := tracefile.Load(ctx, traceURI, maxTraces)
	if err != nil {
		return err
	}

	intervals, executions, err := analyzer.FunctionIntervals(records, function)
	if errors.Is(err, analyzer.ErrNotEnoughExecutions) {
		fmt.Fprintln(stdout, analyzer.NotEnoughExecutionsMessage(function))
		return nil
	} else if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function":   function,
		"executions": executions,
		"intervals":  len(intervals),
	}).Info("Computed intervals")

	hist, err := analyzer.BuildHistogram(intervals, bins)
	if err != nil {
		return err
	}
	if err := render.Histogram(hist, function, out.Path); err != nil {
		return err
	}
	return out.Finish(stdout, "Histogram")
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("function", "f", "", "Name of the function for the histogram (required)")
	flags.Int("bins", analyzer.DefaultBins, "Number of bins (X-axis resolution) for the histogram")
	cliutil.AddCommonFlags(flags, "histogram.png")
	flags.SortFlags = false
	cliutil.Bind(histogramViper, rootCmd)
}

func main() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}
