// Command gantt renders a Gantt chart of the function executions recorded in
// a trace file.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZephyrDeng/trace-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/trace-analyzer-mcp/internal/cliutil"
	"github.com/ZephyrDeng/trace-analyzer-mcp/render"
	"github.com/ZephyrDeng/trace-analyzer-mcp/tracefile"
)

var ganttViper = cliutil.NewViper("GANTT")

var rootCmd = &cobra.Command{
	Use:   "gantt TRACE_FILE",
	Short: "Generate a Gantt chart from a trace file",
	Long: `Generate a Gantt chart from a trace file.

TRACE_FILE holds one execution per line: "<function> <start_ns> <end_ns>".
It may be a local path, a file:// URI or an http(s):// URL.`,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cliutil.SetupLogging(ganttViper.GetInt("verbose"))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		maxTraces, err := cliutil.MaxTraces(ganttViper)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return run(cmd.Context(), cmd.OutOrStdout(), args[0], maxTraces, cliutil.OutputFrom(ganttViper))
	},
}

func run(ctx context.Context, stdout io.Writer, traceURI string, maxTraces int, out cliutil.Output) error {
	records, err := tracefile.Load(ctx, traceURI, maxTraces)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"trace": traceURI, "records": len(records)}).Info("Loaded trace")

	chart := analyzer.BuildGantt(records)
	if len(chart.Bars) == 0 {
		fmt.Fprintf(stdout, "No traces found in '%s'.\n", traceURI)
		return nil
	}
	if err := render.Gantt(chart, out.Path); err != nil {
		return err
	}
	return out.Finish(stdout, "Gantt chart")
}

func init() {
	flags := rootCmd.Flags()
	cliutil.AddCommonFlags(flags, "gantt.png")
	flags.SortFlags = false
	cliutil.Bind(ganttViper, rootCmd)
}

func main() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}
