// Package cliutil holds the flag, configuration and logging wiring shared by
// the gantt and histogram commands.
package cliutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ZephyrDeng/trace-analyzer-mcp/render"
)

// NewViper returns a configuration instance that reads flags and, failing
// that, environment variables named <PREFIX>_<FLAG>.
func NewViper(envPrefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// AddCommonFlags registers the flags both commands accept.
func AddCommonFlags(flags *pflag.FlagSet, defaultOutput string) {
	flags.Int("max_traces", 0, "Maximum number of trace lines to read (0 reads all)")
	flags.StringP("output", "o", defaultOutput, "Chart file to write; the extension selects the format (png, svg, pdf, ...)")
	flags.Bool("open", false, "Open the chart in the system viewer once written")
	flags.CountP("verbose", "v", "Enable extra logging")
}

// Bind attaches cmd's flags to v. It must run after all flags are defined.
func Bind(v *viper.Viper, cmd *cobra.Command) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		logrus.WithError(err).Fatal("Failed to set up flags")
	}
}

// SetupLogging sends logs to stderr, raising verbosity one level per -v.
func SetupLogging(verbosity int) {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.InfoLevel + logrus.Level(verbosity))
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// MaxTraces reads and validates the max_traces setting.
func MaxTraces(v *viper.Viper) (int, error) {
	n := v.GetInt("max_traces")
	if n < 0 {
		return 0, fmt.Errorf("--max_traces must not be negative, got %d", n)
	}
	return n, nil
}

// Output holds where a chart goes and whether to show it.
type Output struct {
	Path string
	Open bool
}

// OutputFrom reads the output settings from v.
func OutputFrom(v *viper.Viper) Output {
	return Output{Path: v.GetString("output"), Open: v.GetBool("open")}
}

// Finish reports the written chart and opens it when requested.
func (o Output) Finish(w io.Writer, what string) error {
	fmt.Fprintf(w, "%s written to %s\n", what, o.Path)
	if !o.Open {
		return nil
	}
	if err := render.Open(o.Path); err != nil {
		return fmt.Errorf("chart was written but could not be opened: %w", err)
	}
	return nil
}
