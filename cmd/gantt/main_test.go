package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/trace-analyzer-mcp/internal/cliutil"
)

func writeTrace(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	trace := writeTrace(t, "f1 0 1000000\nf2 500000 2500000\nf1 3000000 4000000\n")
	out := cliutil.Output{Path: filepath.Join(t.TempDir(), "gantt.svg")}

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), &stdout, trace, 0, out))

	assert.Contains(t, stdout.String(), "Gantt chart written to "+out.Path)
	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestRunNoTraces(t *testing.T) {
	trace := writeTrace(t, "garbage\n\n")
	out := cliutil.Output{Path: filepath.Join(t.TempDir(), "gantt.png")}

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), &stdout, trace, 0, out))

	assert.Contains(t, stdout.String(), "No traces found")
	assert.NoFileExists(t, out.Path)
}

func TestRunMissingFile(t *testing.T) {
	out := cliutil.Output{Path: filepath.Join(t.TempDir(), "gantt.png")}
	err := run(context.Background(), io.Discard, filepath.Join(t.TempDir(), "missing.log"), 0, out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunParseError(t *testing.T) {
	trace := writeTrace(t, "f1 0 1000000\nf1 zero 2000000\n")
	out := cliutil.Output{Path: filepath.Join(t.TempDir(), "gantt.png")}

	err := run(context.Background(), io.Discard, trace, 0, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	// The bad line is past the cap and never read.
	require.NoError(t, run(context.Background(), io.Discard, trace, 1, out))
	assert.FileExists(t, out.Path)
}

func TestCommandRejectsNegativeMaxTraces(t *testing.T) {
	trace := writeTrace(t, "f1 0 1000000\n")
	rootCmd.SetArgs([]string{trace, "--max_traces", "-1", "--output", filepath.Join(t.TempDir(), "g.png")})
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_traces")
}

func TestCommandErrorsPrintedOnce(t *testing.T) {
	// cobra.CheckErr in main prints the error, so the command itself must not.
	assert.True(t, rootCmd.SilenceErrors)
}
