package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// pprofSession is a background 'go tool pprof -http' process together with
// the temporary profile it serves.
type pprofSession struct {
	process *os.Process
	cleanup func()
}

// Sessions started by this server, by PID.
var (
	runningPprofs = make(map[int]*pprofSession)
	pprofMutex    sync.Mutex
)

// handleOpenInteractivePprof backs the "open_interactive_pprof" tool.
func handleOpenInteractivePprof(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	httpAddress, ok := args["http_address"].(string)
	if !ok || httpAddress == "" {
		httpAddress = ":8081"
	}

	if _, err := exec.LookPath("go"); err != nil {
		return nil, fmt.Errorf("'go' command not found in PATH, cannot start pprof")
	}

	uri, records, err := loadTrace(ctx, args)
	if err != nil {
		return nil, err
	}
	// The profile must outlive this call; the session owns it from here.
	profilePath, cleanup, err := writeTempProfile(records)
	if err != nil {
		return nil, err
	}

	cmdArgs := []string{"tool", "pprof", "-sample_index=wall", fmt.Sprintf("-http=%s", httpAddress), profilePath}
	logrus.Infof("Starting in background: go %s", strings.Join(cmdArgs, " "))

	// Not CommandContext: the request context ends when this call returns.
	cmd := exec.Command("go", cmdArgs...)
	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to start 'go tool pprof': %w", err)
	}

	pid := cmd.Process.Pid
	pprofMutex.Lock()
	runningPprofs[pid] = &pprofSession{process: cmd.Process, cleanup: cleanup}
	pprofMutex.Unlock()

	logrus.WithFields(logrus.Fields{"pid": pid, "address": httpAddress, "trace": uri}).Info("Started interactive pprof")

	resultText := fmt.Sprintf("Started 'go tool pprof' in the background (PID: %d) for '%s', listening on about %s.", pid, uri, httpAddress)
	resultText += "\nUse the 'disconnect_pprof_session' tool with this PID to stop it."
	return textResult(resultText), nil
}

// handleDisconnectPprofSession backs the "disconnect_pprof_session" tool.
func handleDisconnectPprofSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	pidFloat, ok := args["pid"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing or invalid required argument: pid (number)")
	}
	pid := int(pidFloat)
	if pid <= 0 {
		return nil, fmt.Errorf("invalid PID: %d", pid)
	}

	pprofMutex.Lock()
	session, exists := runningPprofs[pid]
	if !exists {
		pprofMutex.Unlock()
		return nil, fmt.Errorf("no running pprof session with PID %d", pid)
	}
	delete(runningPprofs, pid)
	pprofMutex.Unlock()

	if err := terminate(session.process, pid); err != nil {
		return nil, fmt.Errorf("failed to terminate PID %d: %w", pid, err)
	}

	_, err := session.process.Wait()
	if err != nil && !strings.Contains(err.Error(), "no child processes") && !strings.Contains(err.Error(), "signal:") {
		logrus.WithError(err).Warnf("Error waiting for PID %d after signalling", pid)
	}
	session.cleanup()

	resultText := fmt.Sprintf("Sent termination signal to PID %d.", pid)
	logrus.Info(resultText)
	return textResult(resultText), nil
}

// terminate interrupts p, falling back to kill.
func terminate(p *os.Process, pid int) error {
	if err := p.Signal(os.Interrupt); err != nil {
		logrus.WithError(err).Warnf("Failed to interrupt PID %d, killing it", pid)
		return p.Signal(os.Kill)
	}
	return nil
}

// setupSignalHandler stops every pprof session when the server is told to
// exit. Call it once from main.
func setupSignalHandler() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logrus.Infof("Received signal %s, stopping pprof sessions", sig)
		stopAllSessions()
		os.Exit(0)
	}()
}

func stopAllSessions() {
	pprofMutex.Lock()
	sessions := runningPprofs
	runningPprofs = make(map[int]*pprofSession)
	pprofMutex.Unlock()

	if len(sessions) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(sessions))
	for pid, s := range sessions {
		go func(pid int, s *pprofSession) {
			defer wg.Done()
			if err := terminate(s.process, pid); err != nil {
				logrus.WithError(err).Errorf("Failed to kill PID %d", pid)
			}
			s.cleanup()
		}(pid, s)
	}
	wg.Wait()
	logrus.WithField("sessions", len(sessions)).Info("Cleanup finished")
}
