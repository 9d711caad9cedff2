package render

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
)

// viewerCommand returns the command that opens path in the desktop's default
// viewer for goos.
func viewerCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

// Open shows a rendered chart in the platform viewer without waiting for the
// viewer to exit. The viewer outlives this process.
func Open(path string) error {
	name, args := viewerCommand(runtime.GOOS, path)
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("no viewer available (%s not found in PATH): %w", name, err)
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	logrus.WithFields(logrus.Fields{"viewer": name, "pid": cmd.Process.Pid}).Debug("Opened chart")
	return cmd.Process.Release()
}
