//go:build windows

package osutil

import (
	"os"
	"os/exec"
	"time"
)

// GracefulShutdownDelay is defined for API consistency; Windows has no
// SIGTERM, so cancellation kills immediately.
const GracefulShutdownDelay = 2 * time.Second

// SetProcessGroup is a no-op on Windows, which has no Unix-style
// process groups for foreground processes.
func SetProcessGroup(_ *exec.Cmd) {
}

// SetProcessGroupKill terminates the main process on context
// cancellation. Children may outlive it on Windows.
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Kill)
	}
}
