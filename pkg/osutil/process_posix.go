//go:build unix

package osutil

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// GracefulShutdownDelay is how long a process group gets to exit after
// SIGTERM before it is force killed.
const GracefulShutdownDelay = 2 * time.Second

// SetProcessGroup runs the command in its own process group, so the
// whole tree (yt-dlp and the ffmpeg children it spawns) can be
// signalled together.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// SetProcessGroupKill terminates the process group when the command's
// context is cancelled: SIGTERM first, then SIGKILL after
// GracefulShutdownDelay, giving downloads a chance to clean up partial
// files. Must be called after SetProcessGroup and before cmd.Start().
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		pgid := -cmd.Process.Pid
		if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil {
			if errors.Is(err, syscall.ESRCH) {
				return os.ErrProcessDone
			}
			return syscall.Kill(pgid, syscall.SIGKILL)
		}
		go func() {
			time.Sleep(GracefulShutdownDelay)
			syscall.Kill(pgid, syscall.SIGKILL)
		}()
		return nil
	}
}
