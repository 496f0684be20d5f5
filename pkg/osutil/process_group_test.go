//go:build unix

package osutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProcessGroup(t *testing.T) {
	cmd := exec.Command("echo", "test")
	SetProcessGroup(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestProcessGroupKillGraceful(t *testing.T) {
	// A process that honors SIGTERM should exit without waiting for the
	// SIGKILL follow-up.
	script := `trap 'exit 0' TERM; while true; do sleep 0.1; done`

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", script)
	SetProcessGroup(cmd)
	SetProcessGroupKill(cmd)
	require.NoError(t, cmd.Start())

	time.Sleep(200 * time.Millisecond)
	start := time.Now()
	cancel()
	_ = cmd.Wait()

	assert.Less(t, time.Since(start), GracefulShutdownDelay,
		"SIGTERM-aware process should not need the kill delay")
}

func TestProcessGroupKillsChildren(t *testing.T) {
	if testing.Short() {
		t.Skip("takes several seconds")
	}

	// The child ignores SIGTERM; only a group-wide SIGKILL reaches it.
	script := `
		(trap '' TERM; while true; do sleep 0.1; done) &
		echo "CHILD:$!"
		trap '' TERM
		while true; do sleep 0.1; done
	`

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", script)
	SetProcessGroup(cmd)
	SetProcessGroupKill(cmd)

	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	buf := make([]byte, 64)
	n, err := stdout.Read(buf)
	require.NoError(t, err)
	var childPid int
	_, err = parseChildPid(string(buf[:n]), &childPid)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, syscall.Kill(childPid, 0), "child should be running")

	cancel()
	_ = cmd.Wait()
	time.Sleep(GracefulShutdownDelay + 500*time.Millisecond)

	assert.Error(t, syscall.Kill(childPid, 0), "child should be terminated")
}

func TestProcessGroupKillAlreadyDead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "true")
	SetProcessGroup(cmd)
	SetProcessGroupKill(cmd)
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Wait())

	err := cmd.Cancel()
	assert.ErrorIs(t, err, os.ErrProcessDone)
}

func parseChildPid(output string, pid *int) (int, error) {
	return fmt.Sscanf(output, "CHILD:%d", pid)
}
