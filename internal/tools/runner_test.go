package tools

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunCapturesOutput(t *testing.T) {
	requireShell(t)
	e := NewExec(nil)
	res, err := e.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.OK())
}

func TestExecRunMissingBinary(t *testing.T) {
	e := NewExec(map[string]string{"ffmpeg": "/nonexistent/ffmpeg-binary"})
	res, err := e.Run(context.Background(), "ffmpeg", "-version")
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunWithTimeout(t *testing.T) {
	requireShell(t)
	e := NewExec(nil)
	_, err := RunWithTimeout(context.Background(), e, 100*time.Millisecond, "sh", "-c", "exec sleep 5")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecStreamLines(t *testing.T) {
	requireShell(t)
	e := NewExec(nil)
	var lines []string
	res, err := e.Stream(context.Background(), func(l string) {
		lines = append(lines, l)
	}, "sh", "-c", "echo one; echo; echo '  two  '")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestResultErrText(t *testing.T) {
	assert.Equal(t, "boom", Result{Stderr: "boom"}.ErrText("Unknown error"))
	assert.Equal(t, "Unknown error", Result{}.ErrText("Unknown error"))
}

func TestEnsureMissing(t *testing.T) {
	_, err := Ensure("definitely-not-a-real-tool-binary")
	assert.Error(t, err)
}
