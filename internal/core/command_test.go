package core

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecCommand_Stdout(t *testing.T) {
	requireSh(t)
	out, err := ExecCommand(context.Background(), time.Second, []byte("piped"), "sh", "-c", "cat; echo ' ok'")
	require.NoError(t, err)
	assert.Equal(t, "piped ok\n", string(out))
}

func TestExecCommand_ExitCode(t *testing.T) {
	requireSh(t)
	_, err := ExecCommand(context.Background(), time.Second, nil, "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 3")
	assert.Contains(t, err.Error(), "broken")
}

func TestExecCommand_Timeout(t *testing.T) {
	requireSh(t)
	_, err := ExecCommand(context.Background(), 50*time.Millisecond, nil, "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "timed out")
}

func TestExecCommand_MissingBinary(t *testing.T) {
	_, err := Command(time.Second)(context.Background(), nil, "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely-not-a-real-binary-xyz")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("é", 10)
	got := truncate(long, 5)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "éé...", got)
}
