package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"interrupted", fmt.Errorf("diagnose: %w", core.ErrInterrupted), ExitInterrupted},
		{"cancelled context", context.Canceled, ExitInterrupted},
		{"other", errors.New("backup failed"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		configPath = ""
		require.NoError(t, analyzeCmd.Flags().Set("min-size", ""))
	})
	err := Execute(context.Background())
	return out.String(), err
}

func TestAnalyze_AnnotatesKnownCaches(t *testing.T) {
	profile := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(profile, "Cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(profile, "Cache", "data_0"), bytes.Repeat([]byte("x"), 4096), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(profile, "Extensions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(profile, "Extensions", "manifest"), []byte("{}"), 0o644))

	conf := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(conf, fmt.Appendf(nil, "[paths]\nprofile = %q\n", profile), 0o644))

	out, err := execute(t, "--config", conf, "analyze")
	require.NoError(t, err)

	assert.Contains(t, out, "Disk usage: "+profile)
	assert.Contains(t, out, "Cache/")
	assert.Contains(t, out, "[low: Normal - HTTP cache helps page loading]")
	assert.NotContains(t, out, "Extensions/  2 B  [")
}

func TestAnalyze_MarksStaleEntries(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "Old Session")
	require.NoError(t, os.WriteFile(old, []byte("session"), 0o644))
	past := time.Now().Add(-120 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Fresh"), []byte("fresh"), 0o644))

	out, err := execute(t, "analyze", root, "--stale", "90")
	require.NoError(t, err)
	assert.Contains(t, out, "Old Session  7 B  [untouched 90d+]")
	assert.NotContains(t, out, "Fresh  5 B  [")
}

func TestAnalyze_RejectsBadMinSize(t *testing.T) {
	_, err := execute(t, "analyze", t.TempDir(), "--min-size", "lots")
	assert.ErrorContains(t, err, "invalid --min-size")
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-10-19")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "oriondoctor 1.2.3 (abc123) built 2026-10-19")
	assert.Contains(t, out, "Host: ")
}

func TestCompletion(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "oriondoctor")

	_, err = execute(t, "completion", "powershell")
	assert.Error(t, err)
}
