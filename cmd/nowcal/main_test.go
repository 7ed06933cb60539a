package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPlainOutput(t *testing.T) {
	out, err := execute(t,
		"--start", "2024-01-01T10:00:00Z",
		"--end", "2024-01-01T10:30:00Z",
		"--summary", "Standup",
		"--alarm", "15m",
		"--alarm", "5",
		"--attendee", "a@example.com",
	)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Contains(t, out, "DTSTART:20240101T100000Z\r\n")
	assert.Contains(t, out, "SUMMARY:Standup\r\n")
	assert.Contains(t, out, "ATTENDEE:mailto:a@example.com\r\n")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VALARM"))
}

func TestRawOutput(t *testing.T) {
	out, err := execute(t, "--format", "raw", "--start", "2024-01-01T10:00:00Z", "--uid", "u-1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "BEGIN:VCALENDAR", lines[0])
	assert.Contains(t, lines, "UID:u-1")
	assert.NotContains(t, out, "\r")
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("temp_dir: "+dir+"\nfile_prefix: cli_\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "--format", "file", "--summary", "Lunch"})
	require.NoError(t, cmd.Execute())

	path := strings.TrimSpace(out.String())
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "cli_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SUMMARY:Lunch\r\n")
}

func TestInvalidInput(t *testing.T) {
	_, err := execute(t, "--start", "tomorrow-ish")
	assert.Error(t, err)

	_, err = execute(t, "--format", "xml")
	assert.Error(t, err)
}
