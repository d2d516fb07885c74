package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesEachLevelToItsOwnFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := New(dir, &console)
	require.NoError(t, err)
	defer l.Close()

	l.Info("plate %s", "12345")
	l.Warning("slow inference")
	l.Error("decode failed")

	info, err := os.ReadFile(filepath.Join(dir, InfoFile))
	require.NoError(t, err)
	warning, err := os.ReadFile(filepath.Join(dir, WarningFile))
	require.NoError(t, err)
	errs, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)

	assert.Contains(t, string(info), "plate 12345")
	assert.NotContains(t, string(info), "slow inference")
	assert.Contains(t, string(warning), "slow inference")
	assert.Contains(t, string(errs), "decode failed")
	assert.NotContains(t, string(errs), "plate 12345")

	assert.Contains(t, console.String(), "plate 12345")
	assert.Contains(t, console.String(), "decode failed")
}

func TestCleanLogs_TruncatesFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := New(dir, &console)
	require.NoError(t, err)
	defer l.Close()

	l.Error("first failure")
	require.NoError(t, l.CleanLogs(ErrorFile))

	data, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	assert.Empty(t, data)

	l.Error("second failure")
	data, err = os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "second failure")
	assert.NotContains(t, string(data), "first failure")
}

func TestCleanLogs_MissingFile(t *testing.T) {
	l, err := New(t.TempDir(), &bytes.Buffer{})
	require.NoError(t, err)
	defer l.Close()

	assert.Error(t, l.CleanLogs("missing.log"))
}

func TestErrorWriter_SharedAndClosedWithLogger(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, io.Discard)
	require.NoError(t, err)

	w := l.ErrorWriter()
	assert.Same(t, w, l.ErrorWriter())

	_, err = io.WriteString(w, "http: TLS handshake error\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		data, _ := os.ReadFile(filepath.Join(dir, ErrorFile))
		return strings.Contains(string(data), "TLS handshake error")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, l.Close())
	_, err = io.WriteString(w, "after close\n")
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
