package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherCallsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prompt.md")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0600))

	var calls atomic.Int32
	fw := New("test", []string{file, "", file}, 20*time.Millisecond, func() { calls.Add(1) }, nil)
	assert.Equal(t, []string{file}, fw.Files())

	require.NoError(t, fw.Start())
	t.Cleanup(func() { _ = fw.Stop() })

	// Make sure the new mtime differs on filesystems with coarse timestamps.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(file, []byte("v2"), 0600))
	require.NoError(t, os.Chtimes(file, future, future))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestFileWatcherWithoutFiles(t *testing.T) {
	fw := New("empty", nil, 0, func() {}, nil)
	require.NoError(t, fw.Start())
	require.NoError(t, fw.Stop())
}

func TestFileWatcherDoubleStart(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	fw := New("certs", []string{file}, 0, func() {}, nil)
	require.NoError(t, fw.Start())
	defer func() { _ = fw.Stop() }()

	assert.Error(t, fw.Start())
	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
}
