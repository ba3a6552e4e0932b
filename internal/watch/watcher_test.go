package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitEvent(t *testing.T, w *Watcher) string {
	t.Helper()
	select {
	case path := <-w.Events():
		return path
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change event")
		return ""
	}
}

func TestWatcher_Write(t *testing.T) {
	dir := t.TempDir()
	crew := filepath.Join(dir, "crew.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(crew, []byte("agents: []\n"), 0644))

	w, err := New([]string{crew})
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounceDelay(20 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(crew, []byte("agents: [a]\n"), 0644))

	assert.Equal(t, crew, waitEvent(t, w))
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	crew := filepath.Join(t.TempDir(), "crew.md")

	w, err := New([]string{crew})
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounceDelay(200 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(crew, []byte{byte('a' + i)}, 0644))
	}

	assert.Equal(t, crew, waitEvent(t, w))
	select {
	case path := <-w.Events():
		t.Fatalf("unexpected second event for %s", path)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing", "crew.yaml")})
	assert.Error(t, err)
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "crew.yaml")})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
