package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "music.db")
	require.NoError(t, os.WriteFile(file, []byte("v0"), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(file, 50*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	assert.Equal(t, int32(1), calls.Load())

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file+"-wal", []byte{byte(i)}, 0o644))
	}
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWatcherReportsCallbackErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "music.db")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	var first atomic.Bool
	first.Store(true)
	boom := errors.New("rescan failed")
	w, err := NewWatcher(file, 20*time.Millisecond, func() error {
		if first.Swap(false) {
			return nil
		}
		return boom
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	select {
	case err := <-w.Errors():
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestInitialCallbackFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "music.db")
	w, err := NewWatcher(file, 0, func() error { return errors.New("nope") })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	assert.ErrorContains(t, w.Start(), "initial callback failed")
	assert.NoError(t, w.Stop())
}
