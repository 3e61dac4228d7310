package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchLoop(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "q.star", `query = users.select()`)

	watcher, err := newWatcher([]string{script, script})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, watcher, slog.New(slog.DiscardHandler), func(name string) {
			changed <- name
		})
	}()

	// the text file is ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(script, []byte(`query = addresses.select()`), 0o600))
	require.NoError(t, os.WriteFile(script, []byte(`query = users.select()`), 0o600))

	select {
	case name := <-changed:
		assert.Equal(t, "q.star", filepath.Base(name))
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := newWatcher([]string{filepath.Join(t.TempDir(), "nope", "q.star")})
	assert.Error(t, err)
}
