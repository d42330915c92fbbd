package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(_ context.Context, paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, paths...)
}

func (c *collector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestWatcherReportsSettledExports(t *testing.T) {
	dir := t.TempDir()
	var c collector

	w, err := New(dir, []string{"*.csv"}, c.handle, nil,
		WithSettle(50*time.Millisecond), WithTick(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	csv := filepath.Join(dir, "130129.csv")
	require.NoError(t, os.WriteFile(csv, []byte("[Header]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	assert.Eventually(t, func() bool {
		return len(c.get()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{csv}, c.get())
}

func TestSettledWaitsForQuietFile(t *testing.T) {
	w := &Watcher{settle: time.Second, pending: map[string]time.Time{}}
	now := time.Now()
	w.pending["/in/a.csv"] = now.Add(-2 * time.Second)
	w.pending["/in/b.csv"] = now

	assert.Equal(t, []string{"/in/a.csv"}, w.settled(now))
	assert.Len(t, w.pending, 1)
	assert.Empty(t, w.settled(now))
}

func TestHandleEventRemoveDropsPending(t *testing.T) {
	w := &Watcher{patterns: []string{"*.csv"}, pending: map[string]time.Time{}, logger: zap.NewNop()}

	w.handleEvent(fsnotify.Event{Name: "/in/a.csv", Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: "/in/a.txt", Op: fsnotify.Create})
	assert.Len(t, w.pending, 1)

	w.handleEvent(fsnotify.Event{Name: "/in/a.csv", Op: fsnotify.Rename})
	assert.Empty(t, w.pending)
}

func TestMatches(t *testing.T) {
	w := &Watcher{}
	assert.True(t, w.matches("/in/anything"))

	w.patterns = []string{"*.csv", "gcms_*"}
	assert.True(t, w.matches("/in/x.csv"))
	assert.True(t, w.matches("/in/gcms_1.txt"))
	assert.False(t, w.matches("/in/x.xlsx"))
}
