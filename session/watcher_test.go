package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestWatcherEmitsNewSessions(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dataDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := NewWatcher(ctx, dataDir, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, watcher.Close(), test.ShouldBeNil)
	}()

	// non-session entries are ignored
	test.That(t, os.MkdirAll(filepath.Join(dataDir, "scratch"), 0o755), test.ShouldBeNil)
	test.That(t, os.MkdirAll(filepath.Join(dataDir, "Scan-20250521-0200"), 0o755), test.ShouldBeNil)

	select {
	case name := <-watcher.Sessions():
		test.That(t, name, test.ShouldEqual, "Scan-20250521-0200")
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for session event")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	logger := golog.NewTestLogger(t)
	_, err := NewWatcher(context.Background(), filepath.Join(t.TempDir(), "nope"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWatcherCloseStops(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dataDir := t.TempDir()

	watcher, err := NewWatcher(context.Background(), dataDir, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, watcher.Close(), test.ShouldBeNil)

	_, ok := <-watcher.Sessions()
	test.That(t, ok, test.ShouldBeFalse)
}
