package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/replay"
	"github.com/viam-labs/roboclip/session"
)

const testSessionName = "Scan-20250521-0200"

func writeReplayFixture(t *testing.T, dataDir string) {
	t.Helper()
	dir := filepath.Join(dataDir, testSessionName)
	test.That(t, os.MkdirAll(filepath.Join(dir, "depth"), 0o755), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte(`{
		"depthWidth": 2,
		"depthHeight": 2,
		"intrinsics": {"fx": 2, "fy": 2, "cx": 1, "cy": 1}
	}`), 0o644), test.ShouldBeNil)

	for i, ts := range []string{"1.000000", "1.100000"} {
		frame := depth.NewEmptyFrame(2, 2)
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				frame.Set(x, y, float32(i+1))
			}
		}
		test.That(t, frame.WriteRawFile(filepath.Join(dir, "depth", ts+".d32")), test.ShouldBeNil)
	}

	poses := []session.PoseRecord{
		{Timestamp: 1.0, Matrix: [4][4]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}},
		{Timestamp: 1.1, Matrix: [4][4]float64{{1, 0, 0, 0.5}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}},
	}
	blob, err := json.Marshal(poses)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "camera_poses.json"), blob, 0o644), test.ShouldBeNil)
}

func TestMainMain(t *testing.T) {
	dataDir := t.TempDir()
	writeReplayFixture(t, dataDir)
	flowDir := filepath.Join(t.TempDir(), "flow")

	reset := func(t *testing.T, tLogger golog.Logger, _ *testutils.ContextualMainExecution) {
		t.Helper()
		logger = tLogger
	}

	testutils.TestMain(t, mainWithArgs, []testutils.MainTestCase{
		// parsing
		{Name: "no args", Args: nil, Err: "required", Before: reset, During: nil, After: nil},
		{Name: "bad target fps", Args: []string{"--target_fps=abc", dataDir}, Err: "invalid value", Before: reset, During: nil, After: nil},
		{Name: "negative target fps", Args: []string{"--target_fps=-3", dataDir}, Err: "target_depth_fps", Before: reset, During: nil, After: nil},
		{Name: "bad extrinsic", Args: []string{"--extrinsic=sideways", dataDir}, Err: "extrinsic", Before: reset, During: nil, After: nil},

		// session selection
		{Name: "missing data dir", Args: []string{filepath.Join(dataDir, "nope")}, Err: "cannot list data directory", Before: reset, During: nil, After: nil},
		{Name: "unknown session", Args: []string{"--session=Scan-nope", dataDir}, Err: "loading session Scan-nope", Before: reset, During: nil, After: nil},

		// replaying
		{Name: "replay all", Args: []string{dataDir}, Err: "", Before: reset, During: nil, After: func(t *testing.T, logs *observer.ObservedLogs) {
			t.Helper()
			test.That(t, len(logs.FilterMessageSnippet("synchronizing session").All()), test.ShouldBeGreaterThanOrEqualTo, 1)
			test.That(t, len(logs.FilterMessageSnippet("replay complete").All()), test.ShouldBeGreaterThanOrEqualTo, 1)
			test.That(t, len(logs.FilterMessageSnippet("batch complete").All()), test.ShouldEqual, 1)
		}},
		{Name: "single session", Args: []string{"--session=" + testSessionName, dataDir}, Err: "", Before: reset, During: nil,
			After: func(t *testing.T, logs *observer.ObservedLogs) {
				t.Helper()
				test.That(t, len(logs.FilterMessageSnippet("batch complete").All()), test.ShouldEqual, 1)
			}},
		{Name: "list", Args: []string{"--list", dataDir}, Err: "", Before: reset, During: nil, After: nil},
		{Name: "flow output", Args: []string{"--flow_out=" + flowDir, "--preview", dataDir}, Err: "", Before: reset, During: nil,
			After: func(t *testing.T, logs *observer.ObservedLogs) {
				t.Helper()
				test.That(t, len(logs.FilterMessageSnippet("flow export complete").All()), test.ShouldEqual, 1)
				_, err := os.Stat(filepath.Join(flowDir, testSessionName, "1.000000.flow"))
				test.That(t, err, test.ShouldBeNil)
				_, err = os.Stat(filepath.Join(flowDir, testSessionName, "1.000000.png"))
				test.That(t, err, test.ShouldBeNil)
			}},
	})
}

func TestWatchSessionsReplaysNewArrivals(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	dataDir := t.TempDir()
	cfg := replay.DefaultConfig(dataDir)
	newSink := func(*session.Session) (replay.Sink, error) {
		return replay.NewLogSink(logger), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- watchSessions(ctx, cfg, newSink, logger)
	}()
	waitForLog(t, logs, "watching for new sessions")

	// stage the session elsewhere and rename it in, so it appears fully formed
	staging := filepath.Join(t.TempDir(), "Scan-20250521-0300")
	test.That(t, os.MkdirAll(staging, 0o755), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(staging, "imu.bin"),
		[]byte("1.0,0,0,0,0,0,0,0,0,0\n"), 0o644), test.ShouldBeNil)
	test.That(t, os.Rename(staging, filepath.Join(dataDir, "Scan-20250521-0300")), test.ShouldBeNil)

	waitForLog(t, logs, "replay complete")

	cancel()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(10 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func waitForLog(t *testing.T, logs *observer.ObservedLogs, snippet string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if len(logs.FilterMessageSnippet(snippet).All()) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log %q", snippet)
}
