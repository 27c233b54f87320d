// Package main contains a command to replay recorded scan sessions.
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/viam-labs/roboclip/replay"
	"github.com/viam-labs/roboclip/session"
)

var logger = golog.NewDevelopmentLogger("replay")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	DataDir      string  `flag:"0,required,usage=recordings directory"`
	Session      string  `flag:"session,usage=replay a single session (default all)"`
	List         bool    `flag:"list,usage=print a stream report per session and exit"`
	Watch        bool    `flag:"watch,usage=keep replaying sessions as they appear"`
	FlowOut      string  `flag:"flow_out,usage=write scene flow fields under this directory"`
	Preview      bool    `flag:"preview,usage=write PNG previews next to each flow field"`
	TargetFPS    fpsFlag `flag:"target_fps,usage=target depth attach rate in Hz"`
	Extrinsic    string  `flag:"extrinsic,usage=sensor extrinsic rotation (name or quaternion)"`
	DeviceToView string  `flag:"device_to_view,usage=device to viewing rotation (name or quaternion)"`
}

type fpsFlag float64

func (ff *fpsFlag) String() string {
	return strconv.FormatFloat(float64(*ff), 'f', -1, 64)
}

func (ff *fpsFlag) Set(val string) error {
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return err
	}
	*ff = fpsFlag(parsed)
	return nil
}

func (ff *fpsFlag) Get() interface{} {
	return float64(*ff)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := replay.DefaultConfig(argsParsed.DataDir)
	if argsParsed.TargetFPS != 0 {
		cfg.TargetDepthFPS = float64(argsParsed.TargetFPS)
	}
	if argsParsed.Extrinsic != "" {
		cfg.Extrinsic = argsParsed.Extrinsic
	}
	if argsParsed.DeviceToView != "" {
		cfg.DeviceToView = argsParsed.DeviceToView
	}
	if err := cfg.Validate("replay"); err != nil {
		return err
	}

	if argsParsed.List {
		return listSessions(cfg.DataDir, logger)
	}

	names, err := sessionNames(cfg.DataDir, argsParsed.Session)
	if err != nil {
		return err
	}
	newSink := sinkFactory(&argsParsed, logger)

	replayed, err := replay.Batch(ctx, cfg, names, newSink, logger)
	if err != nil {
		if !argsParsed.Watch || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logger.Errorw("batch finished with errors", "error", err)
	}
	logger.Infow("batch complete", "sessions", len(names), "replayed", replayed)

	if !argsParsed.Watch {
		return nil
	}
	return watchSessions(ctx, cfg, newSink, logger)
}

func sessionNames(dataDir, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	names, err := session.FindAll(dataDir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.Errorf("no sessions found in %s", dataDir)
	}
	return names, nil
}

func sinkFactory(args *Arguments, logger golog.Logger) replay.SinkFactory {
	if args.FlowOut == "" {
		return func(*session.Session) (replay.Sink, error) {
			return replay.NewLogSink(logger), nil
		}
	}
	flowOut, preview := args.FlowOut, args.Preview
	return func(s *session.Session) (replay.Sink, error) {
		if s.Meta == nil {
			return nil, errors.Errorf("session %s has no meta.json to derive intrinsics from", s.ID)
		}
		intrinsics, err := s.Meta.CameraIntrinsics(0, 0)
		if err != nil {
			return nil, err
		}
		return replay.NewFlowSink(filepath.Join(flowOut, s.ID), intrinsics, preview, logger)
	}
}

func listSessions(dataDir string, logger golog.Logger) error {
	names, err := session.FindAll(dataDir)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Session", "Video", "Depth", "IMU", "Poses", "Duration", "Notes"})
	for i, name := range names {
		s, err := session.Load(filepath.Join(dataDir, name), logger)
		if err != nil {
			t.AppendRow([]interface{}{i + 1, name, "-", "-", "-", "-", "-", err.Error()})
			continue
		}
		report := s.StreamReport()
		t.AppendRow([]interface{}{
			i + 1,
			name,
			formatStream(report.Video),
			formatStream(report.Depth),
			formatStream(report.IMU),
			formatStream(report.Poses),
			fmt.Sprintf("%.1fs", longestSpan(report)),
			reportNotes(report),
		})
	}
	fmt.Println(t.Render())
	return nil
}

func formatStream(st session.StreamStats) string {
	if st.Count == 0 {
		return "-"
	}
	if st.Rate == 0 {
		return strconv.Itoa(st.Count)
	}
	return fmt.Sprintf("%d @ %.1fHz", st.Count, st.Rate)
}

func longestSpan(report *session.Report) float64 {
	span := report.Video.Duration
	for _, d := range []float64{report.Depth.Duration, report.IMU.Duration, report.Poses.Duration} {
		if d > span {
			span = d
		}
	}
	return span
}

func reportNotes(report *session.Report) string {
	var notes []string
	if report.PosesSynthesized {
		notes = append(notes, "poses synthesized")
	}
	if report.UnparsableDepthFiles > 0 {
		notes = append(notes, fmt.Sprintf("%d unparsable depth names", report.UnparsableDepthFiles))
	}
	return strings.Join(notes, ", ")
}

// watchSessions replays each session directory as it appears. A directory
// fills over multiple downloads, so a session replayed the moment it is
// created may come up short; rerun the batch afterwards for full coverage.
func watchSessions(ctx context.Context, cfg replay.Config, newSink replay.SinkFactory, logger golog.Logger) (err error) {
	watcher, err := session.NewWatcher(ctx, cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, watcher.Close())
	}()
	logger.Infow("watching for new sessions", "data_dir", cfg.DataDir)
	for name := range watcher.Sessions() {
		if _, err := replay.Batch(ctx, cfg, []string{name}, newSink, logger); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Errorw("session replay failed", "session", name, "error", err)
		}
	}
	return nil
}
