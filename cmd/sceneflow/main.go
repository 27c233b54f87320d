// Package main contains a command to compute scene flow between a session's
// consecutive depth frames.
package main

import (
	"context"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/replay"
	"github.com/viam-labs/roboclip/session"
	"github.com/viam-labs/roboclip/spatialmath"
)

var logger = golog.NewDevelopmentLogger("sceneflow")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	DataDir string `flag:"0,required,usage=recordings directory"`
	Session string `flag:"session,usage=session to process (default latest)"`
	Out     string `flag:"out,usage=output directory (default the session depth directory)"`
	Preview bool   `flag:"preview,usage=write PNG previews next to each flow field"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	name := argsParsed.Session
	if name == "" {
		var err error
		if name, err = session.Latest(argsParsed.DataDir); err != nil {
			return err
		}
	}
	s, err := session.Load(filepath.Join(argsParsed.DataDir, name), logger)
	if err != nil {
		return err
	}

	outDir := argsParsed.Out
	if outDir == "" {
		outDir = filepath.Join(s.Dir, "depth")
	}
	return computeFlow(ctx, s, outDir, argsParsed.Preview, logger)
}

// computeFlow pairs every consecutive depth frame with the poses nearest to
// each endpoint and writes one flow field per pair, named after the earlier
// frame's timestamp.
func computeFlow(ctx context.Context, s *session.Session, outDir string, previews bool, logger golog.Logger) (err error) {
	if !s.HasDepth() {
		return errors.Errorf("session %s has no depth frames", s.ID)
	}
	if s.Meta == nil {
		return errors.Errorf("session %s has no meta.json to derive intrinsics from", s.ID)
	}
	intrinsics, err := s.Meta.CameraIntrinsics(0, 0)
	if err != nil {
		return err
	}
	if s.PosesSynthesized {
		logger.Warnw("session has no recorded poses, flow reduces to zero displacement", "session", s.ID)
	}

	sink, err := replay.NewFlowSink(outDir, intrinsics, previews, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, sink.Close())
	}()

	for i := 0; i < s.DepthRefs.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ref := s.DepthRefs.At(i)
		frame, err := depth.ReadFrameFile(ref.Value.Path, intrinsics.Width, intrinsics.Height)
		if err != nil {
			logger.Warnw("skipping unreadable depth frame",
				"session", s.ID, "path", ref.Value.Path, "error", err)
			continue
		}
		aligned := &replay.AlignedFrame{
			Step:        i,
			Time:        ref.Time,
			Depth:       frame,
			DepthTime:   ref.Time,
			Orientation: spatialmath.NewZeroRotation(),
		}
		if pose, ok := s.Poses.Nearest(ref.Time); ok {
			aligned.Orientation = pose.Value.Rotation()
			aligned.Translation = pose.Value.Translation()
		}
		if err := sink.Consume(ctx, aligned); err != nil {
			return err
		}
	}
	return nil
}
