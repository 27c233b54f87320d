package replay

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-labs/roboclip/camera"
	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/sceneflow"
	"github.com/viam-labs/roboclip/spatialmath"
)

// progressInterval is how many frames pass between progress log lines.
const progressInterval = 100

// LogSink reports progress and stream composition without persisting
// anything. It is the default sink for plain replay runs.
type LogSink struct {
	logger golog.Logger

	frames    int
	withDepth int
	withPose  int
}

var _ Sink = (*LogSink)(nil)

// NewLogSink returns a sink that logs replay progress.
func NewLogSink(logger golog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Consume counts the frame and logs a progress line every hundred frames.
func (ls *LogSink) Consume(ctx context.Context, frame *AlignedFrame) error {
	ls.frames++
	if frame.HasDepth() {
		ls.withDepth++
	}
	if frame.Pose != nil {
		ls.withPose++
	}
	if ls.frames%progressInterval == 0 {
		ls.logger.Infow("processed frames",
			"frames", ls.frames,
			"time", frame.Time,
			"with_depth", ls.withDepth,
		)
	}
	return nil
}

// Close logs the final stream composition.
func (ls *LogSink) Close() error {
	ls.logger.Infow("replay complete",
		"frames", ls.frames,
		"with_depth", ls.withDepth,
		"with_pose", ls.withPose,
	)
	return nil
}

// FlowSink turns consecutive depth-bearing frames into scene flow fields on
// disk. Each field is stored under the capture timestamp of its earlier
// frame, so the field at time t describes motion from t to the next depth
// step.
type FlowSink struct {
	outDir     string
	intrinsics *camera.Intrinsics
	previews   bool
	logger     golog.Logger

	havePrev  bool
	prevDepth *depth.Frame
	prevPose  spatialmath.Pose
	prevTime  float64
	written   int
}

var _ Sink = (*FlowSink)(nil)

// NewFlowSink returns a sink writing flow fields under outDir. The
// intrinsics must match the depth resolution of the frames it will see.
// With previews enabled each field also gets a direction-coded PNG.
func NewFlowSink(outDir string, intrinsics *camera.Intrinsics, previews bool, logger golog.Logger) (*FlowSink, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "cannot create flow output directory")
	}
	return &FlowSink{
		outDir:     outDir,
		intrinsics: intrinsics,
		previews:   previews,
		logger:     logger,
	}, nil
}

// Consume holds the latest depth-bearing frame and, once a successor
// arrives, computes and persists the flow between the two. Frames without
// depth pass through untouched.
func (fs *FlowSink) Consume(ctx context.Context, frame *AlignedFrame) error {
	if !frame.HasDepth() {
		return nil
	}
	pose := spatialmath.NewPose(frame.Orientation, frame.Translation)
	if fs.havePrev && frame.DepthTime > fs.prevTime {
		field, err := sceneflow.Compute(fs.prevDepth, fs.prevPose, pose, fs.intrinsics)
		if err != nil {
			fs.logger.Warnw("skipping flow pair",
				"from", fs.prevTime, "to", frame.DepthTime, "error", err)
		} else if err := fs.write(field); err != nil {
			return err
		}
	}
	fs.havePrev = true
	fs.prevDepth = frame.Depth
	fs.prevPose = pose
	fs.prevTime = frame.DepthTime
	return nil
}

func (fs *FlowSink) write(field *sceneflow.FlowField) error {
	name := sceneflow.FileName(fs.prevTime)
	if err := field.WriteRawFile(filepath.Join(fs.outDir, name)); err != nil {
		return errors.Wrapf(err, "writing flow field at %f", fs.prevTime)
	}
	fs.written++
	if !fs.previews {
		return nil
	}
	previewName := strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	return writePNG(filepath.Join(fs.outDir, previewName), field)
}

func writePNG(path string, field *sceneflow.FlowField) (err error) {
	//nolint:gosec
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create flow preview")
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()
	return png.Encode(out, field.ToPrettyPicture(0))
}

// Close logs how many fields were written.
func (fs *FlowSink) Close() error {
	fs.logger.Infow("flow export complete", "fields", fs.written, "dir", fs.outDir)
	return nil
}
