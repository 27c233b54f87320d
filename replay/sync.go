package replay

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/session"
	"github.com/viam-labs/roboclip/spatialmath"
)

// State tracks a synchronizer through its lifecycle.
type State int

// The states a synchronizer moves through, in order.
const (
	StateNotStarted State = iota
	StateInitializing
	StateSynchronizing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInitializing:
		return "initializing"
	case StateSynchronizing:
		return "synchronizing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// identityPoseTol bounds how far a recorded pose may sit from the identity
// before it is trusted as a real trajectory sample. Recorders that never
// acquired tracking write exact identity placeholders.
const identityPoseTol = 1e-8

// fallbackPrimaryRate stands in for the primary rate when the timestamps
// span no measurable duration.
const fallbackPrimaryRate = 30.0

// A Synchronizer walks one session's primary clock and emits an AlignedFrame
// per step. It is single-use; build a new one per session.
type Synchronizer struct {
	session *session.Session
	cfg     Config
	logger  golog.Logger

	chain        *spatialmath.FrameChain
	deviceToView spatialmath.Pose

	mu    sync.Mutex
	state State
}

// NewSynchronizer validates the config and prepares the rotation chain for
// the given session.
func NewSynchronizer(s *session.Session, cfg Config, logger golog.Logger) (*Synchronizer, error) {
	if err := cfg.Validate("replay"); err != nil {
		return nil, err
	}
	chain, err := spatialmath.NewFrameChainFromNames(cfg.Extrinsic, cfg.DeviceToView)
	if err != nil {
		return nil, err
	}
	deviceToView, err := spatialmath.ParseRotation(cfg.DeviceToView)
	if err != nil {
		return nil, err
	}
	return &Synchronizer{
		session:      s,
		cfg:          cfg,
		logger:       logger,
		chain:        chain,
		deviceToView: spatialmath.NewPose(deviceToView, r3.Vector{}),
		state:        StateNotStarted,
	}, nil
}

// State returns where the synchronizer currently is in its lifecycle. Safe to
// call from other goroutines while Run is in flight.
func (sy *Synchronizer) State() State {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	return sy.state
}

func (sy *Synchronizer) setState(state State) {
	sy.mu.Lock()
	sy.state = state
	sy.mu.Unlock()
}

// skipInterval converts an estimated primary rate into a step interval that
// approximates the target depth rate. Never less than every frame.
func skipInterval(rate, targetFPS float64) int {
	k := int(math.Round(rate / targetFPS))
	if k < 1 {
		k = 1
	}
	return k
}

// Run drives the session through the sink. The sink is closed before Run
// returns, success or not. Cancelling the context abandons the remainder of
// the session.
func (sy *Synchronizer) Run(ctx context.Context, sink Sink) (err error) {
	defer func() {
		err = multierr.Combine(err, sink.Close())
		sy.setState(StateFinished)
	}()
	sy.setState(StateInitializing)

	s := sy.session
	var source string
	var primary []float64
	switch {
	case s.HasVideo():
		source = "video"
		primary = s.VideoTimes.Timestamps()
	case s.HasDepth():
		source = "depth"
		primary = s.DepthRefs.Timestamps()
	case s.HasIMU():
		sy.logger.Infow("no video or depth, replaying inertial samples directly",
			"session", s.ID, "samples", s.IMU.Len())
		sy.setState(StateSynchronizing)
		return sy.runInertialOnly(ctx, sink)
	default:
		return errors.Wrapf(session.ErrNoStreams, "session %s", s.ID)
	}

	rate := seriesRate(primary)
	skip := skipInterval(rate, sy.cfg.TargetDepthFPS)

	attachDepth := s.HasDepth()
	depthWidth, depthHeight := 0, 0
	if attachDepth {
		if s.Meta != nil {
			depthWidth = s.Meta.DepthWidth
			depthHeight = s.Meta.DepthHeight
		}
		if depthWidth <= 0 || depthHeight <= 0 {
			sy.logger.Warnw("depth dimensions unknown, depth frames will not be attached",
				"session", s.ID)
			attachDepth = false
		}
	}

	sy.logger.Infow("synchronizing session",
		"session", s.ID,
		"source", source,
		"frames", len(primary),
		"estimated_rate_hz", rate,
		"depth_step_interval", skip,
	)

	sy.setState(StateSynchronizing)
	for i, t := range primary {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame := &AlignedFrame{Step: i, Time: t, Orientation: spatialmath.NewZeroRotation()}
		if nearest, ok := s.IMU.Nearest(t); ok {
			sample := nearest.Value
			frame.IMU = &sample
		}
		if nearest, ok := s.Poses.Nearest(t); ok {
			pose := nearest.Value
			frame.Pose = &pose
			frame.PoseSynthesized = s.PosesSynthesized
		}
		sy.placeViewingFrame(frame)

		if attachDepth && i%skip == 0 {
			if nearest, ok := s.DepthRefs.Nearest(t); ok {
				ref := nearest.Value
				dm, err := depth.ReadFrameFile(ref.Path, depthWidth, depthHeight)
				if err != nil {
					sy.logger.Warnw("skipping unreadable depth frame",
						"session", s.ID, "path", ref.Path, "error", err)
				} else {
					frame.Depth = dm
					frame.DepthTime = ref.Time
				}
			}
		}

		if err := sink.Consume(ctx, frame); err != nil {
			return errors.Wrapf(err, "sink failed at step %d of session %s", i, s.ID)
		}
	}
	return nil
}

// runInertialOnly emits one frame per inertial sample. There is no pose
// source and no depth, so each frame carries only the sample and the chained
// orientation.
func (sy *Synchronizer) runInertialOnly(ctx context.Context, sink Sink) error {
	s := sy.session
	for i := 0; i < s.IMU.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample := s.IMU.At(i).Value
		frame := &AlignedFrame{
			Step:        i,
			Time:        sample.Time,
			IMU:         &sample,
			Orientation: sy.chain.Apply(sample.Attitude.Quaternion()),
		}
		sy.sanitizeTransform(frame)
		if err := sink.Consume(ctx, frame); err != nil {
			return errors.Wrapf(err, "sink failed at step %d of session %s", i, s.ID)
		}
	}
	return nil
}

// placeViewingFrame fills Orientation and Translation for one step. A
// recorded pose wins unless it is an identity placeholder, in which case
// orientation falls back to the inertial attitude pushed through the rotation
// chain. Translation comes from the pose whenever one exists.
func (sy *Synchronizer) placeViewingFrame(frame *AlignedFrame) {
	defer sy.sanitizeTransform(frame)
	if frame.Pose != nil {
		frame.Translation = frame.Pose.Translation()
		if !frame.Pose.IsIdentity(identityPoseTol) {
			world := frame.Pose.Compose(sy.deviceToView)
			frame.Orientation = world.Rotation()
			frame.Translation = world.Translation()
			return
		}
	}
	if frame.IMU != nil {
		frame.Orientation = sy.chain.Apply(frame.IMU.Attitude.Quaternion())
	}
}

// sanitizeTransform resets a non-finite transform to identity so a corrupt
// pose or attitude poisons one step, not the whole stream.
func (sy *Synchronizer) sanitizeTransform(frame *AlignedFrame) {
	if finiteQuat(frame.Orientation) && finiteVec(frame.Translation) {
		return
	}
	sy.logger.Warnw("replacing non-finite transform with identity",
		"session", sy.session.ID, "time", frame.Time)
	frame.Orientation = spatialmath.NewZeroRotation()
	frame.Translation = r3.Vector{}
}

func seriesRate(times []float64) float64 {
	if len(times) < 2 {
		return fallbackPrimaryRate
	}
	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return fallbackPrimaryRate
	}
	return float64(len(times)-1) / span
}

func finiteQuat(q quat.Number) bool {
	return !math.IsNaN(q.Real) && !math.IsInf(q.Real, 0) &&
		!math.IsNaN(q.Imag) && !math.IsInf(q.Imag, 0) &&
		!math.IsNaN(q.Jmag) && !math.IsInf(q.Jmag, 0) &&
		!math.IsNaN(q.Kmag) && !math.IsInf(q.Kmag, 0)
}

func finiteVec(v r3.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
