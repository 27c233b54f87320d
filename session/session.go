package session

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/viam-labs/roboclip/imu"
	"github.com/viam-labs/roboclip/spatialmath"
	"github.com/viam-labs/roboclip/timeseq"
)

// Session directory layout as the scanner records it.
const (
	metaFileName       = "meta.json"
	imuFileName        = "imu.bin"
	videoTimesFileName = "video_timestamps.json"
	posesFileName      = "camera_poses.json"
	depthDirName       = "depth"
)

// ErrNoStreams marks a session directory with no usable data streams at all.
// Batch runs report such sessions and move on.
var ErrNoStreams = errors.New("session has no usable data streams")

// depth frames are named by their capture time in epoch seconds
var depthFileTimestampRegexp = regexp.MustCompile(`([0-9]+\.[0-9]+)\.d32$`)

// DepthRef points at one depth frame on disk without loading it.
type DepthRef struct {
	Time float64
	Path string
}

// A Session is one recorded scan with all its streams indexed by time.
// Any stream may be absent; consumers degrade per stream rather than
// refusing the session.
type Session struct {
	ID  string
	Dir string

	// Meta is nil when the recording carries no meta.json.
	Meta *Meta

	IMU        *timeseq.Series[imu.Sample]
	VideoTimes *timeseq.Series[int]
	DepthRefs  *timeseq.Series[DepthRef]
	Poses      *timeseq.Series[spatialmath.Pose]

	// IMUPath is where the inertial log was found, empty when the session
	// has none.
	IMUPath string

	// PosesSynthesized is set when Poses are placeholder identities derived
	// from the inertial stream; their translations mean nothing.
	PosesSynthesized bool

	// UnparsableDepthFiles counts depth frames excluded because their file
	// name carried no timestamp. A nonzero count is a misalignment warning
	// sign for anything keyed by depth time.
	UnparsableDepthFiles int
}

// HasVideo reports whether the session has video frame timestamps.
func (s *Session) HasVideo() bool {
	return s.VideoTimes.Len() > 0
}

// HasDepth reports whether the session has depth frames.
func (s *Session) HasDepth() bool {
	return s.DepthRefs.Len() > 0
}

// HasIMU reports whether the session has inertial samples.
func (s *Session) HasIMU() bool {
	return s.IMU.Len() > 0
}

// Load assembles a session from its directory. Missing streams are logged
// and left empty; only a session with no streams at all fails, with
// ErrNoStreams.
func Load(dir string, logger golog.Logger) (*Session, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(err, "cannot open session directory %s", dir)
	}
	s := &Session{
		ID:  filepath.Base(dir),
		Dir: dir,
	}

	metaPath := filepath.Join(dir, metaFileName)
	if _, err := os.Stat(metaPath); err == nil {
		meta, err := ReadMeta(metaPath)
		if err != nil {
			logger.Warnw("ignoring unreadable session meta", "session", s.ID, "error", err)
		} else {
			s.Meta = meta
		}
	} else {
		logger.Debugw("session has no meta file", "session", s.ID)
	}

	s.IMUPath = locateIMUFile(dir)
	s.IMU = loadIMU(s.IMUPath, s.ID, logger)
	s.VideoTimes = loadVideoTimes(dir, s.ID, logger)
	s.DepthRefs, s.UnparsableDepthFiles = scanDepthDir(filepath.Join(dir, depthDirName), logger)
	s.loadPoses(logger)

	if !s.HasVideo() && !s.HasDepth() && !s.HasIMU() {
		return nil, errors.Wrapf(ErrNoStreams, "session %s", s.ID)
	}
	return s, nil
}

func loadIMU(path, id string, logger golog.Logger) *timeseq.Series[imu.Sample] {
	if path == "" {
		logger.Debugw("session has no inertial log", "session", id)
		return timeseq.NewSeries[imu.Sample](nil)
	}
	parsed, err := imu.ParseLogFile(path, logger)
	if err != nil {
		logger.Warnw("ignoring unreadable inertial log", "session", id, "error", err)
		return timeseq.NewSeries[imu.Sample](nil)
	}
	samples := make([]timeseq.Sample[imu.Sample], 0, len(parsed))
	for _, p := range parsed {
		samples = append(samples, timeseq.Sample[imu.Sample]{Time: p.Time, Value: p})
	}
	return timeseq.NewSeries(samples)
}

// locateIMUFile prefers the log at the session root but accepts one anywhere
// below it; some recordings nest the inertial log in a subdirectory.
func locateIMUFile(dir string) string {
	root := filepath.Join(dir, imuFileName)
	if _, err := os.Stat(root); err == nil {
		return root
	}
	var found string
	//nolint:errcheck
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == imuFileName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func loadVideoTimes(dir, id string, logger golog.Logger) *timeseq.Series[int] {
	path := filepath.Join(dir, videoTimesFileName)
	if _, err := os.Stat(path); err != nil {
		logger.Debugw("session has no video timestamps", "session", id)
		return timeseq.NewSeries[int](nil)
	}
	times, err := parseJSONFile[[]float64](path)
	if err != nil {
		logger.Warnw("ignoring unreadable video timestamps", "session", id, "error", err)
		return timeseq.NewSeries[int](nil)
	}
	samples := make([]timeseq.Sample[int], 0, len(*times))
	for i, ts := range *times {
		samples = append(samples, timeseq.Sample[int]{Time: ts, Value: i})
	}
	return timeseq.NewSeries(samples)
}

// scanDepthDir indexes depth frames by the capture timestamp embedded in
// their file names. Files without a parsable timestamp are excluded and
// counted; guessing an order for them would silently misalign everything
// keyed by depth time.
func scanDepthDir(dir string, logger golog.Logger) (*timeseq.Series[DepthRef], int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return timeseq.NewSeries[DepthRef](nil), 0
	}
	var samples []timeseq.Sample[DepthRef]
	unparsable := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".d32" {
			continue
		}
		m := depthFileTimestampRegexp.FindStringSubmatch(entry.Name())
		if m == nil {
			logger.Warnw("cannot parse timestamp from depth filename", "file", entry.Name())
			unparsable++
			continue
		}
		ts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			logger.Warnw("cannot parse timestamp from depth filename", "file", entry.Name(), "error", err)
			unparsable++
			continue
		}
		samples = append(samples, timeseq.Sample[DepthRef]{
			Time:  ts,
			Value: DepthRef{Time: ts, Path: filepath.Join(dir, entry.Name())},
		})
	}
	return timeseq.NewSeries(samples), unparsable
}

func (s *Session) loadPoses(logger golog.Logger) {
	posesPath := filepath.Join(s.Dir, posesFileName)
	if _, err := os.Stat(posesPath); err == nil {
		records, err := parseJSONFile[[]PoseRecord](posesPath)
		if err != nil {
			logger.Warnw("ignoring unreadable camera poses", "session", s.ID, "error", err)
		} else {
			s.Poses = poseSeries(*records, logger)
			return
		}
	}
	if s.Meta != nil && len(s.Meta.CameraPoses) > 0 {
		s.Poses = poseSeries(s.Meta.CameraPoses, logger)
		return
	}
	if s.IMU.Len() > 0 {
		logger.Infow("session has no recorded poses, synthesizing identities from inertial samples",
			"session", s.ID, "samples", s.IMU.Len())
		s.Poses = SynthesizeIdentityPoses(s.IMU)
		s.PosesSynthesized = true
		return
	}
	s.Poses = timeseq.NewSeries[spatialmath.Pose](nil)
}
