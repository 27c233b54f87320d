package session

import (
	"github.com/edaniels/golog"

	"github.com/viam-labs/roboclip/imu"
	"github.com/viam-labs/roboclip/spatialmath"
	"github.com/viam-labs/roboclip/timeseq"
)

// PoseRecord is one timestamped camera pose as stored on disk: a row-major
// 4x4 device-to-world matrix.
type PoseRecord struct {
	Timestamp float64       `json:"timestamp"`
	Matrix    [4][4]float64 `json:"matrix"`
}

// poseSeries validates raw pose records into an indexed series. Records whose
// matrix is not a rigid transform are skipped with a warning; a bad pose
// should cost one sample, not the session.
func poseSeries(records []PoseRecord, logger golog.Logger) *timeseq.Series[spatialmath.Pose] {
	samples := make([]timeseq.Sample[spatialmath.Pose], 0, len(records))
	for i, rec := range records {
		pose, err := spatialmath.NewPoseFromRows(rec.Matrix)
		if err != nil {
			logger.Warnw("skipping malformed camera pose", "index", i, "timestamp", rec.Timestamp, "error", err)
			continue
		}
		samples = append(samples, timeseq.Sample[spatialmath.Pose]{Time: rec.Timestamp, Value: pose})
	}
	return timeseq.NewSeries(samples)
}

// SynthesizeIdentityPoses builds an identity pose per inertial sample for
// sessions recorded without pose tracking. The poses carry no translation;
// orientation still comes from the inertial stream downstream.
func SynthesizeIdentityPoses(imuSeries *timeseq.Series[imu.Sample]) *timeseq.Series[spatialmath.Pose] {
	samples := make([]timeseq.Sample[spatialmath.Pose], 0, imuSeries.Len())
	for i := 0; i < imuSeries.Len(); i++ {
		samples = append(samples, timeseq.Sample[spatialmath.Pose]{
			Time:  imuSeries.At(i).Time,
			Value: spatialmath.NewZeroPose(),
		})
	}
	return timeseq.NewSeries(samples)
}
