package session

import (
	"github.com/montanaflynn/stats"

	"github.com/viam-labs/roboclip/timeseq"
)

// StreamStats describe one stream's sampling behavior: how much of it there
// is and how evenly it was recorded.
type StreamStats struct {
	Count     int
	Duration  float64
	Rate      float64
	GapMean   float64
	GapMedian float64
	GapStdDev float64
}

// A Report summarizes every stream of a session, mostly for operators
// deciding whether a recording is worth processing.
type Report struct {
	SessionID            string
	Video                StreamStats
	Depth                StreamStats
	IMU                  StreamStats
	Poses                StreamStats
	PosesSynthesized     bool
	UnparsableDepthFiles int
}

// StreamReport computes per-stream statistics for the session.
func (s *Session) StreamReport() *Report {
	return &Report{
		SessionID:            s.ID,
		Video:                streamStats(s.VideoTimes),
		Depth:                streamStats(s.DepthRefs),
		IMU:                  streamStats(s.IMU),
		Poses:                streamStats(s.Poses),
		PosesSynthesized:     s.PosesSynthesized,
		UnparsableDepthFiles: s.UnparsableDepthFiles,
	}
}

func streamStats[T any](series *timeseq.Series[T]) StreamStats {
	st := StreamStats{
		Count:    series.Len(),
		Duration: series.Span(),
		Rate:     series.Rate(),
	}
	if series.Len() < 2 {
		return st
	}
	ts := series.Timestamps()
	gaps := make([]float64, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		gaps = append(gaps, ts[i]-ts[i-1])
	}
	// the stats helpers only fail on empty input, which the length guard
	// above already rules out
	st.GapMean, _ = stats.Mean(gaps)
	st.GapMedian, _ = stats.Median(gaps)
	st.GapStdDev, _ = stats.StandardDeviation(gaps)
	return st
}
