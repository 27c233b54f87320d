// Package replay aligns the recorded streams of a scan session onto a single
// frame clock and hands the aligned frames to a sink.
//
// The primary clock is chosen by data priority: video timestamps when the
// session has them, depth timestamps otherwise, and a direct per-sample pass
// when only inertial data was recorded. Every other stream is matched to each
// primary step by nearest timestamp.
package replay

import (
	"github.com/pkg/errors"
	rdkutils "go.viam.com/utils"

	"github.com/viam-labs/roboclip/spatialmath"
)

// DefaultTargetDepthFPS bounds how often depth frames are attached to the
// aligned stream. Depth capture typically runs at the video rate, which is
// far more range data than a consumer needs.
const DefaultTargetDepthFPS = 10.0

// Config holds the tunable parts of a replay run.
type Config struct {
	// DataDir is the directory holding scan session folders.
	DataDir string `json:"data_dir"`
	// TargetDepthFPS caps the rate at which depth frames are attached.
	TargetDepthFPS float64 `json:"target_depth_fps"`
	// Extrinsic names the rotation from the inertial sensor frame to the
	// device frame. See spatialmath.ParseRotation for accepted forms.
	Extrinsic string `json:"extrinsic"`
	// DeviceToView names the rotation from the device frame to the viewing
	// frame applied to every emitted orientation.
	DeviceToView string `json:"device_to_view"`
}

// DefaultConfig returns a config with the stock rotation setup for handheld
// scanner recordings.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:        dataDir,
		TargetDepthFPS: DefaultTargetDepthFPS,
		Extrinsic:      spatialmath.RotationNone,
		DeviceToView:   spatialmath.RotationFlipYZ,
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.DataDir == "" {
		return rdkutils.NewConfigValidationFieldRequiredError(path, "data_dir")
	}
	if c.TargetDepthFPS <= 0 {
		return rdkutils.NewConfigValidationError(path,
			errors.Errorf("target_depth_fps must be positive, got %v", c.TargetDepthFPS))
	}
	if _, err := spatialmath.ParseRotation(c.Extrinsic); err != nil {
		return rdkutils.NewConfigValidationError(path, errors.Wrap(err, "extrinsic"))
	}
	if _, err := spatialmath.ParseRotation(c.DeviceToView); err != nil {
		return rdkutils.NewConfigValidationError(path, errors.Wrap(err, "device_to_view"))
	}
	return nil
}
