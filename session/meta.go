// Package session discovers and loads recorded scanner sessions from disk,
// assembling their streams into indexed, time-ordered form.
package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/viam-labs/roboclip/camera"
)

// MetaIntrinsics are the optional calibrated intrinsics inside a session's
// meta file.
type MetaIntrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// Meta is a session's meta.json. Older recordings embed camera poses here
// instead of writing a dedicated pose file.
type Meta struct {
	DeviceModel string          `json:"device_model"`
	DepthWidth  int             `json:"depthWidth"`
	DepthHeight int             `json:"depthHeight"`
	Intrinsics  *MetaIntrinsics `json:"intrinsics,omitempty"`
	CameraPoses []PoseRecord    `json:"camera_poses,omitempty"`
}

// ReadMeta parses a meta.json file.
func ReadMeta(path string) (*Meta, error) {
	meta, err := parseJSONFile[Meta](path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read session meta")
	}
	return meta, nil
}

// CameraIntrinsics resolves the pinhole model for a stream of the given
// dimensions. Zero dimensions fall back to the recorded depth dimensions.
// Recordings without calibrated values get the usual derived defaults: focal
// length (width+height)/4 and the principal point at the image center.
func (m *Meta) CameraIntrinsics(width, height int) (*camera.Intrinsics, error) {
	if width <= 0 || height <= 0 {
		width, height = m.DepthWidth, m.DepthHeight
	}
	if width <= 0 || height <= 0 {
		return nil, camera.NewNoIntrinsicsError(
			fmt.Sprintf("no usable dimensions in meta (depth %dx%d)", m.DepthWidth, m.DepthHeight))
	}
	params := &camera.Intrinsics{
		Width:  width,
		Height: height,
		Fx:     float64(width+height) / 4.0,
		Fy:     float64(width+height) / 4.0,
		Ppx:    float64(width) / 2.0,
		Ppy:    float64(height) / 2.0,
	}
	if m.Intrinsics != nil {
		if m.Intrinsics.Fx > 0 {
			params.Fx = m.Intrinsics.Fx
		}
		if m.Intrinsics.Fy > 0 {
			params.Fy = m.Intrinsics.Fy
		}
		if m.Intrinsics.Cx > 0 {
			params.Ppx = m.Intrinsics.Cx
		}
		if m.Intrinsics.Cy > 0 {
			params.Ppy = m.Intrinsics.Cy
		}
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

func parseJSONFile[T any](path string) (*T, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read json file")
	}
	var target T
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, errors.Wrap(err, "cannot parse json file")
	}
	return &target, nil
}
