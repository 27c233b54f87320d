// Package camera holds the pinhole model of the scanner's camera and the
// projection math between its pixels and 3D space.
package camera

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a recording does not carry usable camera intrinsic parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// Intrinsics holds the parameters necessary to do a perspective projection of
// a 3D scene to the 2D plane. The JSON keys match the scanner's meta files.
type Intrinsics struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"cx"`
	Ppy    float64 `json:"cy"`
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into Intrinsics.
func NewIntrinsicsFromJSONFile(jsonPath string) (*Intrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &Intrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics, nil
}

// PixelToPoint transforms a pixel with depth to a 3D point. The intrinsics
// should be the ones of the sensor used to obtain the image that contains the
// pixel.
func (params *Intrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// PointToPixel projects a 3D point to a subpixel position on the image plane.
// No rounding is applied; displacement fields need the fractional position.
// Callers must mask points at or behind the camera plane before projecting.
func (params *Intrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	xPx := (x/z)*params.Fx + params.Ppx
	yPx := (y/z)*params.Fy + params.Ppy
	return xPx, yPx
}

// ScaledTo returns intrinsics adjusted to an image of a different resolution
// with the same field of view. Depth grids are usually smaller than the video
// stream the intrinsics were calibrated against.
func (params *Intrinsics) ScaledTo(width, height int) *Intrinsics {
	sx := float64(width) / float64(params.Width)
	sy := float64(height) / float64(params.Height)
	return &Intrinsics{
		Width:  width,
		Height: height,
		Fx:     params.Fx * sx,
		Fy:     params.Fy * sy,
		Ppx:    params.Ppx * sx,
		Ppy:    params.Ppy * sy,
	}
}

// CameraMatrix returns the intrinsics as a 3x3 camera matrix.
func (params *Intrinsics) CameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		params.Fx, 0, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	})
}
