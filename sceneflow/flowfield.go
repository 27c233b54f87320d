// Package sceneflow derives per-pixel scene flow between depth frames by
// carrying depth through the recorded camera poses, as opposed to estimating
// motion from image content.
package sceneflow

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// FlowField is a dense field of pixel displacements. A NaN pair marks a pixel
// with no correspondence in the target frame, which is different from a pixel
// that did not move.
type FlowField struct {
	width  int
	height int
	// interleaved u,v displacement per pixel, row-major
	data []float32
}

// NewEmptyFlowField returns a field with every pixel marked as having no
// correspondence.
func NewEmptyFlowField(width, height int) *FlowField {
	data := make([]float32, width*height*2)
	nan := float32(math.NaN())
	for i := range data {
		data[i] = nan
	}
	return &FlowField{width: width, height: height, data: data}
}

// Width returns the field width in pixels.
func (ff *FlowField) Width() int {
	return ff.width
}

// Height returns the field height in pixels.
func (ff *FlowField) Height() int {
	return ff.height
}

// At returns the displacement at (x, y).
func (ff *FlowField) At(x, y int) r2.Point {
	i := (y*ff.width + x) * 2
	return r2.Point{X: float64(ff.data[i]), Y: float64(ff.data[i+1])}
}

// Set stores a displacement at (x, y).
func (ff *FlowField) Set(x, y int, d r2.Point) {
	i := (y*ff.width + x) * 2
	ff.data[i] = float32(d.X)
	ff.data[i+1] = float32(d.Y)
}

// Valid reports whether the pixel has a correspondence.
func (ff *FlowField) Valid(x, y int) bool {
	return !math.IsNaN(float64(ff.data[(y*ff.width+x)*2]))
}

// MaxMagnitude returns the largest displacement length in the field,
// ignoring pixels without correspondence.
func (ff *FlowField) MaxMagnitude() float64 {
	max := 0.0
	for y := 0; y < ff.height; y++ {
		for x := 0; x < ff.width; x++ {
			if !ff.Valid(x, y) {
				continue
			}
			if norm := ff.At(x, y).Norm(); norm > max {
				max = norm
			}
		}
	}
	return max
}

// FileName returns the canonical file name for a flow field computed from the
// depth frame at timestamp t.
func FileName(t float64) string {
	return fmt.Sprintf("%.6f.flow", t)
}

// WriteRaw encodes the field as interleaved little-endian float32 pairs.
func (ff *FlowField) WriteRaw(out io.Writer) error {
	buf := make([]byte, 4)
	for _, v := range ff.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// WriteRawFile writes the field to a file, creating parent directories as
// needed.
func (ff *FlowField) WriteRawFile(path string) (err error) {
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
		return mkErr
	}
	//nolint:gosec
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()
	return ff.WriteRaw(out)
}

// ReadRaw decodes a field of the given dimensions, rejecting size mismatches
// the same way depth frames are rejected.
func ReadRaw(r io.Reader, width, height int) (*FlowField, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read flow field")
	}
	want := width * height * 2 * 4
	if len(raw) != want {
		return nil, errors.Errorf("flow field has %d bytes, want %d (%dx%dx2 float32)",
			len(raw), want, width, height)
	}
	data := make([]float32, width*height*2)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return &FlowField{width: width, height: height, data: data}, nil
}

// ReadRawFile decodes a flow field from a file.
func ReadRawFile(path string, width, height int) (*FlowField, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open flow file %s", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	ff, err := ReadRaw(f, width, height)
	if err != nil {
		return nil, errors.Wrapf(err, "in flow file %s", path)
	}
	return ff, nil
}
