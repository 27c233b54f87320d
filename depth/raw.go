package depth

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// RawFileExtension is the extension of raw depth frames as the scanner
// writes them.
const RawFileExtension = ".d32"

// ReadFrame decodes a raw little-endian float32 depth grid of the given
// dimensions. A size mismatch means the record is corrupt; callers should
// skip the frame rather than abort the session.
func ReadFrame(r io.Reader, width, height int) (*Frame, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read depth frame")
	}
	want := width * height * 4
	if len(raw) != want {
		return nil, errors.Errorf("depth frame has %d bytes, want %d (%dx%d float32)",
			len(raw), want, width, height)
	}
	data := make([]float32, width*height)
	for i := range data {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		data[i] = math.Float32frombits(bits)
	}
	return &Frame{width: width, height: height, data: data}, nil
}

// ReadFrameFile decodes a raw depth frame from a file.
func ReadFrameFile(path string, width, height int) (*Frame, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open depth file %s", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	frame, err := ReadFrame(f, width, height)
	if err != nil {
		return nil, errors.Wrapf(err, "in depth file %s", path)
	}
	return frame, nil
}

// WriteRaw encodes the frame as a raw little-endian float32 grid.
func (f *Frame) WriteRaw(out io.Writer) error {
	buf := make([]byte, 4)
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// WriteRawFile writes the frame to a file, creating parent directories as
// needed.
func (f *Frame) WriteRawFile(path string) (err error) {
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
	return f.WriteRaw(out)
}
