package depth

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestNewFrame(t *testing.T) {
	_, err := NewFrame(2, 2, []float32{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "3 elements")

	f, err := NewFrame(2, 2, []float32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Width(), test.ShouldEqual, 2)
	test.That(t, f.Height(), test.ShouldEqual, 2)
	test.That(t, f.At(0, 0), test.ShouldEqual, 1)
	test.That(t, f.At(1, 0), test.ShouldEqual, 2)
	test.That(t, f.At(0, 1), test.ShouldEqual, 3)
	test.That(t, f.At(1, 1), test.ShouldEqual, 4)
}

func TestFrameValid(t *testing.T) {
	f := NewEmptyFrame(2, 1)
	test.That(t, f.Valid(0, 0), test.ShouldBeFalse)

	f.Set(0, 0, 1.5)
	test.That(t, f.Valid(0, 0), test.ShouldBeTrue)

	f.Set(0, 0, -0.25)
	test.That(t, f.Valid(0, 0), test.ShouldBeFalse)

	f.Set(0, 0, float32(math.NaN()))
	test.That(t, f.Valid(0, 0), test.ShouldBeFalse)
}

func TestFrameMinMax(t *testing.T) {
	f, err := NewFrame(3, 1, []float32{0, 2.5, 1.25})
	test.That(t, err, test.ShouldBeNil)
	min, max := f.MinMax()
	test.That(t, min, test.ShouldEqual, 1.25)
	test.That(t, max, test.ShouldEqual, 2.5)

	empty := NewEmptyFrame(2, 2)
	min, max = empty.MinMax()
	test.That(t, min, test.ShouldEqual, 0)
	test.That(t, max, test.ShouldEqual, 0)
}

func TestFrameClone(t *testing.T) {
	f := NewEmptyFrame(1, 1)
	f.Set(0, 0, 3)
	g := f.Clone()
	g.Set(0, 0, 9)
	test.That(t, f.At(0, 0), test.ShouldEqual, 3)
	test.That(t, g.At(0, 0), test.ShouldEqual, 9)
}

func TestRawRoundTrip(t *testing.T) {
	f, err := NewFrame(2, 2, []float32{0.5, 1.5, 0, 2.75})
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, f.WriteRaw(&buf), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldEqual, 16)

	back, err := ReadFrame(&buf, 2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.At(0, 0), test.ShouldEqual, 0.5)
	test.That(t, back.At(1, 1), test.ShouldEqual, 2.75)
}

func TestReadFrameSizeMismatch(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(make([]byte, 12)), 2, 2)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "12 bytes")
}

func TestRawFileRoundTrip(t *testing.T) {
	f, err := NewFrame(2, 1, []float32{1.5, 3})
	test.That(t, err, test.ShouldBeNil)

	path := filepath.Join(t.TempDir(), "frames", "58545.905945.d32")
	test.That(t, f.WriteRawFile(path), test.ShouldBeNil)

	back, err := ReadFrameFile(path, 2, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.At(0, 0), test.ShouldEqual, 1.5)
	test.That(t, back.At(1, 0), test.ShouldEqual, 3)

	_, err = ReadFrameFile(path, 4, 4)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "58545.905945.d32")
}
