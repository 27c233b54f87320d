package camera

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

var testIntrinsics = &Intrinsics{
	Width:  640,
	Height: 480,
	Fx:     500,
	Fy:     505,
	Ppx:    320,
	Ppy:    240,
}

func TestCheckValid(t *testing.T) {
	test.That(t, testIntrinsics.CheckValid(), test.ShouldBeNil)

	var nilParams *Intrinsics
	err := nilParams.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)

	bad := *testIntrinsics
	bad.Fx = 0
	err = bad.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Fx")

	bad = *testIntrinsics
	bad.Width = 0
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)
}

func TestPixelToPointAndBack(t *testing.T) {
	x, y, z := testIntrinsics.PixelToPoint(100, 200, 2.5)
	test.That(t, z, test.ShouldEqual, 2.5)

	u, v := testIntrinsics.PointToPixel(x, y, z)
	test.That(t, u, test.ShouldAlmostEqual, 100)
	test.That(t, v, test.ShouldAlmostEqual, 200)
}

func TestPixelToPointCenteredUnitFocal(t *testing.T) {
	params := &Intrinsics{Width: 1, Height: 1, Fx: 1, Fy: 1, Ppx: 0, Ppy: 0}
	x, y, z := params.PixelToPoint(0, 0, 2.0)
	test.That(t, x, test.ShouldEqual, 0)
	test.That(t, y, test.ShouldEqual, 0)
	test.That(t, z, test.ShouldEqual, 2.0)
}

func TestPointToPixelSubpixel(t *testing.T) {
	params := &Intrinsics{Width: 100, Height: 100, Fx: 10, Fy: 10, Ppx: 50, Ppy: 50}
	u, v := params.PointToPixel(0.33, 0, 1)
	test.That(t, u, test.ShouldAlmostEqual, 53.3)
	test.That(t, v, test.ShouldAlmostEqual, 50)
}

func TestIntrinsicsFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intrinsics.json")
	blob := `{"width": 1920, "height": 1440, "fx": 1000, "fy": 1000, "cx": 960, "cy": 720}`
	test.That(t, os.WriteFile(path, []byte(blob), 0o644), test.ShouldBeNil)

	params, err := NewIntrinsicsFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params.Width, test.ShouldEqual, 1920)
	test.That(t, params.Ppx, test.ShouldEqual, 960)

	_, err = NewIntrinsicsFromJSONFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	badPath := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(badPath, []byte(`{"width": 0}`), 0o644), test.ShouldBeNil)
	_, err = NewIntrinsicsFromJSONFile(badPath)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
}

func TestScaledTo(t *testing.T) {
	scaled := testIntrinsics.ScaledTo(320, 240)
	test.That(t, scaled.Width, test.ShouldEqual, 320)
	test.That(t, scaled.Height, test.ShouldEqual, 240)
	test.That(t, scaled.Fx, test.ShouldAlmostEqual, 250)
	test.That(t, scaled.Fy, test.ShouldAlmostEqual, 252.5)
	test.That(t, scaled.Ppx, test.ShouldAlmostEqual, 160)
	test.That(t, scaled.Ppy, test.ShouldAlmostEqual, 120)
}

func TestCameraMatrix(t *testing.T) {
	m := testIntrinsics.CameraMatrix()
	r, c := m.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 3)
	test.That(t, m.At(0, 0), test.ShouldEqual, 500)
	test.That(t, m.At(0, 2), test.ShouldEqual, 320)
	test.That(t, m.At(1, 2), test.ShouldEqual, 240)
	test.That(t, m.At(2, 2), test.ShouldEqual, 1)
}
