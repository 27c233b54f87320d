package depth

import (
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestResampleNearestUpscale(t *testing.T) {
	f, err := NewFrame(2, 2, []float32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)

	out, err := f.Resample(4, 4, ResampleNearest)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Width(), test.ShouldEqual, 4)
	test.That(t, out.Height(), test.ShouldEqual, 4)

	// each source pixel becomes a 2x2 block with its exact value
	test.That(t, out.At(0, 0), test.ShouldEqual, 1)
	test.That(t, out.At(1, 1), test.ShouldEqual, 1)
	test.That(t, out.At(3, 0), test.ShouldEqual, 2)
	test.That(t, out.At(0, 3), test.ShouldEqual, 3)
	test.That(t, out.At(3, 3), test.ShouldEqual, 4)
}

func TestResampleNearestKeepsValues(t *testing.T) {
	f, err := NewFrame(4, 1, []float32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)

	out, err := f.Resample(2, 1, ResampleNearest)
	test.That(t, err, test.ShouldBeNil)
	for x := 0; x < 2; x++ {
		v := out.At(x, 0)
		test.That(t, v == 1 || v == 2 || v == 3 || v == 4, test.ShouldBeTrue)
	}
}

func TestResampleSameSize(t *testing.T) {
	f, err := NewFrame(2, 1, []float32{5, 6})
	test.That(t, err, test.ShouldBeNil)
	out, err := f.Resample(2, 1, ResampleNearest)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.At(1, 0), test.ShouldEqual, 6)

	// same size returns a copy, not the original
	out.Set(1, 0, 9)
	test.That(t, f.At(1, 0), test.ShouldEqual, 6)
}

func TestResampleBilinearBlends(t *testing.T) {
	f, err := NewFrame(2, 1, []float32{1, 3})
	test.That(t, err, test.ShouldBeNil)

	out, err := f.Resample(4, 1, ResampleBilinear)
	test.That(t, err, test.ShouldBeNil)
	// interior samples land between the endpoints
	test.That(t, out.At(1, 0), test.ShouldBeGreaterThanOrEqualTo, 1)
	test.That(t, out.At(2, 0), test.ShouldBeLessThanOrEqualTo, 3)
	test.That(t, out.At(1, 0), test.ShouldBeLessThan, out.At(2, 0))
}

func TestResampleBilinearHoles(t *testing.T) {
	f, err := NewFrame(2, 2, []float32{1, 0, 1, 1})
	test.That(t, err, test.ShouldBeNil)

	out, err := f.Resample(4, 4, ResampleBilinear)
	test.That(t, err, test.ShouldBeNil)
	// any blend touching the hole is itself a hole
	test.That(t, out.Valid(2, 1), test.ShouldBeFalse)
	test.That(t, out.Valid(3, 0), test.ShouldBeFalse)
}

func TestResampleErrors(t *testing.T) {
	f := NewEmptyFrame(2, 2)
	_, err := f.Resample(0, 4, ResampleNearest)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = f.Resample(4, 4, ResampleMethod(99))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown resample method")
}

func TestResampleMethodString(t *testing.T) {
	test.That(t, ResampleNearest.String(), test.ShouldEqual, "nearest")
	test.That(t, ResampleBilinear.String(), test.ShouldEqual, "bilinear")
}

func TestToPrettyPicture(t *testing.T) {
	f, err := NewFrame(2, 1, []float32{0, 2})
	test.That(t, err, test.ShouldBeNil)

	img := f.ToPrettyPicture(0, 0)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 2)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 1)

	_, _, _, a := img.At(0, 0).RGBA()
	test.That(t, a, test.ShouldEqual, 0)

	c := color.RGBAModel.Convert(img.At(1, 0)).(color.RGBA)
	test.That(t, c.A, test.ShouldEqual, 255)
	test.That(t, int(c.R)+int(c.G)+int(c.B), test.ShouldBeGreaterThan, 0)
}
