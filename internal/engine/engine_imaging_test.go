package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/dunamismax/pixelcache/internal/domain"
)

func buildTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}

func transform(t *testing.T, src []byte, spec domain.TransformSpec) Result {
	t.Helper()

	result, err := imagingEngine{}.Transform(context.Background(), src, spec)
	if err != nil {
		t.Fatalf("transform %+v: %v", spec, err)
	}
	return result
}

func decodeResult(t *testing.T, result Result) image.Image {
	t.Helper()

	img, _, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decode transform output: %v", err)
	}
	return img
}

func TestTransformCoverExactTarget(t *testing.T) {
	src := buildTestPNG(t, 1000, 500)

	result := transform(t, src, domain.TransformSpec{Width: 200, Height: 200, Fit: domain.FitCover})
	if result.Width != 200 || result.Height != 200 {
		t.Fatalf("expected 200x200, got %dx%d", result.Width, result.Height)
	}

	img := decodeResult(t, result)
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 200 {
		t.Fatalf("decoded output is %dx%d, want 200x200", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestTransformContainPadsToExactTarget(t *testing.T) {
	src := buildTestPNG(t, 1000, 500)

	result := transform(t, src, domain.TransformSpec{Width: 200, Height: 200, Fit: domain.FitContain})
	if result.Width != 200 || result.Height != 200 {
		t.Fatalf("expected 200x200 canvas, got %dx%d", result.Width, result.Height)
	}

	// A 2:1 source inside a square canvas leaves letterbox bands top and
	// bottom; the corner pixel must be the pad color, the center must not.
	img := decodeResult(t, result)
	corner := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	if corner.R < 240 || corner.G < 240 || corner.B < 240 {
		t.Fatalf("expected white padding at corner, got %+v", corner)
	}
	center := color.NRGBAModel.Convert(img.At(100, 100)).(color.NRGBA)
	if center.R > 240 && center.G > 240 && center.B > 240 {
		t.Fatalf("expected source pixels at center, got %+v", center)
	}
}

func TestTransformFillStretches(t *testing.T) {
	src := buildTestPNG(t, 1000, 500)

	result := transform(t, src, domain.TransformSpec{Width: 200, Height: 200, Fit: domain.FitFill})
	if result.Width != 200 || result.Height != 200 {
		t.Fatalf("expected 200x200, got %dx%d", result.Width, result.Height)
	}
}

func TestTransformInsideNeverUpscales(t *testing.T) {
	src := buildTestPNG(t, 100, 50)

	result := transform(t, src, domain.TransformSpec{Width: 200, Height: 200, Fit: domain.FitInside})
	if result.Width != 100 || result.Height != 50 {
		t.Fatalf("expected 100x50 untouched, got %dx%d", result.Width, result.Height)
	}

	src = buildTestPNG(t, 1000, 500)
	result = transform(t, src, domain.TransformSpec{Width: 200, Height: 200, Fit: domain.FitInside})
	if result.Width != 200 || result.Height != 100 {
		t.Fatalf("expected 200x100 scaled down, got %dx%d", result.Width, result.Height)
	}
}

func TestTransformOutsideCoversTarget(t *testing.T) {
	src := buildTestPNG(t, 100, 50)

	result := transform(t, src, domain.TransformSpec{Width: 200, Height: 200, Fit: domain.FitOutside})
	if result.Width < 200 || result.Height < 200 {
		t.Fatalf("expected output to cover 200x200, got %dx%d", result.Width, result.Height)
	}

	// Already covering: no upscale.
	src = buildTestPNG(t, 400, 300)
	result = transform(t, src, domain.TransformSpec{Width: 200, Height: 200, Fit: domain.FitOutside})
	if result.Width != 400 || result.Height != 300 {
		t.Fatalf("expected 400x300 untouched, got %dx%d", result.Width, result.Height)
	}
}

func TestTransformDerivesMissingDimension(t *testing.T) {
	src := buildTestPNG(t, 1000, 500)

	result := transform(t, src, domain.TransformSpec{Width: 200, Fit: domain.FitCover})
	if result.Width != 200 || result.Height != 100 {
		t.Fatalf("expected 200x100 from aspect ratio, got %dx%d", result.Width, result.Height)
	}

	result = transform(t, src, domain.TransformSpec{Height: 100, Fit: domain.FitCover})
	if result.Width != 200 || result.Height != 100 {
		t.Fatalf("expected 200x100 from aspect ratio, got %dx%d", result.Width, result.Height)
	}
}

func TestTransformRejectsCorruptSource(t *testing.T) {
	_, err := imagingEngine{}.Transform(
		context.Background(),
		[]byte("not an image"),
		domain.TransformSpec{Width: 100, Height: 100, Fit: domain.FitCover},
	)
	if err == nil {
		t.Fatal("expected decode error for corrupt source")
	}
}
