package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/dunamismax/pixelcache/internal/domain"
)

// padColor fills the letterbox area for fit=contain. JPEG has no alpha, so
// the canvas is white rather than transparent.
var padColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

type imagingEngine struct{}

func (imagingEngine) Transform(ctx context.Context, src []byte, spec domain.TransformSpec) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("decode source image: %w", err)
	}

	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	if srcW == 0 || srcH == 0 {
		return Result{}, errors.New("source image has invalid dimensions")
	}

	width, height := targetDims(srcW, srcH, spec)

	var out *image.NRGBA
	switch spec.Fit {
	case domain.FitCover:
		out = imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	case domain.FitContain:
		fitted := imaging.Fit(img, width, height, imaging.Lanczos)
		canvas := imaging.New(width, height, padColor)
		out = imaging.PasteCenter(canvas, fitted)
	case domain.FitFill:
		out = imaging.Resize(img, width, height, imaging.Lanczos)
	case domain.FitInside:
		if srcW <= width && srcH <= height {
			out = imaging.Clone(img)
		} else {
			out = imaging.Fit(img, width, height, imaging.Lanczos)
		}
	case domain.FitOutside:
		out = scaleToCover(img, srcW, srcH, width, height)
	default:
		return Result{}, fmt.Errorf("%w: %q", domain.ErrInvalidFit, spec.Fit)
	}

	data, err := EncodeJPEG(out)
	if err != nil {
		return Result{}, err
	}

	return Result{Data: data, Width: out.Bounds().Dx(), Height: out.Bounds().Dy()}, nil
}

// scaleToCover upscales proportionally until both target sides are covered.
// Sources that already cover the target pass through unscaled.
func scaleToCover(img image.Image, srcW, srcH, width, height int) *image.NRGBA {
	scale := math.Max(float64(width)/float64(srcW), float64(height)/float64(srcH))
	if scale <= 1 {
		return imaging.Clone(img)
	}

	outW := int(math.Round(float64(srcW) * scale))
	outH := int(math.Round(float64(srcH) * scale))
	return imaging.Resize(img, max(outW, width), max(outH, height), imaging.Lanczos)
}

// EncodeJPEG is the single encode path for every computed response.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
