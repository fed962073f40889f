//go:build govips && cgo

package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/dunamismax/pixelcache/internal/domain"
)

type govipsEngine struct{}

func (govipsEngine) Transform(ctx context.Context, src []byte, spec domain.TransformSpec) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return Result{}, fmt.Errorf("decode source image: %w", err)
	}
	defer img.Close()

	srcW := img.Width()
	srcH := img.Height()
	if srcW <= 0 || srcH <= 0 {
		return Result{}, fmt.Errorf("source image has invalid dimensions")
	}

	width, height := targetDims(srcW, srcH, spec)

	switch spec.Fit {
	case domain.FitCover:
		err = img.Thumbnail(width, height, vips.InterestingCentre)
	case domain.FitContain:
		err = containInCanvas(img, srcW, srcH, width, height)
	case domain.FitFill:
		err = img.ResizeWithVScale(
			float64(width)/float64(srcW),
			float64(height)/float64(srcH),
			vips.KernelLanczos3,
		)
	case domain.FitInside:
		scale := math.Min(float64(width)/float64(srcW), float64(height)/float64(srcH))
		if scale < 1 {
			err = img.Resize(scale, vips.KernelLanczos3)
		}
	case domain.FitOutside:
		scale := math.Max(float64(width)/float64(srcW), float64(height)/float64(srcH))
		if scale > 1 {
			err = img.Resize(scale, vips.KernelLanczos3)
		}
	default:
		return Result{}, fmt.Errorf("%w: %q", domain.ErrInvalidFit, spec.Fit)
	}
	if err != nil {
		return Result{}, fmt.Errorf("transform image: %w", err)
	}

	params := vips.NewJpegExportParams()
	params.Quality = JPEGQuality
	data, _, err := img.ExportJpeg(params)
	if err != nil {
		return Result{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Result{Data: data, Width: img.Width(), Height: img.Height()}, nil
}

func containInCanvas(img *vips.ImageRef, srcW, srcH, width, height int) error {
	scale := math.Min(float64(width)/float64(srcW), float64(height)/float64(srcH))
	if err := img.Resize(scale, vips.KernelLanczos3); err != nil {
		return err
	}

	left := (width - img.Width()) / 2
	top := (height - img.Height()) / 2
	return img.Embed(left, top, width, height, vips.ExtendWhite)
}
