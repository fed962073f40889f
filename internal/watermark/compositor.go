// Package watermark composites a branding overlay onto resized images.
package watermark

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/dunamismax/pixelcache/internal/engine"
)

const (
	// widthFraction scales the overlay relative to the target width.
	widthFraction = 0.10
	// minWidth is the overlay floor when the target width is unknown.
	minWidth = 64
	margin   = 12
)

// Compositor scales the overlay asset and anchors it at the south-east
// corner of the base image. Failure anywhere is a hard failure for the
// request; a silently missing watermark would be a branding regression.
type Compositor struct{}

func (Compositor) Apply(ctx context.Context, base, overlay []byte, targetWidth int) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	baseImg, err := imaging.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("decode base image: %w", err)
	}

	overlayImg, err := imaging.Decode(bytes.NewReader(overlay))
	if err != nil {
		return nil, fmt.Errorf("decode watermark asset: %w", err)
	}

	overlayW := int(float64(targetWidth) * widthFraction)
	if overlayW < minWidth {
		overlayW = minWidth
	}
	if baseW := baseImg.Bounds().Dx(); overlayW > baseW {
		overlayW = baseW
	}

	scaled := imaging.Resize(overlayImg, overlayW, 0, imaging.Lanczos)

	x := baseImg.Bounds().Dx() - scaled.Bounds().Dx() - margin
	y := baseImg.Bounds().Dy() - scaled.Bounds().Dy() - margin
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	out := imaging.Overlay(baseImg, scaled, image.Pt(x, y), 1.0)
	return engine.EncodeJPEG(out)
}
