// Package engine wraps the pixel-resizing capability behind a narrow
// interface. The default build resizes with the imaging library; a libvips
// backend is available behind the govips build tag.
package engine

import (
	"context"
	"math"

	"github.com/dunamismax/pixelcache/internal/domain"
)

const JPEGQuality = 80

// Result carries the encoded output and its final pixel dimensions.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// Engine decodes src, applies the transform spec, and re-encodes as JPEG.
type Engine interface {
	Transform(ctx context.Context, src []byte, spec domain.TransformSpec) (Result, error)
}

// targetDims completes a spec against the source dimensions. A zero width or
// height is derived from the source aspect ratio.
func targetDims(srcW, srcH int, spec domain.TransformSpec) (int, int) {
	w, h := spec.Width, spec.Height
	switch {
	case w == 0:
		w = scaleDim(srcW, h, srcH)
	case h == 0:
		h = scaleDim(srcH, w, srcW)
	}
	return w, h
}

func scaleDim(side, target, reference int) int {
	if reference == 0 {
		return side
	}
	scaled := int(math.Round(float64(side) * float64(target) / float64(reference)))
	if scaled < 1 {
		return 1
	}
	return scaled
}
