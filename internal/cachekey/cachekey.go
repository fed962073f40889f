// Package cachekey maps a (source path, transform spec) pair to the storage
// key of the derived artifact.
package cachekey

import (
	"fmt"
	"path"

	"github.com/dunamismax/pixelcache/internal/domain"
)

// Deriver builds derived-object keys. The derived object lives in the same
// directory as its source, with a dimension segment inserted immediately
// above the filename:
//
//	media/film/banner.jpg + 800x600/cover -> media/film/800x600/cover/banner.jpg
//
// When includeFit is false the fit segment is omitted, so all fit modes for
// the same dimensions share one cache slot.
type Deriver struct {
	includeFit bool
}

func NewDeriver(includeFit bool) *Deriver {
	return &Deriver{includeFit: includeFit}
}

// Derive is deterministic and total: identical inputs always yield the
// identical key. It trusts that ref was normalized upstream.
func (d *Deriver) Derive(ref domain.SourceRef, spec domain.TransformSpec) string {
	segment := fmt.Sprintf("%dx%d", spec.Width, spec.Height)
	if d.includeFit {
		segment = path.Join(segment, string(spec.Fit))
	}

	dir := ref.Dir()
	if dir == "." {
		return path.Join(segment, ref.Base())
	}
	return path.Join(dir, segment, ref.Base())
}
