// Package geometry turns raw request parameters into a canonical, validated
// transform specification.
package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dunamismax/pixelcache/internal/domain"
)

// Params is the raw parameter bag handed over by the transport layer. All
// fields are optional, unparsed strings.
type Params struct {
	Size   string
	Width  string
	Height string
	Fit    string
}

// Resolver resolves Params into a domain.TransformSpec against an injected
// preset table. It is a pure function of its input with no side effects.
type Resolver struct {
	presets domain.PresetTable
}

func NewResolver(presets domain.PresetTable) (*Resolver, error) {
	if len(presets) == 0 {
		return nil, fmt.Errorf("preset table is required")
	}
	if _, ok := presets.Lookup(domain.DefaultPresetName); !ok {
		return nil, fmt.Errorf("preset table is missing the %q default", domain.DefaultPresetName)
	}
	return &Resolver{presets: presets}, nil
}

// Resolve applies the validation rules in order: fit, then the
// size/dimensions conflict, then whichever branch the parameters select.
// Requests carrying neither a size nor explicit dimensions fall back to the
// default preset.
func (r *Resolver) Resolve(p Params) (domain.TransformSpec, error) {
	fit, err := domain.ParseFit(p.Fit)
	if err != nil {
		return domain.TransformSpec{}, err
	}

	hasSize := strings.TrimSpace(p.Size) != ""
	hasDims := strings.TrimSpace(p.Width) != "" || strings.TrimSpace(p.Height) != ""

	if hasSize && hasDims {
		return domain.TransformSpec{}, domain.ErrConflictingDimensionParams
	}

	if hasSize {
		preset, ok := r.presets.Lookup(p.Size)
		if !ok {
			return domain.TransformSpec{}, fmt.Errorf("%w: %q", domain.ErrUnknownPresetSize, strings.TrimSpace(p.Size))
		}
		return domain.TransformSpec{Width: preset.Width, Height: preset.Height, Fit: fit}, nil
	}

	if hasDims {
		width := parseDimension(p.Width)
		height := parseDimension(p.Height)
		if width == 0 && height == 0 {
			return domain.TransformSpec{}, fmt.Errorf("%w: width=%q height=%q", domain.ErrInvalidDimensions, p.Width, p.Height)
		}
		return domain.TransformSpec{Width: width, Height: height, Fit: fit}, nil
	}

	preset, _ := r.presets.Lookup(domain.DefaultPresetName)
	return domain.TransformSpec{Width: preset.Width, Height: preset.Height, Fit: fit}, nil
}

// parseDimension returns 0 for anything that is not a positive integer. A
// zero dimension means "derive from the source aspect ratio", which is the
// transform engine's job, not the resolver's.
func parseDimension(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0
	}
	return value
}
