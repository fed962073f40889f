package domain

import (
	"fmt"
	"strings"
)

// Fit controls how source pixels are mapped onto the target dimensions.
type Fit string

const (
	// FitCover crops to fill the exact target, preserving aspect ratio.
	FitCover Fit = "cover"
	// FitContain letterboxes the source inside the exact target.
	FitContain Fit = "contain"
	// FitFill stretches to the exact target, ignoring aspect ratio.
	FitFill Fit = "fill"
	// FitInside scales down only, never upscaling beyond the target.
	FitInside Fit = "inside"
	// FitOutside scales up only, until the target is at least covered.
	FitOutside Fit = "outside"
)

const DefaultFit = FitCover

// ParseFit resolves a raw fit parameter case-insensitively. An empty value
// resolves to DefaultFit.
func ParseFit(raw string) (Fit, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultFit, nil
	}
	switch Fit(raw) {
	case FitCover, FitContain, FitFill, FitInside, FitOutside:
		return Fit(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFit, raw)
	}
}

// TransformSpec is the canonical, validated description of one transform.
// Width or Height may be zero, meaning the engine derives that side from the
// source aspect ratio; at least one side is always set.
type TransformSpec struct {
	Width  int
	Height int
	Fit    Fit
}

// Preset is a fixed (width, height) pair addressable by name.
type Preset struct {
	Width  int
	Height int
}

// PresetTable maps canonical preset names to dimensions. The table is
// immutable configuration built once at startup and injected where needed.
type PresetTable map[string]Preset

const DefaultPresetName = "medium"

// DefaultPresets returns the closed set of named sizes the service ships with.
func DefaultPresets() PresetTable {
	return PresetTable{
		"tiny":        {Width: 100, Height: 100},
		"small":       {Width: 300, Height: 200},
		"medium":      {Width: 600, Height: 400},
		"large":       {Width: 1200, Height: 800},
		"extra-large": {Width: 1920, Height: 1280},
	}
}

// Lookup resolves a preset name case-insensitively.
func (t PresetTable) Lookup(name string) (Preset, bool) {
	preset, ok := t[strings.ToLower(strings.TrimSpace(name))]
	return preset, ok
}
