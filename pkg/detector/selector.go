package detector

import (
	"fmt"

	"skulldetect/internal/models"
)

// Selection is the outcome of slice selection: the axial layer with the
// largest mask coverage and one anchor per direction on that layer.
type Selection struct {
	// MaxLayer is the z index with the most foreground voxels
	MaxLayer int

	// Coverage is the number of foreground voxels on MaxLayer
	Coverage int

	// Anchors are the profile starting points in [N, S, W, E] order
	Anchors [4]Point

	// Fallback marks anchors placed at the fixed fallback offset because the
	// mask never reached background along that direction
	Fallback [4]bool
}

// UsedFallback reports whether any anchor came from the fallback offsets.
func (s Selection) UsedFallback() bool {
	for _, f := range s.Fallback {
		if f {
			return true
		}
	}
	return false
}

// FindMaxLayerAndAnchors scans the mask along z for the layer with the
// largest foreground area (ties keep the lowest z) and derives the four
// directional anchors on it.
//
// Starting from the slice center (integer halves of width and height), each
// direction walks outward until the mask is background and steps back by the
// direction's margin. When no background voxel is found the anchor falls back
// to a fixed offset from the slice edge. The mask is only read.
func FindMaxLayerAndAnchors(mask *models.Volume, params Params) (Selection, error) {
	var sel Selection
	if err := mask.Validate(); err != nil {
		return sel, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}

	size := mask.Width * mask.Height
	for z := 0; z < mask.Depth; z++ {
		count := 0
		for _, v := range mask.Data[z*size : (z+1)*size] {
			if v > 0 {
				count++
			}
		}
		if count > sel.Coverage {
			sel.Coverage = count
			sel.MaxLayer = z
		}
	}
	if sel.Coverage == 0 {
		return sel, fmt.Errorf("%w: %dx%dx%d mask is empty", ErrDegenerateMask, mask.Width, mask.Height, mask.Depth)
	}

	layer, err := mask.Slice(sel.MaxLayer)
	if err != nil {
		return sel, err
	}
	center := Point{X: mask.Width / 2, Y: mask.Height / 2}

	for _, d := range Directions {
		anchor, fallback := findAnchor(layer, center, d, params.Directions[d])
		if !layer.InBounds(anchor.X, anchor.Y) {
			return sel, fmt.Errorf("%w: %s anchor %s on %dx%d slice",
				ErrOutOfBounds, d, anchor, layer.Width, layer.Height)
		}
		sel.Anchors[d] = anchor
		sel.Fallback[d] = fallback
	}

	return sel, nil
}

// findAnchor walks from center along d until the mask is exactly zero.
// Negative mask values do not end the walk.
func findAnchor(layer *models.Slice, center Point, d Direction, dp DirectionParams) (Point, bool) {
	step := d.step()
	size := extent(d, layer.Width, layer.Height)

	for c := center.coord(d); canScan(c, step, size); c += step {
		p := center.with(d, c)
		if layer.At(p.X, p.Y) == 0 {
			return center.with(d, c-step*dp.Margin), false
		}
	}

	if step < 0 {
		return center.with(d, dp.FallbackOffset), true
	}
	return center.with(d, size-dp.FallbackOffset), true
}
