package detector

import (
	"fmt"

	"skulldetect/internal/models"
)

// ExtractProfile samples up to length integer intensities along d, starting
// at anchor and moving outward one voxel at a time.
//
// Voxels whose integer value is 0 are skipped first. The skip walks toward the
// slice interior unless skipOutward is set; it is bounded by the slice and
// reports ErrOutOfBounds rather than leaving it. Sampling stops early at the
// slice edge, so the profile may be shorter than length.
func ExtractProfile(layer *models.Slice, anchor Point, d Direction, length int, skipOutward bool) ([]int, error) {
	profile, _, err := extractProfile(layer, anchor, d, length, skipOutward)
	return profile, err
}

// extractProfile also returns the coordinate of the first sample.
func extractProfile(layer *models.Slice, anchor Point, d Direction, length int, skipOutward bool) ([]int, Point, error) {
	if !layer.InBounds(anchor.X, anchor.Y) {
		return nil, anchor, fmt.Errorf("%w: %s anchor %s on %dx%d slice",
			ErrOutOfBounds, d, anchor, layer.Width, layer.Height)
	}

	step := d.step()
	skip := -step
	if skipOutward {
		skip = step
	}

	p := anchor
	for int(layer.At(p.X, p.Y)) == 0 {
		p = p.with(d, p.coord(d)+skip)
		if !layer.InBounds(p.X, p.Y) {
			return nil, p, fmt.Errorf("%w: %s zero run from %s reaches the slice edge", ErrOutOfBounds, d, anchor)
		}
	}

	size := extent(d, layer.Width, layer.Height)
	profile := make([]int, 0, length)
	for c := p.coord(d); len(profile) < length && canScan(c, step, size); c += step {
		q := p.with(d, c)
		profile = append(profile, int(layer.At(q.X, q.Y)))
	}
	if len(profile) == 0 {
		return nil, p, fmt.Errorf("%w: %s profile from %s is empty", ErrDegenerateInput, d, p)
	}

	return profile, p, nil
}
