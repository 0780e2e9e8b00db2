package detector

import "errors"

// Error conditions reported by the detector. They are always wrapped with
// context, so callers should match them with errors.Is.
var (
	// ErrShapeMismatch is returned when the volume and mask dimensions differ
	// or either of them is empty.
	ErrShapeMismatch = errors.New("volume and mask shapes differ")

	// ErrDegenerateMask is returned when the mask has no foreground voxel.
	ErrDegenerateMask = errors.New("mask has no foreground voxels")

	// ErrOutOfBounds is returned when a walk along a direction leaves the
	// slice, or an anchor lies outside it.
	ErrOutOfBounds = errors.New("coordinate outside slice bounds")

	// ErrDegenerateInput is returned for profiles that cannot be normalized
	// or analysed (empty, zero maximum, zero denominators).
	ErrDegenerateInput = errors.New("degenerate profile")

	// ErrInvalidParams is returned when Params fail validation.
	ErrInvalidParams = errors.New("invalid detector parameters")
)
