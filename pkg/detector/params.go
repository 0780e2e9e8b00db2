package detector

import "fmt"

// DirectionParams holds the per-direction anchor arithmetic.
type DirectionParams struct {
	// Margin moves the anchor this many voxels back toward the slice
	// interior from the first background voxel found.
	Margin int

	// FallbackOffset places the anchor this far from the slice edge when the
	// mask never drops to background along the direction.
	FallbackOffset int
}

// Params holds the tunable constants of the detection heuristic. The zero
// value is not usable; start from DefaultParams.
type Params struct {
	// ProfileLength is the number of samples taken per direction
	ProfileLength int

	// VoteThreshold is the number of skull-like directions that must be
	// exceeded for a positive verdict
	VoteThreshold int

	// SpikeMagnitude is the minimum absolute relative change counted as a spike
	SpikeMagnitude float64

	// SpikeThreshold is the spike count that must be exceeded for a
	// direction to be skull-like without the large-scale check
	SpikeThreshold int

	// LargeScaleRatio is the peak/valley ratio that must be exceeded by the
	// large-scale check
	LargeScaleRatio float64

	// Scale is the upper end of the normalized range (the lower end is 0)
	Scale float64

	// SkipOutward makes the zero-skipping walk move away from the slice
	// center instead of toward it
	SkipOutward bool

	// MinCoverage flags results whose max layer holds fewer foreground
	// voxels as low confidence. Zero disables the check.
	MinCoverage int

	// Directions is indexed by Direction
	Directions [4]DirectionParams
}

// DefaultParams returns the calibrated defaults of the heuristic.
func DefaultParams() Params {
	p := Params{
		ProfileLength:   40,
		VoteThreshold:   2,
		SpikeMagnitude:  1,
		SpikeThreshold:  1,
		LargeScaleRatio: 1,
		Scale:           255,
	}
	for _, d := range Directions {
		p.Directions[d] = DirectionParams{Margin: 5, FallbackOffset: 25}
	}
	return p
}

// Validate reports the first invalid field wrapped in ErrInvalidParams.
func (p Params) Validate() error {
	switch {
	case p.ProfileLength < 1:
		return fmt.Errorf("%w: profile length %d must be positive", ErrInvalidParams, p.ProfileLength)
	case p.VoteThreshold < 0 || p.VoteThreshold > len(Directions):
		return fmt.Errorf("%w: vote threshold %d outside [0,%d]", ErrInvalidParams, p.VoteThreshold, len(Directions))
	case p.SpikeMagnitude <= 0:
		return fmt.Errorf("%w: spike magnitude %.2f must be positive", ErrInvalidParams, p.SpikeMagnitude)
	case p.SpikeThreshold < 0:
		return fmt.Errorf("%w: spike threshold %d is negative", ErrInvalidParams, p.SpikeThreshold)
	case p.LargeScaleRatio < 0:
		return fmt.Errorf("%w: large-scale ratio %.2f is negative", ErrInvalidParams, p.LargeScaleRatio)
	case p.Scale <= 0:
		return fmt.Errorf("%w: scale %.2f must be positive", ErrInvalidParams, p.Scale)
	case p.MinCoverage < 0:
		return fmt.Errorf("%w: min coverage %d is negative", ErrInvalidParams, p.MinCoverage)
	}
	for _, d := range Directions {
		dp := p.Directions[d]
		if dp.Margin < 0 || dp.FallbackOffset < 0 {
			return fmt.Errorf("%w: %s margin %d / fallback offset %d must not be negative",
				ErrInvalidParams, d, dp.Margin, dp.FallbackOffset)
		}
	}
	return nil
}
