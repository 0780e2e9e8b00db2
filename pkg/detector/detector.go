// Package detector decides whether residual skull remains in a skull-stripped
// brain MRI volume.
//
// The heuristic works on the axial slice with the largest mask coverage. From
// the slice center it finds where the mask ends in four directions, samples a
// short intensity profile outward from each of those points, and looks for the
// sharp or broad intensity rise that bone produces. Each direction votes; the
// volume is flagged when enough directions agree.
//
// Every function is pure: inputs are only read and no state is kept between
// calls, so volumes can be processed concurrently by the caller.
package detector

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"skulldetect/internal/models"
)

// DirectionResult holds the intermediate arrays of one direction.
type DirectionResult struct {
	Direction Direction

	// Anchor is the profile starting point on the max layer
	Anchor Point

	// Fallback is set when Anchor came from the fixed fallback offset
	Fallback bool

	// Start is the coordinate of the first sample, after the zero skip
	Start Point

	// Profile holds the raw integer intensities
	Profile []int

	// Normalized is Profile rescaled to [0, Params.Scale]
	Normalized []int

	// Gradient is the relative change of Normalized
	Gradient []float64

	Judgement
}

// Result is the outcome of a detection.
type Result struct {
	// SkullPresent is the final verdict
	SkullPresent bool

	// Votes are the directional verdicts in [N, S, W, E] order
	Votes [4]bool

	// YesVotes is the number of skull-like directions
	YesVotes int

	// MaxLayer is the analysed axial slice
	MaxLayer int

	// Coverage is the number of mask voxels on MaxLayer
	Coverage int

	// LowConfidence is set when an anchor used the fallback offset or the
	// coverage is below Params.MinCoverage
	LowConfidence bool

	// Directions holds per-direction details in [N, S, W, E] order
	Directions [4]DirectionResult
}

// Detect runs the full pipeline on a volume and its brain mask.
//
// The volume and mask must have identical, non-empty shapes. Any failure
// aborts the detection; there is no partial result.
func Detect(volume, mask *models.Volume, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if volume == nil || mask == nil {
		return nil, fmt.Errorf("%w: missing volume or mask", ErrShapeMismatch)
	}
	if err := volume.Validate(); err != nil {
		return nil, fmt.Errorf("%w: volume: %v", ErrShapeMismatch, err)
	}
	if err := mask.Validate(); err != nil {
		return nil, fmt.Errorf("%w: mask: %v", ErrShapeMismatch, err)
	}
	if !volume.SameShape(mask) {
		return nil, fmt.Errorf("%w: volume %v, mask %v", ErrShapeMismatch, volume.Shape(), mask.Shape())
	}

	// Step 1: max layer and anchors
	sel, err := FindMaxLayerAndAnchors(mask, params)
	if err != nil {
		return nil, fmt.Errorf("failed to select slice: %w", err)
	}
	log.Debug().
		Int("layer", sel.MaxLayer).
		Int("coverage", sel.Coverage).
		Interface("anchors", sel.Anchors).
		Msg("Selected max coverage layer")

	layer, err := volume.Slice(sel.MaxLayer)
	if err != nil {
		return nil, err
	}

	res := &Result{
		MaxLayer:      sel.MaxLayer,
		Coverage:      sel.Coverage,
		LowConfidence: sel.UsedFallback() || sel.Coverage < params.MinCoverage,
	}

	// Steps 2-4: profile, normalization and gradient analysis per direction
	for _, d := range Directions {
		dr := DirectionResult{
			Direction: d,
			Anchor:    sel.Anchors[d],
			Fallback:  sel.Fallback[d],
		}

		dr.Profile, dr.Start, err = extractProfile(layer, dr.Anchor, d, params.ProfileLength, params.SkipOutward)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s profile: %w", d, err)
		}
		if err := analyze(&dr, params); err != nil {
			return nil, fmt.Errorf("failed to analyse %s profile: %w", d, err)
		}

		log.Debug().
			Str("direction", d.String()).
			Int("samples", len(dr.Profile)).
			Int("spikes", dr.Spikes).
			Float64("ratio", dr.LargeScaleRatio).
			Bool("skull", dr.SkullLike).
			Msg("Judged direction")

		res.Directions[d] = dr
	}

	// Step 5: vote
	res.SkullPresent, res.Votes = Vote(
		res.Directions[North].SkullLike,
		res.Directions[South].SkullLike,
		res.Directions[West].SkullLike,
		res.Directions[East].SkullLike,
		params.VoteThreshold,
	)
	for _, v := range res.Votes {
		if v {
			res.YesVotes++
		}
	}

	return res, nil
}

// analyze fills the normalized profile, gradient and judgement of dr.
func analyze(dr *DirectionResult, params Params) error {
	var err error
	if dr.Normalized, err = Normalize(dr.Profile, params.Scale); err != nil {
		return err
	}
	if dr.Gradient, err = Gradient(dr.Normalized); err != nil {
		return err
	}
	dr.Judgement, err = Judge(dr.Gradient, dr.Normalized, params)
	return err
}
