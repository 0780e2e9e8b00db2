package detector

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Judgement is the per-direction outcome of the gradient analysis.
type Judgement struct {
	// SkullLike is true when the profile looks like it crosses bone
	SkullLike bool

	// Spikes is the number of gradient entries at or above the spike magnitude
	Spikes int

	// LargeScaleChecked is set when the spike count did not decide the
	// verdict and the peak/valley check ran
	LargeScaleChecked bool

	// LargeScaleRatio is (peak-valley)/(valley+1), valid when LargeScaleChecked
	LargeScaleRatio float64
}

// Gradient returns the relative change between consecutive samples,
// (a[i+1]-a[i])/(a[i]+1), rounded to two decimals. The result has one entry
// less than the profile.
func Gradient(profile []int) ([]float64, error) {
	if len(profile) < 2 {
		return []float64{}, nil
	}

	grad := make([]float64, len(profile)-1)
	for i := range grad {
		den := profile[i] + 1
		if den == 0 {
			return nil, fmt.Errorf("%w: sample %d is -1", ErrDegenerateInput, i)
		}
		g := float64(profile[i+1]-profile[i]) / float64(den)
		grad[i] = round2(g)
	}
	return grad, nil
}

// round2 rounds the exact binary value of g to two decimals, so -199/200
// (stored just above -0.995) gives -0.99.
func round2(g float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(g, 'f', 2, 64), 64)
	return r
}

// Judge decides whether a direction looks like a skull boundary.
//
// More than params.SpikeThreshold spikes decide it outright. Otherwise the
// minimum of the first quarter of the profile (the valley, at least one
// sample) is compared with the maximum of the remainder (the peak).
func Judge(grad []float64, profile []int, params Params) (Judgement, error) {
	var j Judgement
	for _, g := range grad {
		if math.Abs(g) >= params.SpikeMagnitude {
			j.Spikes++
		}
	}
	if j.Spikes > params.SpikeThreshold {
		j.SkullLike = true
		return j, nil
	}

	if len(profile) == 0 {
		return j, fmt.Errorf("%w: empty profile", ErrDegenerateInput)
	}
	quarter := len(profile) / 4
	if quarter == 0 {
		quarter = 1
	}
	if quarter >= len(profile) {
		// nothing left to peak over
		return j, nil
	}

	valley := slices.Min(profile[:quarter])
	peak := slices.Max(profile[quarter:])
	if valley+1 == 0 {
		return j, fmt.Errorf("%w: valley is -1", ErrDegenerateInput)
	}

	j.LargeScaleChecked = true
	j.LargeScaleRatio = float64(peak-valley) / float64(valley+1)
	j.SkullLike = j.LargeScaleRatio > params.LargeScaleRatio
	return j, nil
}
