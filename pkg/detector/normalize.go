package detector

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Normalize rescales a profile into [0, scale] against a fixed minimum of 0
// and the profile maximum, truncating toward zero.
func Normalize(profile []int, scale float64) ([]int, error) {
	if len(profile) == 0 {
		return nil, fmt.Errorf("%w: empty profile", ErrDegenerateInput)
	}

	values := make([]float64, len(profile))
	for i, v := range profile {
		values[i] = float64(v)
	}

	top := floats.Max(values)
	if top <= 0 {
		return nil, fmt.Errorf("%w: profile maximum %.0f is not positive", ErrDegenerateInput, top)
	}

	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v / top * scale)
	}
	return out, nil
}
