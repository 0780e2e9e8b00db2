package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name    string
		profile []int
		want    []int
	}{
		{"already full range", []int{0, 0, 0, 255}, []int{0, 0, 0, 255}},
		{"truncates", []int{10, 200, 10}, []int{12, 255, 12}},
		{"fixed zero minimum", []int{100, 200}, []int{127, 255}},
		{"single sample", []int{3}, []int{255}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.profile, 255)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	_, err := Normalize([]int{0, 0, 0}, 255)
	require.ErrorIs(t, err, ErrDegenerateInput)

	_, err = Normalize(nil, 255)
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestGradient(t *testing.T) {
	grad, err := Gradient([]int{0, 0, 100, 100, 100})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100, 0, 0}, grad)

	// (12-255)/256 rounds to two decimals
	grad, err = Gradient([]int{255, 12})
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.95}, grad)

	// -199/200 is stored just above -0.995
	grad, err = Gradient([]int{199, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.99}, grad)
}

func TestJudgeDropToAirIsNotSpike(t *testing.T) {
	normalized, err := Normalize([]int{127, 255, 255, 255, 255, 255, 199, 0}, 255)
	require.NoError(t, err)

	grad, err := Gradient(normalized)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, -0.22, -0.99}, grad)

	j, err := Judge(grad, normalized, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, j.Spikes)
	assert.True(t, j.LargeScaleChecked)
	assert.InDelta(t, 1.0, j.LargeScaleRatio, 1e-9)
	assert.False(t, j.SkullLike)
}

func TestGradientLength(t *testing.T) {
	for n := 0; n <= 6; n++ {
		profile := make([]int, n)
		grad, err := Gradient(profile)
		require.NoError(t, err)

		want := n - 1
		if want < 0 {
			want = 0
		}
		assert.Len(t, grad, want, "profile length %d", n)
	}
}

func TestGradientMinusOne(t *testing.T) {
	_, err := Gradient([]int{-1, 4})
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestJudge(t *testing.T) {
	params := DefaultParams()

	testCases := []struct {
		name       string
		profile    []int
		wantSkull  bool
		wantSpikes int
		wantRatio  bool
	}{
		{"flat", []int{255, 255, 255, 255, 255, 255, 255, 255}, false, 0, true},
		{"two spikes", []int{0, 100, 0, 100, 100}, true, 2, false},
		{"single jump rises over valley", []int{0, 0, 100, 100, 100}, true, 1, true},
		{"gentle slope", []int{100, 110, 120, 130, 140, 150, 160, 170}, false, 0, true},
		{"broad rise without spikes", []int{60, 70, 80, 95, 110, 125, 140, 155}, true, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			grad, err := Gradient(tc.profile)
			require.NoError(t, err)

			j, err := Judge(grad, tc.profile, params)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSkull, j.SkullLike)
			assert.Equal(t, tc.wantSpikes, j.Spikes)
			assert.Equal(t, tc.wantRatio, j.LargeScaleChecked)
		})
	}
}

func TestJudgeZeroGradient(t *testing.T) {
	grad := make([]float64, 39)
	profile := make([]int, 40)
	for i := range profile {
		profile[i] = 200
	}

	j, err := Judge(grad, profile, DefaultParams())
	require.NoError(t, err)
	assert.False(t, j.SkullLike)
	assert.Zero(t, j.Spikes)
	assert.Zero(t, j.LargeScaleRatio)
}

func TestJudgeShortProfiles(t *testing.T) {
	params := DefaultParams()

	for _, profile := range [][]int{{255}, {12, 255}, {255, 12}, {12, 12, 255}} {
		grad, err := Gradient(profile)
		require.NoError(t, err)
		require.Len(t, grad, len(profile)-1)

		_, err = Judge(grad, profile, params)
		require.NoError(t, err, "profile %v", profile)
	}

	j, err := Judge(nil, []int{255}, params)
	require.NoError(t, err)
	assert.False(t, j.SkullLike)
	assert.False(t, j.LargeScaleChecked)

	j, err = Judge([]float64{19.69}, []int{12, 255}, params)
	require.NoError(t, err)
	assert.True(t, j.SkullLike)
	assert.InDelta(t, 243.0/13.0, j.LargeScaleRatio, 1e-9)
}

func TestJudgeEmptyProfile(t *testing.T) {
	_, err := Judge(nil, nil, DefaultParams())
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestJudgeNegativeValley(t *testing.T) {
	_, err := Judge([]float64{0, 0, 0}, []int{-1, 3, 3, 3}, DefaultParams())
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestVote(t *testing.T) {
	testCases := []struct {
		n, s, w, e bool
		threshold  int
		want       bool
	}{
		{true, true, true, false, 2, true},
		{true, true, false, false, 2, false},
		{true, true, true, true, 2, true},
		{false, false, false, false, 2, false},
		{true, false, false, false, 0, true},
		{true, true, true, true, 4, false},
	}

	for _, tc := range testCases {
		got, votes := Vote(tc.n, tc.s, tc.w, tc.e, tc.threshold)
		assert.Equal(t, tc.want, got, "Vote(%v,%v,%v,%v,%d)", tc.n, tc.s, tc.w, tc.e, tc.threshold)
		assert.Equal(t, [4]bool{tc.n, tc.s, tc.w, tc.e}, votes)
	}
}
