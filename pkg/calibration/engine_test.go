/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package calibration

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFitTypes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		sample Sample
		cal    Calibration
		want   float64
	}{
		{
			name:   "unimmersed polynomial",
			sample: Sample{Raw: 32787, Immersed: true},
			cal:    Calibration{FitType: FitTypePolyU, Coefficients: []float64{0.25, 0.000382698}},
			want:   12.797519326,
		},
		{
			name:   "unimmersed polynomial in air",
			sample: Sample{Raw: 32787},
			cal:    Calibration{FitType: FitTypePolyU, Coefficients: []float64{0.25, 0.000382698}},
			want:   12.797519326,
		},
		{
			name:   "cubic polynomial",
			sample: Sample{Raw: 2},
			cal:    Calibration{FitType: FitTypePolyU, Coefficients: []float64{1, 2, 3, 4}},
			want:   1 + 4 + 12 + 32,
		},
		{
			name:   "immersed polynomial",
			sample: Sample{Raw: 10, Immersed: true},
			cal:    Calibration{FitType: FitTypePolyF, Coefficients: []float64{0.1, 0.98}},
			want:   9.9,
		},
		{
			name:   "gain",
			sample: Sample{Raw: 100},
			cal:    Calibration{FitType: FitTypeGain, Coefficients: []float64{2}},
			want:   200,
		},
		{
			name:   "optic1",
			sample: Sample{Raw: 3000},
			cal:    Calibration{FitType: FitTypeOptic1, Coefficients: []float64{2000, 0.5}},
			want:   500,
		},
		{
			name:   "optic2 immersed",
			sample: Sample{Raw: 3000, Immersed: true},
			cal:    Calibration{FitType: FitTypeOptic2, Coefficients: []float64{2000, 0.5, 1.5}},
			want:   750,
		},
		{
			name:   "optic2 dry",
			sample: Sample{Raw: 3000},
			cal:    Calibration{FitType: FitTypeOptic2, Coefficients: []float64{2000, 0.5, 1.5}},
			want:   500,
		},
		{
			name:   "optic3 immersed",
			sample: Sample{Raw: 3000, Immersed: true, IntegrationTime: 128},
			cal:    Calibration{FitType: FitTypeOptic3, Coefficients: []float64{2000, 0.5, 1.5, 64}},
			want:   375,
		},
		{
			name:   "optic3 dry",
			sample: Sample{Raw: 3000, IntegrationTime: 32},
			cal:    Calibration{FitType: FitTypeOptic3, Coefficients: []float64{2000, 0.5, 1.5, 64}},
			want:   1000,
		},
		{
			name:   "pow10 immersed",
			sample: Sample{Raw: 3, Immersed: true},
			cal:    Calibration{FitType: FitTypePow10, Coefficients: []float64{1, 2, 1.5}},
			want:   15,
		},
		{
			name:   "pow10 dry",
			sample: Sample{Raw: 5},
			cal:    Calibration{FitType: FitTypePow10, Coefficients: []float64{1, 2, 1.5}},
			want:   100,
		},
		{
			name:   "count",
			sample: Sample{Raw: 4095},
			cal:    Calibration{FitType: FitTypeCount},
			want:   4095,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.cal.ChannelID = "ch"
			tt.cal.Units = "u"
			got, err := ApplySample(tt.sample, &tt.cal)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Value, 1e-9)
			assert.Equal(t, "ch", got.ChannelID)
			assert.Equal(t, "u", got.Units)
			assert.False(t, got.Uncalibrated)
		})
	}
}

func TestApplyNone(t *testing.T) {
	t.Parallel()
	got, err := Apply(0.0015, true, &Calibration{ChannelID: "rms_error", FitType: FitTypeNone})
	require.NoError(t, err)
	assert.Equal(t, Result{ChannelID: "rms_error", Value: 0.0015, Uncalibrated: true}, got)
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		sample  Sample
		cal     Calibration
		wantErr error
		want    int
	}{
		{
			name:    "declared 2 supplied 3",
			cal:     Calibration{FitType: FitTypePolyU, Declared: 2, Coefficients: []float64{1, 2, 3}},
			wantErr: ErrCoefficientArityMismatch,
			want:    2,
		},
		{
			name:    "polynomial without coefficients",
			cal:     Calibration{FitType: FitTypePolyU},
			wantErr: ErrCoefficientArityMismatch,
			want:    1,
		},
		{
			name:    "gain with two coefficients",
			cal:     Calibration{FitType: FitTypeGain, Coefficients: []float64{1, 2}},
			wantErr: ErrCoefficientArityMismatch,
			want:    1,
		},
		{
			name:    "optic3 short",
			cal:     Calibration{FitType: FitTypeOptic3, Coefficients: []float64{1, 2, 3}},
			wantErr: ErrCoefficientArityMismatch,
			want:    4,
		},
		{
			name:    "immersed polynomial in air",
			sample:  Sample{Raw: 10},
			cal:     Calibration{FitType: FitTypePolyF, Coefficients: []float64{0.1, 0.98}},
			wantErr: ErrInvalidImmersionState,
		},
		{
			name:    "optic3 without integration time",
			sample:  Sample{Raw: 10, Immersed: true},
			cal:     Calibration{FitType: FitTypeOptic3, Coefficients: []float64{1, 2, 3, 4}},
			wantErr: ErrInvalidWorkingValue,
		},
		{
			name:    "pow10 zero divisor",
			sample:  Sample{Raw: 10},
			cal:     Calibration{FitType: FitTypePow10, Coefficients: []float64{1, 0, 3}},
			wantErr: ErrInvalidWorkingValue,
		},
		{
			name:    "therm1",
			cal:     Calibration{FitType: FitTypeTherm1, Coefficients: []float64{1, 2, 3, 4}},
			wantErr: ErrUnsupportedFitType,
		},
		{
			name:    "outside the enum",
			cal:     Calibration{FitType: FitType(200)},
			wantErr: ErrUnsupportedFitType,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.cal.ChannelID = "ch"
			got, err := ApplySample(tt.sample, &tt.cal)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, Result{}, got)

			var ae *ApplyError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, "ch", ae.ChannelID)
			assert.Equal(t, tt.cal.FitType, ae.FitType)
			assert.Equal(t, len(tt.cal.Coefficients), ae.Count)
			assert.Equal(t, tt.want, ae.Want)
			assert.Contains(t, err.Error(), "ch")
		})
	}
}

func TestApplyNilCalibration(t *testing.T) {
	t.Parallel()
	_, err := Apply(1, true, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFitType)
}

func TestApplyIdempotent(t *testing.T) {
	t.Parallel()
	c := &Calibration{ChannelID: "a", FitType: FitTypePolyU, Coefficients: []float64{0.25, 0.000382698}}
	first, err := Apply(32787, false, c)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Apply(32787, false, c)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []float64{0.25, 0.000382698}, c.Coefficients)
}

func TestApplyConcurrent(t *testing.T) {
	t.Parallel()
	set, err := NewSet(
		&Calibration{ChannelID: "a", FitType: FitTypeGain, Coefficients: []float64{2}},
		&Calibration{ChannelID: "b", FitType: FitTypePolyU, Coefficients: []float64{1, 1}},
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _ := set.Get("a")
			b, _ := set.Get("b")
			ra, errA := Apply(float64(i), false, a)
			rb, errB := Apply(float64(i), false, b)
			if errA == nil && errB == nil {
				results[i] = ra.Value + rb.Value
			}
		}(i)
	}
	wg.Wait()
	for i, v := range results {
		assert.Equal(t, float64(3*i+1), v)
	}
}

func TestFitTypeText(t *testing.T) {
	t.Parallel()
	for ft, meta := range fitTypeMetadatas {
		text, err := ft.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, meta.Tag, string(text))

		var parsed FitType
		require.NoError(t, parsed.UnmarshalText([]byte(meta.Tag)))
		assert.Equal(t, ft, parsed)
	}
	_, err := ParseFitType("OPTIC9")
	assert.Error(t, err)
	_, err = FitTypeUnknown.MarshalText()
	assert.Error(t, err)

	ft, err := ParseFitType("polyu")
	require.NoError(t, err)
	assert.Equal(t, FitTypePolyU, ft)
	assert.True(t, ft.Supported())
	assert.False(t, FitTypeGPSPos.Supported())
}

func TestPolynomialMatchesPowerSum(t *testing.T) {
	t.Parallel()
	c := []float64{0.5, -1.25, 0.003, 1e-7}
	x := 1234.5
	var want float64
	for i, a := range c {
		want += a * math.Pow(x, float64(i))
	}
	assert.InDelta(t, want, polynomial(x, c), 1e-9)
}
