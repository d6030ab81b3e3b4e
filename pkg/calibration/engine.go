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
	"fmt"
	"math"
)

// Sample is a raw value with the working values some fit types need
type Sample struct {
	Raw      float64
	Immersed bool
	// IntegrationTime is the actual integration time of the sample, used by OPTIC3
	IntegrationTime float64
}

// Result of a calibration
type Result struct {
	ChannelID    string  `json:"channelId"`
	Value        float64 `json:"value"`
	Units        string  `json:"units"`
	Uncalibrated bool    `json:"uncalibrated,omitempty"`
}

// Apply converts a raw value with the calibration
func Apply(raw float64, immersed bool, c *Calibration) (Result, error) {
	return ApplySample(Sample{Raw: raw, Immersed: immersed}, c)
}

// ApplySample converts a sample with the calibration.
// It has no side effects, a failed calibration returns an *ApplyError and no value.
func ApplySample(s Sample, c *Calibration) (Result, error) {
	if c == nil {
		return Result{}, &ApplyError{Err: ErrUnsupportedFitType}
	}
	fail := func(err error) (Result, error) {
		return Result{}, &ApplyError{
			ChannelID: c.ChannelID,
			FitType:   c.FitType,
			Count:     len(c.Coefficients),
			Err:       err,
		}
	}

	meta, ok := fitTypeMetadatas[c.FitType]
	if !ok || meta.Eval == nil {
		return fail(ErrUnsupportedFitType)
	}
	n := len(c.Coefficients)
	if !c.FitType.Accepts(n) || (c.Declared > 0 && n != c.Declared) {
		want := meta.Arity
		if want < 0 {
			want = c.Declared
		}
		if want <= 0 {
			want = 1
		}
		return Result{}, &ApplyError{
			ChannelID: c.ChannelID,
			FitType:   c.FitType,
			Count:     n,
			Want:      want,
			Err:       ErrCoefficientArityMismatch,
		}
	}

	v, err := meta.Eval(s, c.Coefficients)
	if err != nil {
		return fail(err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fail(fmt.Errorf("%w: result %v is not finite", ErrInvalidWorkingValue, v))
	}
	return Result{
		ChannelID:    c.ChannelID,
		Value:        v,
		Units:        c.Units,
		Uncalibrated: c.FitType == FitTypeNone,
	}, nil
}
