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
	"strings"
)

// FitType selects the formula converting a raw value to engineering units
type FitType uint8

const (
	FitTypeUnknown FitType = iota
	// FitTypePolyU is a polynomial valid in air and in water
	FitTypePolyU
	// FitTypePolyF is a polynomial valid only for immersed sensors
	FitTypePolyF
	FitTypeGain
	FitTypeOptic1
	FitTypeOptic2
	FitTypeOptic3
	FitTypePow10
	// FitTypeCount is a raw count which needs no conversion
	FitTypeCount
	// FitTypeNone marks a value which is passed through uncalibrated
	FitTypeNone
	FitTypeTherm1
	FitTypeGPSTime
	FitTypeGPSPos
	FitTypeGPSHemi
	FitTypeGPSMode
	FitTypeGPSStatus
	FitTypeDDMM
	FitTypeHHMMSS
	FitTypeDDMMYY
	FitTypeTime2
	FitTypeDelimiter
)

const (
	// arityAtLeastOne is the arity of polynomials
	arityAtLeastOne = -1
	// arityAny is the arity of fit types the loaders recognize but the engine does not evaluate
	arityAny = -2
)

type evalFunc func(s Sample, c []float64) (float64, error)

type fitTypeMetadata struct {
	Tag   string
	Arity int
	Eval  evalFunc
}

var fitTypeMetadatas = map[FitType]fitTypeMetadata{
	FitTypePolyU:     {Tag: "POLYU", Arity: arityAtLeastOne, Eval: evalPolyU},
	FitTypePolyF:     {Tag: "POLYF", Arity: arityAtLeastOne, Eval: evalPolyF},
	FitTypeGain:      {Tag: "GAIN", Arity: 1, Eval: evalGain},
	FitTypeOptic1:    {Tag: "OPTIC1", Arity: 2, Eval: evalOptic1},
	FitTypeOptic2:    {Tag: "OPTIC2", Arity: 3, Eval: evalOptic2},
	FitTypeOptic3:    {Tag: "OPTIC3", Arity: 4, Eval: evalOptic3},
	FitTypePow10:     {Tag: "POW10", Arity: 3, Eval: evalPow10},
	FitTypeCount:     {Tag: "COUNT", Arity: 0, Eval: evalRaw},
	FitTypeNone:      {Tag: "NONE", Arity: 0, Eval: evalRaw},
	FitTypeTherm1:    {Tag: "THERM1", Arity: arityAny},
	FitTypeGPSTime:   {Tag: "GPSTIME", Arity: arityAny},
	FitTypeGPSPos:    {Tag: "GPSPOS", Arity: arityAny},
	FitTypeGPSHemi:   {Tag: "GPSHEMI", Arity: arityAny},
	FitTypeGPSMode:   {Tag: "GPSMODE", Arity: arityAny},
	FitTypeGPSStatus: {Tag: "GPSSTATUS", Arity: arityAny},
	FitTypeDDMM:      {Tag: "DDMM", Arity: arityAny},
	FitTypeHHMMSS:    {Tag: "HHMMSS", Arity: arityAny},
	FitTypeDDMMYY:    {Tag: "DDMMYY", Arity: arityAny},
	FitTypeTime2:     {Tag: "TIME2", Arity: arityAny},
	FitTypeDelimiter: {Tag: "DELIMITER", Arity: arityAny},
}

// ParseFitType returns the fit type of a tag, compared case insensitively
func ParseFitType(tag string) (FitType, error) {
	for t, meta := range fitTypeMetadatas {
		if strings.EqualFold(meta.Tag, tag) {
			return t, nil
		}
	}
	return FitTypeUnknown, fmt.Errorf("unknown fit type %q", tag)
}

func (t FitType) String() string {
	if meta, ok := fitTypeMetadatas[t]; ok {
		return meta.Tag
	}
	return fmt.Sprintf("FitType(%d)", uint8(t))
}

// Supported reports whether the engine evaluates the fit type
func (t FitType) Supported() bool {
	return fitTypeMetadatas[t].Eval != nil
}

// Accepts reports whether n coefficients satisfy the fit type
func (t FitType) Accepts(n int) bool {
	meta, ok := fitTypeMetadatas[t]
	if !ok {
		return false
	}
	switch meta.Arity {
	case arityAny:
		return true
	case arityAtLeastOne:
		return n >= 1
	}
	return n == meta.Arity
}

// Arity returns the number of coefficients the fit type needs, -1 for at least one
// and -2 for any number
func (t FitType) Arity() int {
	meta, ok := fitTypeMetadatas[t]
	if !ok {
		return 0
	}
	return meta.Arity
}

func (t FitType) MarshalText() ([]byte, error) {
	if _, ok := fitTypeMetadatas[t]; !ok {
		return nil, fmt.Errorf("unknown fit type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *FitType) UnmarshalText(text []byte) error {
	ft, err := ParseFitType(string(text))
	if err != nil {
		return err
	}
	*t = ft
	return nil
}

func polynomial(x float64, c []float64) float64 {
	// Horner's scheme, c[0] is the constant term
	var sum float64
	for i := len(c) - 1; i >= 0; i-- {
		sum = sum*x + c[i]
	}
	return sum
}

func evalPolyU(s Sample, c []float64) (float64, error) {
	return polynomial(s.Raw, c), nil
}

func evalPolyF(s Sample, c []float64) (float64, error) {
	if !s.Immersed {
		return 0, ErrInvalidImmersionState
	}
	return polynomial(s.Raw, c), nil
}

func evalGain(s Sample, c []float64) (float64, error) {
	return s.Raw * c[0], nil
}

// evalOptic1 is a1 * (x - a0)
func evalOptic1(s Sample, c []float64) (float64, error) {
	return c[1] * (s.Raw - c[0]), nil
}

// evalOptic2 is im * a1 * (x - a0), im applies to immersed samples
func evalOptic2(s Sample, c []float64) (float64, error) {
	v := c[1] * (s.Raw - c[0])
	if s.Immersed {
		v *= c[2]
	}
	return v, nil
}

// evalOptic3 is im * a1 * (x - a0) * (cint / aint), aint is the sample integration time
func evalOptic3(s Sample, c []float64) (float64, error) {
	if !(s.IntegrationTime > 0) {
		return 0, fmt.Errorf("%w: integration time %v", ErrInvalidWorkingValue, s.IntegrationTime)
	}
	v := c[1] * (s.Raw - c[0]) * (c[3] / s.IntegrationTime)
	if s.Immersed {
		v *= c[2]
	}
	return v, nil
}

// evalPow10 is im * 10^((x - a0) / a1)
func evalPow10(s Sample, c []float64) (float64, error) {
	v := math.Pow(10, (s.Raw-c[0])/c[1])
	if s.Immersed {
		v *= c[2]
	}
	return v, nil
}

func evalRaw(s Sample, _ []float64) (float64, error) {
	return s.Raw, nil
}
