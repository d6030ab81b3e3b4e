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
	"fmt"
)

var (
	// ErrMalformedCalibration fails loading of a whole calibration file
	ErrMalformedCalibration = errors.New("malformed calibration")
	// ErrCoefficientArityMismatch means the coefficient count does not match the fit type
	ErrCoefficientArityMismatch = errors.New("coefficient arity mismatch")
	// ErrInvalidImmersionState means the fit type is not valid for the immersion state of the sample
	ErrInvalidImmersionState = errors.New("invalid immersion state")
	// ErrUnsupportedFitType means the engine can not evaluate the fit type
	ErrUnsupportedFitType = errors.New("unsupported fit type")
	// ErrInvalidWorkingValue means a sample working value or the result is out of range
	ErrInvalidWorkingValue = errors.New("invalid working value")
)

// ParseError locates a malformed entry of a calibration file
type ParseError struct {
	Line      int
	ChannelID string
	Err       error
}

func (e *ParseError) Error() string {
	if e.ChannelID == "" {
		return fmt.Sprintf("calibration line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("calibration line %d (%s): %v", e.Line, e.ChannelID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func malformed(line int, channelID string, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Line:      line,
		ChannelID: channelID,
		Err:       fmt.Errorf("%w: %s", ErrMalformedCalibration, fmt.Sprintf(format, args...)),
	}
}

// ApplyError carries the context of a failed calibration of a single value
type ApplyError struct {
	ChannelID string
	FitType   FitType
	// Count is the number of coefficients supplied
	Count int
	// Want is the number of coefficients the fit type needs, only set on arity errors
	Want int
	Err  error
}

func (e *ApplyError) Error() string {
	if errors.Is(e.Err, ErrCoefficientArityMismatch) {
		return fmt.Sprintf("calibrate %s (%s): %v: got %d coefficients, want %d",
			e.ChannelID, e.FitType, e.Err, e.Count, e.Want)
	}
	return fmt.Sprintf("calibrate %s (%s, %d coefficients): %v", e.ChannelID, e.FitType, e.Count, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
