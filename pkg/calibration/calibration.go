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
)

// Calibration converts the raw values of one channel to engineering units
type Calibration struct {
	ChannelID string `json:"channelId"`
	// SensorType is the sensor type of an instrument file definition
	SensorType   string    `json:"sensorType,omitempty"`
	Units        string    `json:"units"`
	FitType      FitType   `json:"fitType"`
	Coefficients []float64 `json:"coefficients"`
	// Declared is the coefficient count the loader read for the channel
	Declared int  `json:"declared"`
	Immersed bool `json:"immersed"`
	// FieldLength is the field length in bytes, 0 for variable length fields
	FieldLength int    `json:"fieldLength,omitempty"`
	DataType    string `json:"dataType,omitempty"`
}

func (c *Calibration) String() string {
	return fmt.Sprintf("%s %s %v '%s'", c.ChannelID, c.FitType, c.Coefficients, c.Units)
}

// Set is an ordered collection of calibrations keyed by channel id.
// A Set is never modified after construction and can be shared between goroutines.
type Set struct {
	order []string
	byID  map[string]*Calibration
}

// NewSet builds a set, channel ids must be unique
func NewSet(calibrations ...*Calibration) (*Set, error) {
	s := &Set{
		order: make([]string, 0, len(calibrations)),
		byID:  make(map[string]*Calibration, len(calibrations)),
	}
	for _, c := range calibrations {
		if err := s.add(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(c *Calibration) error {
	if c.ChannelID == "" {
		return fmt.Errorf("%w: empty channel id", ErrMalformedCalibration)
	}
	if _, ok := s.byID[c.ChannelID]; ok {
		return fmt.Errorf("%w: duplicate channel %s", ErrMalformedCalibration, c.ChannelID)
	}
	s.order = append(s.order, c.ChannelID)
	s.byID[c.ChannelID] = c
	return nil
}

// Get returns the calibration of a channel
func (s *Set) Get(channelID string) (*Calibration, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.byID[channelID]
	return c, ok
}

// Channels returns the channel ids in file order
func (s *Set) Channels() []string {
	if s == nil {
		return nil
	}
	channels := make([]string, len(s.order))
	copy(channels, s.order)
	return channels
}

// Calibrations returns the calibrations in file order
func (s *Set) Calibrations() []*Calibration {
	if s == nil {
		return nil
	}
	calibrations := make([]*Calibration, 0, len(s.order))
	for _, id := range s.order {
		calibrations = append(calibrations, s.byID[id])
	}
	return calibrations
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
