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

package pipeline

import (
	"strings"
	"time"

	"soest.hawaii.edu/hioos/go-storx/pkg/calibration"
	"soest.hawaii.edu/hioos/go-storx/pkg/codec"
	"soest.hawaii.edu/hioos/go-storx/pkg/layers"
)

// Instrument binds a serial number to the calibrations of the instrument
type Instrument struct {
	Serial string
	Set    *calibration.Set
	// Immersed marks the instrument as deployed in water, every channel is evaluated immersed
	Immersed bool
	// IntegrationTime is the working value of OPTIC3 channels
	IntegrationTime float64
}

// ChannelValue is a calibrated channel of a record
type ChannelValue struct {
	Channel      string   `json:"channel"`
	Raw          float64  `json:"raw"`
	Value        *float64 `json:"value,omitempty"`
	Units        string   `json:"units"`
	Uncalibrated bool     `json:"uncalibrated,omitempty"`
	// Error is set when the calibration failed, Value is nil then
	Error string `json:"error,omitempty"`
}

// Record is a decoded frame with its calibrated channels
type Record struct {
	Source     string         `json:"source"`
	Serial     string         `json:"serial"`
	Header     string         `json:"header"`
	Type       string         `json:"type"`
	Offset     int64          `json:"offset"`
	Timestamp  time.Time      `json:"timestamp"`
	LoggerTime time.Time      `json:"loggerTime"`
	Checksum   uint16         `json:"checksum"`
	Fields     []layers.Field `json:"fields"`
	Values     []ChannelValue `json:"values,omitempty"`
}

// Value returns the calibrated channel, compared case insensitively
func (r *Record) Value(channel string) (ChannelValue, bool) {
	for _, v := range r.Values {
		if strings.EqualFold(v.Channel, channel) {
			return v, true
		}
	}
	return ChannelValue{}, false
}

// Processor calibrates frames with the calibrations of their instrument
type Processor struct {
	instruments map[string]Instrument
}

func NewProcessor(instruments map[string]Instrument) *Processor {
	p := &Processor{
		instruments: make(map[string]Instrument, len(instruments)),
	}
	for serial, inst := range instruments {
		p.instruments[serial] = inst
	}
	return p
}

// Instrument returns the instrument registered for a serial number
func (p *Processor) Instrument(serial string) (Instrument, bool) {
	inst, ok := p.instruments[serial]
	return inst, ok
}

// Process builds the record of a frame. Each calibration of the frame's instrument
// naming a frame field is applied in set order; a failed channel carries the error
// and the remaining channels are still evaluated.
func (p *Processor) Process(source string, f *codec.Frame) *Record {
	rec := &Record{
		Source:     source,
		Serial:     f.SerialNumber,
		Header:     f.Header,
		Type:       f.Type.String(),
		Offset:     f.Offset,
		Timestamp:  f.Timestamp,
		LoggerTime: f.LoggerTime,
		Checksum:   f.Checksum,
		Fields:     f.Fields,
	}
	inst, ok := p.instruments[f.SerialNumber]
	if !ok || inst.Set == nil {
		return rec
	}

	sample := calibration.Sample{
		Immersed:        inst.Immersed,
		IntegrationTime: inst.IntegrationTime,
	}
	for _, c := range inst.Set.Calibrations() {
		field, ok := f.Field(c.ChannelID)
		if !ok {
			continue
		}
		v := ChannelValue{
			Channel: c.ChannelID,
			Units:   c.Units,
		}
		raw, ok := field.Float()
		if !ok {
			v.Error = "field " + field.Name + " is not numeric"
			rec.Values = append(rec.Values, v)
			continue
		}
		v.Raw = raw
		s := sample
		s.Raw = raw
		s.Immersed = s.Immersed || c.Immersed
		result, err := calibration.ApplySample(s, c)
		if err != nil {
			v.Error = err.Error()
		} else {
			value := result.Value
			v.Value = &value
			v.Uncalibrated = result.Uncalibrated
		}
		rec.Values = append(rec.Values, v)
	}
	return rec
}
