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

package codec

import (
	"fmt"
	"time"
	// Pacific/Honolulu has to resolve on hosts without a zoneinfo database
	_ "time/tzdata"

	"soest.hawaii.edu/hioos/go-storx/pkg/layers"
)

const (
	// DefaultTimeZone is the zone of the HIOOS moorings loggers
	DefaultTimeZone = "Pacific/Honolulu"
)

var (
	ErrIncompleteFrame  = layers.ErrIncompleteFrame
	ErrChecksumMismatch = layers.ErrChecksumMismatch
	ErrUnknownFrameType = layers.ErrUnknownFrameType
	ErrMalformedFrame   = layers.ErrMalformedFrame
)

// Options of a Decoder
type Options struct {
	// MaxFrameSize bounds the bytes buffered for a single frame
	MaxFrameSize int
	// Location is the zone timestamps are reported in, the logger clock runs in it
	Location *time.Location
}

// DefaultLocation returns the DefaultTimeZone location
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (o Options) withDefaults() Options {
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = layers.DefaultMaxFrameSize
	}
	if o.Location == nil {
		o.Location = DefaultLocation()
	}
	return o
}

// Frame is a decoded and validated frame
type Frame struct {
	// Header is 'SAT' + frame id + serial number
	Header       string
	Type         layers.FrameType
	SerialNumber string
	// Timestamp is the sample instant
	Timestamp time.Time
	// LoggerTime is the instant the StorX logger stored the frame
	LoggerTime time.Time
	Fields     layers.Fields
	// Checksum is the checksum byte or terminator word the frame carried.
	// Only ISUS frames carry a checksum over the body, a corrupted byte in a
	// StorX or CTD body still decodes as long as the terminator is intact.
	Checksum uint16
	Layer    layers.FrameLayer
	// Offset of the header in the stream
	Offset int64
}

// Field returns the raw value of the named field
func (f *Frame) Field(name string) (layers.Field, bool) {
	return f.Fields.Get(name)
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s %s at %d (%s)", f.Header, f.Type, f.Offset, f.Timestamp.Format(time.RFC3339Nano))
}

func newFrame(l layers.FrameLayer, offset int64, loc *time.Location) (*Frame, error) {
	loggerTime, err := l.LoggerTime().Time(loc)
	if err != nil {
		return nil, err
	}
	sampleTime, err := l.SampleTime(loc)
	if err != nil {
		return nil, err
	}
	header := l.FrameHeader()
	return &Frame{
		Header:       header.String(),
		Type:         l.FrameType(),
		SerialNumber: header.Serial,
		Timestamp:    sampleTime,
		LoggerTime:   loggerTime,
		Fields:       l.Fields(),
		Checksum:     l.Validation(),
		Layer:        l,
		Offset:       offset,
	}, nil
}

// FrameError reports a frame which was discarded
type FrameError struct {
	Offset int64
	Header string
	Err    error
}

func (e *FrameError) Error() string {
	if e.Header == "" {
		return fmt.Sprintf("frame at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("frame %q at offset %d: %v", e.Header, e.Offset, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
