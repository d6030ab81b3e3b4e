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

package layers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// CTDLayerNum identifies the layer
	CTDLayerNum = 2012
	// CTDSampleLayout is the date and time layout of an SBE data sample
	CTDSampleLayout = "02 Jan 2006 15:04:05"

	ctdSampleFields = 6
)

var ctdFieldNames = []string{
	"temperature", "conductivity", "pressure", "salinity", "sample_date", "sample_time",
}

var crlf = []byte{'\r', '\n'}

// CTDLayer is a Sea-Bird data sample relayed by the logger
type CTDLayer struct {
	layers.BaseLayer
	Header Header
	// Sample is the ASCII sample without the terminator
	Sample       string
	Temperature  float64
	Conductivity float64
	Pressure     float64
	Salinity     float64
	// SampleDate is 'dd Mon yyyy'
	SampleDate string
	// SampleClock is 'HH:MM:SS'
	SampleClock string
	Terminator  uint16
	Logger      LoggerTimestamp
}

var CTDLayerType = gopacket.RegisterLayerType(CTDLayerNum,
	gopacket.LayerTypeMetadata{
		Name:    "CTD",
		Decoder: gopacket.DecodeFunc(decodeCTDLayer),
	},
)

// ctdSpan finds the terminator of the sample, the logger timestamp follows it
func ctdSpan(data []byte, maxSize int) (int, error) {
	window := data
	if len(window) > maxSize {
		window = window[:maxSize]
	}
	if len(window) > HeaderLength {
		if i := bytes.Index(window[HeaderLength:], crlf); i >= 0 {
			span := HeaderLength + i + len(crlf) + TimestampLength
			if span > maxSize {
				return 0, fmt.Errorf("%w: CTD frame length %d exceeds maximum frame size %d", ErrMalformedFrame, span, maxSize)
			}
			return span, nil
		}
	}
	if len(data) >= maxSize {
		return 0, fmt.Errorf("%w: no CTD terminator within %d bytes", ErrMalformedFrame, maxSize)
	}
	return 0, fmt.Errorf("%w: CTD terminator not received yet", ErrIncompleteFrame)
}

func (c *CTDLayer) LayerType() gopacket.LayerType {
	return CTDLayerType
}

func (c *CTDLayer) CanDecode() gopacket.LayerClass {
	return CTDLayerType
}

func (c *CTDLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (c *CTDLayer) FrameType() FrameType {
	return FrameTypeCTD
}

func (c *CTDLayer) FrameHeader() Header {
	return c.Header
}

func (c *CTDLayer) LoggerTime() LoggerTimestamp {
	return c.Logger
}

// SampleTime parses the SBE clock, which runs in the instrument zone loc
func (c *CTDLayer) SampleTime(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(CTDSampleLayout, c.SampleDate+" "+c.SampleClock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return t, nil
}

func (c *CTDLayer) Validation() uint16 {
	return c.Terminator
}

func (c *CTDLayer) Fields() Fields {
	return Fields{
		{Name: "temperature", Value: c.Temperature},
		{Name: "conductivity", Value: c.Conductivity},
		{Name: "pressure", Value: c.Pressure},
		{Name: "salinity", Value: c.Salinity},
		{Name: "sample_date", Value: c.SampleDate},
		{Name: "sample_time", Value: c.SampleClock},
	}
}

// FormatSample renders the numeric fields and sample clock the way the SBE writes them
func (c *CTDLayer) FormatSample() string {
	return fmt.Sprintf(" %.4f, %.5f, %.3f, %.4f, %s, %s",
		c.Temperature, c.Conductivity, c.Pressure, c.Salinity, c.SampleDate, c.SampleClock)
}

// SerializeTo writes the frame into the SerializeBuffer, the sample is rendered from the fields.
// With ComputeChecksums set the terminator is always '\r\n'.
func (c *CTDLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	sample := c.FormatSample()
	buf, err := b.PrependBytes(HeaderLength + len(sample) + len(crlf) + TimestampLength)
	if err != nil {
		return err
	}
	header := c.Header
	if header.ID == "" {
		header.ID = CTDFrameID
	}
	if err := header.Serialize(buf); err != nil {
		return err
	}
	copy(buf[HeaderLength:], sample)
	if opts.ComputeChecksums {
		c.Terminator = TerminatorWord
	}
	end := HeaderLength + len(sample)
	binary.BigEndian.PutUint16(buf[end:end+2], c.Terminator)
	c.Logger.Serialize(buf[end+2:])
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a CTD frame
func (c *CTDLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	header, err := DecodeHeader(data)
	if err != nil {
		df.SetTruncated()
		return err
	}
	if header.ID != CTDFrameID {
		return fmt.Errorf("%w: %q is not a CTD frame", ErrUnknownFrameType, header.String())
	}
	span, err := ctdSpan(data, len(data)+1)
	if err != nil {
		df.SetTruncated()
		return err
	}
	if len(data) < span {
		df.SetTruncated()
		return fmt.Errorf("%w: CTD frame needs %d bytes, got %d", ErrIncompleteFrame, span, len(data))
	}
	end := span - TimestampLength - len(crlf)
	if err := c.parseSample(string(data[HeaderLength:end])); err != nil {
		return err
	}

	c.BaseLayer = layers.BaseLayer{
		Contents: data[:span],
		Payload:  data[span:],
	}
	c.Header = header
	c.Terminator = binary.BigEndian.Uint16(data[end : end+2])
	c.Logger = DecodeLoggerTimestamp(data[end+2 : span])
	return nil
}

// parseSample accepts only data samples, command echoes and prompts are malformed
func (c *CTDLayer) parseSample(sample string) error {
	for _, r := range sample {
		if r < ' ' || r > '~' {
			return fmt.Errorf("%w: CTD sample contains non printable byte 0x%02x", ErrMalformedFrame, r)
		}
	}
	parts := strings.Split(sample, ",")
	if len(parts) != ctdSampleFields {
		return fmt.Errorf("%w: CTD sample %q has %d fields, want %d", ErrMalformedFrame, sample, len(parts), ctdSampleFields)
	}
	var values [4]float64
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return fmt.Errorf("%w: CTD sample field %s: %v", ErrMalformedFrame, ctdFieldNames[i], err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: CTD sample field %s is %v", ErrMalformedFrame, ctdFieldNames[i], v)
		}
		values[i] = v
	}
	date := strings.TrimSpace(parts[4])
	clock := strings.TrimSpace(parts[5])
	if _, err := time.Parse(CTDSampleLayout, date+" "+clock); err != nil {
		return fmt.Errorf("%w: CTD sample time %q: %v", ErrMalformedFrame, date+" "+clock, err)
	}
	c.Sample = sample
	c.Temperature, c.Conductivity, c.Pressure, c.Salinity = values[0], values[1], values[2], values[3]
	c.SampleDate = date
	c.SampleClock = clock
	return nil
}

func decodeCTDLayer(data []byte, p gopacket.PacketBuilder) error {
	return decodeFrameLayer(&CTDLayer{}, data, p)
}
