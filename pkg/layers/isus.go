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
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"soest.hawaii.edu/hioos/go-storx/pkg/log"
)

const (
	// ISUSLayerNum identifies the layer
	ISUSLayerNum = 2011
	// ISUSFrameLength is header(10) + date(4) + time(8) + 17 fields(68) + spectrum(512) + checksum(1) + timestamp(7)
	ISUSFrameLength = 610
	// ISUSSpectrumLength is the number of spectrometer pixels reported in each frame
	ISUSSpectrumLength = 256

	isusFieldsOffset   = 22
	isusSpectrumOffset = 90
	isusChecksumOffset = 602
)

var isusFieldNames = []string{
	"sample_date", "sample_time",
	"nitrate", "aux1", "aux2", "aux3", "rms_error",
	"t_int", "t_spec", "t_lamp", "lamp_time",
	"humidity", "volt_12", "volt_5", "volt_main",
	"ref_avg", "ref_std", "sw_dark", "spec_avg",
	"spectrum",
}

// ISUSLayer is a light or dark frame of the ISUS optical nitrate sensor
type ISUSLayer struct {
	layers.BaseLayer
	Header Header
	// SampleDate is YYYYDDD in UTC
	SampleDate int32
	// SampleHours is fractional hours since UTC midnight
	SampleHours float64

	Nitrate                 float32
	Aux1                    float32
	Aux2                    float32
	Aux3                    float32
	RMSError                float32
	InsideTemperature       float32
	SpectrometerTemperature float32
	LampTemperature         float32
	// LampTime is the cumulative lamp on time in seconds
	LampTime            uint32
	Humidity            float32
	LampVoltage12       float32
	InternalVoltage5    float32
	MainPowerVoltage    float32
	ReferenceAverage    float32
	ReferenceVariance   float32
	SeaWaterDarkCounts  float32
	SpectrometerAverage float32

	Spectrum [ISUSSpectrumLength]uint16
	Checksum uint8
	Logger   LoggerTimestamp
}

var ISUSLayerType = gopacket.RegisterLayerType(ISUSLayerNum,
	gopacket.LayerTypeMetadata{
		Name:    "ISUS",
		Decoder: gopacket.DecodeFunc(decodeISUSLayer),
	},
)

// slots returns the 4 byte fields in layout order, nil marks the lamp time counter
func (l *ISUSLayer) slots() []*float32 {
	return []*float32{
		&l.Nitrate, &l.Aux1, &l.Aux2, &l.Aux3, &l.RMSError,
		&l.InsideTemperature, &l.SpectrometerTemperature, &l.LampTemperature,
		nil,
		&l.Humidity, &l.LampVoltage12, &l.InternalVoltage5, &l.MainPowerVoltage,
		&l.ReferenceAverage, &l.ReferenceVariance, &l.SeaWaterDarkCounts, &l.SpectrometerAverage,
	}
}

func (l *ISUSLayer) LayerType() gopacket.LayerType {
	return ISUSLayerType
}

func (l *ISUSLayer) CanDecode() gopacket.LayerClass {
	return ISUSLayerType
}

func (l *ISUSLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// Dark reports whether the frame was taken with the lamp shutter closed
func (l *ISUSLayer) Dark() bool {
	return l.Header.ID == ISUSDarkFrameID
}

func (l *ISUSLayer) FrameType() FrameType {
	if l.Dark() {
		return FrameTypeISUSDark
	}
	return FrameTypeISUSLight
}

func (l *ISUSLayer) FrameHeader() Header {
	return l.Header
}

func (l *ISUSLayer) LoggerTime() LoggerTimestamp {
	return l.Logger
}

// SampleTime returns the instrument clock reading, which is always UTC, presented in loc
func (l *ISUSLayer) SampleTime(loc *time.Location) (time.Time, error) {
	day, err := JulianDay(int(l.SampleDate), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := DecimalHours(l.SampleHours)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(offset).In(loc), nil
}

func (l *ISUSLayer) Validation() uint16 {
	return uint16(l.Checksum)
}

func (l *ISUSLayer) Fields() Fields {
	fields := make(Fields, 0, len(isusFieldNames))
	fields = append(fields,
		Field{Name: "sample_date", Value: l.SampleDate},
		Field{Name: "sample_time", Value: l.SampleHours},
	)
	for i, slot := range l.slots() {
		name := isusFieldNames[2+i]
		if slot == nil {
			fields = append(fields, Field{Name: name, Value: l.LampTime})
			continue
		}
		fields = append(fields, Field{Name: name, Value: *slot})
	}
	spectrum := make([]uint16, ISUSSpectrumLength)
	copy(spectrum, l.Spectrum[:])
	return append(fields, Field{Name: "spectrum", Value: spectrum})
}

// ISUSChecksum returns the byte that makes the sum of body and checksum zero modulo 256
func ISUSChecksum(body []byte) uint8 {
	var sum uint8
	for _, b := range body {
		sum += b
	}
	return -sum
}

// SerializeTo writes the frame into the SerializeBuffer.
// With ComputeChecksums set the checksum byte is recalculated and stored in the layer.
func (l *ISUSLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	buf, err := b.PrependBytes(ISUSFrameLength)
	if err != nil {
		return err
	}
	header := l.Header
	if header.ID == "" {
		header.ID = ISUSLightFrameID
	}
	if err := header.Serialize(buf); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(buf[10:14], uint32(l.SampleDate))
	binary.BigEndian.PutUint64(buf[14:22], math.Float64bits(l.SampleHours))
	for i, slot := range l.slots() {
		offset := isusFieldsOffset + 4*i
		if slot == nil {
			binary.BigEndian.PutUint32(buf[offset:offset+4], l.LampTime)
			continue
		}
		binary.BigEndian.PutUint32(buf[offset:offset+4], math.Float32bits(*slot))
	}
	for i, v := range l.Spectrum {
		offset := isusSpectrumOffset + 2*i
		binary.BigEndian.PutUint16(buf[offset:offset+2], v)
	}
	if opts.ComputeChecksums {
		l.Checksum = ISUSChecksum(buf[:isusChecksumOffset])
	}
	buf[isusChecksumOffset] = l.Checksum
	l.Logger.Serialize(buf[603:610])
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as an ISUS frame
func (l *ISUSLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < ISUSFrameLength {
		df.SetTruncated()
		return fmt.Errorf("%w: ISUS frame needs %d bytes, got %d", ErrIncompleteFrame, ISUSFrameLength, len(data))
	}
	header, err := DecodeHeader(data)
	if err != nil {
		return err
	}
	if header.ID != ISUSLightFrameID && header.ID != ISUSDarkFrameID {
		return fmt.Errorf("%w: %q is not an ISUS frame", ErrUnknownFrameType, header.String())
	}
	checksum := data[isusChecksumOffset]
	if want := ISUSChecksum(data[:isusChecksumOffset]); checksum != want {
		log.Debug("ISUS frame %s: checksum 0x%02x, want 0x%02x", header.Serial, checksum, want)
		return fmt.Errorf("%w: ISUS checksum 0x%02x, want 0x%02x", ErrChecksumMismatch, checksum, want)
	}

	if err := checkISUSFinite(data); err != nil {
		return err
	}

	l.BaseLayer = layers.BaseLayer{
		Contents: data[:ISUSFrameLength],
		Payload:  data[ISUSFrameLength:],
	}
	l.Header = header
	l.SampleDate = int32(binary.BigEndian.Uint32(data[10:14]))
	l.SampleHours = math.Float64frombits(binary.BigEndian.Uint64(data[14:22]))
	for i, slot := range l.slots() {
		offset := isusFieldsOffset + 4*i
		v := binary.BigEndian.Uint32(data[offset : offset+4])
		if slot == nil {
			l.LampTime = v
			continue
		}
		*slot = math.Float32frombits(v)
	}
	for i := range l.Spectrum {
		offset := isusSpectrumOffset + 2*i
		l.Spectrum[i] = binary.BigEndian.Uint16(data[offset : offset+2])
	}
	l.Checksum = checksum
	l.Logger = DecodeLoggerTimestamp(data[603:610])
	return nil
}

// checkISUSFinite rejects NaN and infinite wire floats
func checkISUSFinite(data []byte) error {
	hours := math.Float64frombits(binary.BigEndian.Uint64(data[14:22]))
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return fmt.Errorf("%w: ISUS field %s is %v", ErrMalformedFrame, isusFieldNames[1], hours)
	}
	for i, slot := range (&ISUSLayer{}).slots() {
		if slot == nil {
			continue
		}
		offset := isusFieldsOffset + 4*i
		v := float64(math.Float32frombits(binary.BigEndian.Uint32(data[offset : offset+4])))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: ISUS field %s is %v", ErrMalformedFrame, isusFieldNames[2+i], v)
		}
	}
	return nil
}

func decodeISUSLayer(data []byte, p gopacket.PacketBuilder) error {
	return decodeFrameLayer(&ISUSLayer{}, data, p)
}
