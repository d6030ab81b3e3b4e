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
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"soest.hawaii.edu/hioos/go-storx/pkg/log"
)

const (
	// StorXLayerNum identifies the layer
	StorXLayerNum = 2010
	// StorXFrameLength is header(10) + analog channels(14) + internal voltage(2) + terminator(2) + timestamp(7)
	StorXFrameLength = 35
	// StorXAnalogChannels is the number of analog inputs sampled by the logger
	StorXAnalogChannels = 7
)

var storXFieldNames = []string{
	"analog_1", "analog_2", "analog_3", "analog_4", "analog_5", "analog_6", "analog_7",
	"internal_voltage",
}

// StorXLayer is the engineering frame the StorX logger writes about itself
type StorXLayer struct {
	layers.BaseLayer
	Header          Header
	Analog          [StorXAnalogChannels]uint16
	InternalVoltage uint16
	Terminator      uint16
	Logger          LoggerTimestamp
}

var StorXLayerType = gopacket.RegisterLayerType(StorXLayerNum,
	gopacket.LayerTypeMetadata{
		Name:    "StorX",
		Decoder: gopacket.DecodeFunc(decodeStorXLayer),
	},
)

func (s *StorXLayer) LayerType() gopacket.LayerType {
	return StorXLayerType
}

func (s *StorXLayer) CanDecode() gopacket.LayerClass {
	return StorXLayerType
}

func (s *StorXLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (s *StorXLayer) FrameType() FrameType {
	return FrameTypeStorX
}

func (s *StorXLayer) FrameHeader() Header {
	return s.Header
}

func (s *StorXLayer) LoggerTime() LoggerTimestamp {
	return s.Logger
}

// SampleTime of a StorX frame is the logger timestamp
func (s *StorXLayer) SampleTime(loc *time.Location) (time.Time, error) {
	return s.Logger.Time(loc)
}

func (s *StorXLayer) Validation() uint16 {
	return s.Terminator
}

func (s *StorXLayer) Fields() Fields {
	fields := make(Fields, 0, len(storXFieldNames))
	for i, v := range s.Analog {
		fields = append(fields, Field{Name: storXFieldNames[i], Value: v})
	}
	return append(fields, Field{Name: "internal_voltage", Value: s.InternalVoltage})
}

// SerializeTo writes the frame into the SerializeBuffer.
// With ComputeChecksums set the terminator is always '\r\n'.
func (s *StorXLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	buf, err := b.PrependBytes(StorXFrameLength)
	if err != nil {
		return err
	}
	header := s.Header
	if header.ID == "" {
		header.ID = StorXFrameID
	}
	if err := header.Serialize(buf); err != nil {
		return err
	}
	for i, v := range s.Analog {
		binary.BigEndian.PutUint16(buf[10+2*i:12+2*i], v)
	}
	binary.BigEndian.PutUint16(buf[24:26], s.InternalVoltage)
	if opts.ComputeChecksums {
		s.Terminator = TerminatorWord
	}
	binary.BigEndian.PutUint16(buf[26:28], s.Terminator)
	s.Logger.Serialize(buf[28:35])
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a StorX frame
func (s *StorXLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < StorXFrameLength {
		df.SetTruncated()
		return fmt.Errorf("%w: StorX frame needs %d bytes, got %d", ErrIncompleteFrame, StorXFrameLength, len(data))
	}
	header, err := DecodeHeader(data)
	if err != nil {
		return err
	}
	if header.ID != StorXFrameID {
		return fmt.Errorf("%w: %q is not a StorX frame", ErrUnknownFrameType, header.String())
	}
	terminator := binary.BigEndian.Uint16(data[26:28])
	if terminator != TerminatorWord {
		log.Debug("StorX frame %s: bad terminator 0x%04x", header.Serial, terminator)
		return fmt.Errorf("%w: StorX terminator 0x%04x, want 0x%04x", ErrChecksumMismatch, terminator, TerminatorWord)
	}

	s.BaseLayer = layers.BaseLayer{
		Contents: data[:StorXFrameLength],
		Payload:  data[StorXFrameLength:],
	}
	s.Header = header
	for i := range s.Analog {
		s.Analog[i] = binary.BigEndian.Uint16(data[10+2*i : 12+2*i])
	}
	s.InternalVoltage = binary.BigEndian.Uint16(data[24:26])
	s.Terminator = terminator
	s.Logger = DecodeLoggerTimestamp(data[28:35])
	return nil
}

func decodeStorXLayer(data []byte, p gopacket.PacketBuilder) error {
	return decodeFrameLayer(&StorXLayer{}, data, p)
}
