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
	"fmt"
	"time"

	"github.com/google/gopacket"
)

const (
	// SyncPrefix starts every frame written by a Satlantic instrument or logger
	SyncPrefix = "SAT"
	// HeaderLength is 'SAT' + three characters of frame id + four characters of serial number
	HeaderLength = 10
	// FrameIDLength is the length of the frame id following the sync prefix
	FrameIDLength = 3
	// SerialLength is the length of the instrument serial number
	SerialLength = 4
	// TerminatorWord is the '\r\n' pair closing StorX and CTD frames
	TerminatorWord = 0x0d0a
	// DefaultMaxFrameSize bounds a single frame, sized to the largest known layout
	DefaultMaxFrameSize = 1024
)

const (
	StorXFrameID     = "STX"
	ISUSLightFrameID = "NLB"
	ISUSDarkFrameID  = "NDB"
	CTDFrameID       = "SBE"
)

// FrameType identifies the layout of a frame, selected by the frame id in its header
type FrameType uint8

const (
	FrameTypeUnknown FrameType = iota
	FrameTypeStorX
	FrameTypeISUSLight
	FrameTypeISUSDark
	FrameTypeCTD
)

// FrameLayer is implemented by every frame variant
type FrameLayer interface {
	gopacket.DecodingLayer
	gopacket.SerializableLayer
	LayerContents() []byte
	FrameType() FrameType
	FrameHeader() Header
	// Fields returns the raw values in layout order
	Fields() Fields
	// LoggerTime returns the timestamp appended by the StorX logger
	LoggerTime() LoggerTimestamp
	// SampleTime returns the instant the sample was taken, in loc
	SampleTime(loc *time.Location) (time.Time, error)
	// Validation returns the checksum or terminator word carried by the frame
	Validation() uint16
}

type frameTypeMetadata struct {
	ID        string
	Name      string
	LayerType gopacket.LayerType
	Fields    []string
	New       func() FrameLayer
	// Span returns the total length of a frame starting at data[0]
	Span func(data []byte, maxSize int) (int, error)
}

var frameTypeMetadatas = map[FrameType]*frameTypeMetadata{}

func init() {
	frameTypeMetadatas[FrameTypeStorX] = &frameTypeMetadata{
		ID:        StorXFrameID,
		Name:      "StorX",
		LayerType: StorXLayerType,
		Fields:    storXFieldNames,
		New:       func() FrameLayer { return &StorXLayer{} },
		Span:      fixedSpan(StorXFrameLength),
	}
	frameTypeMetadatas[FrameTypeISUSLight] = &frameTypeMetadata{
		ID:        ISUSLightFrameID,
		Name:      "ISUSLight",
		LayerType: ISUSLayerType,
		Fields:    isusFieldNames,
		New:       func() FrameLayer { return &ISUSLayer{} },
		Span:      fixedSpan(ISUSFrameLength),
	}
	frameTypeMetadatas[FrameTypeISUSDark] = &frameTypeMetadata{
		ID:        ISUSDarkFrameID,
		Name:      "ISUSDark",
		LayerType: ISUSLayerType,
		Fields:    isusFieldNames,
		New:       func() FrameLayer { return &ISUSLayer{} },
		Span:      fixedSpan(ISUSFrameLength),
	}
	frameTypeMetadatas[FrameTypeCTD] = &frameTypeMetadata{
		ID:        CTDFrameID,
		Name:      "CTD",
		LayerType: CTDLayerType,
		Fields:    ctdFieldNames,
		New:       func() FrameLayer { return &CTDLayer{} },
		Span:      ctdSpan,
	}
}

func fixedSpan(length int) func([]byte, int) (int, error) {
	return func(data []byte, maxSize int) (int, error) {
		if length > maxSize {
			return 0, fmt.Errorf("%w: frame length %d exceeds maximum frame size %d", ErrMalformedFrame, length, maxSize)
		}
		return length, nil
	}
}

// FrameTypeByID returns the frame type registered for a three character frame id
func FrameTypeByID(id string) FrameType {
	for t, meta := range frameTypeMetadatas {
		if meta.ID == id {
			return t
		}
	}
	return FrameTypeUnknown
}

// FrameTypes returns all registered frame types
func FrameTypes() []FrameType {
	return []FrameType{FrameTypeStorX, FrameTypeISUSLight, FrameTypeISUSDark, FrameTypeCTD}
}

func (t FrameType) String() string {
	if meta, ok := frameTypeMetadatas[t]; ok {
		return meta.Name
	}
	return "Unknown"
}

// ID returns the frame id written after the sync prefix
func (t FrameType) ID() string {
	if meta, ok := frameTypeMetadatas[t]; ok {
		return meta.ID
	}
	return ""
}

// LayerType returns the gopacket layer type decoding this frame type
func (t FrameType) LayerType() gopacket.LayerType {
	if meta, ok := frameTypeMetadatas[t]; ok {
		return meta.LayerType
	}
	return gopacket.LayerTypeZero
}

// NewLayer returns an empty layer for the frame type, nil for unknown types
func (t FrameType) NewLayer() FrameLayer {
	if meta, ok := frameTypeMetadatas[t]; ok {
		return meta.New()
	}
	return nil
}

// Span returns the total length in bytes of the frame starting at data[0].
// data must start with the header. ErrIncompleteFrame is returned when the length
// can not be determined yet from the available bytes.
func (t FrameType) Span(data []byte, maxSize int) (int, error) {
	meta, ok := frameTypeMetadatas[t]
	if !ok {
		return 0, ErrUnknownFrameType
	}
	return meta.Span(data, maxSize)
}

// FieldNames returns the field names of the frame type layout in order
func FieldNames(t FrameType) []string {
	meta, ok := frameTypeMetadatas[t]
	if !ok {
		return nil
	}
	names := make([]string, len(meta.Fields))
	copy(names, meta.Fields)
	return names
}

// Decode calls the decoder of the registered layer type
func (t FrameType) Decode(data []byte, p gopacket.PacketBuilder) error {
	meta, ok := frameTypeMetadatas[t]
	if !ok {
		return ErrUnknownFrameType
	}
	return meta.LayerType.Decode(data, p)
}

// Header is the synchronization token at the start of each frame
type Header struct {
	ID     string
	Serial string
}

func (h Header) String() string {
	return SyncPrefix + h.ID + h.Serial
}

// FrameType returns the frame type selected by the header id
func (h Header) FrameType() FrameType {
	return FrameTypeByID(h.ID)
}

// Serialize writes the header into the first HeaderLength bytes of buf
func (h Header) Serialize(buf []byte) error {
	if len(h.ID) != FrameIDLength || len(h.Serial) != SerialLength {
		return fmt.Errorf("%w: header %q must be %d characters", ErrMalformedFrame, h.String(), HeaderLength)
	}
	copy(buf[0:3], SyncPrefix)
	copy(buf[3:6], h.ID)
	copy(buf[6:10], h.Serial)
	return nil
}

// DecodeHeader reads the header at the start of data
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderLength {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrIncompleteFrame, HeaderLength, len(data))
	}
	if !bytes.HasPrefix(data, []byte(SyncPrefix)) {
		return Header{}, fmt.Errorf("%w: missing %q sync prefix", ErrMalformedFrame, SyncPrefix)
	}
	return Header{
		ID:     string(data[3:6]),
		Serial: string(data[6:10]),
	}, nil
}

// SATDecoder decodes a frame of any registered type, dispatching on the header id
var SATDecoder = gopacket.DecodeFunc(decodeSAT)

func decodeSAT(data []byte, p gopacket.PacketBuilder) error {
	header, err := DecodeHeader(data)
	if err != nil {
		p.SetTruncated()
		return err
	}
	t := header.FrameType()
	if t == FrameTypeUnknown {
		return fmt.Errorf("%w: %q", ErrUnknownFrameType, header.String())
	}
	return t.Decode(data, p)
}

// decodeFrameLayer is the common body of the registered layer decoders
func decodeFrameLayer(l FrameLayer, data []byte, p gopacket.PacketBuilder) error {
	if err := l.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(l)
	return nil
}
