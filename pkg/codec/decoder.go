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
	"bytes"
	"errors"
	"io"

	"github.com/google/gopacket"

	"soest.hawaii.edu/hioos/go-storx/pkg/layers"
	"soest.hawaii.edu/hioos/go-storx/pkg/log"
)

// State of the Decoder state machine
type State uint8

const (
	StateScanning State = iota
	StateHeaderMatched
	StateBodyBuffering
	StateValidated
	StateChecksumFailed
	StateIncomplete
)

var stateNames = map[State]string{
	StateScanning:       "Scanning",
	StateHeaderMatched:  "HeaderMatched",
	StateBodyBuffering:  "BodyBuffering",
	StateValidated:      "Validated",
	StateChecksumFailed: "ChecksumFailed",
	StateIncomplete:     "Incomplete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

var syncPrefix = []byte(layers.SyncPrefix)

// Decoder splits a byte stream into frames.
// Bytes are added with Write and frames are pulled with Next.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	opts   Options
	buf    []byte
	pos    int
	base   int64 // stream offset of buf[pos]
	closed bool
	state  State
}

// NewDecoder ...
func NewDecoder(opts Options) *Decoder {
	return &Decoder{
		opts:  opts.withDefaults(),
		state: StateScanning,
	}
}

// Write appends stream bytes. It fails only after Close.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.closed {
		return 0, errors.New("write to closed decoder")
	}
	if d.pos > 0 {
		n := copy(d.buf, d.buf[d.pos:])
		d.buf = d.buf[:n]
		d.pos = 0
	}
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Close marks the end of input. Pending partial frames are reported and skipped
// instead of awaited, once nothing is left Next returns io.EOF.
func (d *Decoder) Close() error {
	d.closed = true
	return nil
}

// State returns the state the last call to Next left the decoder in
func (d *Decoder) State() State {
	return d.state
}

// Buffered returns the number of unconsumed bytes
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.pos
}

// Offset returns the stream offset of the scan cursor
func (d *Decoder) Offset() int64 {
	return d.base
}

func (d *Decoder) discard(n int) {
	d.pos += n
	d.base += int64(n)
	if d.pos == len(d.buf) {
		d.buf = d.buf[:0]
		d.pos = 0
	}
}

// Next returns the next valid frame.
// A bare ErrIncompleteFrame means more bytes must be written; the pending header stays buffered.
// A *FrameError means a frame was discarded; scanning resumes one byte after its header start.
// io.EOF is returned after Close when no header is left.
func (d *Decoder) Next() (*Frame, error) {
	d.state = StateScanning
	data := d.buf[d.pos:]
	i := bytes.Index(data, syncPrefix)
	if i < 0 {
		if d.closed {
			d.discard(len(data))
			return nil, io.EOF
		}
		// a sync prefix may be split across writes
		if keep := len(syncPrefix) - 1; len(data) > keep {
			d.discard(len(data) - keep)
		}
		return nil, ErrIncompleteFrame
	}
	d.discard(i)
	data = d.buf[d.pos:]

	d.state = StateHeaderMatched
	if len(data) < layers.HeaderLength {
		return nil, d.incomplete("")
	}
	header, err := layers.DecodeHeader(data)
	if err != nil {
		return nil, d.reject(header.String(), err)
	}
	t := header.FrameType()
	if t == layers.FrameTypeUnknown {
		return nil, d.reject(header.String(), ErrUnknownFrameType)
	}

	d.state = StateBodyBuffering
	span, err := t.Span(data, d.opts.MaxFrameSize)
	if errors.Is(err, ErrIncompleteFrame) {
		return nil, d.incomplete(header.String())
	}
	if err != nil {
		return nil, d.reject(header.String(), err)
	}
	if len(data) < span {
		return nil, d.incomplete(header.String())
	}

	raw := make([]byte, span)
	copy(raw, data[:span])
	l := t.NewLayer()
	if err := l.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		if errors.Is(err, ErrChecksumMismatch) {
			d.state = StateChecksumFailed
		}
		return nil, d.reject(header.String(), err)
	}
	frame, err := newFrame(l, d.base, d.opts.Location)
	if err != nil {
		return nil, d.reject(header.String(), err)
	}
	d.state = StateValidated
	d.discard(span)
	return frame, nil
}

// incomplete waits for more bytes, or gives the pending header up when the input is closed
func (d *Decoder) incomplete(header string) error {
	if !d.closed {
		return ErrIncompleteFrame
	}
	d.state = StateIncomplete
	return d.reject(header, ErrIncompleteFrame)
}

func (d *Decoder) reject(header string, err error) error {
	fe := &FrameError{
		Offset: d.base,
		Header: header,
		Err:    err,
	}
	log.Debug("Skip %s", fe)
	d.discard(1)
	return fe
}

// NeedMore reports whether err asks for more input rather than reporting a skipped frame
func NeedMore(err error) bool {
	var fe *FrameError
	return errors.Is(err, ErrIncompleteFrame) && !errors.As(err, &fe)
}

// Decode decodes a whole buffer, collecting frames and the errors of discarded frames
func Decode(data []byte, opts Options) ([]*Frame, []error) {
	d := NewDecoder(opts)
	// the decoder is not closed yet, Write can not fail
	_, _ = d.Write(data)
	_ = d.Close()
	var frames []*Frame
	var errs []error
	for {
		frame, err := d.Next()
		if err == io.EOF {
			return frames, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frames = append(frames, frame)
	}
}
