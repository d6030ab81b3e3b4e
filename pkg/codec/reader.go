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
	"errors"
	"io"
)

const readChunkSize = 4096

// Reader decodes frames from an io.Reader, reading as needed
type Reader struct {
	r       io.Reader
	decoder *Decoder
	chunk   []byte
	err     error
}

func NewReader(r io.Reader, opts Options) *Reader {
	return &Reader{
		r:       r,
		decoder: NewDecoder(opts),
		chunk:   make([]byte, readChunkSize),
	}
}

// Next returns the next frame, a *FrameError for a discarded frame,
// io.EOF at the end of the stream or the error of the underlying reader
func (r *Reader) Next() (*Frame, error) {
	for {
		frame, err := r.decoder.Next()
		if !NeedMore(err) {
			return frame, err
		}
		if r.err != nil {
			return nil, r.err
		}
		n, err := r.r.Read(r.chunk)
		if n > 0 {
			_, _ = r.decoder.Write(r.chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			_ = r.decoder.Close()
		} else if err != nil {
			r.err = err
		}
	}
}

// ReadAll decodes the whole stream. Discarded frames are collected in the second
// return value, the error is set only when the underlying reader fails.
func (r *Reader) ReadAll() ([]*Frame, []error, error) {
	var frames []*Frame
	var skipped []error
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, skipped, nil
		}
		var fe *FrameError
		if errors.As(err, &fe) {
			skipped = append(skipped, err)
			continue
		}
		if err != nil {
			return frames, skipped, err
		}
		frames = append(frames, frame)
	}
}

// Decoder returns the underlying decoder
func (r *Reader) Decoder() *Decoder {
	return r.decoder
}
