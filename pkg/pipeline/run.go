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
	"context"
	"errors"
	"io"
	"sync"

	"soest.hawaii.edu/hioos/go-storx/pkg/codec"
	"soest.hawaii.edu/hioos/go-storx/pkg/log"
)

const resultChSize = 100

// Stream is a named byte source, typically one logger
type Stream struct {
	Name   string
	Reader io.Reader
}

// Result is a record or the error of a skipped frame or a failed stream
type Result struct {
	Stream string
	Record *Record
	Err    error
}

// Run decodes every stream on its own goroutine with its own decoder.
// The returned channel is closed when all streams are exhausted or ctx is done.
// A stream blocked in Read is only abandoned once its reader returns.
func (p *Processor) Run(ctx context.Context, streams []Stream, opts codec.Options) <-chan Result {
	out := make(chan Result, resultChSize)
	var wg sync.WaitGroup
	for _, s := range streams {
		wg.Add(1)
		go func(s Stream) {
			defer wg.Done()
			p.runStream(ctx, s, opts, out)
		}(s)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (p *Processor) runStream(ctx context.Context, s Stream, opts codec.Options, out chan<- Result) {
	log.Info("Decoding stream %s", s.Name)
	send := func(r Result) bool {
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}
	reader := codec.NewReader(s.Reader, opts)
	records, skipped := 0, 0
	for ctx.Err() == nil {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var fe *codec.FrameError
		if errors.As(err, &fe) {
			skipped++
			if !send(Result{Stream: s.Name, Err: err}) {
				break
			}
			continue
		}
		if err != nil {
			log.Error("Stream %s: %s", s.Name, err)
			send(Result{Stream: s.Name, Err: err})
			break
		}
		records++
		if !send(Result{Stream: s.Name, Record: p.Process(s.Name, frame)}) {
			break
		}
	}
	log.Info("Stream %s done: %d records, %d skipped frames", s.Name, records, skipped)
}
