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

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"soest.hawaii.edu/hioos/go-storx/pkg/codec"
	"soest.hawaii.edu/hioos/go-storx/pkg/config"
	"soest.hawaii.edu/hioos/go-storx/pkg/log"
	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
	"soest.hawaii.edu/hioos/go-storx/pkg/srv"
	"soest.hawaii.edu/hioos/go-storx/pkg/store"
)

// NewProcessor loads the calibrations of the configured instruments
func NewProcessor(cfg *config.Config) (*pipeline.Processor, error) {
	instruments, err := cfg.LoadInstruments()
	if err != nil {
		return nil, err
	}
	return pipeline.NewProcessor(instruments), nil
}

// StartApiServer serves the decode and record API until ctx is done
func StartApiServer(ctx context.Context, cfg *config.Config) error {
	processor, err := NewProcessor(cfg)
	if err != nil {
		return err
	}
	opts, err := cfg.DecoderOptions()
	if err != nil {
		return err
	}
	var st *store.Store
	if cfg.DBPath != "" {
		st, err = store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}
	return srv.NewApiServer(ctx, cfg.ApiAddress(), processor, st, opts).Run()
}

// DecodeSummary counts the outcome of a local decode
type DecodeSummary struct {
	Records int
	Skipped int
	Failed  int
}

// DecodeFiles decodes files concurrently, one stream per file. Every record is passed
// to emit and stored when st is not nil. Skipped frames are logged.
func DecodeFiles(ctx context.Context, cfg *config.Config, paths []string, st *store.Store, emit func(*pipeline.Record) error) (DecodeSummary, error) {
	var summary DecodeSummary
	processor, err := NewProcessor(cfg)
	if err != nil {
		return summary, err
	}
	opts, err := cfg.DecoderOptions()
	if err != nil {
		return summary, err
	}

	streams := make([]pipeline.Stream, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return summary, err
		}
		defer f.Close()
		streams = append(streams, pipeline.Stream{Name: path, Reader: f})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var firstErr error
	for result := range processor.Run(ctx, streams, opts) {
		if result.Err != nil {
			var fe *codec.FrameError
			if errors.As(result.Err, &fe) {
				summary.Skipped++
				log.Debug("%s: %s", result.Stream, result.Err)
				continue
			}
			summary.Failed++
			log.Error("%s: %s", result.Stream, result.Err)
			continue
		}
		if firstErr != nil {
			continue
		}
		summary.Records++
		if st != nil {
			if err := st.Put(result.Record); err != nil {
				firstErr = err
				cancel()
				continue
			}
		}
		if err := emit(result.Record); err != nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr == nil && summary.Failed > 0 {
		firstErr = fmt.Errorf("%d of %d streams failed", summary.Failed, len(streams))
	}
	return summary, firstErr
}
