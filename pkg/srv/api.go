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

package srv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"soest.hawaii.edu/hioos/go-storx/pkg/calibration"
	"soest.hawaii.edu/hioos/go-storx/pkg/codec"
	"soest.hawaii.edu/hioos/go-storx/pkg/log"
	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
	"soest.hawaii.edu/hioos/go-storx/pkg/store"
)

const (
	// MaxDecodeBody bounds the body of a decode request
	MaxDecodeBody   = 64 << 20
	DefaultSource   = "api"
	shutdownTimeout = 5 * time.Second
)

// DecodeResult is the response of a decode request
type DecodeResult struct {
	Records []*pipeline.Record `json:"records"`
	// Skipped holds the errors of discarded frames
	Skipped []string `json:"skipped"`
}

type ApiServer struct {
	context.Context
	*mux.Router
	Address   string
	processor *pipeline.Processor
	store     *store.Store
	opts      codec.Options
}

// NewApiServer returns the API server. st may be nil, records are not archived then.
func NewApiServer(ctx context.Context, address string, processor *pipeline.Processor, st *store.Store, opts codec.Options) *ApiServer {
	log.Info("Initializing API server with address: %s", address)
	s := &ApiServer{
		Context:   ctx,
		Address:   address,
		processor: processor,
		store:     st,
		opts:      opts,
	}
	s.configureRouter()
	return s
}

// Handler returns the router wrapped with request logging
func (s *ApiServer) Handler() http.Handler {
	return handlers.LoggingHandler(log.Writer(), s.Router)
}

// Run serves until the server context is done
func (s *ApiServer) Run() error {
	log.Debug("Starting API server: address: %s", s.Address)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Address,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-s.Context.Done():
		log.Info("Stopping API server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/decode", s.handleDecode()).Methods("POST")
	subRouter.HandleFunc("/records", s.handleSerials()).Methods("GET")
	subRouter.HandleFunc("/records/{serial}", s.handleRecords()).Methods("GET")
	subRouter.HandleFunc("/calibrations/{serial}", s.handleCalibrations()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Error while encoding response: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Error("Error while writing response: %s", err)
	}
}

func (s *ApiServer) handleDecode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := r.URL.Query().Get("source")
		if source == "" {
			source = DefaultSource
		}
		log.Debug("Handling decode request: source: %s", source)

		reader := codec.NewReader(http.MaxBytesReader(w, r.Body, MaxDecodeBody), s.opts)
		frames, skipped, err := reader.ReadAll()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := &DecodeResult{
			Records: make([]*pipeline.Record, 0, len(frames)),
			Skipped: make([]string, 0, len(skipped)),
		}
		for _, f := range frames {
			result.Records = append(result.Records, s.processor.Process(source, f))
		}
		for _, e := range skipped {
			result.Skipped = append(result.Skipped, e.Error())
		}
		if s.store != nil {
			if err := s.store.PutAll(result.Records); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, result)
	}
}

func (s *ApiServer) handleSerials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			http.Error(w, ErrStoreDisabled{}.Error(), http.StatusNotFound)
			return
		}
		serials, err := s.store.Serials()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if serials == nil {
			serials = []string{}
		}
		writeJSON(w, serials)
	}
}

func (s *ApiServer) handleRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serial := mux.Vars(r)["serial"]
		if s.store == nil {
			http.Error(w, ErrStoreDisabled{}.Error(), http.StatusNotFound)
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				http.Error(w, "limit must be a non negative integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		log.Debug("Handling records request: serial: %s limit: %d", serial, limit)

		records, err := s.store.List(serial, limit)
		var nf store.ErrBucketNotFound
		if errors.As(err, &nf) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	}
}

func (s *ApiServer) handleCalibrations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serial := mux.Vars(r)["serial"]
		inst, ok := s.processor.Instrument(serial)
		if !ok {
			http.Error(w, ErrInstrumentNotFound{Serial: serial}.Error(), http.StatusNotFound)
			return
		}
		calibrations := inst.Set.Calibrations()
		if calibrations == nil {
			calibrations = []*calibration.Calibration{}
		}
		writeJSON(w, calibrations)
	}
}
