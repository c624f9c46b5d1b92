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

// Package diag exposes a small HTTP API over the running stream state,
// for external monitoring: a read-only status route plus a route that
// triggers the sender's reset. It never touches the
// hot path: every field it reports is read from already-atomic or
// already-mutex-guarded state.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/greenlab-adc/adc-stream-node/pkg/log"
)

// StatusProvider is the read-only view the API needs of the running
// sender/pipeline; satisfied by *stream.State.
type StatusProvider interface {
	PacketSequence() uint32
	FirstSampleIndex() uint64
	DropCount() uint64
}

// Status is the JSON body served by GET /api/status.
type Status struct {
	PacketSequence   uint32 `json:"packet_sequence"`
	FirstSampleIndex uint64 `json:"first_sample_index"`
	QueueLen         int    `json:"queue_len"`
	DropLatchRaised  bool   `json:"drop_latch_raised"`
	DropCount        uint64 `json:"drop_count"`
}

// Server is the diagnostics HTTP server.
type Server struct {
	addr     string
	router   *mux.Router
	sender   StatusProvider
	queueLen func() int
	latch    func() bool
	reset    func() error

	httpServer *http.Server
}

// NewServer builds a diagnostics server bound to addr (host:port).
// queueLen and latchRaised are polled fresh on every request; reset is
// invoked by POST /api/reset and may be nil, in which case that route
// always reports 503.
func NewServer(addr string, sender StatusProvider, queueLen func() int, latchRaised func() bool, reset func() error) *Server {
	s := &Server{addr: addr, sender: sender, queueLen: queueLen, latch: latchRaised, reset: reset}
	s.configureRouter()
	s.httpServer = &http.Server{Handler: s.Handler(), Addr: s.addr}
	return s
}

func (s *Server) configureRouter() {
	s.router = mux.NewRouter()
	sub := s.router.PathPrefix("/api").Subrouter()
	sub.HandleFunc("/status", s.handleStatus()).Methods("GET")
	sub.HandleFunc("/reset", s.handleReset()).Methods("POST")
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := Status{
			PacketSequence:   s.sender.PacketSequence(),
			FirstSampleIndex: s.sender.FirstSampleIndex(),
			QueueLen:         s.queueLen(),
			DropLatchRaised:  s.latch(),
			DropCount:        s.sender.DropCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// handleReset drives the stream's Reset() over the diagnostics API,
// giving external operators a way to re-arm the sender without
// restarting the process (the original firmware's equivalent is a
// manual power cycle).
func (s *Server) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.reset == nil {
			http.Error(w, "reset not configured", http.StatusServiceUnavailable)
			return
		}
		if err := s.reset(); err != nil {
			log.Error("diag: reset failed: %s", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Handler returns the router wrapped in logging and panic-recovery
// middleware, the one place in the repo allowed to recover().
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler()(handlers.LoggingHandler(logWriter{}, s.router))
}

// ListenAndServe starts the HTTP server and blocks until it stops. It
// returns nil after a graceful Close from another goroutine, and the
// server's error otherwise.
func (s *Server) ListenAndServe() error {
	log.Debug("Starting diagnostics API server: address: %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the server down gracefully. Safe to call even if
// ListenAndServe was never started.
func (s *Server) Close() error {
	return s.httpServer.Shutdown(context.Background())
}

// logWriter adapts pkg/log to the io.Writer gorilla/handlers.LoggingHandler wants.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Debug("%s", fmt.Sprint(string(p)))
	return len(p), nil
}
