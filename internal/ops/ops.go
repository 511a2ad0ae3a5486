// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ops is the decoder daemon's operations HTTP surface:
// /healthz, /metrics, and /decode for an ad hoc single-file decode.
// Unlike a dashboard server (web/, api/), this carries no UI, template
// rendering, or session auth — only gorilla/mux routing, gorilla/handlers
// middleware, and pkg/log request logging.
package ops

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ClusterCockpit/meterdecode/pkg/decoder"
	"github.com/ClusterCockpit/meterdecode/pkg/log"
	"github.com/ClusterCockpit/meterdecode/pkg/metrics"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

// Server wraps the configured http.Server and its router.
type Server struct {
	httpServer *http.Server
}

// New builds the ops router and binds it to addr. Call Serve to start
// accepting connections.
func New(addr string, opts schema.DecodeOptions) *Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/decode", handleDecode(opts)).Methods(http.MethodPost)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST"}),
		handlers.AllowedOrigins([]string{"*"})))

	logged := handlers.CustomLoggingHandler(log.InfoWriter, r, func(w io.Writer, params handlers.LogFormatterParams) {
		log.Finfof(w, "%s %s (Response: %d, Size: %d)", params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      logged,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Serve blocks, serving the ops surface until the listener fails or
// Shutdown is called from another goroutine.
func (s *Server) Serve() error {
	log.Infof("ops server listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown(context.Background())
}

func handleHealthz(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]string{"status": "ok"})
}

// handleDecode accepts a raw file body with a ?name= query parameter
// and runs it through pkg/decoder.Decode, returning the FileResult as
// JSON. Intended for ad hoc operator use (curl --data-binary),
// not as a high-throughput ingest path — internal/scheduler owns that.
func handleDecode(opts schema.DecodeOptions) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(rw, "missing required ?name= query parameter", http.StatusBadRequest)
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
		if err != nil {
			http.Error(rw, "reading request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		result, err := decoder.Decode(name, data, opts)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		if !result.Success {
			rw.WriteHeader(http.StatusUnprocessableEntity)
		}
		json.NewEncoder(rw).Encode(result)
	}
}
