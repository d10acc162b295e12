// Package server wires the REST health/metadata endpoints and the
// websocket upgrade route to one worldsource.Source.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/gorilla/mux"

	"tickstream/logging"
	"tickstream/session"
	"tickstream/worldsource"
)

// Server owns the world source for the lifetime of the process and
// exposes it over HTTP/websocket.
type Server struct {
	source         worldsource.Source
	name           string
	version        string
	sessionOptions session.Options
	router         *mux.Router
}

// New constructs a Server. Connect must be called before Listen.
func New(source worldsource.Source, name, version string) *Server {
	s := &Server{
		source:         source,
		name:           name,
		version:        version,
		sessionOptions: session.DefaultOptions(),
	}
	s.router = s.buildRouter()
	return s
}

// Connect starts the underlying world source's background driver.
func (s *Server) Connect(ctx context.Context) error {
	return s.source.Connect(ctx)
}

// Disconnect stops the underlying world source.
func (s *Server) Disconnect() {
	s.source.Disconnect()
}

// Router returns the HTTP handler serving REST and websocket routes.
func (s *Server) Router() http.Handler {
	return s.router
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	logging.Info("server binding to address", map[string]interface{}{"address": addr})
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/metadata", s.handleMetadata).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	return r
}

type healthResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Tick      int    `json:"tick"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:    "ok",
		Connected: s.source.IsConnected(),
		Tick:      s.source.CurrentTick(),
	})
}

type metadataResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	SourceType string `json:"source_type"`
	Tick       int    `json:"tick"`
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, metadataResponse{
		Name:       s.name,
		Version:    s.version,
		SourceType: sourceTypeName(s.source),
		Tick:       s.source.CurrentTick(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session.Serve(w, r, s.source, s.sessionOptions)
}

func sourceTypeName(source worldsource.Source) string {
	t := reflect.TypeOf(source)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

