// Package api exposes the simulator over HTTP: run lifecycle, frame
// streaming, signal-timing analysis, and stored results.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/greenwave-data/intersection.report/internal/db"
	"github.com/greenwave-data/intersection.report/internal/flow"
	"github.com/greenwave-data/intersection.report/internal/monitoring"
	"github.com/greenwave-data/intersection.report/internal/sim"
	"github.com/greenwave-data/intersection.report/internal/timeutil"
	"github.com/greenwave-data/intersection.report/internal/units"
	"github.com/greenwave-data/intersection.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server holds the handler dependencies.
type Server struct {
	runs     *sim.Manager
	flows    *flow.Manager
	db       *db.DB
	clock    timeutil.Clock
	units    string
	upgrader websocket.Upgrader
}

// NewServer builds a server. units selects the display speed unit for
// summary endpoints.
func NewServer(runs *sim.Manager, flows *flow.Manager, database *db.DB, clock timeutil.Clock, speedUnits string) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if !units.IsValid(speedUnits) {
		speedUnits = units.PXS
	}
	return &Server{
		runs:  runs,
		flows: flows,
		db:    database,
		clock: clock,
		units: speedUnits,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/simulations", s.createSimulation).Methods("POST")
	r.HandleFunc("/api/simulations", s.listSimulations).Methods("GET")
	r.HandleFunc("/api/simulations/{id}", s.showSimulation).Methods("GET")
	r.HandleFunc("/api/simulations/{id}", s.deleteSimulation).Methods("DELETE")
	r.HandleFunc("/api/simulations/{id}/history", s.showHistory).Methods("GET")
	r.HandleFunc("/api/simulations/{id}/chart", s.showChart).Methods("GET")
	r.HandleFunc("/api/simulations/{id}/flow", s.startFlowSession).Methods("POST")
	r.HandleFunc("/ws/simulations/{id}", s.streamSimulation)

	r.HandleFunc("/api/flow/{id}", s.showFlowSession).Methods("GET")
	r.HandleFunc("/api/flow/{id}", s.stopFlowSession).Methods("DELETE")

	r.HandleFunc("/api/analyze", s.analyze).Methods("POST")
	r.HandleFunc("/api/analyze/multi", s.analyzeMulti).Methods("POST")
	r.HandleFunc("/api/analyses", s.listAnalyses).Methods("GET")

	r.HandleFunc("/api/runs", s.listRunSummaries).Methods("GET")
	r.HandleFunc("/api/config", s.showConfig).Methods("GET")

	return r
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to write response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"version":        version.Version,
		"units":          s.units,
		"spawn_rate":     sim.DefaultSpawnRate,
		"frame_interval": sim.DefaultFrameInterval.String(),
		"spawn_interval": sim.DefaultSpawnInterval.String(),
	})
}
