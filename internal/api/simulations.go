package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/greenwave-data/intersection.report/internal/db"
	"github.com/greenwave-data/intersection.report/internal/monitoring"
	"github.com/greenwave-data/intersection.report/internal/report"
	"github.com/greenwave-data/intersection.report/internal/sim"
)

type createSimulationRequest struct {
	CanvasSize int           `json:"canvas_size"`
	SpawnRate  float64       `json:"spawn_rate"`
	Mode       string        `json:"mode"`
	Durations  sim.Durations `json:"durations"`
	Seed       int64         `json:"seed"`
}

type simulationResponse struct {
	RunID    string `json:"run_id"`
	Mode     string `json:"mode"`
	Running  bool   `json:"running"`
	Complete bool   `json:"complete"`
	Vehicles int    `json:"vehicles"`
	Spawned  int    `json:"spawned"`
}

func (s *Server) simulationResponse(r *sim.Run) simulationResponse {
	return simulationResponse{
		RunID:    r.ID,
		Mode:     r.Mode().String(),
		Running:  r.Running(),
		Complete: r.Complete(),
		Vehicles: r.VehicleCount(),
		Spawned:  r.Spawned(),
	}
}

func (s *Server) createSimulation(w http.ResponseWriter, r *http.Request) {
	var req createSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	mode, err := sim.ParseMode(req.Mode)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := s.runs.Create(sim.Config{
		CanvasSize: req.CanvasSize,
		SpawnRate:  req.SpawnRate,
		Mode:       mode,
		Durations:  req.Durations,
		Seed:       req.Seed,
		Clock:      s.clock,
	})
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	monitoring.Logf("started simulation %s mode=%s canvas=%d", run.ID, mode, req.CanvasSize)
	s.writeJSON(w, http.StatusCreated, s.simulationResponse(run))
}

func (s *Server) listSimulations(w http.ResponseWriter, r *http.Request) {
	runs := s.runs.List()
	out := make([]simulationResponse, len(runs))
	for i, run := range runs {
		out[i] = s.simulationResponse(run)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) *sim.Run {
	id := mux.Vars(r)["id"]
	run, err := s.runs.Get(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("simulation %s not found", id))
		return nil
	}
	return run
}

func (s *Server) showSimulation(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, run.Snapshot())
}

// deleteSimulation stops a run, persists its summary, and forgets it.
func (s *Server) deleteSimulation(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}

	history := run.History()
	summary := report.Summarize(history)
	if err := s.runs.Remove(run.ID); err != nil && !errors.Is(err, sim.ErrNotFound) {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stored := db.RunSummary{
		RunID:           run.ID,
		Mode:            run.Mode().String(),
		CanvasSize:      run.CanvasSize(),
		Spawned:         run.Spawned(),
		DurationSeconds: float64(summary.Seconds),
		PeakVehicles:    summary.PeakVehicles,
		MeanSpeed:       summary.MeanSpeed,
		Completed:       run.Complete(),
	}
	if s.db != nil {
		if err := s.db.InsertRunSummary(stored); err != nil {
			monitoring.Logf("failed to persist summary for run %s: %v", run.ID, err)
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"summary": summary,
	})
}

func (s *Server) showHistory(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"history": run.History(),
		"summary": report.Summarize(run.History()),
	})
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderHistoryChart(w, run.ID, run.History()); err != nil {
		monitoring.Logf("failed to render chart for run %s: %v", run.ID, err)
	}
}

// streamSimulation upgrades to a websocket and pushes every broadcast frame
// until the client goes away or the subscription drains out.
func (s *Server) streamSimulation(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	subID, frames := run.Subscribe()
	defer run.Unsubscribe(subID)

	// Reader goroutine: surfaces client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

func (s *Server) listRunSummaries(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	summaries, err := s.db.RecentRunSummaries(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to retrieve run summaries: %v", err))
		return
	}
	if summaries == nil {
		summaries = []db.RunSummary{}
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

// startFlowSession attaches a flow-metrics session to a live run.
func (s *Server) startFlowSession(w http.ResponseWriter, r *http.Request) {
	run := s.getRun(w, r)
	if run == nil {
		return
	}

	session := s.flows.Start(run.ID, run.VehicleCount)
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": session.ID,
		"run_id":     run.ID,
	})
}

func (s *Server) showFlowSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, err := s.flows.Get(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "flow session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"run_id":     session.Label,
		"metrics":    session.Metrics(),
	})
}

func (s *Server) stopFlowSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	metrics, err := s.flows.Stop(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "flow session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"metrics":    metrics,
	})
}
