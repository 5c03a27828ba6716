package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/greenwave-data/intersection.report/internal/db"
	"github.com/greenwave-data/intersection.report/internal/monitoring"
	"github.com/greenwave-data/intersection.report/internal/sim"
	"github.com/greenwave-data/intersection.report/internal/timing"
	"github.com/greenwave-data/intersection.report/internal/units"
)

const (
	sourcePhoto = "photo"
	sourceVideo = "video"
)

type analyzeRequest struct {
	Direction    string  `json:"direction"`
	Source       string  `json:"source"`
	VehicleCount int     `json:"vehicle_count"`
	FlowRate     float64 `json:"flow_rate"`
	Emergency    bool    `json:"emergency"`

	// Hour overrides the capture hour; when nil the current hour in
	// Timezone (default UTC) is used.
	Hour     *int   `json:"hour"`
	Timezone string `json:"timezone"`
}

// resolve validates the request and computes the green duration.
func (s *Server) resolve(req analyzeRequest) (float64, error) {
	if _, err := sim.ParseDirection(req.Direction); err != nil {
		return 0, err
	}

	switch req.Source {
	case sourcePhoto, "":
		return timing.PhotoGreen(req.VehicleCount, req.Emergency), nil
	case sourceVideo:
		hour := 0
		if req.Hour != nil {
			hour = *req.Hour
			if hour < 0 || hour > 23 {
				return 0, fmt.Errorf("hour %d out of range", hour)
			}
		} else {
			var err error
			hour, err = units.LocalHour(s.clock.Now(), req.Timezone)
			if err != nil {
				return 0, err
			}
		}
		return timing.VideoGreen(req.VehicleCount, req.FlowRate, hour), nil
	}
	return 0, fmt.Errorf("unknown source %q", req.Source)
}

func (s *Server) storeAnalysis(req analyzeRequest, green float64) {
	if s.db == nil {
		return
	}
	source := req.Source
	if source == "" {
		source = sourcePhoto
	}
	_, err := s.db.InsertAnalysis(db.Analysis{
		Direction:    req.Direction,
		Source:       source,
		VehicleCount: req.VehicleCount,
		FlowRate:     req.FlowRate,
		Emergency:    req.Emergency,
		GreenSeconds: green,
	})
	if err != nil {
		monitoring.Logf("failed to persist analysis for %s: %v", req.Direction, err)
	}
}

// analyze computes the green duration for a single approach.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	green, err := s.resolve(req)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.storeAnalysis(req, green)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"direction":     req.Direction,
		"green_seconds": green,
		"emergency":     req.Emergency,
	})
}

type analyzeMultiRequest struct {
	North analyzeRequest `json:"north"`
	South analyzeRequest `json:"south"`
	East  analyzeRequest `json:"east"`
	West  analyzeRequest `json:"west"`
}

// analyzeMulti computes green durations for all four approaches and
// synchronises opposing pairs to the pair maximum, producing a duration set
// ready to seed a paired simulation run.
func (s *Server) analyzeMulti(w http.ResponseWriter, r *http.Request) {
	var req analyzeMultiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req.North.Direction = sim.North.String()
	req.South.Direction = sim.South.String()
	req.East.Direction = sim.East.String()
	req.West.Direction = sim.West.String()

	var raw timing.Durations
	for _, item := range []struct {
		req  analyzeRequest
		dest *float64
	}{
		{req.North, &raw.North},
		{req.South, &raw.South},
		{req.East, &raw.East},
		{req.West, &raw.West},
	} {
		green, err := s.resolve(item.req)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("%s: %v", item.req.Direction, err))
			return
		}
		*item.dest = green
		s.storeAnalysis(item.req, green)
	}

	synced := timing.SyncPairs(raw)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"raw":    raw,
		"synced": synced,
	})
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	direction := r.URL.Query().Get("direction")
	if direction != "" {
		if _, err := sim.ParseDirection(direction); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
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

	analyses, err := s.db.RecentAnalyses(direction, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to retrieve analyses: %v", err))
		return
	}
	if analyses == nil {
		analyses = []db.Analysis{}
	}
	s.writeJSON(w, http.StatusOK, analyses)
}
