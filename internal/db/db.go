// Package db persists detection analyses and completed-run summaries in
// sqlite. Live simulation state is never written here; only the inputs the
// signal timing was computed from and the aggregate outcome of finished
// runs.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the sqlite connection.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// connection pragmas. The schema is managed by Migrate, not here.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	sqldb.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := sqldb.Exec(p); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return &DB{sqldb}, nil
}

// Analysis is one stored detection analysis: the inputs the green time was
// computed from and the result.
type Analysis struct {
	ID           int64     `json:"id"`
	Direction    string    `json:"direction"`
	Source       string    `json:"source"` // "photo" or "video"
	VehicleCount int       `json:"vehicle_count"`
	FlowRate     float64   `json:"flow_rate"`
	Emergency    bool      `json:"emergency"`
	GreenSeconds float64   `json:"green_seconds"`
	CreatedAt    time.Time `json:"created_at"`
}

// InsertAnalysis stores an analysis and returns its row id.
func (db *DB) InsertAnalysis(a Analysis) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO analyses (
			direction, source, vehicle_count, flow_rate, emergency, green_seconds
		) VALUES (?, ?, ?, ?, ?, ?)`,
		a.Direction, a.Source, a.VehicleCount, a.FlowRate, a.Emergency, a.GreenSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return res.LastInsertId()
}

// RecentAnalyses returns stored analyses newest first, optionally filtered
// by direction. An empty direction matches all; limit <= 0 means 50.
func (db *DB) RecentAnalyses(direction string, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, direction, source, vehicle_count, flow_rate, emergency,
		green_seconds, created_at FROM analyses`
	args := []any{}
	if direction != "" {
		query += ` WHERE direction = ?`
		args = append(args, direction)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(&a.ID, &a.Direction, &a.Source, &a.VehicleCount,
			&a.FlowRate, &a.Emergency, &a.GreenSeconds, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RunSummary is the aggregate outcome of one finished simulation run.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	Mode            string    `json:"mode"`
	CanvasSize      int       `json:"canvas_size"`
	Spawned         int       `json:"spawned"`
	DurationSeconds float64   `json:"duration_seconds"`
	PeakVehicles    int       `json:"peak_vehicles"`
	MeanSpeed       float64   `json:"mean_speed"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"created_at"`
}

// InsertRunSummary stores a run summary. Re-inserting the same run id
// replaces the earlier row, so stopping a run twice is harmless.
func (db *DB) InsertRunSummary(s RunSummary) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO run_summaries (
			run_id, mode, canvas_size, spawned, duration_seconds,
			peak_vehicles, mean_speed, completed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, s.Mode, s.CanvasSize, s.Spawned, s.DurationSeconds,
		s.PeakVehicles, s.MeanSpeed, s.Completed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run summary: %w", err)
	}
	return nil
}

// GetRunSummary returns the summary for a run id.
func (db *DB) GetRunSummary(runID string) (RunSummary, error) {
	var s RunSummary
	err := db.QueryRow(
		`SELECT run_id, mode, canvas_size, spawned, duration_seconds,
			peak_vehicles, mean_speed, completed, created_at
		FROM run_summaries WHERE run_id = ?`, runID,
	).Scan(&s.RunID, &s.Mode, &s.CanvasSize, &s.Spawned, &s.DurationSeconds,
		&s.PeakVehicles, &s.MeanSpeed, &s.Completed, &s.CreatedAt)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to load run summary %s: %w", runID, err)
	}
	return s, nil
}

// RecentRunSummaries returns stored summaries newest first.
func (db *DB) RecentRunSummaries(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT run_id, mode, canvas_size, spawned, duration_seconds,
			peak_vehicles, mean_speed, completed, created_at
		FROM run_summaries ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summaries: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Mode, &s.CanvasSize, &s.Spawned,
			&s.DurationSeconds, &s.PeakVehicles, &s.MeanSpeed, &s.Completed,
			&s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
