package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Run represents a row in the runs table.
type Run struct {
	RunID       string
	Summary     string
	Status      string // "running", "succeeded", "failed"
	FailedStage string
	Reason      string
	StartedAt   string
	FinishedAt  string
}

// RunEvent represents a row in the run_events table.
type RunEvent struct {
	ID        int
	RunID     string
	Event     string
	Stage     string
	Detail    string
	CreatedAt string
}

// CreateRun inserts a new run in the "running" state.
func (d *DB) CreateRun(runID, summary string, startedAt time.Time) error {
	_, err := d.conn.Exec(
		`INSERT INTO runs (run_id, summary, started_at) VALUES (?, ?, ?)`,
		runID, summary, startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// LogEvent appends a run event.
func (d *DB) LogEvent(runID, event, stage, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (run_id, event, stage, detail) VALUES (?, ?, ?, ?)`,
		runID, event, stage, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// FinishRun records a run's terminal state.
func (d *DB) FinishRun(runID string, succeeded bool, failedStage, reason string, finishedAt time.Time) error {
	status := "failed"
	if succeeded {
		status = "succeeded"
	}
	res, err := d.conn.Exec(
		`UPDATE runs SET status = ?, failed_stage = ?, reason = ?, finished_at = ? WHERE run_id = ?`,
		status, failedStage, reason, finishedAt.UTC().Format(time.RFC3339), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("finish run: no run %s", runID)
	}
	return nil
}

// GetRun returns one run by ID.
func (d *DB) GetRun(runID string) (*Run, error) {
	row := d.conn.QueryRow(
		`SELECT run_id, summary, status, failed_stage, reason, started_at, finished_at
		 FROM runs WHERE run_id = ?`, runID,
	)
	var r Run
	err := row.Scan(&r.RunID, &r.Summary, &r.Status, &r.FailedStage, &r.Reason, &r.StartedAt, &r.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (d *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := d.conn.Query(
		`SELECT run_id, summary, status, failed_stage, reason, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Summary, &r.Status, &r.FailedStage, &r.Reason, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// EventsForRun returns a run's events in insertion order.
func (d *DB) EventsForRun(runID string) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, event, stage, detail, created_at
		 FROM run_events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run events: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &e.Stage, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
