package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// timestamp formats to try when parsing timestamps from the database
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// Summary holds aggregate counts over all recorded runs.
type Summary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Running     int     `json:"running"`
	SuccessRate float64 `json:"success_rate_pct"`
	AvgDuration float64 `json:"avg_duration_seconds"`
}

// QuerySummary returns run counts by terminal status and the average
// wall-clock duration of finished runs.
func QuerySummary(database DB, since string) (*Summary, error) {
	query := `
		SELECT status, started_at, finished_at
		FROM runs`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE started_at >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run summary: %w", err)
	}
	defer rows.Close()

	s := &Summary{}
	var durations []float64
	for rows.Next() {
		var status string
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&status, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		s.Total++
		switch status {
		case "succeeded":
			s.Succeeded++
		case "failed":
			s.Failed++
		default:
			s.Running++
		}
		if !finishedAt.Valid {
			continue
		}
		start, err := parseTimestamp(startedAt)
		if err != nil {
			continue
		}
		end, err := parseTimestamp(finishedAt.String)
		if err != nil {
			continue
		}
		if secs := end.Sub(start).Seconds(); secs >= 0 {
			durations = append(durations, secs)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.SuccessRate = pct(s.Succeeded, s.Succeeded+s.Failed)
	s.AvgDuration = avg(durations)
	return s, nil
}

// StageDuration holds duration stats for a stage.
type StageDuration struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg_seconds"`
	P50   float64 `json:"p50_seconds"`
	P95   float64 `json:"p95_seconds"`
}

// QueryStageDurations returns average and percentile durations per stage.
// Each stage_completed event is paired with the most recent prior
// stage_started event for the same run and stage.
func QueryStageDurations(database DB, since string) ([]StageDuration, error) {
	query := `
		SELECT re1.run_id, re1.stage, re1.created_at as end_ts,
			(SELECT MAX(re2.created_at) FROM run_events re2
			 WHERE re2.run_id = re1.run_id
			 AND re2.stage = re1.stage
			 AND re2.event = 'stage_started'
			 AND re2.id < re1.id) as start_ts
		FROM run_events re1
		WHERE re1.event = 'stage_completed'
		AND re1.stage != ''`

	args := []interface{}{}
	if since != "" {
		query += ` AND re1.created_at >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage durations: %w", err)
	}
	defer rows.Close()

	stageDurations := make(map[string][]float64)
	for rows.Next() {
		var runID, stage, endTS string
		var startTS sql.NullString
		if err := rows.Scan(&runID, &stage, &endTS, &startTS); err != nil {
			return nil, fmt.Errorf("scan stage duration: %w", err)
		}
		if !startTS.Valid {
			continue
		}
		start, err := parseTimestamp(startTS.String)
		if err != nil {
			continue
		}
		end, err := parseTimestamp(endTS)
		if err != nil {
			continue
		}
		if secs := end.Sub(start).Seconds(); secs >= 0 {
			stageDurations[stage] = append(stageDurations[stage], secs)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []StageDuration
	for stage, durations := range stageDurations {
		sort.Float64s(durations)
		results = append(results, StageDuration{
			Stage: stage,
			Count: len(durations),
			Avg:   avg(durations),
			P50:   percentile(durations, 50),
			P95:   percentile(durations, 95),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Stage < results[j].Stage
	})
	return results, nil
}

// StageFailure holds failure stats for a stage.
type StageFailure struct {
	Stage        string  `json:"stage"`
	Count        int     `json:"count"`
	ShareOfFails float64 `json:"share_of_failures_pct"`
	CommonReason string  `json:"common_reason,omitempty"`
}

// QueryStageFailures returns which stages fail most, with the most common
// failure reason for each.
func QueryStageFailures(database DB, since string) ([]StageFailure, error) {
	query := `
		SELECT failed_stage, COUNT(*) as cnt
		FROM runs
		WHERE status = 'failed' AND failed_stage != ''`

	args := []interface{}{}
	if since != "" {
		query += ` AND started_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY failed_stage ORDER BY cnt DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage failures: %w", err)
	}
	defer rows.Close()

	var results []StageFailure
	total := 0
	for rows.Next() {
		var sf StageFailure
		if err := rows.Scan(&sf.Stage, &sf.Count); err != nil {
			return nil, fmt.Errorf("scan stage failure: %w", err)
		}
		total += sf.Count
		results = append(results, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		results[i].ShareOfFails = pct(results[i].Count, total)

		reasonQuery := `
			SELECT reason, COUNT(*) as cnt
			FROM runs
			WHERE status = 'failed' AND failed_stage = ? AND reason != ''`
		rArgs := []interface{}{results[i].Stage}
		if since != "" {
			reasonQuery += ` AND started_at >= ?`
			rArgs = append(rArgs, since)
		}
		reasonQuery += ` GROUP BY reason ORDER BY cnt DESC LIMIT 1`

		var reason string
		var cnt int
		if err := database.Conn().QueryRow(reasonQuery, rArgs...).Scan(&reason, &cnt); err == nil {
			results[i].CommonReason = reason
		}
	}

	return results, nil
}

// Throughput holds run volume for a time period.
type Throughput struct {
	Period    string `json:"period"`
	Started   int    `json:"started"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// QueryThroughput returns run volume grouped by day, newest first.
func QueryThroughput(database DB, since string) ([]Throughput, error) {
	query := `
		SELECT
			strftime('%Y-%m-%d', started_at) as period,
			COUNT(*) as started,
			SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END) as succeeded,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed
		FROM runs`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE started_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY period ORDER BY period DESC LIMIT 14`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query throughput: %w", err)
	}
	defer rows.Close()

	var results []Throughput
	for rows.Next() {
		var t Throughput
		if err := rows.Scan(&t.Period, &t.Started, &t.Succeeded, &t.Failed); err != nil {
			return nil, fmt.Errorf("scan throughput: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
