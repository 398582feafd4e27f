package db

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return d
}

func TestMigrateIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	d := openTestDB(t)
	started := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := d.CreateRun("run-1", "AttributeError: emails", started); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	r, err := d.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if r.Status != "running" || r.Summary != "AttributeError: emails" {
		t.Errorf("run = %+v", r)
	}

	if err := d.FinishRun("run-1", false, "fix-plan", "iteration cap exhausted", started.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	r, err = d.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if r.Status != "failed" || r.FailedStage != "fix-plan" {
		t.Errorf("finished run = %+v", r)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	d := openTestDB(t)
	if err := d.FinishRun("ghost", true, "", "", time.Now()); err == nil {
		t.Fatal("expected error finishing unknown run")
	}
}

func TestEvents(t *testing.T) {
	d := openTestDB(t)
	if err := d.CreateRun("run-1", "s", time.Now()); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	for _, e := range []string{"stage_started", "stage_completed"} {
		if err := d.LogEvent("run-1", e, "root-cause", ""); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	events, err := d.EventsForRun("run-1")
	if err != nil {
		t.Fatalf("EventsForRun: %v", err)
	}
	if len(events) != 2 || events[0].Event != "stage_started" || events[1].Event != "stage_completed" {
		t.Errorf("events = %+v", events)
	}
}

func TestRecentRunsOrder(t *testing.T) {
	d := openTestDB(t)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-new"} {
		if err := d.CreateRun(id, "s", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("CreateRun(%s): %v", id, err)
		}
	}

	runs, err := d.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-new" {
		t.Errorf("runs = %+v", runs)
	}

	runs, err = d.RecentRuns(1)
	if err != nil {
		t.Fatalf("RecentRuns(1): %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("limit ignored: %+v", runs)
	}
}
