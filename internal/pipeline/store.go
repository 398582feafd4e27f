package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lucasnoah/patchfactory/internal/schema"
	"github.com/lucasnoah/patchfactory/internal/trace"
)

// Store is the persistence collaborator for run artifacts. Each run gets its
// own directory holding the outcome, the full transcript, the original defect
// report, and any rendered stage prompts.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.patchfactory/runs, creating the
// directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".patchfactory", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// RunDir returns the artifact directory for a run.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// storedOutcome is the on-disk shape of outcome.json: outcome metadata plus
// the stage results. The transcript is stored alongside in transcript.json so
// run listings stay cheap to read.
type storedOutcome struct {
	Outcome
	Results map[string]schema.Result `json:"results"`
}

// SaveOutcome persists a run's outcome, transcript, and defect report.
func (s *Store) SaveOutcome(o *Outcome) error {
	dir := s.RunDir(o.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	stored := storedOutcome{Outcome: *o, Results: o.State.Results}
	if err := writeJSON(filepath.Join(dir, "outcome.json"), stored); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	transcript := o.State.Transcript
	if transcript == nil {
		transcript = []TranscriptEntry{}
	}
	if err := writeJSON(filepath.Join(dir, "transcript.json"), transcript); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	if o.State.Report != nil {
		if err := writeAtomic(filepath.Join(dir, "report.txt"), []byte(o.State.Report.Raw)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

// SavePrompt stores the rendered seed prompt for a stage, for audit.
func (s *Store) SavePrompt(runID, stage, prompt string) error {
	dir := filepath.Join(s.RunDir(runID), "prompts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return writeAtomic(filepath.Join(dir, stage+".md"), []byte(prompt))
}

// Get loads a stored run back into an Outcome with full shared state.
func (s *Store) Get(runID string) (*Outcome, error) {
	dir := s.RunDir(runID)

	var stored storedOutcome
	if err := readJSON(filepath.Join(dir, "outcome.json"), &stored); err != nil {
		return nil, fmt.Errorf("read outcome for run %s: %w", runID, err)
	}

	var transcript []TranscriptEntry
	if err := readJSON(filepath.Join(dir, "transcript.json"), &transcript); err != nil {
		return nil, fmt.Errorf("read transcript for run %s: %w", runID, err)
	}

	o := stored.Outcome
	o.State = &SharedState{
		RunID:      o.RunID,
		Results:    stored.Results,
		Transcript: transcript,
	}
	if o.State.Results == nil {
		o.State.Results = make(map[string]schema.Result)
	}

	if raw, err := os.ReadFile(filepath.Join(dir, "report.txt")); err == nil {
		if report, perr := trace.Parse(string(raw)); perr == nil {
			o.State.Report = report
		}
	}
	return &o, nil
}

// List returns the outcomes of all stored runs, newest first. Transcripts are
// not loaded; use Get for the full record.
func (s *Store) List() ([]*Outcome, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store dir: %w", err)
	}

	var outcomes []*Outcome
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var stored storedOutcome
		if err := readJSON(filepath.Join(s.baseDir, e.Name(), "outcome.json"), &stored); err != nil {
			continue // in-flight or corrupt run; skip it
		}
		o := stored.Outcome
		o.State = &SharedState{RunID: o.RunID, Results: stored.Results}
		outcomes = append(outcomes, &o)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].StartedAt.After(outcomes[j].StartedAt)
	})
	return outcomes, nil
}

// writeAtomic writes data to path via a temp file in the same directory plus
// a rename, so readers never observe a half-written artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = ""
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return writeAtomic(path, data)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
