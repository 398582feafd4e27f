package pipeline

import (
	"fmt"
	"time"

	"github.com/lucasnoah/patchfactory/internal/llm"
	"github.com/lucasnoah/patchfactory/internal/schema"
	"github.com/lucasnoah/patchfactory/internal/trace"
)

// Stage names, in execution order.
const (
	StageRootCause = "root-cause"
	StageFixPlan   = "fix-plan"
	StagePatch     = "patch"
)

// StageOrder is the fixed sequence the orchestrator runs.
var StageOrder = []string{StageRootCause, StageFixPlan, StagePatch}

// Transcript roles. Requester entries are what the core sent to the inference
// service, responder entries are what came back, tool entries are tool results.
const (
	RoleRequester = "requester"
	RoleResponder = "responder"
	RoleTool      = "tool"
)

// TranscriptEntry is one record of the interaction log. Entries are appended
// and never mutated; their order is the sole record of what happened when.
type TranscriptEntry struct {
	Stage     string         `json:"stage"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SharedState is the cross-stage memory: each stage's validated result keyed
// by stage name, plus the full ordered transcript. The orchestrator owns it;
// stage runners may only append transcript entries and set their own slot.
type SharedState struct {
	RunID      string                   `json:"run_id"`
	Report     *trace.DefectReport      `json:"report"`
	Results    map[string]schema.Result `json:"results"`
	Transcript []TranscriptEntry        `json:"transcript"`
}

// NewSharedState seeds shared state for a run.
func NewSharedState(runID string, report *trace.DefectReport) *SharedState {
	return &SharedState{
		RunID:   runID,
		Report:  report,
		Results: make(map[string]schema.Result),
	}
}

// SetResult records a stage's validated result. A slot, once set, is final:
// overwriting is a wiring bug, not a recoverable condition.
func (s *SharedState) SetResult(stage string, result schema.Result) error {
	if _, taken := s.Results[stage]; taken {
		return fmt.Errorf("result for stage %q already set", stage)
	}
	s.Results[stage] = result
	return nil
}

// Result returns the named stage's result, if it has one.
func (s *SharedState) Result(stage string) (schema.Result, bool) {
	r, found := s.Results[stage]
	return r, found
}

// Append adds entries to the transcript, stamping any zero timestamps.
func (s *SharedState) Append(entries ...TranscriptEntry) {
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now().UTC()
		}
		s.Transcript = append(s.Transcript, e)
	}
}

// TranscriptFor returns the transcript entries recorded by one stage, in order.
func (s *SharedState) TranscriptFor(stage string) []TranscriptEntry {
	var out []TranscriptEntry
	for _, e := range s.Transcript {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Outcome is the final artifact of a run: the (possibly partial) shared state
// plus how the run ended. Failed runs keep everything computed up to the
// failure point.
type Outcome struct {
	RunID       string    `json:"run_id"`
	Succeeded   bool      `json:"succeeded"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Summary     string    `json:"summary"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	State *SharedState `json:"-"`
}
