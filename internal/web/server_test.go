package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasnoah/patchfactory/internal/config"
	"github.com/lucasnoah/patchfactory/internal/db"
	"github.com/lucasnoah/patchfactory/internal/llm"
	"github.com/lucasnoah/patchfactory/internal/pipeline"
)

// --- Scripted inference service ---

type scriptedService struct {
	responses []*llm.Response
}

func (s *scriptedService) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	if len(s.responses) == 0 {
		return nil, fmt.Errorf("scripted service exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func say(content string) *llm.Response {
	return &llm.Response{Content: content}
}

func callTool(id, name string, args map[string]any) *llm.Response {
	return &llm.Response{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

// --- Fixtures ---

const sampleTrace = `Traceback (most recent call last):
  File "services/user.py", line 3, in fetch
    return user.emails
AttributeError: 'User' object has no attribute 'emails'`

const rcaAnswer = `{
  "error_type": "AttributeError",
  "error_message": "'User' object has no attribute 'emails'",
  "root_cause": "fetch reads user.emails but the User model defines email",
  "affected_file": "services/user.py",
  "affected_line": 3
}`

const fixAnswer = `{
  "fix_summary": "rename emails to email",
  "files_to_modify": ["anything/the/model/said.py"],
  "patch_plan": ["change line 3"]
}`

const patchAnswer = `{
  "patch_file": "patches/fixed_user.py",
  "original_file": "services/user.py",
  "summary": "renamed emails to email"
}`

func newTestServer(t *testing.T, svc *scriptedService) *Server {
	t.Helper()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "services"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := "class UserService:\n    def fetch(self, user):\n        return user.emails\n"
	if err := os.WriteFile(filepath.Join(root, "services", "user.py"), []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		CodebaseRoot: root,
		PatchDir:     t.TempDir(),
		Stages:       config.Stages{RootCauseMaxIterations: 5, FixPlanMaxIterations: 3, PatchMaxIterations: 5},
		Web:          config.Web{Port: 0},
	}
	return NewServer(cfg, svc, pipeline.NewStore(t.TempDir()), database)
}

func happyScript() *scriptedService {
	return &scriptedService{responses: []*llm.Response{
		say(rcaAnswer),
		say(fixAnswer),
		callTool("p-1", "read_file", map[string]any{"file_path": "services/user.py"}),
		say(patchAnswer),
	}}
}

func postRun(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestCreateRunSucceeds(t *testing.T) {
	s := newTestServer(t, happyScript())

	rec := postRun(t, s, fmt.Sprintf(`{"trace": %q}`, sampleTrace))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp runResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Succeeded || len(resp.Results) != 3 {
		t.Errorf("response = %+v", resp)
	}

	// Override invariant is visible on the wire.
	fix := resp.Results["fix-plan"]
	if files := fix.StringList("files_to_modify"); len(files) != 1 || files[0] != "services/user.py" {
		t.Errorf("files_to_modify = %v", files)
	}
}

func TestCreateRunPipelineFailureIs422(t *testing.T) {
	svc := &scriptedService{responses: []*llm.Response{
		say("nope"), say("nope"), say("nope"), say("nope"), say("nope"),
	}}
	s := newTestServer(t, svc)

	rec := postRun(t, s, fmt.Sprintf(`{"trace": %q}`, sampleTrace))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp runResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Succeeded || resp.FailedStage != "root-cause" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateRunBadRequests(t *testing.T) {
	s := newTestServer(t, happyScript())

	for name, body := range map[string]string{
		"empty trace":  `{"trace": ""}`,
		"invalid json": `{`,
		"bad root":     fmt.Sprintf(`{"trace": %q, "codebase_root": "/does/not/exist"}`, sampleTrace),
	} {
		t.Run(name, func(t *testing.T) {
			if rec := postRun(t, s, body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestGetRunAndTranscript(t *testing.T) {
	s := newTestServer(t, happyScript())

	rec := postRun(t, s, fmt.Sprintf(`{"trace": %q}`, sampleTrace))
	var created runResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+created.RunID, nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get run status = %d", getRec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/runs/"+created.RunID+"/transcript", nil)
	trRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(trRec, req)
	if trRec.Code != http.StatusOK {
		t.Fatalf("get transcript status = %d", trRec.Code)
	}
	var transcript []pipeline.TranscriptEntry
	if err := json.Unmarshal(trRec.Body.Bytes(), &transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(transcript) == 0 {
		t.Error("transcript empty")
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t, happyScript())

	req := httptest.NewRequest(http.MethodGet, "/api/runs/ghost", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestServer(t, happyScript())
	postRun(t, s, fmt.Sprintf(`{"trace": %q}`, sampleTrace))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []db.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "succeeded" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, happyScript())
	postRun(t, s, fmt.Sprintf(`{"trace": %q}`, sampleTrace))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats struct {
		Summary struct {
			Total     int `json:"total"`
			Succeeded int `json:"succeeded"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Summary.Total != 1 || stats.Summary.Succeeded != 1 {
		t.Errorf("summary = %+v", stats.Summary)
	}
}
