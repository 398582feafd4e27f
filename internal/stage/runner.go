// Package stage drives one pipeline stage's bounded interaction loop against
// the inference service: send context, receive tool calls or a terminal
// answer, dispatch tools through the facade, feed results back, repeat until
// a validated answer is produced or the iteration cap is hit.
package stage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/patchfactory/internal/llm"
	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/schema"
	"github.com/lucasnoah/patchfactory/internal/tools"
)

// Spec configures one stage run.
type Spec struct {
	Name          string
	SystemPrompt  string
	Seed          string // rendered opening message for this stage
	Tools         []tools.Spec
	Schema        schema.Schema
	MaxIterations int

	// RequireReadOf, when set, rejects a terminal answer until a successful
	// read_file result for this path exists in the stage's transcript. The
	// patch stage uses it to stop the model inventing content it never read.
	RequireReadOf string
}

// Failure is a stage's unrecoverable outcome: the iteration cap ran out, or a
// precondition was never met. It halts the pipeline.
type Failure struct {
	Stage  string
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("stage %s failed: %s", f.Stage, f.Reason)
}

// Runner executes stage loops. One Runner serves all stages of a run;
// per-stage behavior comes from the Spec.
type Runner struct {
	service  llm.Service
	facade   *tools.Facade
	progress io.Writer // live progress output; nil = silent
}

// NewRunner creates a Runner over the given inference service and tool facade.
func NewRunner(service llm.Service, facade *tools.Facade) *Runner {
	return &Runner{service: service, facade: facade}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (r *Runner) SetProgress(w io.Writer) {
	r.progress = w
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.progress != nil {
		fmt.Fprintf(r.progress, "  → "+format+"\n", args...)
	}
}

// Run executes the stage loop. On success the validated result is returned;
// the caller records it in shared state. On failure the returned error is a
// *Failure naming the stage and the last error observed. Either way, every
// exchange has been appended to the shared transcript.
func (r *Runner) Run(ctx context.Context, spec Spec, state *pipeline.SharedState) (schema.Result, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: spec.SystemPrompt},
		{Role: llm.RoleUser, Content: spec.Seed},
	}
	state.Append(pipeline.TranscriptEntry{
		Stage:   spec.Name,
		Role:    pipeline.RoleRequester,
		Content: spec.Seed,
	})

	readSatisfied := spec.RequireReadOf == ""
	lastErr := ""

	for iter := 1; iter <= spec.MaxIterations; iter++ {
		r.logf("stage %s: iteration %d/%d", spec.Name, iter, spec.MaxIterations)

		resp, err := r.service.Complete(ctx, llm.Request{Messages: messages, Tools: spec.Tools})
		if err != nil {
			// Collaborator failure. Consume the iteration and retry with the
			// same context; if the cap runs out first, the failure surfaces.
			lastErr = fmt.Sprintf("inference call: %v", err)
			r.logf("stage %s: %s", spec.Name, lastErr)
			continue
		}

		state.Append(pipeline.TranscriptEntry{
			Stage:     spec.Name,
			Role:      pipeline.RoleResponder,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) > 0 {
			for _, call := range resp.ToolCalls {
				result := r.facade.Dispatch(call.Name, call.Arguments)
				content := result.Content()
				r.logf("stage %s: tool %s → success=%v", spec.Name, call.Name, result.Success)

				state.Append(pipeline.TranscriptEntry{
					Stage:    spec.Name,
					Role:     pipeline.RoleTool,
					Content:  content,
					ToolName: call.Name,
				})
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					Content:    content,
					ToolCallID: call.ID,
					ToolName:   call.Name,
				})

				if result.Success {
					if call.Name == tools.ReadFile && pathsEqual(argString(call.Arguments, "file_path"), spec.RequireReadOf) {
						readSatisfied = true
					}
				} else {
					lastErr = result.Err.Error()
				}
			}
			continue
		}

		// No tool calls: treat the response as a terminal answer attempt.
		raw, err := schema.ExtractJSON(resp.Content)
		if err != nil {
			lastErr = err.Error()
			messages = r.reprompt(spec, state, messages, fmt.Sprintf(
				"Your reply could not be parsed: %v. Reply with a single JSON object matching the required schema.", err))
			continue
		}

		result, verr := spec.Schema.Validate(raw)
		if verr != nil {
			lastErr = verr.Error()
			messages = r.reprompt(spec, state, messages, fmt.Sprintf(
				"%v. Correct these fields and reply again with a single JSON object.", verr))
			continue
		}

		if !readSatisfied {
			lastErr = fmt.Sprintf("terminal answer rejected: %s was never read in this stage", spec.RequireReadOf)
			messages = r.reprompt(spec, state, messages, fmt.Sprintf(
				"You must call read_file on %s and base the patch on its actual content before answering.", spec.RequireReadOf))
			continue
		}

		r.logf("stage %s: validated terminal answer after %d iteration(s)", spec.Name, iter)
		return result, nil
	}

	reason := fmt.Sprintf("exhausted %d iterations without a validated answer", spec.MaxIterations)
	if lastErr != "" {
		reason += "; last error: " + lastErr
	}
	return nil, &Failure{Stage: spec.Name, Reason: reason}
}

// reprompt appends a corrective requester message to both the transcript and
// the conversation, and returns the extended conversation.
func (r *Runner) reprompt(spec Spec, state *pipeline.SharedState, messages []llm.Message, text string) []llm.Message {
	r.logf("stage %s: re-prompting: %s", spec.Name, text)
	state.Append(pipeline.TranscriptEntry{
		Stage:   spec.Name,
		Role:    pipeline.RoleRequester,
		Content: text,
	})
	return append(messages, llm.Message{Role: llm.RoleUser, Content: text})
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// pathsEqual compares model-supplied paths after normalizing leading slashes
// and redundant separators.
func pathsEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	norm := func(p string) string {
		return filepath.Clean(strings.TrimPrefix(p, "/"))
	}
	return norm(a) == norm(b)
}
