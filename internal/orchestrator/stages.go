package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/prompt"
	"github.com/lucasnoah/patchfactory/internal/schema"
	"github.com/lucasnoah/patchfactory/internal/stage"
	"github.com/lucasnoah/patchfactory/internal/tools"
)

// buildSpec assembles the stage.Spec for the named stage: system prompt,
// rendered seed, tool subset, output schema, and iteration cap. Prior stage
// results are pulled from shared state; the orchestrator's strict ordering
// guarantees they exist by the time a later stage needs them.
func (o *Orchestrator) buildSpec(name string, state *pipeline.SharedState) (stage.Spec, error) {
	switch name {
	case pipeline.StageRootCause:
		return o.rootCauseSpec(state)
	case pipeline.StageFixPlan:
		return o.fixPlanSpec(state)
	case pipeline.StagePatch:
		return o.patchSpec(state)
	default:
		return stage.Spec{}, fmt.Errorf("unknown stage %q", name)
	}
}

func (o *Orchestrator) rootCauseSpec(state *pipeline.SharedState) (stage.Spec, error) {
	report := state.Report

	deepest := ""
	if f := report.DeepestFrame(); f != nil {
		deepest = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	seed, err := prompt.Render(prompt.RootCauseSeed, prompt.Vars{
		"error_type":    report.ErrorType,
		"error_message": report.ErrorMessage,
		"deepest_frame": deepest,
		"raw_trace":     report.Raw,
	})
	if err != nil {
		return stage.Spec{}, err
	}

	specs, err := tools.Specs(tools.ProjectDirectory, tools.ReadFile, tools.CheckDependency)
	if err != nil {
		return stage.Spec{}, err
	}
	return stage.Spec{
		Name:          pipeline.StageRootCause,
		SystemPrompt:  prompt.RootCauseSystem,
		Seed:          seed,
		Tools:         specs,
		Schema:        schema.RootCause,
		MaxIterations: o.caps.RootCauseMaxIterations,
	}, nil
}

func (o *Orchestrator) fixPlanSpec(state *pipeline.SharedState) (stage.Spec, error) {
	rca, found := state.Result(pipeline.StageRootCause)
	if !found {
		return stage.Spec{}, fmt.Errorf("no root-cause result in shared state")
	}

	seed, err := prompt.Render(prompt.FixPlanSeed, prompt.Vars{
		"error_type":    rca.String(schema.FieldErrorType),
		"error_message": rca.String(schema.FieldErrorMessage),
		"root_cause":    rca.String(schema.FieldRootCause),
		"affected_file": rca.String(schema.FieldAffectedFile),
		"affected_line": strconv.Itoa(rca.Int(schema.FieldAffectedLine)),
	})
	if err != nil {
		return stage.Spec{}, err
	}

	specs, err := tools.Specs(tools.ReadFile)
	if err != nil {
		return stage.Spec{}, err
	}
	return stage.Spec{
		Name:          pipeline.StageFixPlan,
		SystemPrompt:  prompt.FixPlanSystem,
		Seed:          seed,
		Tools:         specs,
		Schema:        schema.FixPlan,
		MaxIterations: o.caps.FixPlanMaxIterations,
	}, nil
}

func (o *Orchestrator) patchSpec(state *pipeline.SharedState) (stage.Spec, error) {
	rca, found := state.Result(pipeline.StageRootCause)
	if !found {
		return stage.Spec{}, fmt.Errorf("no root-cause result in shared state")
	}
	fix, found := state.Result(pipeline.StageFixPlan)
	if !found {
		return stage.Spec{}, fmt.Errorf("no fix-plan result in shared state")
	}

	// The override in postProcess pinned files_to_modify to the affected
	// file, so the plan's single target is also the read precondition.
	target := rca.String(schema.FieldAffectedFile)
	if files := fix.StringList(schema.FieldFilesToModify); len(files) > 0 {
		target = files[0]
	}

	seed, err := prompt.Render(prompt.PatchSeed, prompt.Vars{
		"affected_file":         target,
		"affected_line":         strconv.Itoa(rca.Int(schema.FieldAffectedLine)),
		"root_cause":            rca.String(schema.FieldRootCause),
		"fix_summary":           fix.String(schema.FieldFixSummary),
		"patch_plan":            numbered(fix.StringList(schema.FieldPatchPlan)),
		"safety_considerations": fix.String(schema.FieldSafety),
	})
	if err != nil {
		return stage.Spec{}, err
	}

	specs, err := tools.Specs(tools.ReadFile, tools.CreatePatch)
	if err != nil {
		return stage.Spec{}, err
	}
	return stage.Spec{
		Name:          pipeline.StagePatch,
		SystemPrompt:  prompt.PatchSystem,
		Seed:          seed,
		Tools:         specs,
		Schema:        schema.Patch,
		MaxIterations: o.caps.PatchMaxIterations,
		RequireReadOf: target,
	}, nil
}

// numbered renders plan steps as a numbered list.
func numbered(steps []string) string {
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}
