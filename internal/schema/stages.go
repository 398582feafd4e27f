package schema

// Stage result field names shared between the schemas, the orchestrator's
// cross-stage wiring, and the web/CLI presentation layers.
const (
	FieldErrorType    = "error_type"
	FieldErrorMessage = "error_message"
	FieldRootCause    = "root_cause"
	FieldAffectedFile = "affected_file"
	FieldAffectedLine = "affected_line"

	FieldFixSummary    = "fix_summary"
	FieldFilesToModify = "files_to_modify"
	FieldPatchPlan     = "patch_plan"
	FieldSafety        = "safety_considerations"

	FieldPatchFile    = "patch_file"
	FieldOriginalFile = "original_file"
	FieldPatchSummary = "summary"
)

// RootCause is the contract for the root-cause stage's terminal answer.
var RootCause = Schema{
	Name: "root-cause",
	Fields: []Field{
		{Name: FieldErrorType, Type: String, Required: true},
		{Name: FieldErrorMessage, Type: String, Required: true},
		{Name: FieldRootCause, Type: String, Required: true},
		{Name: FieldAffectedFile, Type: String, Required: true},
		{Name: FieldAffectedLine, Type: Int, Required: true},
	},
}

// FixPlan is the contract for the fix-plan stage's terminal answer.
var FixPlan = Schema{
	Name: "fix-plan",
	Fields: []Field{
		{Name: FieldFixSummary, Type: String, Required: true},
		{Name: FieldFilesToModify, Type: StringList, Required: true},
		{Name: FieldPatchPlan, Type: StringList, Required: true},
		{Name: FieldSafety, Type: String, Required: false},
	},
}

// Patch is the contract for the patch stage's terminal answer. The patch file
// itself is written through the create_patch_file tool; the terminal answer
// reports where it landed.
var Patch = Schema{
	Name: "patch",
	Fields: []Field{
		{Name: FieldPatchFile, Type: String, Required: true},
		{Name: FieldOriginalFile, Type: String, Required: true},
		{Name: FieldPatchSummary, Type: String, Required: false},
	},
}
