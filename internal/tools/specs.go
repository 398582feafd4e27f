package tools

import "fmt"

// Spec describes a tool signature as advertised to the inference service:
// name, human-readable description, and a JSON-schema object for arguments.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

var specByName = map[string]Spec{
	ReadFile: {
		Name:        ReadFile,
		Description: "Read a source file from the codebase. Returns the file content and its line count.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path to the file, relative to the codebase root.",
				},
			},
			"required": []string{"file_path"},
		},
	},
	ProjectDirectory: {
		Name:        ProjectDirectory,
		Description: "List the project directory structure as a nested tree of folders and files.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"relative_path": map[string]any{
					"type":        "string",
					"description": "Directory to list, relative to the codebase root. Defaults to the root itself.",
				},
				"max_depth": map[string]any{
					"type":        "integer",
					"description": "Maximum nesting depth to descend. Defaults to 5.",
				},
			},
		},
	},
	CheckDependency: {
		Name:        CheckDependency,
		Description: "Extract the modules a source file imports, without executing it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path to the file, relative to the codebase root.",
				},
			},
			"required": []string{"file_path"},
		},
	},
	CreatePatch: {
		Name:        CreatePatch,
		Description: "Write the fixed version of a file into the patch output directory as fixed_<original name>.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"original_file_path": map[string]any{
					"type":        "string",
					"description": "Path of the original buggy file.",
				},
				"fixed_content": map[string]any{
					"type":        "string",
					"description": "The complete fixed file content, verbatim.",
				},
			},
			"required": []string{"original_file_path", "fixed_content"},
		},
	},
}

// Specs returns the signatures for the named tools, preserving order.
// Requesting an unknown name is a wiring bug and returns an error.
func Specs(names ...string) ([]Spec, error) {
	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		spec, found := specByName[name]
		if !found {
			return nil, fmt.Errorf("no such tool %q", name)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
