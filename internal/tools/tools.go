// Package tools is the facade over the four side-effecting capabilities the
// inference service may invoke: reading a file, listing the project tree,
// extracting a file's imports, and writing a patch file. All reads are
// confined to a configured codebase root and all writes to a configured patch
// directory.
package tools

import (
	"encoding/json"
	"fmt"
)

// Capability names. The set is closed: dispatch rejects anything else.
const (
	ReadFile         = "read_file"
	ProjectDirectory = "get_project_directory"
	CheckDependency  = "check_dependency"
	CreatePatch      = "create_patch_file"
)

// Facade executes tool invocations against the configured filesystem roots.
type Facade struct {
	codebaseRoot string
	patchDir     string
}

// NewFacade creates a Facade reading under codebaseRoot and writing under patchDir.
func NewFacade(codebaseRoot, patchDir string) *Facade {
	return &Facade{codebaseRoot: codebaseRoot, patchDir: patchDir}
}

// Result is the uniform outcome of a tool invocation. Exactly one of Payload
// or Err is set, matching Success.
type Result struct {
	Success bool
	Payload map[string]any
	Err     *Error
}

func ok(payload map[string]any) Result {
	return Result{Success: true, Payload: payload}
}

func fail(err *Error) Result {
	return Result{Success: false, Err: err}
}

// Content renders the result as the JSON text fed back to the model.
func (r Result) Content() string {
	body := map[string]any{"success": r.Success}
	if r.Success {
		for k, v := range r.Payload {
			body[k] = v
		}
	} else {
		body["error"] = r.Err.Msg
		body["error_kind"] = string(r.Err.Kind)
		if r.Err.Path != "" {
			body["path"] = r.Err.Path
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(data)
}

// Dispatch invokes the named capability with the given arguments. Unknown
// names and malformed arguments produce failed Results, not Go errors: the
// model sees them and can correct itself within its iteration budget.
func (f *Facade) Dispatch(name string, args map[string]any) Result {
	switch name {
	case ReadFile:
		path, err := stringArg(name, args, "file_path", true)
		if err != nil {
			return fail(err)
		}
		return f.readFile(path)

	case ProjectDirectory:
		path, err := stringArg(name, args, "relative_path", false)
		if err != nil {
			return fail(err)
		}
		if path == "" {
			path = "."
		}
		depth, err := intArg(name, args, "max_depth", defaultMaxDepth)
		if err != nil {
			return fail(err)
		}
		return f.listDirectory(path, depth)

	case CheckDependency:
		path, err := stringArg(name, args, "file_path", true)
		if err != nil {
			return fail(err)
		}
		return f.checkDependency(path)

	case CreatePatch:
		orig, err := stringArg(name, args, "original_file_path", true)
		if err != nil {
			return fail(err)
		}
		content, err := stringArg(name, args, "fixed_content", true)
		if err != nil {
			return fail(err)
		}
		return f.createPatch(orig, content)

	default:
		return fail(&Error{Kind: UnknownTool, Tool: name, Msg: fmt.Sprintf("unknown tool %q", name)})
	}
}

// stringArg extracts a string argument, failing if a required one is missing
// or the value has the wrong type.
func stringArg(tool string, args map[string]any, key string, required bool) (string, *Error) {
	raw, present := args[key]
	if !present {
		if required {
			return "", &Error{Kind: BadArguments, Tool: tool, Msg: fmt.Sprintf("missing required argument %q", key)}
		}
		return "", nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", &Error{Kind: BadArguments, Tool: tool, Msg: fmt.Sprintf("argument %q must be a string", key)}
	}
	return s, nil
}

// intArg extracts an integer argument, tolerating the float64 values JSON
// decoding produces.
func intArg(tool string, args map[string]any, key string, fallback int) (int, *Error) {
	raw, present := args[key]
	if !present {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, &Error{Kind: BadArguments, Tool: tool, Msg: fmt.Sprintf("argument %q must be an integer", key)}
	}
}
