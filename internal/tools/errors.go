package tools

import "fmt"

// ErrorKind classifies tool failures so the stage loop and tests can branch
// on them without string matching.
type ErrorKind string

const (
	NotFound     ErrorKind = "not_found"
	AccessDenied ErrorKind = "access_denied"
	IOFailure    ErrorKind = "io_failure"
	UnknownTool  ErrorKind = "unknown_tool"
	BadArguments ErrorKind = "bad_arguments"
)

// Error is a structured tool failure. Tool errors are recoverable: they are
// serialized into the failed ToolResult and fed back to the model, never
// propagated up as Go errors.
type Error struct {
	Kind ErrorKind
	Tool string
	Path string
	Msg  string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Tool, e.Path, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Msg)
}

func notFound(tool, path string) *Error {
	return &Error{Kind: NotFound, Tool: tool, Path: path, Msg: "not found"}
}

func accessDenied(tool, path string) *Error {
	return &Error{Kind: AccessDenied, Tool: tool, Path: path, Msg: "path resolves outside the codebase root"}
}

func ioFailure(tool, path string, err error) *Error {
	return &Error{Kind: IOFailure, Tool: tool, Path: path, Msg: err.Error()}
}
