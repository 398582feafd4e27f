package tools

import (
	"os"
	"path/filepath"
	"strings"
)

// resolve maps a model-supplied path to an absolute path under the codebase
// root. Leading slashes are stripped first (traces often carry container
// paths), then the joined path is checked for escapes via ".." segments.
func (f *Facade) resolve(tool, path string) (string, *Error) {
	rootAbs, err := filepath.Abs(f.codebaseRoot)
	if err != nil {
		return "", ioFailure(tool, f.codebaseRoot, err)
	}

	joined := filepath.Join(rootAbs, strings.TrimPrefix(path, "/"))
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", ioFailure(tool, path, err)
	}

	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", accessDenied(tool, path)
	}
	return abs, nil
}

// readFile returns the file's content and line count.
func (f *Facade) readFile(path string) Result {
	abs, rerr := f.resolve(ReadFile, path)
	if rerr != nil {
		return fail(rerr)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return fail(notFound(ReadFile, path))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fail(ioFailure(ReadFile, path, err))
	}

	content := string(data)
	return ok(map[string]any{
		"file_path":     path,
		"absolute_path": abs,
		"content":       content,
		"lines":         countLines(content),
	})
}

// countLines counts newline-delimited lines the way editors display them.
func countLines(content string) int {
	return len(strings.Split(content, "\n"))
}
