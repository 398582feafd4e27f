package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

// createPatch writes content to a derived filename in the patch directory and
// returns the output path with size and line metadata. The derived name is
// fixed_<basename of the original>, so re-running a pipeline against the same
// file overwrites the previous patch: same inputs, same output.
func (f *Facade) createPatch(originalPath, content string) Result {
	if err := os.MkdirAll(f.patchDir, 0o755); err != nil {
		return fail(ioFailure(CreatePatch, f.patchDir, err))
	}

	fixedName := "fixed_" + filepath.Base(originalPath)
	outPath := filepath.Join(f.patchDir, fixedName)

	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return fail(ioFailure(CreatePatch, outPath, err))
	}

	abs, err := filepath.Abs(outPath)
	if err != nil {
		abs = outPath
	}

	return ok(map[string]any{
		"patch_file":     outPath,
		"original_file":  originalPath,
		"fixed_filename": fixedName,
		"absolute_path":  abs,
		"size_bytes":     len(content),
		"lines":          countLines(content),
		"message":        fmt.Sprintf("patch written to %s", outPath),
	})
}
