package tools

import (
	"os"
	"sort"
	"strings"
)

// defaultMaxDepth bounds directory listings so the model never receives a
// whole-monorepo dump in one tool result.
const defaultMaxDepth = 5

// listDirectory returns a nested mapping of the tree rooted at path,
// truncated at maxDepth levels. Directory keys carry a trailing slash;
// file keys map to the marker "file".
func (f *Facade) listDirectory(path string, maxDepth int) Result {
	abs, rerr := f.resolve(ProjectDirectory, path)
	if rerr != nil {
		return fail(rerr)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return fail(notFound(ProjectDirectory, path))
	}

	if maxDepth < 1 {
		maxDepth = defaultMaxDepth
	}
	return ok(map[string]any{
		"path":      path,
		"structure": buildTree(abs, maxDepth),
	})
}

// buildTree recursively lists dir down to the remaining depth. Hidden entries
// are skipped; unreadable directories appear as empty nodes.
func buildTree(dir string, depth int) map[string]any {
	tree := map[string]any{}
	if depth == 0 {
		return tree
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return tree
	}

	// Directories first, then files, each alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			tree[e.Name()+"/"] = buildTree(dir+string(os.PathSeparator)+e.Name(), depth-1)
		} else {
			tree[e.Name()] = "file"
		}
	}
	return tree
}
