package tools

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	pyImportRe     = regexp.MustCompile(`(?m)^\s*import\s+([a-zA-Z0-9_\.]+)`)
	pyFromRe       = regexp.MustCompile(`(?m)^\s*from\s+([a-zA-Z0-9_\.]+)\s+import`)
	jsImportRe     = regexp.MustCompile(`import\s+.*?\s+from\s+['"]([^'"]+)['"]`)
	jsSideEffectRe = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
	jsRequireRe    = regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`)
)

// checkDependency extracts the modules a source file imports. The extraction
// is purely textual, so files that would not run (missing deps, runtime
// errors) still report their imports. A file with no imports is a success
// with empty lists, not a failure.
func (f *Facade) checkDependency(path string) Result {
	abs, rerr := f.resolve(CheckDependency, path)
	if rerr != nil {
		return fail(rerr)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return fail(notFound(CheckDependency, path))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fail(ioFailure(CheckDependency, path, err))
	}
	content := string(data)

	var py, js []string
	for _, re := range []*regexp.Regexp{pyImportRe, pyFromRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			py = append(py, m[1])
		}
	}
	for _, re := range []*regexp.Regexp{jsImportRe, jsSideEffectRe, jsRequireRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			js = append(js, m[1])
		}
	}

	py = sortedUnique(py)
	js = sortedUnique(js)

	return ok(map[string]any{
		"file":                path,
		"python_dependencies": py,
		"js_dependencies":     js,
		"dependencies":        topLevel(py, js),
	})
}

// sortedUnique sorts and de-duplicates, always returning a non-nil slice so
// "no imports" serializes as [] rather than null.
func sortedUnique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := []string{}
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	sort.Strings(out)
	return out
}

// topLevel reduces dotted Python modules and scoped/pathed JS specifiers to
// their top-level module names, merged across both languages.
func topLevel(py, js []string) []string {
	var names []string
	for _, m := range py {
		names = append(names, strings.SplitN(m, ".", 2)[0])
	}
	for _, m := range js {
		if strings.HasPrefix(m, ".") {
			continue // relative import, not an external module
		}
		if strings.HasPrefix(m, "@") {
			// Scoped package: keep scope/name.
			parts := strings.SplitN(m, "/", 3)
			if len(parts) >= 2 {
				names = append(names, parts[0]+"/"+parts[1])
			}
			continue
		}
		names = append(names, strings.SplitN(m, "/", 2)[0])
	}
	return sortedUnique(names)
}
