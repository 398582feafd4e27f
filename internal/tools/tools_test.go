package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// newTestFacade builds a facade over a small fixture codebase.
func newTestFacade(t *testing.T) (*Facade, string, string) {
	t.Helper()
	root := t.TempDir()
	patches := t.TempDir()

	files := map[string]string{
		"services/user.py": "from app.models import User\nimport logging\n\n\ndef fetch(user):\n    return user.emails\n",
		"app/main.py":      "import os\nimport services.user\n",
		"web/index.js":     "import React from 'react';\nimport { api } from './api';\nconst fs = require('fs');\n",
		"README.md":        "# demo\n",
		".env":             "SECRET=1\n",
	}
	for path, content := range files {
		abs := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	return NewFacade(root, patches), root, patches
}

func TestReadFile(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ReadFile, map[string]any{"file_path": "services/user.py"})
	if !res.Success {
		t.Fatalf("read failed: %v", res.Err)
	}
	content := res.Payload["content"].(string)
	if !strings.Contains(content, "user.emails") {
		t.Errorf("content missing expected line: %q", content)
	}
	if lines := res.Payload["lines"].(int); lines != 7 {
		t.Errorf("lines = %d, want 7", lines)
	}
}

func TestReadFileLeadingSlashStripped(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ReadFile, map[string]any{"file_path": "/services/user.py"})
	if !res.Success {
		t.Fatalf("read with absolute-style path failed: %v", res.Err)
	}
}

func TestReadFileNotFound(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ReadFile, map[string]any{"file_path": "services/ghost.py"})
	if res.Success {
		t.Fatal("expected failure for missing file")
	}
	if res.Err.Kind != NotFound {
		t.Errorf("kind = %v, want NotFound", res.Err.Kind)
	}
}

func TestReadFileEscapeDenied(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ReadFile, map[string]any{"file_path": "../../../etc/passwd"})
	if res.Success {
		t.Fatal("expected failure for escaping path")
	}
	if res.Err.Kind != AccessDenied {
		t.Errorf("kind = %v, want AccessDenied", res.Err.Kind)
	}
}

func TestListDirectory(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ProjectDirectory, map[string]any{})
	if !res.Success {
		t.Fatalf("list failed: %v", res.Err)
	}
	tree := res.Payload["structure"].(map[string]any)

	services, found := tree["services/"].(map[string]any)
	if !found {
		t.Fatalf("services/ missing from tree: %v", tree)
	}
	if services["user.py"] != "file" {
		t.Errorf("services/user.py not marked as file: %v", services)
	}
	if _, leaked := tree[".env"]; leaked {
		t.Error("hidden file leaked into tree")
	}
}

func TestListDirectoryDepthTruncation(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ProjectDirectory, map[string]any{"max_depth": float64(1)})
	if !res.Success {
		t.Fatalf("list failed: %v", res.Err)
	}
	tree := res.Payload["structure"].(map[string]any)
	services := tree["services/"].(map[string]any)
	if len(services) != 0 {
		t.Errorf("depth 1 should truncate below top level, got %v", services)
	}
}

func TestListDirectoryNotFound(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ProjectDirectory, map[string]any{"relative_path": "missing"})
	if res.Success || res.Err.Kind != NotFound {
		t.Fatalf("got %+v, want NotFound failure", res)
	}
}

func TestCheckDependencyPython(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(CheckDependency, map[string]any{"file_path": "services/user.py"})
	if !res.Success {
		t.Fatalf("check failed: %v", res.Err)
	}
	py := res.Payload["python_dependencies"].([]string)
	if want := []string{"app.models", "logging"}; !reflect.DeepEqual(py, want) {
		t.Errorf("python deps = %v, want %v", py, want)
	}
	top := res.Payload["dependencies"].([]string)
	if want := []string{"app", "logging"}; !reflect.DeepEqual(top, want) {
		t.Errorf("top-level deps = %v, want %v", top, want)
	}
}

func TestCheckDependencyJS(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(CheckDependency, map[string]any{"file_path": "web/index.js"})
	if !res.Success {
		t.Fatalf("check failed: %v", res.Err)
	}
	js := res.Payload["js_dependencies"].([]string)
	if want := []string{"./api", "fs", "react"}; !reflect.DeepEqual(js, want) {
		t.Errorf("js deps = %v, want %v", js, want)
	}
	// Relative imports drop out of the merged top-level set.
	top := res.Payload["dependencies"].([]string)
	if want := []string{"fs", "react"}; !reflect.DeepEqual(top, want) {
		t.Errorf("top-level deps = %v, want %v", top, want)
	}
}

func TestCheckDependencyNoImports(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(CheckDependency, map[string]any{"file_path": "README.md"})
	if !res.Success {
		t.Fatalf("file with no imports should succeed: %v", res.Err)
	}
	if deps := res.Payload["dependencies"].([]string); len(deps) != 0 {
		t.Errorf("deps = %v, want empty", deps)
	}
}

func TestCreatePatch(t *testing.T) {
	f, _, patches := newTestFacade(t)

	res := f.Dispatch(CreatePatch, map[string]any{
		"original_file_path": "services/user.py",
		"fixed_content":      "def fetch(user):\n    return user.email\n",
	})
	if !res.Success {
		t.Fatalf("create patch failed: %v", res.Err)
	}

	if name := res.Payload["fixed_filename"].(string); name != "fixed_user.py" {
		t.Errorf("fixed_filename = %q", name)
	}
	outPath := res.Payload["patch_file"].(string)
	if filepath.Dir(outPath) != patches {
		t.Errorf("patch written outside patch dir: %q", outPath)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read patch: %v", err)
	}
	if string(data) != "def fetch(user):\n    return user.email\n" {
		t.Errorf("patch content = %q", data)
	}
}

func TestCreatePatchIdempotent(t *testing.T) {
	f, _, _ := newTestFacade(t)

	args := map[string]any{
		"original_file_path": "services/user.py",
		"fixed_content":      "x = 1\n",
	}
	first := f.Dispatch(CreatePatch, args)
	second := f.Dispatch(CreatePatch, args)
	if !first.Success || !second.Success {
		t.Fatalf("dispatches failed: %v / %v", first.Err, second.Err)
	}

	if first.Payload["patch_file"] != second.Payload["patch_file"] {
		t.Errorf("paths differ: %v vs %v", first.Payload["patch_file"], second.Payload["patch_file"])
	}
	if first.Payload["size_bytes"] != second.Payload["size_bytes"] || first.Payload["lines"] != second.Payload["lines"] {
		t.Errorf("metadata differs between identical calls: %v vs %v", first.Payload, second.Payload)
	}

	data, err := os.ReadFile(second.Payload["patch_file"].(string))
	if err != nil {
		t.Fatalf("read patch: %v", err)
	}
	if string(data) != "x = 1\n" {
		t.Errorf("content = %q", data)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch("rm_rf", map[string]any{})
	if res.Success || res.Err.Kind != UnknownTool {
		t.Fatalf("got %+v, want UnknownTool failure", res)
	}
}

func TestDispatchBadArguments(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ReadFile, map[string]any{"file_path": 42})
	if res.Success || res.Err.Kind != BadArguments {
		t.Fatalf("got %+v, want BadArguments failure", res)
	}

	res = f.Dispatch(CreatePatch, map[string]any{"original_file_path": "a.py"})
	if res.Success || res.Err.Kind != BadArguments {
		t.Fatalf("got %+v, want BadArguments failure for missing content", res)
	}
}

func TestResultContentRoundTrips(t *testing.T) {
	f, _, _ := newTestFacade(t)

	res := f.Dispatch(ReadFile, map[string]any{"file_path": "app/main.py"})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(res.Content()), &decoded); err != nil {
		t.Fatalf("Content is not valid JSON: %v", err)
	}
	if decoded["success"] != true {
		t.Errorf("success = %v", decoded["success"])
	}

	res = f.Dispatch(ReadFile, map[string]any{"file_path": "nope.py"})
	if err := json.Unmarshal([]byte(res.Content()), &decoded); err != nil {
		t.Fatalf("failure Content is not valid JSON: %v", err)
	}
	if decoded["success"] != false || decoded["error_kind"] != string(NotFound) {
		t.Errorf("failure content = %v", decoded)
	}
}

func TestSpecs(t *testing.T) {
	specs, err := Specs(ReadFile, CreatePatch)
	if err != nil {
		t.Fatalf("Specs: %v", err)
	}
	if len(specs) != 2 || specs[0].Name != ReadFile || specs[1].Name != CreatePatch {
		t.Errorf("specs = %+v", specs)
	}

	if _, err := Specs("bogus"); err == nil {
		t.Error("expected error for unknown spec name")
	}
}
