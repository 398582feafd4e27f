package trace

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefectReport is the input to a pipeline run: the raw text of an exception
// trace plus whatever structure could be recovered from it. Reports are
// immutable once built; stages reference them read-only.
type DefectReport struct {
	Raw          string  `json:"raw"`
	ErrorType    string  `json:"error_type,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Frames       []Frame `json:"frames,omitempty"`
}

// Frame is one stack frame recovered from the trace text.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function,omitempty"`
}

var (
	// `File "services/user.py", line 18, in get_user`
	pyFrameRe = regexp.MustCompile(`File "([^"]+)", line (\d+)(?:, in (\S+))?`)
	// `AttributeError: 'User' object has no attribute 'emails'`
	pyErrorRe = regexp.MustCompile(`(?m)^([A-Za-z_][A-Za-z0-9_.]*(?:Error|Exception|Warning|Exit))(?::\s*(.*))?$`)
)

// Parse builds a DefectReport from raw trace text. Parsing is best-effort:
// text that yields no recognizable frames or error line still produces a valid
// report carrying only the raw content, since the root-cause stage works from
// the raw text anyway.
func Parse(raw string) (*DefectReport, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("defect report is empty")
	}

	r := &DefectReport{Raw: raw}

	for _, m := range pyFrameRe.FindAllStringSubmatch(raw, -1) {
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		r.Frames = append(r.Frames, Frame{File: m[1], Line: line, Function: m[3]})
	}

	// The last matching error line is the one that actually terminated the
	// program; earlier ones are chained causes.
	if matches := pyErrorRe.FindAllStringSubmatch(raw, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		r.ErrorType = last[1]
		r.ErrorMessage = strings.TrimSpace(last[2])
	}

	return r, nil
}

// Summary returns a one-line description of the report for logs and run listings.
func (r *DefectReport) Summary() string {
	switch {
	case r.ErrorType != "" && r.ErrorMessage != "":
		return r.ErrorType + ": " + r.ErrorMessage
	case r.ErrorType != "":
		return r.ErrorType
	default:
		first := r.Raw
		if idx := strings.IndexByte(first, '\n'); idx >= 0 {
			first = first[:idx]
		}
		if len(first) > 120 {
			first = first[:120]
		}
		return first
	}
}

// DeepestFrame returns the innermost application frame, skipping frames that
// live under interpreter or installed-package paths. Returns nil if the trace
// had no usable frames.
func (r *DefectReport) DeepestFrame() *Frame {
	for i := len(r.Frames) - 1; i >= 0; i-- {
		f := r.Frames[i]
		if isLibraryPath(f.File) {
			continue
		}
		return &r.Frames[i]
	}
	return nil
}

// isLibraryPath reports whether a frame path points into interpreter or
// dependency code rather than the application under analysis.
func isLibraryPath(path string) bool {
	for _, marker := range []string{"site-packages/", "dist-packages/", "/usr/local/lib/", "/usr/lib/", "node_modules/"} {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}
