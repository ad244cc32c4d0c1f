// Package diff parses unified diffs and applies them to baseline documents,
// so an edit can be analyzed from a patch instead of two full trees.
package diff

import (
	"fmt"
	"sort"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"hotdelta/internal/errors"
)

// Line is one hunk line. Op is ' ' for context, '-' for removal and '+' for
// addition.
type Line struct {
	Op   byte
	Text string
}

// Hunk is one contiguous change.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line

	// NoNewline is set when the new side ends without a trailing newline.
	NoNewline bool
}

// FilePatch is the change to one document.
type FilePatch struct {
	OldPath string
	NewPath string
	IsNew   bool
	Deleted bool
	Renamed bool
	Hunks   []Hunk
}

// Path returns the most relevant path of the change.
func (fp *FilePatch) Path() string {
	if fp.Deleted {
		return fp.OldPath
	}
	return fp.NewPath
}

// Patch is a parsed multi-file diff.
type Patch struct {
	Files []FilePatch
}

// GitDiffParser parses unified git diffs into structured data
type GitDiffParser struct{}

// NewGitDiffParser creates a new GitDiffParser
func NewGitDiffParser() *GitDiffParser {
	return &GitDiffParser{}
}

// Parse parses a unified diff string into a Patch
func (p *GitDiffParser) Parse(diffContent string) (*Patch, error) {
	if strings.TrimSpace(diffContent) == "" {
		return &Patch{}, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, errors.New(errors.PatchRejected, "failed to parse diff", err)
	}

	result := &Patch{Files: make([]FilePatch, 0, len(fileDiffs))}
	for _, fd := range fileDiffs {
		result.Files = append(result.Files, p.parseFileDiff(fd))
	}
	return result, nil
}

// parseFileDiff converts a go-diff FileDiff to our FilePatch
func (p *GitDiffParser) parseFileDiff(fd *godiff.FileDiff) FilePatch {
	fp := FilePatch{
		OldPath: cleanPath(fd.OrigName),
		NewPath: cleanPath(fd.NewName),
		Hunks:   make([]Hunk, 0, len(fd.Hunks)),
	}

	if fd.OrigName == "/dev/null" || fd.OrigName == "" {
		fp.IsNew = true
		fp.OldPath = ""
	}
	if fd.NewName == "/dev/null" || fd.NewName == "" {
		fp.Deleted = true
		fp.NewPath = ""
	}
	if fp.OldPath != "" && fp.NewPath != "" && fp.OldPath != fp.NewPath {
		fp.Renamed = true
	}

	for _, hunk := range fd.Hunks {
		fp.Hunks = append(fp.Hunks, p.parseHunk(hunk))
	}
	return fp
}

// parseHunk converts a go-diff Hunk to our Hunk
func (p *GitDiffParser) parseHunk(hunk *godiff.Hunk) Hunk {
	h := Hunk{
		OldStart: int(hunk.OrigStartLine),
		OldLines: int(hunk.OrigLines),
		NewStart: int(hunk.NewStartLine),
		NewLines: int(hunk.NewLines),
	}

	body := strings.TrimSuffix(string(hunk.Body), "\n")
	if body == "" {
		return h
	}
	for _, line := range strings.Split(body, "\n") {
		if len(line) == 0 {
			// Editors strip the space of blank context lines
			h.Lines = append(h.Lines, Line{Op: ' '})
			continue
		}
		switch line[0] {
		case '+', '-', ' ':
			h.Lines = append(h.Lines, Line{Op: line[0], Text: line[1:]})
		case '\\':
			// "\ No newline at end of file" applies to the line before it
			if n := len(h.Lines); n > 0 && h.Lines[n-1].Op != '-' {
				h.NoNewline = true
			}
		}
	}
	return h
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// ParseGitDiff is a convenience function to parse a git diff string
func ParseGitDiff(diffContent string) (*Patch, error) {
	return NewGitDiffParser().Parse(diffContent)
}

// Apply applies the patch to baseline contents keyed by path and returns the
// resulting contents together with the sorted paths the patch touched.
// Baseline is not modified.
func Apply(baseline map[string]string, patch *Patch) (map[string]string, []string, error) {
	out := make(map[string]string, len(baseline))
	for path, content := range baseline {
		out[path] = content
	}

	touched := make(map[string]struct{})
	for i := range patch.Files {
		fp := &patch.Files[i]
		var current string
		if !fp.IsNew {
			content, ok := out[fp.OldPath]
			if !ok {
				return nil, nil, errors.Newf(errors.PatchRejected, "%s: not in baseline", fp.OldPath)
			}
			current = content
		} else if _, exists := out[fp.NewPath]; exists {
			return nil, nil, errors.Newf(errors.PatchRejected, "%s: already exists", fp.NewPath)
		}

		if fp.Deleted {
			delete(out, fp.OldPath)
			touched[fp.OldPath] = struct{}{}
			continue
		}

		next, err := ApplyFile(current, fp)
		if err != nil {
			return nil, nil, err
		}
		if fp.Renamed {
			delete(out, fp.OldPath)
			touched[fp.OldPath] = struct{}{}
		}
		out[fp.NewPath] = next
		touched[fp.NewPath] = struct{}{}
	}

	paths := make([]string, 0, len(touched))
	for path := range touched {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return out, paths, nil
}

// ApplyFile applies the hunks of one file patch to content. Hunks must match
// their context exactly; a hunk whose context moved is searched for nearby
// the way patch(1) applies offsets.
func ApplyFile(content string, fp *FilePatch) (string, error) {
	lines, trailingNewline := splitLines(content)
	var out []string
	pos := 0
	for i, h := range fp.Hunks {
		old, added := h.sides()
		want := h.OldStart - 1
		if h.OldLines == 0 {
			want = h.OldStart
		}
		at, ok := locate(lines, old, want, pos)
		if !ok {
			return "", errors.Newf(errors.PatchRejected, "%s: hunk %d does not apply at line %d", fp.Path(), i+1, h.OldStart).
				WithDetails(map[string]interface{}{"path": fp.Path(), "hunk": i + 1, "line": h.OldStart})
		}
		out = append(out, lines[pos:at]...)
		out = append(out, added...)
		pos = at + len(old)

		if h.NoNewline {
			trailingNewline = false
		} else if pos == len(lines) && len(added) > 0 {
			trailingNewline = true
		}
	}
	out = append(out, lines[pos:]...)

	if len(out) == 0 {
		return "", nil
	}
	result := strings.Join(out, "\n")
	if trailingNewline {
		result += "\n"
	}
	return result, nil
}

// sides returns the old-side lines the hunk expects and the new-side lines
// it produces.
func (h Hunk) sides() (old, added []string) {
	for _, l := range h.Lines {
		switch l.Op {
		case ' ':
			old = append(old, l.Text)
			added = append(added, l.Text)
		case '-':
			old = append(old, l.Text)
		case '+':
			added = append(added, l.Text)
		}
	}
	return old, added
}

// locate finds old in lines, preferring want and searching outward, never
// before floor.
func locate(lines, old []string, want, floor int) (int, bool) {
	if want < floor {
		want = floor
	}
	for delta := 0; ; delta++ {
		below, above := want-delta, want+delta
		if below < floor && above+len(old) > len(lines) {
			return 0, false
		}
		if below >= floor && matchesAt(lines, old, below) {
			return below, true
		}
		if delta > 0 && matchesAt(lines, old, above) {
			return above, true
		}
	}
}

func matchesAt(lines, old []string, at int) bool {
	if at < 0 || at+len(old) > len(lines) {
		return false
	}
	for i, l := range old {
		if strings.TrimRight(lines[at+i], "\r") != strings.TrimRight(l, "\r") {
			return false
		}
	}
	return true
}

func splitLines(content string) ([]string, bool) {
	if content == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(content, "\n")
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n"), trailing
}

func (l Line) String() string {
	return fmt.Sprintf("%c%s", l.Op, l.Text)
}
