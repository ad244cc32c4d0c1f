package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// updateGolden controls whether expectation files should be rewritten.
// Use: go test ./internal/analysis -run TestScenarios -update
var updateGolden = flag.Bool("update", false, "update expectation files")

// ShouldUpdate returns true if expectation files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// Expectation is the expected outcome of a scenario. Exactly one of Profile
// and Capabilities selects the capability set.
type Expectation struct {
	Profile      string   `yaml:"profile,omitempty"`
	Capabilities string   `yaml:"capabilities,omitempty"`
	Operations   []string `yaml:"operations,omitempty"`
	Rude         []string `yaml:"rude,omitempty"`
}

// ReadExpectation reads an expectation file.
func ReadExpectation(path string) (Expectation, error) {
	var e Expectation
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := yaml.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

func (e Expectation) marshal() []byte {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	_ = enc.Encode(e)
	_ = enc.Close()
	return buf.Bytes()
}

// CompareExpectation compares the outcome against the scenario's
// expectation file, failing with a diff on mismatch. Only Operations and
// Rude of got are compared; the capability selection is kept from the file.
// If -update is set, the file is rewritten instead.
func CompareExpectation(t *testing.T, sc *Scenario, got Expectation) {
	t.Helper()

	got.Profile, got.Capabilities = sc.Expect.Profile, sc.Expect.Capabilities
	actual := got.marshal()

	if *updateGolden {
		if err := os.WriteFile(sc.ExpectPath(), actual, 0o644); err != nil {
			t.Fatalf("Failed to write expectation file: %v", err)
		}
		t.Logf("Updated expectation: %s", sc.ExpectPath())
		return
	}

	expected := sc.Expect.marshal()
	if !bytes.Equal(expected, actual) {
		diff := unifiedDiff(string(expected), string(actual), sc.ExpectPath())
		t.Fatalf("Expectation mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			sc.Name, diff, t.Name())
	}
}

// unifiedDiff produces a simple unified diff between two strings.
func unifiedDiff(expected, got, path string) string {
	var buf bytes.Buffer

	expectedLines := strings.Split(expected, "\n")
	gotLines := strings.Split(got, "\n")

	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	maxLines := len(expectedLines)
	if len(gotLines) > maxLines {
		maxLines = len(gotLines)
	}

	inHunk := false
	hunkStart := 0
	var hunkLines []string

	flushHunk := func() {
		if len(hunkLines) > 0 {
			fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", hunkStart+1, len(hunkLines), hunkStart+1, len(hunkLines))
			for _, line := range hunkLines {
				buf.WriteString(line)
				buf.WriteString("\n")
			}
			hunkLines = nil
		}
	}

	for i := 0; i < maxLines; i++ {
		var expLine, gotLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(gotLines) {
			gotLine = gotLines[i]
		}

		if expLine == gotLine {
			if inHunk {
				hunkLines = append(hunkLines, " "+expLine)
				if len(hunkLines) > 6 {
					flushHunk()
					inHunk = false
				}
			}
			continue
		}

		if !inHunk {
			inHunk = true
			hunkStart = i
			for j := max(0, i-3); j < i; j++ {
				hunkLines = append(hunkLines, " "+expectedLines[j])
			}
		}
		if i < len(expectedLines) && expLine != "" {
			hunkLines = append(hunkLines, "-"+expLine)
		}
		if i < len(gotLines) && gotLine != "" {
			hunkLines = append(hunkLines, "+"+gotLine)
		}
	}

	flushHunk()
	return buf.String()
}
