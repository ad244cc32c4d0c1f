// Package testutil provides scenario fixtures and expectation files for
// whole-pipeline tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"hotdelta/internal/decl"
)

// Scenario is one edit fixture: the documents before and after an edit and
// the expected analysis outcome.
type Scenario struct {
	// Name is the directory name under testdata/scenarios
	Name string

	// Dir is the absolute path to the scenario directory
	Dir string

	Old []*decl.Document
	New []*decl.Document

	// Expect is the content of expect.yaml
	Expect Expectation
}

// ExpectPath returns the path to the scenario's expectation file.
func (s *Scenario) ExpectPath() string {
	return filepath.Join(s.Dir, "expect.yaml")
}

// LoadScenario loads a scenario, failing the test on error.
func LoadScenario(t *testing.T, name string) *Scenario {
	t.Helper()

	dir := filepath.Join(ScenariosRoot(t), name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatalf("Scenario directory not found: %s", dir)
	}

	sc := &Scenario{Name: name, Dir: dir}
	var err error
	if sc.Old, err = decl.LoadYAML(filepath.Join(dir, "old.yaml")); err != nil {
		t.Fatalf("Failed to load old documents: %v", err)
	}
	if sc.New, err = decl.LoadYAML(filepath.Join(dir, "new.yaml")); err != nil {
		t.Fatalf("Failed to load new documents: %v", err)
	}
	if sc.Expect, err = ReadExpectation(sc.ExpectPath()); err != nil && !os.IsNotExist(err) {
		t.Fatalf("Failed to read expectation: %v", err)
	}
	return sc
}

// ScenariosRoot returns the absolute path to testdata/scenarios/.
func ScenariosRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	root := filepath.Join(projectRoot, "testdata", "scenarios")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		t.Fatalf("Scenarios root not found: %s", root)
	}
	return root
}

// AvailableScenarios returns the sorted scenario names.
func AvailableScenarios(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(ScenariosRoot(t))
	if err != nil {
		t.Fatalf("Failed to read scenarios: %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// ForEachScenario runs fn for every scenario as a subtest.
func ForEachScenario(t *testing.T, fn func(t *testing.T, sc *Scenario)) {
	t.Helper()

	names := AvailableScenarios(t)
	if len(names) == 0 {
		t.Skip("No scenarios available")
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			fn(t, LoadScenario(t, name))
		})
	}
}
