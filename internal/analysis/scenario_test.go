package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hotdelta/internal/capability"
	"hotdelta/internal/testutil"
)

func scenarioCapabilities(t *testing.T, e testutil.Expectation) capability.Set {
	t.Helper()
	if e.Profile != "" {
		return profile(t, e.Profile)
	}
	return capability.Parse(e.Capabilities)
}

func TestScenarios(t *testing.T) {
	testutil.ForEachScenario(t, func(t *testing.T, sc *testutil.Scenario) {
		res, err := NewEngine(Options{}).Analyze(context.Background(), Request{
			Name:         sc.Name,
			Old:          sc.Old,
			New:          sc.New,
			Capabilities: scenarioCapabilities(t, sc.Expect),
		})
		require.NoError(t, err)

		got := testutil.Expectation{Operations: opStrings(res.Operations)}
		for _, k := range diagKinds(res.Diagnostics) {
			got.Rude = append(got.Rude, string(k))
		}
		testutil.CompareExpectation(t, sc, got)
	})
}
