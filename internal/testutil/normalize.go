package testutil

import (
	"encoding/json"
	"testing"
)

// volatileFields change between runs of the same analysis.
var volatileFields = map[string]bool{
	"runId":      true,
	"durationNs": true,
	"createdAt":  true,
	"updatedAt":  true,
}

// NormalizeJSON decodes JSON output and drops volatile fields at any depth,
// so two runs of the same analysis compare equal.
func NormalizeJSON(t *testing.T, data []byte) any {
	t.Helper()

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Failed to unmarshal JSON for normalization: %v\n%s", err, data)
	}
	return normalizeValue(v)
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if volatileFields[k] {
				continue
			}
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
