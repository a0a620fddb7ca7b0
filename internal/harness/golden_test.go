package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Testdata(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "round_once.yaml"))
	require.NoError(t, err)

	var outputs [][]byte
	for i := 0; i < 3; i++ {
		result, err := Run(context.Background(), scenario)
		require.NoError(t, err)
		data, err := Snapshot(scenario.Name, result)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}

func TestSnapshot_RejectedStepListsFields(t *testing.T) {
	scenario := &Scenario{
		Name:        "rejected",
		Description: "unknown event type",
		Steps: []Step{
			{Transaction: map[string]any{"eventType": "REFUND"}, Reject: true},
		},
		Queries: []Query{{Date: "2024-01-01T00:00:00Z", TaxPosition: 0}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	data, err := Snapshot(scenario.Name, result)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"outcome": "rejected"`)
	assert.Contains(t, out, `"eventType"`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `"events": []`)
}
