package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios_Golden runs every scenario fixture and compares its
// canonical trace against the committed golden file.
func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestTraceSnapshot_CanonicalShape(t *testing.T) {
	s := mustParse(t, `
name: snapshot_shape
description: "trace snapshot serialization"
setup:
  - fund: alice
    amount: "1000000"
flow:
  - invoke: mint_pair
    caller: alice
    pointer: "ipfs://x"
assertions:
  - type: pair_live
    token_id: 0
`)
	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass)

	b, err := (&TraceSnapshot{ScenarioName: s.Name, Trace: result.Trace}).Canonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"snapshot_shape","trace":[{"amount":"1000000","op_token":"op-1","owner":"alice","seq":1,"token_id":0,"type":"pair_minted"}]}`,
		string(b))
}

func TestTraceSnapshot_EmptyTrace(t *testing.T) {
	b, err := (&TraceSnapshot{ScenarioName: "empty", Trace: nil}).Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"empty","trace":[]}`, string(b))
}
