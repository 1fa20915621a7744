package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ParsesAllFixtures(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		assert.NotEmpty(t, s.Name, path)
		assert.NotEmpty(t, s.Flow, path)
		assert.NotEmpty(t, s.Assertions, path)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(os.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	// "assertion" instead of "assertions" must not be silently dropped.
	_, err := ParseScenario([]byte(`
name: typo
description: "unknown top-level key"
flow:
  - invoke: pause
    caller: pauser
assertion:
  - type: escrow
    amount: "0"
`))
	require.Error(t, err)
}

func TestParseScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", `
description: "d"
flow:
  - invoke: pause
    caller: pauser
assertions:
  - type: escrow
    amount: "0"
`},
		{"missing description", `
name: n
flow:
  - invoke: pause
    caller: pauser
assertions:
  - type: escrow
    amount: "0"
`},
		{"empty flow", `
name: n
description: "d"
flow: []
assertions:
  - type: escrow
    amount: "0"
`},
		{"empty assertions", `
name: n
description: "d"
flow:
  - invoke: pause
    caller: pauser
assertions: []
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseScenario_FlowStepValidation(t *testing.T) {
	tests := []struct {
		name string
		step string
	}{
		{"mint without pointer", `
  - invoke: mint_pair
    caller: alice
`},
		{"burn without token_id", `
  - invoke: burn_pair
    caller: alice
`},
		{"transfer without to", `
  - invoke: transfer_pair
    caller: alice
    token_id: 0
`},
		{"withdraw without amount", `
  - invoke: withdraw
    caller: admin
    token: usd-token
`},
		{"missing caller", `
  - invoke: pause
`},
		{"unknown operation", `
  - invoke: teleport_pair
    caller: alice
`},
		{"unknown expect code", `
  - invoke: pause
    caller: pauser
    expect: KABOOM
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(`
name: n
description: "d"
flow:` + tt.step + `
assertions:
  - type: escrow
    amount: "0"
`))
			assert.Error(t, err)
		})
	}
}

func TestParseScenario_AssertionValidation(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
	}{
		{"pair_live without token_id", `
  - type: pair_live
`},
		{"owner without owner", `
  - type: owner
    token_id: 0
`},
		{"balance without account", `
  - type: balance
    token: PAIR
    amount: "0"
`},
		{"balance with bad amount", `
  - type: balance
    token: PAIR
    account: alice
    amount: "1.5"
`},
		{"event_order without events", `
  - type: event_order
`},
		{"unknown type", `
  - type: state_of_the_union
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(`
name: n
description: "d"
flow:
  - invoke: pause
    caller: pauser
assertions:` + tt.assertion + `
`))
			assert.Error(t, err)
		})
	}
}

func TestParseScenario_DeploymentOverrides(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: n
description: "d"
deployment:
  fee: "500"
  base_pointer: "ipfs://collection/"
flow:
  - invoke: pause
    caller: pauser
assertions:
  - type: escrow
    amount: "0"
`))
	require.NoError(t, err)
	assert.Equal(t, "500", s.Deployment.Fee)
	assert.Equal(t, "ipfs://collection/", s.Deployment.BasePointer)

	_, err = ParseScenario([]byte(`
name: n
description: "d"
deployment:
  fee: "lots"
flow:
  - invoke: pause
    caller: pauser
assertions:
  - type: escrow
    amount: "0"
`))
	assert.Error(t, err)
}
