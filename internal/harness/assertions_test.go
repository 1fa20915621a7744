package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runScenario is a helper for assertion tests: one funded mint, then the
// given assertions.
func runWithAssertions(t *testing.T, assertions string) *Result {
	t.Helper()
	s := mustParse(t, `
name: assertion_fixture
description: "one funded mint"
setup:
  - fund: alice
    amount: "1000000"
flow:
  - invoke: mint_pair
    caller: alice
    pointer: "ipfs://x"
assertions:`+assertions)
	result, err := Run(s)
	require.NoError(t, err)
	return result
}

func TestAssertPairLive_Mismatch(t *testing.T) {
	result := runWithAssertions(t, `
  - type: pair_live
    token_id: 0
    live: false
`)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "pair 0 live = true, want false")
}

func TestAssertOwner_Mismatch(t *testing.T) {
	result := runWithAssertions(t, `
  - type: owner
    token_id: 0
    owner: bob
`)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "owner of 0 = alice, want bob")
}

func TestAssertOwner_UnknownCollectible(t *testing.T) {
	result := runWithAssertions(t, `
  - type: owner
    token_id: 9
    owner: alice
`)
	assert.False(t, result.Pass)
}

func TestAssertBalance_Mismatch(t *testing.T) {
	result := runWithAssertions(t, `
  - type: balance
    token: PAIR
    account: alice
    amount: "7"
`)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "balance PAIR/alice = 1000000, want 7")
}

func TestAssertEscrow_Mismatch(t *testing.T) {
	result := runWithAssertions(t, `
  - type: escrow
    amount: "0"
`)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "escrow = 1000000, want 0")
}

func TestAssertEventCount_Mismatch(t *testing.T) {
	result := runWithAssertions(t, `
  - type: event_count
    event: pair_burned
    count: 1
`)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "pair_burned appears 0 times, want 1")
}

func TestAssertEventOrder_LengthAndTypeMismatch(t *testing.T) {
	result := runWithAssertions(t, `
  - type: event_order
    events: [pair_minted, pair_burned]
`)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "trace has 1 events, want 2")

	result = runWithAssertions(t, `
  - type: event_order
    events: [pair_burned]
`)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "trace[0] = pair_minted, want pair_burned")
}

func TestAssertions_AllEvaluatedAfterFailure(t *testing.T) {
	result := runWithAssertions(t, `
  - type: escrow
    amount: "0"
  - type: pair_live
    token_id: 0
    live: false
  - type: owner
    token_id: 0
    owner: alice
`)
	assert.False(t, result.Pass)
	// Two failures collected; the passing owner assertion adds nothing.
	assert.Len(t, result.Errors, 2)
}

func TestAssertReplayClean_PassesOnHealthyRun(t *testing.T) {
	result := runWithAssertions(t, `
  - type: replay_clean
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
