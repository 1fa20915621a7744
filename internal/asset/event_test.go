package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_CanonicalMap_PairEventAlwaysCarriesTokenID(t *testing.T) {
	// Identifier 0 is a valid pair; it must not be dropped as a zero value.
	ev := Event{Seq: 1, OpToken: "op-1", Type: EventPairMinted, Owner: "alice", TokenID: 0, Amount: "1000000"}
	m := ev.CanonicalMap()
	assert.Equal(t, int64(0), m["token_id"])
	assert.Equal(t, "alice", m["owner"])
	assert.NotContains(t, m, "from")
	assert.NotContains(t, m, "to")
	assert.NotContains(t, m, "paused")
}

func TestEvent_CanonicalMap_SerializesDeterministically(t *testing.T) {
	ev := Event{Seq: 3, OpToken: "op-2", Type: EventPairTransferred, From: "alice", To: "bob", TokenID: 7, Amount: "1000000"}
	b, err := MarshalCanonical(ev.CanonicalMap())
	require.NoError(t, err)
	assert.Equal(t,
		`{"amount":"1000000","from":"alice","op_token":"op-2","seq":3,"to":"bob","token_id":7,"type":"pair_transferred"}`,
		string(b))
}

func TestEvent_CanonicalMap_PauseChanged(t *testing.T) {
	ev := Event{Seq: 4, OpToken: "op-3", Type: EventPauseChanged, Owner: "pauser", Paused: false}
	m := ev.CanonicalMap()
	assert.Equal(t, false, m["paused"])
	assert.NotContains(t, m, "token_id")
}

func TestEvent_Validate(t *testing.T) {
	valid := []Event{
		{Seq: 1, OpToken: "op-1", Type: EventPairMinted, Owner: "a", TokenID: 0, Amount: "1"},
		{Seq: 2, OpToken: "op-2", Type: EventPairBurned, Owner: "a", TokenID: 0, Amount: "1"},
		{Seq: 3, OpToken: "op-3", Type: EventPairTransferred, From: "a", To: "b", TokenID: 1, Amount: "1"},
		{Seq: 4, OpToken: "op-4", Type: EventEmergencyWithdrawal, Asset: "usd-token", To: "admin", Amount: "5"},
		{Seq: 5, OpToken: "op-5", Type: EventPauseChanged, Owner: "pauser", Paused: true},
	}
	for _, ev := range valid {
		assert.NoError(t, ev.Validate(), string(ev.Type))
	}

	invalid := []Event{
		{Seq: 0, OpToken: "op-1", Type: EventPairMinted, Owner: "a", Amount: "1"},
		{Seq: 1, Type: EventPairMinted, Owner: "a", Amount: "1"},
		{Seq: 1, OpToken: "op-1", Type: EventPairMinted, Amount: "1"},
		{Seq: 1, OpToken: "op-1", Type: EventPairMinted, Owner: "a"},
		{Seq: 1, OpToken: "op-1", Type: EventPairTransferred, From: "a", Amount: "1"},
		{Seq: 1, OpToken: "op-1", Type: EventEmergencyWithdrawal, To: "admin", Amount: "5"},
		{Seq: 1, OpToken: "op-1", Type: "unheard_of"},
	}
	for i, ev := range invalid {
		assert.Error(t, ev.Validate(), "case %d", i)
	}
}
