package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// seedHistory commits a small mixed history:
//
//	1 op-1 pair_minted      alice  id 0
//	2 op-2 pair_minted      alice  id 1
//	3 op-3 pair_transferred alice -> bob, id 0
//	4 op-4 pair_burned      bob    id 0
//	5 op-5 pause_changed    true
func seedHistory(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	paused := true
	commits := []struct {
		ev    asset.Event
		delta Delta
	}{
		{mintEvent(1, "op-1", 0, "alice"), Delta{PairsPut: []asset.TokenID{0}}},
		{mintEvent(2, "op-2", 1, "alice"), Delta{PairsPut: []asset.TokenID{1}}},
		{asset.Event{Seq: 3, OpToken: "op-3", Type: asset.EventPairTransferred, From: "alice", To: "bob", TokenID: 0, Amount: "1000000"}, Delta{}},
		{asset.Event{Seq: 4, OpToken: "op-4", Type: asset.EventPairBurned, Owner: "bob", TokenID: 0, Amount: "1000000"}, Delta{PairsDel: []asset.TokenID{0}}},
		{asset.Event{Seq: 5, OpToken: "op-5", Type: asset.EventPauseChanged, Owner: "pauser", Paused: true}, Delta{Paused: &paused}},
	}
	for _, c := range commits {
		require.NoError(t, s.Commit(ctx, []asset.Event{c.ev}, c.delta))
	}
}

func TestReadEvents_TotalOrder(t *testing.T) {
	s := openStore(t)
	seedHistory(t, s)

	events, err := s.ReadEvents(context.Background(), EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestReadEvents_FilterByType(t *testing.T) {
	s := openStore(t)
	seedHistory(t, s)

	events, err := s.ReadEvents(context.Background(), EventFilter{
		Types: []asset.EventType{asset.EventPairMinted, asset.EventPairBurned},
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, asset.EventPairMinted, events[0].Type)
	assert.Equal(t, asset.EventPairBurned, events[2].Type)
}

func TestReadEvents_FilterByAccountMatchesAnyRole(t *testing.T) {
	s := openStore(t)
	seedHistory(t, s)

	// bob appears as transfer recipient and as burn owner.
	events, err := s.ReadEvents(context.Background(), EventFilter{Account: "bob"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(3), events[0].Seq)
	assert.Equal(t, int64(4), events[1].Seq)
}

func TestReadEvents_FilterByTokenID(t *testing.T) {
	s := openStore(t)
	seedHistory(t, s)

	id := asset.TokenID(0)
	events, err := s.ReadEvents(context.Background(), EventFilter{TokenID: &id})
	require.NoError(t, err)
	// Mint, transfer, burn of id 0; the pause event has no token_id.
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, id, ev.TokenID)
	}
}

func TestReadEvents_FilterByOpToken(t *testing.T) {
	s := openStore(t)
	seedHistory(t, s)

	events, err := s.ReadEvents(context.Background(), EventFilter{OpToken: "op-3"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, asset.EventPairTransferred, events[0].Type)
}

func TestReadEvents_SinceSeqAndLimit(t *testing.T) {
	s := openStore(t)
	seedHistory(t, s)

	events, err := s.ReadEvents(context.Background(), EventFilter{SinceSeq: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(3), events[0].Seq)
	assert.Equal(t, int64(4), events[1].Seq)
}

func TestReadEvents_NoMatchesIsEmptyNotNil(t *testing.T) {
	s := openStore(t)

	events, err := s.ReadEvents(context.Background(), EventFilter{Account: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestMaxSeq_TracksHighestCommitted(t *testing.T) {
	s := openStore(t)
	seedHistory(t, s)

	seq, err := s.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)
}

func TestLoadSnapshot_EmptyDatabaseDefaults(t *testing.T) {
	s := openStore(t)

	snap, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Pairs)
	assert.Empty(t, snap.Collectibles)
	assert.Empty(t, snap.Balances)
	assert.Equal(t, uint64(0), snap.NextID)
	assert.Equal(t, "0", snap.Escrow)
	assert.False(t, snap.Paused)
}
