package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couplet-xyz/couplet/internal/asset"
)

func mintEvent(seq int64, op string, id asset.TokenID, owner asset.Address) asset.Event {
	return asset.Event{
		Seq: seq, OpToken: op, Type: asset.EventPairMinted,
		Owner: owner, TokenID: id, Amount: "1000000",
	}
}

func TestCommit_WritesEventsAndDeltaAtomically(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	nextID := uint64(1)
	err := s.Commit(ctx, []asset.Event{mintEvent(1, "op-1", 0, "alice")}, Delta{
		PairsPut:     []asset.TokenID{0},
		Collectibles: []CollectibleRow{{ID: 0, Owner: "alice", Pointer: "ipfs://a"}},
		Balances: []BalanceRow{
			{Token: "PAIR", Account: "alice", Amount: "1000000"},
			{Token: "USDS", Account: "engine", Amount: "1000000"},
		},
		NextID: &nextID,
		Escrow: "1000000",
	})
	require.NoError(t, err)

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Pairs[0])
	assert.Equal(t, CollectibleRow{ID: 0, Owner: "alice", Pointer: "ipfs://a"}, snap.Collectibles[0])
	assert.Equal(t, "1000000", snap.Balances["PAIR"]["alice"])
	assert.Equal(t, "1000000", snap.Balances["USDS"]["engine"])
	assert.Equal(t, uint64(1), snap.NextID)
	assert.Equal(t, "1000000", snap.Escrow)
	assert.False(t, snap.Paused)

	events, err := s.ReadEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, mintEvent(1, "op-1", 0, "alice"), events[0])
}

func TestCommit_RejectsMalformedEventBeforeWriting(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	err := s.Commit(ctx, []asset.Event{{Seq: 1, Type: asset.EventPairMinted}}, Delta{
		PairsPut: []asset.TokenID{0},
	})
	require.Error(t, err)

	// Nothing landed, not even the valid-looking delta.
	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Pairs)
}

func TestCommit_DuplicateSeqRollsBackWholeOperation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, []asset.Event{mintEvent(1, "op-1", 0, "alice")}, Delta{}))

	err := s.Commit(ctx, []asset.Event{mintEvent(1, "op-2", 1, "bob")}, Delta{
		PairsPut: []asset.TokenID{1},
	})
	require.Error(t, err)

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Pairs[1])
	events, err := s.ReadEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestCommit_BalanceUpsertIsAbsolute(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, []asset.Event{mintEvent(1, "op-1", 0, "alice")}, Delta{
		Balances: []BalanceRow{{Token: "PAIR", Account: "alice", Amount: "1000000"}},
	}))
	require.NoError(t, s.Commit(ctx, []asset.Event{mintEvent(2, "op-2", 1, "alice")}, Delta{
		Balances: []BalanceRow{{Token: "PAIR", Account: "alice", Amount: "2000000"}},
	}))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2000000", snap.Balances["PAIR"]["alice"])
}

func TestCommit_PairDeleteAndMetaPaused(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, []asset.Event{mintEvent(1, "op-1", 0, "alice")}, Delta{
		PairsPut:     []asset.TokenID{0},
		Collectibles: []CollectibleRow{{ID: 0, Owner: "alice", Pointer: "ipfs://a"}},
	}))

	paused := true
	require.NoError(t, s.Commit(ctx, []asset.Event{
		{Seq: 2, OpToken: "op-2", Type: asset.EventPairBurned, Owner: "alice", TokenID: 0, Amount: "1000000"},
		{Seq: 3, OpToken: "op-3", Type: asset.EventPauseChanged, Owner: "pauser", Paused: true},
	}, Delta{
		PairsDel:        []asset.TokenID{0},
		CollectiblesDel: []asset.TokenID{0},
		Escrow:          "0",
		Paused:          &paused,
	}))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Pairs)
	assert.Empty(t, snap.Collectibles)
	assert.Equal(t, "0", snap.Escrow)
	assert.True(t, snap.Paused)
}

func TestCommit_NonPairEventStoresNullTokenID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, []asset.Event{
		{Seq: 1, OpToken: "op-1", Type: asset.EventEmergencyWithdrawal, Asset: "usd-token", To: "admin", Amount: "5"},
	}, Delta{}))

	var count int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM events WHERE token_id IS NULL`,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSeedBalance_PersistsOutsideTheLog(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedBalance(ctx, BalanceRow{Token: "USDS", Account: "alice", Amount: "2000000"}))

	// Absolute amount: reseeding overwrites, never accumulates.
	require.NoError(t, s.SeedBalance(ctx, BalanceRow{Token: "USDS", Account: "alice", Amount: "1500000"}))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1500000", snap.Balances["USDS"]["alice"])

	maxSeq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxSeq, "funding must not append events")
}

func TestSeedBalance_RejectsMalformedAmount(t *testing.T) {
	s := openStore(t)

	err := s.SeedBalance(context.Background(), BalanceRow{Token: "USDS", Account: "alice", Amount: "12.5"})
	require.Error(t, err)
}
