package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/engine"
	"github.com/couplet-xyz/couplet/internal/testutil"
)

func TestReplay_RebuildsLogDeterminedState(t *testing.T) {
	d := testutil.NewDeployment(t)
	d.FundUnits(t, testutil.AliceAddr, 4)
	ctx := context.Background()

	id0, err := d.Engine.MintPair(ctx, testutil.AliceAddr, "ipfs://a")
	require.NoError(t, err)
	id1, err := d.Engine.MintPair(ctx, testutil.AliceAddr, "ipfs://b")
	require.NoError(t, err)
	require.NoError(t, d.Engine.TransferPair(ctx, testutil.AliceAddr, testutil.BobAddr, id0))
	require.NoError(t, d.Engine.BurnPair(ctx, testutil.BobAddr, id0))
	require.NoError(t, d.Engine.Pause(ctx, testutil.PauserAddr))

	rs, err := engine.Replay(ctx, d.Store, d.ReplayConfig())
	require.NoError(t, err)

	assert.Len(t, rs.Pairs, 1)
	assert.Equal(t, testutil.AliceAddr, rs.Pairs[id1])
	assert.Equal(t, "1000000", asset.FormatAmount(rs.Paired[testutil.AliceAddr]))
	assert.True(t, rs.Paired[testutil.BobAddr].IsZero())
	assert.Equal(t, "1000000", asset.FormatAmount(rs.Custody))
	assert.Equal(t, "1000000", asset.FormatAmount(rs.Escrow))
	assert.True(t, rs.Paused)
	assert.Equal(t, uint64(2), rs.NextID)
	assert.Equal(t, int64(5), rs.MaxSeq)
}

func TestVerifyReplay_PassesAfterMixedHistory(t *testing.T) {
	d := testutil.NewDeployment(t)
	d.FundUnits(t, testutil.AliceAddr, 6)
	ctx := context.Background()

	id0, err := d.Engine.MintPair(ctx, testutil.AliceAddr, "ipfs://a")
	require.NoError(t, err)
	_, err = d.Engine.MintPair(ctx, testutil.AliceAddr, "ipfs://b")
	require.NoError(t, err)
	require.NoError(t, d.Engine.TransferPair(ctx, testutil.AliceAddr, testutil.BobAddr, id0))
	require.NoError(t, d.Engine.BurnPair(ctx, testutil.BobAddr, id0))
	require.NoError(t, d.Engine.EmergencyWithdraw(ctx, testutil.AdminAddr, testutil.StableAddr, "250000"))

	require.NoError(t, engine.VerifyReplay(ctx, d.Store, d.ReplayConfig()))
}

func TestVerifyReplay_EmptyLog(t *testing.T) {
	d := testutil.NewDeployment(t)
	require.NoError(t, engine.VerifyReplay(context.Background(), d.Store, d.ReplayConfig()))
}

func TestRestore_ResumesSeqAndState(t *testing.T) {
	d := testutil.NewDeployment(t)
	d.FundUnits(t, testutil.AliceAddr, 4)
	ctx := context.Background()

	id0, err := d.Engine.MintPair(ctx, testutil.AliceAddr, "ipfs://a")
	require.NoError(t, err)
	_, err = d.Engine.MintPair(ctx, testutil.AliceAddr, "ipfs://b")
	require.NoError(t, err)

	snap, err := d.Store.LoadSnapshot(ctx)
	require.NoError(t, err)
	maxSeq, err := d.Store.MaxSeq(ctx)
	require.NoError(t, err)

	// Reopen: a fresh deployment reloaded from the snapshot.
	fresh := testutil.NewDeployment(t)
	fresh.RestoreAll(t, snap, maxSeq)

	assert.True(t, fresh.Engine.PairLive(id0))
	assert.Equal(t, 2, fresh.Engine.LivePairs())
	assert.Equal(t, "2000000", asset.FormatAmount(fresh.Engine.Escrow()))
	assert.False(t, fresh.Engine.Paused())

	// New events extend the log past the restored seq.
	fresh.FundUnits(t, testutil.BobAddr, 2)
	_, err = fresh.Engine.MintPair(ctx, testutil.BobAddr, "ipfs://c")
	require.NoError(t, err)
	maxSeq, err = fresh.Store.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), maxSeq)
}
