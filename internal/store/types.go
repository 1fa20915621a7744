package store

import "github.com/couplet-xyz/couplet/internal/asset"

// Meta table keys for scalar deployment state.
const (
	metaNextID = "next_id"
	metaEscrow = "escrow"
	metaPaused = "paused"
)

// BalanceRow is the absolute balance of one account on one token after an
// operation. Deltas carry absolute values, not differences, so commits are
// idempotent upserts.
type BalanceRow struct {
	Token   string
	Account asset.Address
	Amount  string // decimal base units
}

// CollectibleRow is one registry entry: identifier, current owner, and the
// stored metadata pointer.
type CollectibleRow struct {
	ID      asset.TokenID
	Owner   asset.Address
	Pointer string
}

// Delta is the snapshot-table mutation set of one committed operation.
// Zero-valued fields mean "unchanged". The engine builds one Delta per
// operation and commits it atomically with the operation's events.
type Delta struct {
	PairsPut        []asset.TokenID
	PairsDel        []asset.TokenID
	Collectibles    []CollectibleRow // upsert: new mints and ownership changes
	CollectiblesDel []asset.TokenID
	Balances        []BalanceRow // absolute upsert
	NextID          *uint64
	Escrow          string // decimal base units; "" = unchanged
	Paused          *bool
}

// Snapshot is the full persisted state of a deployment, read back when the
// deployment is reopened.
type Snapshot struct {
	Pairs        map[asset.TokenID]bool
	Collectibles map[asset.TokenID]CollectibleRow
	Balances     map[string]map[asset.Address]string // token -> account -> amount
	NextID       uint64
	Escrow       string
	Paused       bool
}
