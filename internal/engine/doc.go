// Package engine implements the pairing engine: the one component allowed
// to create, move, or destroy a pair of assets.
//
// A pair is one collectible identifier bound to exactly one fixed fungible
// unit. The engine guarantees the pairing invariant: for every live pair,
// the owner of the collectible and the holder of the fungible unit are the
// same address at every point observable between operations. The ledger and
// registry enforce that only the engine can move either half, so no path
// outside MintPair/BurnPair/TransferPair can split a pair.
//
// ARCHITECTURE:
//
// Staged apply:
// Every operation runs in three phases:
//  1. Validate - all preconditions checked against current state, nothing
//     mutated. Every rejectable condition is caught here, so a rejected
//     operation provably has zero side effects.
//  2. Commit - the operation's events and snapshot delta, computed
//     arithmetically from current state, land in the store in a single
//     SQLite transaction. This is the only step that can genuinely fail
//     once validation has passed.
//  3. Apply - the in-memory ledger, registry, and engine state are
//     mutated. Validation guarantees these mutations succeed; if a
//     capability still rejects one (a wiring bug, not a caller error),
//     completed mutations are undone in reverse and the operation reports
//     that in-memory state diverged from the log.
//
// Single-writer discipline:
// A guard flag held for the duration of each operation rejects any call
// that arrives while an operation is executing - including a reentrant
// call from a capability. Operations are thereby totally ordered, and the
// logical clock stamps each event with a strictly increasing seq.
//
// Per-pair state machine:
//
//	NONEXISTENT -> LIVE        (MintPair)
//	LIVE        -> LIVE        (TransferPair, owner changes)
//	LIVE        -> NONEXISTENT (BurnPair; the identifier is never reused)
//
// No other transition is reachable.
package engine
