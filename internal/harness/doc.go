// Package harness provides scenario-driven conformance testing for the
// pairing engine.
//
// A scenario is a YAML file describing a fresh deployment, a funding setup,
// a flow of operations with expected outcomes, and assertions over the
// final state and the event trace. The harness builds a real deployment
// over an in-memory store and drives the real engine; nothing in the trace
// is manufactured.
//
// # Scenario Format
//
//	name: mint_transfer_burn
//	description: "A mints, transfers the pair to B, B burns and collects the refund"
//	deployment:
//	  fee: "1000000"
//	setup:
//	  - fund: alice
//	    amount: "2000000"
//	flow:
//	  - invoke: mint_pair
//	    caller: alice
//	    pointer: "ipfs://collection/0"
//	  - invoke: transfer_pair
//	    caller: alice
//	    to: bob
//	    token_id: 0
//	  - invoke: burn_pair
//	    caller: bob
//	    token_id: 0
//	    expect: ok
//	assertions:
//	  - type: balance
//	    token: USDS
//	    account: bob
//	    amount: "1000000"
//	  - type: event_order
//	    events: [pair_minted, pair_transferred, pair_burned]
//
// # Operations
//
// mint_pair, burn_pair, transfer_pair, pause, unpause, withdraw. Each step
// names its caller; expect is "ok" (the default) or an error code such as
// "INSUFFICIENT_FUNDS".
//
// # Assertion Types
//
//   - pair_live: a pair identifier is (or is not) live
//   - owner: current owner of a collectible
//   - balance: absolute balance of an account on a token, in base units
//   - escrow: the engine's accounted fee custody
//   - event_count: number of events of one type in the log
//   - event_order: event types appear in exactly this order
//   - replay_clean: replaying the log reproduces the snapshot
//
// # Determinism
//
// Scenarios run with sequential operation tokens ("op-1", "op-2", ...) and
// the engine's logical clock starting at zero, so the same scenario always
// produces a byte-identical canonical trace. RunWithGolden compares that
// trace against testdata/golden/{name}.golden; regenerate with
//
//	go test ./internal/harness -update
package harness
