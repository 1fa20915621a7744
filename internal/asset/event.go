package asset

import "fmt"

// EventType names one of the append-only log event kinds.
type EventType string

const (
	// EventPairMinted records a successful pair mint: owner received one
	// collectible and one fixed fungible unit, the fee entered escrow.
	EventPairMinted EventType = "pair_minted"

	// EventPairBurned records a successful pair burn: both halves were
	// destroyed and the fee refunded to the owner.
	EventPairBurned EventType = "pair_burned"

	// EventPairTransferred records both halves of a live pair moving from
	// one holder to another in a single operation.
	EventPairTransferred EventType = "pair_transferred"

	// EventEmergencyWithdrawal records an administrator sweeping tokens
	// out of engine custody, bypassing the pairing flow.
	EventEmergencyWithdrawal EventType = "emergency_withdrawal"

	// EventPauseChanged records the engine pause flag toggling.
	EventPauseChanged EventType = "pause_changed"
)

// Event is one entry in the ordered operation log. Seq is assigned by the
// engine's logical clock and totally orders all events of a deployment;
// OpToken correlates the event with the operation that emitted it.
//
// Field usage by type:
//
//	pair_minted           Owner, TokenID, Amount
//	pair_burned           Owner, TokenID, Amount
//	pair_transferred      From, To, TokenID, Amount
//	emergency_withdrawal  Asset, To, Amount
//	pause_changed         Paused
type Event struct {
	Seq     int64
	OpToken string
	Type    EventType

	Owner   Address
	From    Address
	To      Address
	TokenID TokenID
	Amount  string // decimal base units
	Asset   Address
	Paused  bool
}

// pairEvent reports whether the event type carries a TokenID.
func (e Event) pairEvent() bool {
	switch e.Type {
	case EventPairMinted, EventPairBurned, EventPairTransferred:
		return true
	}
	return false
}

// CanonicalMap converts the event to a map for canonical JSON serialization.
// Unused fields are omitted; TokenID is always present on pair events even
// when zero, since identifier 0 is a valid pair.
func (e Event) CanonicalMap() map[string]any {
	m := map[string]any{
		"seq":      e.Seq,
		"op_token": e.OpToken,
		"type":     string(e.Type),
	}
	if e.Owner != ZeroAddress {
		m["owner"] = string(e.Owner)
	}
	if e.From != ZeroAddress {
		m["from"] = string(e.From)
	}
	if e.To != ZeroAddress {
		m["to"] = string(e.To)
	}
	if e.pairEvent() {
		m["token_id"] = int64(e.TokenID)
	}
	if e.Amount != "" {
		m["amount"] = e.Amount
	}
	if e.Asset != ZeroAddress {
		m["asset"] = string(e.Asset)
	}
	if e.Type == EventPauseChanged {
		m["paused"] = e.Paused
	}
	return m
}

// Validate checks that the event carries the fields its type requires.
// The store rejects malformed events before inserting them.
func (e Event) Validate() error {
	if e.Seq <= 0 {
		return fmt.Errorf("event seq must be positive, got %d", e.Seq)
	}
	if e.OpToken == "" {
		return fmt.Errorf("event op token is empty")
	}
	switch e.Type {
	case EventPairMinted, EventPairBurned:
		if e.Owner == ZeroAddress {
			return fmt.Errorf("%s: owner is required", e.Type)
		}
		if e.Amount == "" {
			return fmt.Errorf("%s: amount is required", e.Type)
		}
	case EventPairTransferred:
		if e.From == ZeroAddress || e.To == ZeroAddress {
			return fmt.Errorf("%s: from and to are required", e.Type)
		}
		if e.Amount == "" {
			return fmt.Errorf("%s: amount is required", e.Type)
		}
	case EventEmergencyWithdrawal:
		if e.Asset == ZeroAddress || e.To == ZeroAddress {
			return fmt.Errorf("%s: asset and to are required", e.Type)
		}
		if e.Amount == "" {
			return fmt.Errorf("%s: amount is required", e.Type)
		}
	case EventPauseChanged:
		// paused carries its own value; nothing further required
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
