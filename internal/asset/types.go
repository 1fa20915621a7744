package asset

import "github.com/holiman/uint256"

// Address identifies an account that can hold fungible balance and
// collectibles. Addresses are opaque, case-sensitive strings; the empty
// string is the reserved zero address and is never a valid holder.
type Address string

// ZeroAddress is the reserved null account. Minting to it or transferring
// to it is a validation error everywhere in the system.
const ZeroAddress Address = ""

// IsZero reports whether the address is the reserved zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// TokenID identifies one collectible. IDs are assigned from a monotonic
// per-registry counter and are never reused, even after a burn.
type TokenID uint64

// Decimals is the fixed fractional precision shared by the paired fungible
// token and the stablecoin. One displayed unit is 10^Decimals base units.
const Decimals = 6

// PairUnit returns the fixed fungible amount bound to every collectible:
// exactly one displayed unit (10^6 base units). The mint fee and burn refund
// default to this same value.
//
// Returns a fresh value each call; uint256.Int is mutable and callers must
// never share one across mutations.
func PairUnit() *uint256.Int {
	return uint256.NewInt(1_000_000)
}
