package asset

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ParseAmount parses a decimal string of base units into a 256-bit amount.
//
// Only plain non-negative decimal integers are accepted. Empty strings,
// signs, fractional points, and non-digit characters are rejected: amounts
// cross the CLI, manifest, scenario, and store boundaries as strings, and a
// lenient parse would let a malformed balance slip into the ledger silently.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("amount %q: not a decimal integer", s)
		}
	}
	a, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return a, nil
}

// FormatAmount renders an amount as a plain decimal string of base units.
// This is the canonical form used in events, the store, and golden traces.
func FormatAmount(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return a.Dec()
}

// FormatUnits renders an amount with the fixed 6-decimal point for display,
// e.g. 1_000_000 base units -> "1.000000".
func FormatUnits(a *uint256.Int) string {
	dec := FormatAmount(a)
	if len(dec) <= Decimals {
		dec = strings.Repeat("0", Decimals-len(dec)+1) + dec
	}
	return dec[:len(dec)-Decimals] + "." + dec[len(dec)-Decimals:]
}
