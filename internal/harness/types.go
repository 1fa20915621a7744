package harness

import (
	"fmt"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Pass is true when every flow expectation and assertion held.
	Pass bool

	// Trace is the full event log the run produced, in seq order.
	Trace []asset.Event

	// Errors lists every expectation or assertion that failed.
	// Empty when Pass is true.
	Errors []string
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
