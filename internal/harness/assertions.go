package harness

import (
	"context"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/engine"
)

// evaluateAssertions checks every assertion against the final deployment
// state and the collected trace. All assertions are evaluated even after a
// failure so the result lists everything that went wrong.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion, result *Result) {
	for i, a := range assertions {
		switch a.Type {
		case AssertPairLive:
			h.assertPairLive(i, a, result)
		case AssertOwner:
			h.assertOwner(i, a, result)
		case AssertBalance:
			h.assertBalance(i, a, result)
		case AssertEscrow:
			h.assertEscrow(i, a, result)
		case AssertEventCount:
			assertEventCount(i, a, result)
		case AssertEventOrder:
			assertEventOrder(i, a, result)
		case AssertReplayClean:
			h.assertReplayClean(ctx, i, result)
		default:
			result.AddError("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
}

func (h *Harness) assertPairLive(index int, a Assertion, result *Result) {
	want := true
	if a.Live != nil {
		want = *a.Live
	}
	got := h.eng.PairLive(asset.TokenID(*a.TokenID))
	if got != want {
		result.AddError("assertions[%d]: pair %d live = %v, want %v", index, *a.TokenID, got, want)
	}
}

func (h *Harness) assertOwner(index int, a Assertion, result *Result) {
	owner, err := h.reg.OwnerOf(asset.TokenID(*a.TokenID))
	if err != nil {
		result.AddError("assertions[%d]: owner of %d: %v", index, *a.TokenID, err)
		return
	}
	if owner != asset.Address(a.Owner) {
		result.AddError("assertions[%d]: owner of %d = %s, want %s", index, *a.TokenID, owner, a.Owner)
	}
}

func (h *Harness) assertBalance(index int, a Assertion, result *Result) {
	var got string
	switch a.Token {
	case pairedSymbol:
		got = asset.FormatAmount(h.ledger.BalanceOf(asset.Address(a.Account)))
	case stableSymbol:
		got = asset.FormatAmount(h.stable.BalanceOf(asset.Address(a.Account)))
	default:
		result.AddError("assertions[%d]: unknown token %q", index, a.Token)
		return
	}
	if got != a.Amount {
		result.AddError("assertions[%d]: balance %s/%s = %s, want %s", index, a.Token, a.Account, got, a.Amount)
	}
}

func (h *Harness) assertEscrow(index int, a Assertion, result *Result) {
	got := asset.FormatAmount(h.eng.Escrow())
	if got != a.Amount {
		result.AddError("assertions[%d]: escrow = %s, want %s", index, got, a.Amount)
	}
}

func assertEventCount(index int, a Assertion, result *Result) {
	count := 0
	for _, ev := range result.Trace {
		if ev.Type == asset.EventType(a.Event) {
			count++
		}
	}
	if count != a.Count {
		result.AddError("assertions[%d]: %s appears %d times, want %d", index, a.Event, count, a.Count)
	}
}

func assertEventOrder(index int, a Assertion, result *Result) {
	if len(result.Trace) != len(a.Events) {
		result.AddError("assertions[%d]: trace has %d events, want %d", index, len(result.Trace), len(a.Events))
		return
	}
	for i, ev := range result.Trace {
		if ev.Type != asset.EventType(a.Events[i]) {
			result.AddError("assertions[%d]: trace[%d] = %s, want %s", index, i, ev.Type, a.Events[i])
			return
		}
	}
}

func (h *Harness) assertReplayClean(ctx context.Context, index int, result *Result) {
	cfg := engine.ReplayConfig{
		PairedSymbol:  pairedSymbol,
		StableSymbol:  stableSymbol,
		StableAddress: stableAddr,
		EngineAddress: engineAddr,
		Fee:           h.eng.Fee(),
	}
	if err := engine.VerifyReplay(ctx, h.st, cfg); err != nil {
		result.AddError("assertions[%d]: replay: %v", index, err)
	}
}
