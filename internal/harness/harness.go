package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/couplet-xyz/couplet/internal/access"
	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/engine"
	"github.com/couplet-xyz/couplet/internal/registry"
	"github.com/couplet-xyz/couplet/internal/store"
	"github.com/couplet-xyz/couplet/internal/testutil"
	"github.com/couplet-xyz/couplet/internal/token"
)

// Standard scenario identities. The admin, pauser, and issuer exist in
// every deployment the harness builds; actors are whatever addresses the
// scenario names.
const (
	engineAddr asset.Address = "engine"
	issuerAddr asset.Address = "issuer"
	adminAddr  asset.Address = "admin"
	pauserAddr asset.Address = "pauser"

	pairedSymbol = "PAIR"
	stableSymbol = "USDS"

	stableAddr asset.Address = "usd-token"
)

// Harness drives one scenario against a real deployment.
type Harness struct {
	st     *store.Store
	eng    *engine.Engine
	ledger *token.Ledger
	stable *token.Ledger
	reg    *registry.Registry
	logger *slog.Logger
}

// Run executes a scenario and returns the result. Each run gets a fresh
// in-memory database; operation tokens are sequential, so two runs of the
// same scenario produce byte-identical traces.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	h, err := build(st, scenario.Deployment)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	trace, err := st.ReadEvents(ctx, store.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	result.Trace = trace

	h.evaluateAssertions(ctx, scenario.Assertions, result)
	return result, nil
}

// build wires a fresh deployment over st.
func build(st *store.Store, spec DeploymentSpec) (*Harness, error) {
	acl, err := access.NewController(adminAddr)
	if err != nil {
		return nil, err
	}
	if err := acl.Grant(adminAddr, access.RolePauser, pauserAddr); err != nil {
		return nil, err
	}

	ledger := token.New(token.Config{Symbol: pairedSymbol, Restricted: true}, engineAddr)
	stable := token.New(token.Config{Symbol: stableSymbol, Address: stableAddr}, issuerAddr)
	reg, err := registry.New(registry.Config{Symbol: pairedSymbol, BasePointer: spec.BasePointer}, engineAddr)
	if err != nil {
		return nil, err
	}

	cfg := engine.Config{Address: engineAddr}
	if spec.Fee != "" {
		fee, err := asset.ParseAmount(spec.Fee)
		if err != nil {
			return nil, err
		}
		cfg.Fee = fee
	}

	eng, err := engine.New(st, ledger, reg, stable, acl, testutil.NewSequentialOpTokens("op"), cfg)
	if err != nil {
		return nil, err
	}

	return &Harness{
		st:     st,
		eng:    eng,
		ledger: ledger,
		stable: stable,
		reg:    reg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// executeSetup funds actors. Setup failures abort the run: they indicate a
// broken scenario, not engine behavior under test.
func (h *Harness) executeSetup(steps []SetupStep) error {
	for i, step := range steps {
		amount, err := asset.ParseAmount(step.Amount)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		actor := asset.Address(step.Fund)
		if err := h.stable.Mint(issuerAddr, actor, amount); err != nil {
			return fmt.Errorf("setup[%d]: fund %s: %w", i, actor, err)
		}
		if err := h.stable.Approve(actor, engineAddr, amount); err != nil {
			return fmt.Errorf("setup[%d]: approve for %s: %w", i, actor, err)
		}
	}
	return nil
}

// executeStep runs one flow step and checks its expectation.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) {
	caller := asset.Address(step.Caller)
	var err error

	switch step.Invoke {
	case OpMintPair:
		_, err = h.eng.MintPair(ctx, caller, step.Pointer)
	case OpBurnPair:
		err = h.eng.BurnPair(ctx, caller, asset.TokenID(*step.TokenID))
	case OpTransferPair:
		err = h.eng.TransferPair(ctx, caller, asset.Address(step.To), asset.TokenID(*step.TokenID))
	case OpPause:
		err = h.eng.Pause(ctx, caller)
	case OpUnpause:
		err = h.eng.Unpause(ctx, caller)
	case OpWithdraw:
		err = h.eng.EmergencyWithdraw(ctx, caller, asset.Address(step.Token), step.Amount)
	default:
		result.AddError("flow[%d]: unknown operation %q", index, step.Invoke)
		return
	}

	expect := step.Expect
	if expect == "" {
		expect = "ok"
	}
	switch {
	case expect == "ok" && err != nil:
		result.AddError("flow[%d] %s: expected success, got %v", index, step.Invoke, err)
	case expect != "ok" && err == nil:
		result.AddError("flow[%d] %s: expected %s, got success", index, step.Invoke, expect)
	case expect != "ok" && asset.CodeOf(err) != asset.ErrorCode(expect):
		result.AddError("flow[%d] %s: expected %s, got %v", index, step.Invoke, expect, err)
	}
}
