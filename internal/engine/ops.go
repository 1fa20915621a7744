package engine

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/store"
)

// step is one mutation of the apply phase. Steps whose inverse does not
// exist through the capability surface carry a nil undo and are ordered
// after every step that can still be rolled back.
type step struct {
	name string
	do   func() error
	undo func() error
}

// applySteps runs the apply phase. Validation has already guaranteed each
// step succeeds; a rejection here is a wiring bug, not a caller error.
// Completed steps are undone in reverse (best effort) and the error tells
// the operator to reopen the deployment from the store, which is the
// source of truth.
func (e *Engine) applySteps(op string, steps []step) error {
	for i, s := range steps {
		if err := s.do(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if steps[j].undo != nil {
					_ = steps[j].undo()
				}
			}
			return asset.NewError(asset.CodeInvariant, op,
				"in-memory state diverged from the committed log at %q: %v; reopen the deployment from the store", s.name, err)
		}
	}
	return nil
}

// MintPair creates a new pair for the caller: pulls the fixed stablecoin
// fee into engine custody, mints one fixed fungible unit and one new
// collectible to the caller, and records the pair as live.
//
// Returns the new collectible identifier. Emits pair_minted.
func (e *Engine) MintPair(ctx context.Context, caller asset.Address, pointer string) (asset.TokenID, error) {
	const op = "engine.MintPair"
	release, err := e.enter(op)
	if err != nil {
		return 0, err
	}
	defer release()

	// Validate: fail-fast, no partial state. Every precondition the apply
	// phase depends on is checked here, before anything is committed.
	if err := e.requireActive(op); err != nil {
		return 0, err
	}
	if err := e.requirePairCapabilities(op, true); err != nil {
		return 0, err
	}
	if caller.IsZero() {
		return 0, asset.NewError(asset.CodeValidation, op, "caller address is zero")
	}
	if err := e.requireExternal(op, caller); err != nil {
		return 0, err
	}
	resolved, err := e.registry.ResolvePointer(pointer)
	if err != nil {
		return 0, err
	}
	fee := e.cfg.Fee
	if e.stable.BalanceOf(caller).Lt(fee) {
		return 0, asset.NewError(asset.CodeInsufficient, op,
			"%s balance of %s is below the pair fee %s", e.stable.Symbol(), caller, asset.FormatAmount(fee))
	}
	if e.stable.Allowance(caller, e.cfg.Address).Lt(fee) {
		return 0, asset.NewError(asset.CodeInsufficient, op,
			"%s allowance from %s to the engine is below the pair fee %s", e.stable.Symbol(), caller, asset.FormatAmount(fee))
	}

	// Compute effects from current state.
	unit := asset.PairUnit()
	id := e.registry.NextID()
	callerStable := sub(e.stable.BalanceOf(caller), fee)
	engineStable := add(e.stable.BalanceOf(e.cfg.Address), fee)
	callerUnits := add(e.ledger.BalanceOf(caller), unit)
	newEscrow := add(e.Escrow(), fee)
	nextID := uint64(id) + 1

	ev := asset.Event{
		Seq:     e.clock.Next(),
		OpToken: e.opGen.Generate(),
		Type:    asset.EventPairMinted,
		Owner:   caller,
		TokenID: id,
		Amount:  asset.FormatAmount(unit),
	}
	delta := store.Delta{
		PairsPut:     []asset.TokenID{id},
		Collectibles: []store.CollectibleRow{{ID: id, Owner: caller, Pointer: resolved}},
		Balances: []store.BalanceRow{
			{Token: e.ledger.Symbol(), Account: caller, Amount: asset.FormatAmount(callerUnits)},
			{Token: e.stable.Symbol(), Account: caller, Amount: asset.FormatAmount(callerStable)},
			{Token: e.stable.Symbol(), Account: e.cfg.Address, Amount: asset.FormatAmount(engineStable)},
		},
		NextID: &nextID,
		Escrow: asset.FormatAmount(newEscrow),
	}

	// Commit, then apply.
	if err := e.st.Commit(ctx, []asset.Event{ev}, delta); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	err = e.applySteps(op, []step{
		{
			name: "pull fee",
			do: func() error {
				return e.stable.TransferFrom(e.cfg.Address, caller, e.cfg.Address, fee)
			},
			undo: func() error { return e.stable.Transfer(e.cfg.Address, caller, fee) },
		},
		{
			name: "mint fungible unit",
			do:   func() error { return e.ledger.Mint(e.cfg.Address, caller, unit) },
			undo: func() error { return e.ledger.Burn(e.cfg.Address, caller, unit) },
		},
		{
			name: "mint collectible",
			do: func() error {
				minted, err := e.registry.MintResolved(e.cfg.Address, caller, resolved)
				if err != nil {
					return err
				}
				if minted != id {
					return fmt.Errorf("registry assigned id %d, expected %d", minted, id)
				}
				return nil
			},
			undo: func() error { return e.registry.Burn(e.cfg.Address, id) },
		},
	})
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.pairs[id] = true
	e.escrow = newEscrow
	e.mu.Unlock()

	e.logger.Info("pair minted",
		"op", ev.OpToken, "owner", string(caller), "token_id", uint64(id),
		"amount", ev.Amount)
	return id, nil
}

// BurnPair destroys the caller's pair: burns the fungible unit and the
// collectible, deletes the liveness record, and refunds the fixed fee.
// The identifier is never reassigned. Emits pair_burned.
func (e *Engine) BurnPair(ctx context.Context, caller asset.Address, id asset.TokenID) error {
	const op = "engine.BurnPair"
	release, err := e.enter(op)
	if err != nil {
		return err
	}
	defer release()

	if err := e.requireActive(op); err != nil {
		return err
	}
	if err := e.requirePairCapabilities(op, true); err != nil {
		return err
	}
	if caller.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "caller address is zero")
	}
	if err := e.requireExternal(op, caller); err != nil {
		return err
	}
	if !e.PairLive(id) {
		return asset.NewError(asset.CodeInvariant, op, "pair %d is not live", id)
	}
	owner, err := e.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s does not own pair %d", caller, id)
	}
	unit := asset.PairUnit()
	if e.ledger.BalanceOf(caller).Lt(unit) {
		return asset.NewError(asset.CodeInsufficient, op,
			"%s balance of %s is below the pair unit", e.ledger.Symbol(), caller)
	}
	fee := e.cfg.Fee
	if e.Escrow().Lt(fee) {
		return asset.NewError(asset.CodeInvariant, op,
			"escrow %s does not cover the refund %s", asset.FormatAmount(e.Escrow()), asset.FormatAmount(fee))
	}
	if e.stable.BalanceOf(e.cfg.Address).Lt(fee) {
		return asset.NewError(asset.CodeInvariant, op,
			"engine custody does not cover the refund %s", asset.FormatAmount(fee))
	}

	callerUnits := sub(e.ledger.BalanceOf(caller), unit)
	callerStable := add(e.stable.BalanceOf(caller), fee)
	engineStable := sub(e.stable.BalanceOf(e.cfg.Address), fee)
	newEscrow := sub(e.Escrow(), fee)

	ev := asset.Event{
		Seq:     e.clock.Next(),
		OpToken: e.opGen.Generate(),
		Type:    asset.EventPairBurned,
		Owner:   caller,
		TokenID: id,
		Amount:  asset.FormatAmount(unit),
	}
	delta := store.Delta{
		PairsDel:        []asset.TokenID{id},
		CollectiblesDel: []asset.TokenID{id},
		Balances: []store.BalanceRow{
			{Token: e.ledger.Symbol(), Account: caller, Amount: asset.FormatAmount(callerUnits)},
			{Token: e.stable.Symbol(), Account: caller, Amount: asset.FormatAmount(callerStable)},
			{Token: e.stable.Symbol(), Account: e.cfg.Address, Amount: asset.FormatAmount(engineStable)},
		},
		Escrow: asset.FormatAmount(newEscrow),
	}

	if err := e.st.Commit(ctx, []asset.Event{ev}, delta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = e.applySteps(op, []step{
		{
			name: "burn fungible unit",
			do:   func() error { return e.ledger.Burn(e.cfg.Address, caller, unit) },
			undo: func() error { return e.ledger.Mint(e.cfg.Address, caller, unit) },
		},
		{
			// A burned identifier cannot be re-minted, so this step
			// has no inverse and runs after every reversible step.
			name: "burn collectible",
			do:   func() error { return e.registry.Burn(e.cfg.Address, id) },
		},
		{
			name: "refund fee",
			do:   func() error { return e.stable.Transfer(e.cfg.Address, caller, fee) },
		},
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.pairs, id)
	e.escrow = newEscrow
	e.mu.Unlock()

	e.logger.Info("pair burned",
		"op", ev.OpToken, "owner", string(caller), "token_id", uint64(id))
	return nil
}

// TransferPair moves both halves of a live pair from the caller to to in
// one operation. The pair stays live; only ownership changes.
// Emits pair_transferred.
func (e *Engine) TransferPair(ctx context.Context, caller, to asset.Address, id asset.TokenID) error {
	const op = "engine.TransferPair"
	release, err := e.enter(op)
	if err != nil {
		return err
	}
	defer release()

	if err := e.requireActive(op); err != nil {
		return err
	}
	if err := e.requirePairCapabilities(op, false); err != nil {
		return err
	}
	if caller.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "caller address is zero")
	}
	if to.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "transfer to zero address")
	}
	if err := e.requireExternal(op, caller); err != nil {
		return err
	}
	if err := e.requireExternal(op, to); err != nil {
		return err
	}
	if !e.PairLive(id) {
		return asset.NewError(asset.CodeInvariant, op, "pair %d is not live", id)
	}
	owner, err := e.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s does not own pair %d", caller, id)
	}
	unit := asset.PairUnit()
	if e.ledger.BalanceOf(caller).Lt(unit) {
		return asset.NewError(asset.CodeInsufficient, op,
			"%s balance of %s is below the pair unit", e.ledger.Symbol(), caller)
	}
	pointer, err := e.registry.Pointer(id)
	if err != nil {
		return err
	}

	callerUnits := sub(e.ledger.BalanceOf(caller), unit)
	toUnits := add(e.ledger.BalanceOf(to), unit)
	if to == caller {
		// Self-transfer moves nothing; keep the absolute rows honest.
		callerUnits = e.ledger.BalanceOf(caller)
		toUnits = e.ledger.BalanceOf(to)
	}

	ev := asset.Event{
		Seq:     e.clock.Next(),
		OpToken: e.opGen.Generate(),
		Type:    asset.EventPairTransferred,
		From:    caller,
		To:      to,
		TokenID: id,
		Amount:  asset.FormatAmount(unit),
	}
	delta := store.Delta{
		Collectibles: []store.CollectibleRow{{ID: id, Owner: to, Pointer: pointer}},
		Balances: []store.BalanceRow{
			{Token: e.ledger.Symbol(), Account: caller, Amount: asset.FormatAmount(callerUnits)},
			{Token: e.ledger.Symbol(), Account: to, Amount: asset.FormatAmount(toUnits)},
		},
	}

	if err := e.st.Commit(ctx, []asset.Event{ev}, delta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = e.applySteps(op, []step{
		{
			name: "move fungible unit",
			do:   func() error { return e.ledger.TransferFrom(e.cfg.Address, caller, to, unit) },
			undo: func() error { return e.ledger.TransferFrom(e.cfg.Address, to, caller, unit) },
		},
		{
			name: "move collectible",
			do:   func() error { return e.registry.Transfer(e.cfg.Address, caller, to, id) },
			undo: func() error { return e.registry.Transfer(e.cfg.Address, to, caller, id) },
		},
	})
	if err != nil {
		return err
	}

	e.logger.Info("pair transferred",
		"op", ev.OpToken, "from", string(caller), "to", string(to), "token_id", uint64(id))
	return nil
}

func add(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(a, b)
}

func sub(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sub(a, b)
}
