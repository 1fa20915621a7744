package engine

import (
	"context"
	"fmt"

	"github.com/couplet-xyz/couplet/internal/access"
	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/store"
)

// Pause halts mint, burn and transfer operations. Requires the pauser or
// admin role. Pausing an already paused deployment is an error so that a
// pause always corresponds to exactly one pause_changed event.
func (e *Engine) Pause(ctx context.Context, caller asset.Address) error {
	return e.setPaused(ctx, "engine.Pause", caller, true)
}

// Unpause resumes operations. Requires the pauser or admin role.
func (e *Engine) Unpause(ctx context.Context, caller asset.Address) error {
	return e.setPaused(ctx, "engine.Unpause", caller, false)
}

func (e *Engine) setPaused(ctx context.Context, op string, caller asset.Address, paused bool) error {
	release, err := e.enter(op)
	if err != nil {
		return err
	}
	defer release()

	if !e.acl.Has(access.RolePauser, caller) && !e.acl.Has(access.RoleAdmin, caller) {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s holds neither the pauser nor the admin role", caller)
	}
	if e.Paused() == paused {
		state := "active"
		if paused {
			state = "paused"
		}
		return asset.NewError(asset.CodeValidation, op, "deployment is already %s", state)
	}

	ev := asset.Event{
		Seq:     e.clock.Next(),
		OpToken: e.opGen.Generate(),
		Type:    asset.EventPauseChanged,
		Owner:   caller,
		Paused:  paused,
	}
	delta := store.Delta{Paused: &paused}
	if err := e.st.Commit(ctx, []asset.Event{ev}, delta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	e.mu.Lock()
	e.paused = paused
	e.mu.Unlock()

	e.logger.Info("pause changed", "op", ev.OpToken, "by", string(caller), "paused", paused)
	return nil
}

// EmergencyWithdraw moves amount of a custodied token from the engine to
// the caller. Admin only, and deliberately not gated on the pause flag:
// recovering stranded funds is the reason the pause exists. Withdrawing
// the fee stablecoin reduces the tracked escrow by the overlapping part.
// Emits emergency_withdrawal.
func (e *Engine) EmergencyWithdraw(ctx context.Context, caller asset.Address, tokenAddr asset.Address, amount string) error {
	const op = "engine.EmergencyWithdraw"
	release, err := e.enter(op)
	if err != nil {
		return err
	}
	defer release()

	if err := e.acl.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if err := e.requireExternal(op, caller); err != nil {
		return err
	}
	amt, err := asset.ParseAmount(amount)
	if err != nil {
		return asset.NewError(asset.CodeValidation, op, "amount %q: %v", amount, err)
	}
	if amt.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "amount is zero")
	}
	e.mu.RLock()
	tok, ok := e.withdrawable[tokenAddr]
	e.mu.RUnlock()
	if !ok {
		return asset.NewError(asset.CodeValidation, op, "token %s is not registered for withdrawal", tokenAddr)
	}
	// The withdrawal transfer runs after the commit; a gated token has to
	// be rejected here.
	if tok.Paused() {
		return asset.NewError(asset.CodePaused, op, "%s is paused", tok.Symbol())
	}
	held := tok.BalanceOf(e.cfg.Address)
	if held.Lt(amt) {
		return asset.NewError(asset.CodeInsufficient, op,
			"engine holds %s of %s, requested %s", asset.FormatAmount(held), tok.Symbol(), amount)
	}

	engineBal := sub(held, amt)
	callerBal := add(tok.BalanceOf(caller), amt)
	newEscrow := e.Escrow()
	isStable := tokenAddr == addressOf(e.stable) && !tokenAddr.IsZero()
	if isStable && newEscrow.Gt(engineBal) {
		newEscrow = engineBal
	}

	ev := asset.Event{
		Seq:     e.clock.Next(),
		OpToken: e.opGen.Generate(),
		Type:    asset.EventEmergencyWithdrawal,
		Asset:   tokenAddr,
		To:      caller,
		Amount:  asset.FormatAmount(amt),
	}
	delta := store.Delta{
		Balances: []store.BalanceRow{
			{Token: tok.Symbol(), Account: e.cfg.Address, Amount: asset.FormatAmount(engineBal)},
			{Token: tok.Symbol(), Account: caller, Amount: asset.FormatAmount(callerBal)},
		},
	}
	if isStable {
		delta.Escrow = asset.FormatAmount(newEscrow)
	}

	if err := e.st.Commit(ctx, []asset.Event{ev}, delta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = e.applySteps(op, []step{
		{
			name: "withdraw",
			do:   func() error { return tok.Transfer(e.cfg.Address, caller, amt) },
		},
	})
	if err != nil {
		return err
	}

	if isStable {
		e.mu.Lock()
		e.escrow = newEscrow
		e.mu.Unlock()
	}

	e.logger.Warn("emergency withdrawal",
		"op", ev.OpToken, "asset", string(tokenAddr), "to", string(caller), "amount", ev.Amount)
	return nil
}
