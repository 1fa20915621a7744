// Package token implements the fungible ledger capability.
//
// One Ledger type serves both fungible assets in a deployment:
//
//   - the paired token, configured Restricted so that only the engine can
//     mint, burn, or move units - holders cannot detach the fungible half
//     of a pair through any direct path
//   - the stablecoin, configured open so that holders transfer freely and
//     grant the engine a fee allowance in the usual approve/transferFrom way
//
// The restriction is an explicit authorization check inside each mutating
// entry point, not a subclass hook: an authorized caller (the engine) moves
// funds by privilege, everyone else by ownership or allowance.
//
// All amounts are 256-bit unsigned integers at a fixed 6-decimal precision.
// Every mutation is a total success or a rejection with no state change.
package token

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// Config declares one ledger instance.
type Config struct {
	// Symbol names the asset in the store and in CLI output.
	Symbol string

	// Address is the ledger's own address, used as the key for emergency
	// withdrawal routing and in the persisted balance table.
	Address asset.Address

	// Restricted gates Transfer to authorized callers only. The paired
	// token sets this; the stablecoin does not.
	Restricted bool
}

// Ledger tracks balances and allowances for one fungible asset.
// Safe for concurrent use, though the engine serializes all mutations.
type Ledger struct {
	cfg        Config
	mu         sync.RWMutex
	authorized map[asset.Address]bool
	balances   map[asset.Address]*uint256.Int
	allowances map[asset.Address]map[asset.Address]*uint256.Int
	total      *uint256.Int
	paused     bool
}

// New creates an empty ledger. The authorized addresses (normally just the
// engine) may mint, burn, and move funds by privilege.
func New(cfg Config, authorized ...asset.Address) *Ledger {
	l := &Ledger{
		cfg:        cfg,
		authorized: make(map[asset.Address]bool, len(authorized)),
		balances:   make(map[asset.Address]*uint256.Int),
		allowances: make(map[asset.Address]map[asset.Address]*uint256.Int),
		total:      new(uint256.Int),
	}
	for _, a := range authorized {
		l.authorized[a] = true
	}
	return l
}

// Symbol returns the configured asset symbol.
func (l *Ledger) Symbol() string { return l.cfg.Symbol }

// Address returns the ledger's own address.
func (l *Ledger) Address() asset.Address { return l.cfg.Address }

// Decimals returns the fixed fractional precision.
func (l *Ledger) Decimals() uint8 { return asset.Decimals }

// BalanceOf returns a copy of addr's balance.
func (l *Ledger) BalanceOf(addr asset.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[addr]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// TotalSupply returns a copy of the total minted supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.total)
}

// Allowance returns a copy of the amount spender may move from owner.
func (l *Ledger) Allowance(owner, spender asset.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Paused reports whether mutations are gated.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

// SetPaused toggles the pause gate. Caller must be authorized.
func (l *Ledger) SetPaused(caller asset.Address, paused bool) error {
	if !l.isAuthorized(caller) {
		return asset.NewError(asset.CodeAuthorization, "token.SetPaused",
			"%s is not authorized on %s", caller, l.cfg.Symbol)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = paused
	return nil
}

// Mint creates amount units for to. Caller must be authorized.
func (l *Ledger) Mint(caller, to asset.Address, amount *uint256.Int) error {
	const op = "token.Mint"
	if err := l.checkMutation(op, caller, to, amount, true); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
	l.total.Add(l.total, amount)
	return nil
}

// Burn destroys amount units held by from. Caller must be authorized and
// from's balance must cover the amount.
func (l *Ledger) Burn(caller, from asset.Address, amount *uint256.Int) error {
	const op = "token.Burn"
	if err := l.checkMutation(op, caller, from, amount, true); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(op, from, amount); err != nil {
		return err
	}
	l.total.Sub(l.total, amount)
	return nil
}

// Transfer moves amount from the caller's own balance to to.
// On a restricted ledger only authorized callers may transfer at all.
func (l *Ledger) Transfer(caller, to asset.Address, amount *uint256.Int) error {
	const op = "token.Transfer"
	if l.cfg.Restricted && !l.isAuthorized(caller) {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s transfers are restricted, %s is not authorized", l.cfg.Symbol, caller)
	}
	if err := l.checkMutation(op, caller, to, amount, false); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(op, caller, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// TransferFrom moves amount from from to to on behalf of spender.
// Authorized spenders move by privilege; anyone else consumes allowance.
// On a restricted ledger the allowance path is closed entirely, so holders
// cannot route around the transfer restriction by approving a third party.
func (l *Ledger) TransferFrom(spender, from, to asset.Address, amount *uint256.Int) error {
	const op = "token.TransferFrom"
	if l.cfg.Restricted && !l.isAuthorized(spender) {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s transfers are restricted, %s is not authorized", l.cfg.Symbol, spender)
	}
	if err := l.checkMutation(op, spender, to, amount, false); err != nil {
		return err
	}
	if from.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "from address is zero")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorized[spender] {
		granted, ok := l.allowances[from][spender]
		if !ok || granted.Lt(amount) {
			return asset.NewError(asset.CodeInsufficient, op,
				"allowance of %s for %s on %s is below %s",
				from, spender, l.cfg.Symbol, asset.FormatAmount(amount))
		}
		// Check balance before consuming the allowance so a failed
		// transfer leaves the allowance untouched.
		if b, ok := l.balances[from]; !ok || b.Lt(amount) {
			return l.insufficientBalance(op, from, amount)
		}
		granted.Sub(granted, amount)
	}
	if err := l.debit(op, from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// Approve sets spender's allowance over owner's balance to amount,
// replacing any previous allowance.
func (l *Ledger) Approve(owner, spender asset.Address, amount *uint256.Int) error {
	const op = "token.Approve"
	if owner.IsZero() || spender.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "owner and spender must be non-zero")
	}
	if amount == nil {
		return asset.NewError(asset.CodeValidation, op, "amount is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return asset.NewError(asset.CodePaused, op, "%s is paused", l.cfg.Symbol)
	}
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[asset.Address]*uint256.Int)
	}
	l.allowances[owner][spender] = new(uint256.Int).Set(amount)
	return nil
}

// Restore replaces the ledger's balances from persisted decimal strings.
// Used when a deployment is reopened from the store; not part of the
// capability surface the engine sees.
func (l *Ledger) Restore(balances map[asset.Address]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[asset.Address]*uint256.Int, len(balances))
	l.total = new(uint256.Int)
	for addr, s := range balances {
		a, err := asset.ParseAmount(s)
		if err != nil {
			return asset.NewError(asset.CodeValidation, "token.Restore",
				"balance of %s on %s: %v", addr, l.cfg.Symbol, err)
		}
		l.balances[addr] = a
		l.total.Add(l.total, a)
	}
	return nil
}

// checkMutation applies the shared precondition order: authorization (when
// required), pause gate, then input validation. Fail-fast, no state touched.
func (l *Ledger) checkMutation(op string, caller, counterparty asset.Address, amount *uint256.Int, privileged bool) error {
	if privileged && !l.isAuthorized(caller) {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s is not authorized on %s", caller, l.cfg.Symbol)
	}
	l.mu.RLock()
	paused := l.paused
	l.mu.RUnlock()
	if paused {
		return asset.NewError(asset.CodePaused, op, "%s is paused", l.cfg.Symbol)
	}
	if caller.IsZero() || counterparty.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "zero address")
	}
	if amount == nil || amount.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "amount must be positive")
	}
	return nil
}

func (l *Ledger) isAuthorized(caller asset.Address) bool {
	return l.authorized[caller]
}

// credit adds amount to addr. Caller holds the write lock.
func (l *Ledger) credit(addr asset.Address, amount *uint256.Int) {
	if b, ok := l.balances[addr]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[addr] = new(uint256.Int).Set(amount)
}

// debit removes amount from addr, rejecting on insufficient balance.
// Caller holds the write lock.
func (l *Ledger) debit(op string, addr asset.Address, amount *uint256.Int) error {
	b, ok := l.balances[addr]
	if !ok || b.Lt(amount) {
		return l.insufficientBalance(op, addr, amount)
	}
	b.Sub(b, amount)
	return nil
}

func (l *Ledger) insufficientBalance(op string, addr asset.Address, amount *uint256.Int) error {
	return asset.NewError(asset.CodeInsufficient, op,
		"balance of %s on %s is below %s", addr, l.cfg.Symbol, asset.FormatAmount(amount))
}
