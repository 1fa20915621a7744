package engine

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/couplet-xyz/couplet/internal/access"
	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/store"
)

// FungibleLedger is the capability surface the engine needs from the paired
// fungible token. The concrete ledger restricts these mutations to the
// engine's address; the engine passes itself as caller.
type FungibleLedger interface {
	Mint(caller, to asset.Address, amount *uint256.Int) error
	Burn(caller, from asset.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to asset.Address, amount *uint256.Int) error
	BalanceOf(addr asset.Address) *uint256.Int
	Paused() bool
	Symbol() string
}

// CollectibleRegistry is the capability surface the engine needs from the
// collectible side of a pair.
type CollectibleRegistry interface {
	MintResolved(caller, to asset.Address, resolved string) (asset.TokenID, error)
	Burn(caller asset.Address, id asset.TokenID) error
	Transfer(caller, from, to asset.Address, id asset.TokenID) error
	OwnerOf(id asset.TokenID) (asset.Address, error)
	Exists(id asset.TokenID) bool
	Pointer(id asset.TokenID) (string, error)
	ResolvePointer(pointer string) (string, error)
	NextID() asset.TokenID
	Paused() bool
	Symbol() string
}

// StableToken is the standard fungible-transfer surface of the third-party
// fee token. The engine holds no privilege here: the mint fee is pulled
// through an allowance the caller granted, and refunds spend the engine's
// own custody balance.
type StableToken interface {
	BalanceOf(addr asset.Address) *uint256.Int
	Allowance(owner, spender asset.Address) *uint256.Int
	Transfer(caller, to asset.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to asset.Address, amount *uint256.Int) error
	Paused() bool
	Symbol() string
}

// Withdrawable is the minimal surface emergency withdrawal needs from a
// token in engine custody.
type Withdrawable interface {
	BalanceOf(addr asset.Address) *uint256.Int
	Transfer(caller, to asset.Address, amount *uint256.Int) error
	Paused() bool
	Symbol() string
}

// Config declares one engine instance.
type Config struct {
	// Address is the engine's own account: fee custody, and the caller
	// identity it presents to the ledger and registry.
	Address asset.Address

	// Fee is the stablecoin amount pulled on mint and refunded on burn.
	// One configured value serves both, so the two cannot drift.
	// Defaults to the fixed pair unit (10^6 base units).
	Fee *uint256.Int

	// Logger receives operation-level structured logs. Defaults to a
	// discarding logger.
	Logger *slog.Logger
}

// Engine orchestrates the ledger, registry, and stablecoin so that both
// halves of a pair are always created, moved, and destroyed together.
// See the package documentation for the staged-apply architecture.
type Engine struct {
	cfg      Config
	ledger   FungibleLedger
	registry CollectibleRegistry
	stable   StableToken
	acl      *access.Controller
	st       *store.Store
	clock    *Clock
	opGen    OpTokenGenerator
	logger   *slog.Logger

	// busy is the operation guard: held for the duration of each
	// operation, rejecting reentrant or overlapping calls outright.
	busy atomic.Bool

	// mu protects the fields below for readers outside an operation.
	mu     sync.RWMutex
	pairs  map[asset.TokenID]bool
	escrow *uint256.Int
	paused bool

	// withdrawable routes emergency withdrawals by token address.
	withdrawable map[asset.Address]Withdrawable
}

// New creates an engine over the given capabilities and store.
// The stablecoin is registered for emergency withdrawal automatically;
// additional tokens can be registered with RegisterWithdrawable.
func New(st *store.Store, ledger FungibleLedger, registry CollectibleRegistry, stable StableToken, acl *access.Controller, opGen OpTokenGenerator, cfg Config) (*Engine, error) {
	const op = "engine.New"
	if cfg.Address.IsZero() {
		return nil, asset.NewError(asset.CodeValidation, op, "engine address is zero")
	}
	if cfg.Fee == nil {
		cfg.Fee = asset.PairUnit()
	}
	if cfg.Fee.IsZero() {
		return nil, asset.NewError(asset.CodeValidation, op, "fee must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		cfg:          cfg,
		ledger:       ledger,
		registry:     registry,
		stable:       stable,
		acl:          acl,
		st:           st,
		clock:        NewClock(),
		opGen:        opGen,
		logger:       cfg.Logger,
		pairs:        make(map[asset.TokenID]bool),
		escrow:       new(uint256.Int),
		withdrawable: make(map[asset.Address]Withdrawable),
	}
	if wd, ok := stable.(Withdrawable); ok {
		e.withdrawable[addressOf(stable)] = wd
	}
	return e, nil
}

// addressOf extracts a token's address when the implementation exposes one.
func addressOf(v any) asset.Address {
	type addressed interface{ Address() asset.Address }
	if a, ok := v.(addressed); ok {
		return a.Address()
	}
	return asset.ZeroAddress
}

// RegisterWithdrawable makes a token reachable by EmergencyWithdraw under
// the given address.
func (e *Engine) RegisterWithdrawable(addr asset.Address, token Withdrawable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.withdrawable[addr] = token
}

// Restore loads engine state from a store snapshot and resumes the logical
// clock after maxSeq. Used when a deployment is reopened; the ledger and
// registry are restored separately by the deployment loader.
func (e *Engine) Restore(snap *store.Snapshot, maxSeq int64) error {
	escrow, err := asset.ParseAmount(snap.Escrow)
	if err != nil {
		return asset.NewError(asset.CodeValidation, "engine.Restore", "escrow: %v", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pairs = make(map[asset.TokenID]bool, len(snap.Pairs))
	for id := range snap.Pairs {
		e.pairs[id] = true
	}
	e.escrow = escrow
	e.paused = snap.Paused
	e.clock = NewClockAt(maxSeq)
	return nil
}

// Fee returns a copy of the configured pair fee.
func (e *Engine) Fee() *uint256.Int {
	return new(uint256.Int).Set(e.cfg.Fee)
}

// Address returns the engine's own account address.
func (e *Engine) Address() asset.Address {
	return e.cfg.Address
}

// PairLive reports whether id is a live pair.
func (e *Engine) PairLive(id asset.TokenID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pairs[id]
}

// LivePairs returns the number of live pairs.
func (e *Engine) LivePairs() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pairs)
}

// Escrow returns a copy of the accounted fee custody balance.
func (e *Engine) Escrow() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return new(uint256.Int).Set(e.escrow)
}

// Paused reports whether paired operations are refused.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// enter acquires the operation guard. The returned release must be deferred.
// A call arriving while another operation holds the guard - including a
// reentrant call from inside a capability - is rejected, never queued.
func (e *Engine) enter(op string) (func(), error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, asset.NewError(asset.CodeReentrancy, op,
			"engine is executing another operation")
	}
	return func() { e.busy.Store(false) }, nil
}

// requireActive rejects paired operations while paused.
func (e *Engine) requireActive(op string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.paused {
		return asset.NewError(asset.CodePaused, op, "engine is paused")
	}
	return nil
}

// requirePairCapabilities rejects the operation while the ledger or the
// registry is individually gated; withFee extends the check to the
// stablecoin for operations that move the fee. The apply phase runs after
// the commit, so a gated capability has to surface during validation.
func (e *Engine) requirePairCapabilities(op string, withFee bool) error {
	if e.ledger.Paused() {
		return asset.NewError(asset.CodePaused, op, "%s ledger is paused", e.ledger.Symbol())
	}
	if e.registry.Paused() {
		return asset.NewError(asset.CodePaused, op, "%s registry is paused", e.registry.Symbol())
	}
	if withFee && e.stable.Paused() {
		return asset.NewError(asset.CodePaused, op, "%s is paused", e.stable.Symbol())
	}
	return nil
}

// requireExternal rejects the engine's custody account as an operation
// participant. A delta carries one absolute balance row per account, so
// the custody account on both sides of a movement would collapse two rows
// into one and detach the snapshot from the live ledger.
func (e *Engine) requireExternal(op string, addr asset.Address) error {
	if addr == e.cfg.Address {
		return asset.NewError(asset.CodeValidation, op,
			"the engine custody account %s cannot take part in operations", addr)
	}
	return nil
}
