// Package registry implements the collectible registry capability: unique,
// non-divisible identifiers with an attached metadata pointer each.
//
// Identifiers are assigned from a monotonic counter and are never reused,
// even after a burn - an identifier that has existed once names that pair
// forever. Mutation is restricted to authorized callers (the engine), so a
// holder cannot move the collectible half of a pair without the fungible
// half moving with it.
package registry

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// Pointer prefixes accepted as metadata locations, each with the minimum
// total length of a valid pointer (the prefix plus at least one character).
var pointerPrefixes = map[string]int{
	"http://":  len("http://") + 1,
	"https://": len("https://") + 1,
	"ipfs://":  len("ipfs://") + 1,
}

// Config declares one registry instance.
type Config struct {
	// Symbol names the collection.
	Symbol string

	// BasePointer, when set, is prepended to relative metadata pointers
	// at mint time. Absolute pointers (carrying their own scheme) are
	// stored as given.
	BasePointer string
}

// Registry tracks ownership and metadata for one collectible collection.
type Registry struct {
	mu         sync.RWMutex
	cfg        Config
	authorized map[asset.Address]bool
	owners     map[asset.TokenID]asset.Address
	pointers   map[asset.TokenID]string
	nextID     uint64
	paused     bool
}

// New creates an empty registry. Authorized addresses (normally just the
// engine) may mint, burn, and transfer.
func New(cfg Config, authorized ...asset.Address) (*Registry, error) {
	if cfg.BasePointer != "" {
		if err := ValidatePointer(cfg.BasePointer); err != nil {
			return nil, asset.NewError(asset.CodeValidation, "registry.New",
				"base pointer: %v", err)
		}
	}
	r := &Registry{
		cfg:        cfg,
		authorized: make(map[asset.Address]bool, len(authorized)),
		owners:     make(map[asset.TokenID]asset.Address),
		pointers:   make(map[asset.TokenID]string),
	}
	for _, a := range authorized {
		r.authorized[a] = true
	}
	return r, nil
}

// Symbol returns the configured collection symbol.
func (r *Registry) Symbol() string { return r.cfg.Symbol }

// ValidatePointer checks a metadata pointer against the accepted prefixes.
// The pointer is NFC normalized before checking, matching the normalization
// applied when it is stored and serialized.
func ValidatePointer(p string) error {
	const op = "registry.ValidatePointer"
	p = norm.NFC.String(p)
	if p == "" {
		return asset.NewError(asset.CodeValidation, op, "metadata pointer is empty")
	}
	for prefix, minLen := range pointerPrefixes {
		if strings.HasPrefix(p, prefix) {
			if len(p) < minLen {
				return asset.NewError(asset.CodeValidation, op,
					"metadata pointer %q is too short for prefix %s", p, prefix)
			}
			return nil
		}
	}
	return asset.NewError(asset.CodeValidation, op,
		"metadata pointer %q must begin with http://, https://, or ipfs://", p)
}

// ResolvePointer returns the full pointer that would be stored for p:
// relative pointers are joined to the base pointer, absolute ones are
// normalized and returned as-is.
func (r *Registry) ResolvePointer(p string) (string, error) {
	p = norm.NFC.String(p)
	if r.basePointer() != "" && !hasScheme(p) {
		p = r.basePointer() + p
	}
	if err := ValidatePointer(p); err != nil {
		return "", err
	}
	return p, nil
}

// Mint assigns the next identifier to to with the given metadata pointer.
// Caller must be authorized. The pointer is resolved against the base
// pointer and validated before any mutation.
func (r *Registry) Mint(caller, to asset.Address, pointer string) (asset.TokenID, error) {
	const op = "registry.Mint"
	if !r.isAuthorized(caller) {
		return 0, asset.NewError(asset.CodeAuthorization, op,
			"%s is not authorized on %s", caller, r.cfg.Symbol)
	}
	resolved, err := r.ResolvePointer(pointer)
	if err != nil {
		return 0, err
	}
	return r.assign(op, to, resolved)
}

// MintResolved is Mint for a pointer that was already resolved: the pointer
// is validated and stored as given, never joined to the base pointer again.
// Callers that resolve during their own validation use this so the stored
// pointer is the one they checked, even if the base changed in between.
func (r *Registry) MintResolved(caller, to asset.Address, resolved string) (asset.TokenID, error) {
	const op = "registry.MintResolved"
	if !r.isAuthorized(caller) {
		return 0, asset.NewError(asset.CodeAuthorization, op,
			"%s is not authorized on %s", caller, r.cfg.Symbol)
	}
	resolved = norm.NFC.String(resolved)
	if err := ValidatePointer(resolved); err != nil {
		return 0, err
	}
	return r.assign(op, to, resolved)
}

// assign records the next identifier for to under the lock.
func (r *Registry) assign(op string, to asset.Address, resolved string) (asset.TokenID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return 0, asset.NewError(asset.CodePaused, op, "%s is paused", r.cfg.Symbol)
	}
	if to.IsZero() {
		return 0, asset.NewError(asset.CodeValidation, op, "mint to zero address")
	}
	id := asset.TokenID(r.nextID)
	r.nextID++ // counter only ever advances, burned ids are never reissued
	r.owners[id] = to
	r.pointers[id] = resolved
	return id, nil
}

// Burn destroys the identifier. Caller must be authorized and the id must
// exist. The identifier counter is not rewound.
func (r *Registry) Burn(caller asset.Address, id asset.TokenID) error {
	const op = "registry.Burn"
	if !r.isAuthorized(caller) {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s is not authorized on %s", caller, r.cfg.Symbol)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return asset.NewError(asset.CodePaused, op, "%s is paused", r.cfg.Symbol)
	}
	if _, ok := r.owners[id]; !ok {
		return r.unknownID(op, id)
	}
	delete(r.owners, id)
	delete(r.pointers, id)
	return nil
}

// Transfer moves the identifier from from to to. Caller must be authorized,
// from must be the current owner, and to must be non-zero.
func (r *Registry) Transfer(caller, from, to asset.Address, id asset.TokenID) error {
	const op = "registry.Transfer"
	if !r.isAuthorized(caller) {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s is not authorized on %s", caller, r.cfg.Symbol)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return asset.NewError(asset.CodePaused, op, "%s is paused", r.cfg.Symbol)
	}
	if to.IsZero() {
		return asset.NewError(asset.CodeValidation, op, "transfer to zero address")
	}
	owner, ok := r.owners[id]
	if !ok {
		return r.unknownID(op, id)
	}
	if owner != from {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s does not own collectible %d", from, id)
	}
	r.owners[id] = to
	return nil
}

// OwnerOf returns the current owner of id.
func (r *Registry) OwnerOf(id asset.TokenID) (asset.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[id]
	if !ok {
		return asset.ZeroAddress, r.unknownID("registry.OwnerOf", id)
	}
	return owner, nil
}

// Exists reports whether id has been minted and not burned.
func (r *Registry) Exists(id asset.TokenID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.owners[id]
	return ok
}

// Pointer returns the metadata pointer stored for id.
func (r *Registry) Pointer(id asset.TokenID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pointers[id]
	if !ok {
		return "", r.unknownID("registry.Pointer", id)
	}
	return p, nil
}

// NextID returns the identifier the next mint will assign.
func (r *Registry) NextID() asset.TokenID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return asset.TokenID(r.nextID)
}

// Paused reports whether mutations are gated.
func (r *Registry) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// SetPaused toggles the pause gate. Caller must be authorized.
func (r *Registry) SetPaused(caller asset.Address, paused bool) error {
	if !r.isAuthorized(caller) {
		return asset.NewError(asset.CodeAuthorization, "registry.SetPaused",
			"%s is not authorized on %s", caller, r.cfg.Symbol)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
	return nil
}

// SetBasePointer replaces the base metadata pointer. Caller must be
// authorized; an empty base clears prefixing.
func (r *Registry) SetBasePointer(caller asset.Address, base string) error {
	const op = "registry.SetBasePointer"
	if !r.isAuthorized(caller) {
		return asset.NewError(asset.CodeAuthorization, op,
			"%s is not authorized on %s", caller, r.cfg.Symbol)
	}
	if base != "" {
		if err := ValidatePointer(base); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.BasePointer = base
	return nil
}

// Restore replaces registry state from persisted rows. Used when a
// deployment is reopened from the store.
func (r *Registry) Restore(owners map[asset.TokenID]asset.Address, pointers map[asset.TokenID]string, nextID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range owners {
		if uint64(id) >= nextID {
			return asset.NewError(asset.CodeInvariant, "registry.Restore",
				"collectible %d is at or beyond the identifier counter %d", id, nextID)
		}
	}
	r.owners = make(map[asset.TokenID]asset.Address, len(owners))
	r.pointers = make(map[asset.TokenID]string, len(pointers))
	for id, o := range owners {
		r.owners[id] = o
	}
	for id, p := range pointers {
		r.pointers[id] = p
	}
	r.nextID = nextID
	return nil
}

func (r *Registry) basePointer() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.BasePointer
}

func (r *Registry) isAuthorized(caller asset.Address) bool {
	return r.authorized[caller]
}

func (r *Registry) unknownID(op string, id asset.TokenID) error {
	return asset.NewError(asset.CodeInvariant, op,
		"collectible %d does not exist on %s", id, r.cfg.Symbol)
}

func hasScheme(p string) bool {
	for prefix := range pointerPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
