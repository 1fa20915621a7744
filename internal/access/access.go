// Package access implements the role table gating privileged operations.
//
// The set of privileged callers is fixed and small, so roles are an explicit
// permission table checked at each entry point - no dynamic dispatch, no
// hierarchy resolution at call time. Admin is the only role that can change
// the table, and the last admin cannot be revoked (a deployment with no
// admin would be permanently unadministrable).
package access

import (
	"sync"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// Role names one capability grant.
type Role string

const (
	// RoleAdmin may grant and revoke roles, configure the registry base
	// pointer, and perform emergency withdrawals.
	RoleAdmin Role = "admin"

	// RolePauser may pause and unpause the engine.
	RolePauser Role = "pauser"

	// RoleOperator marks the engine's own address on the ledger and
	// registry: only operators may mint, burn, or move restricted assets.
	RoleOperator Role = "operator"
)

// Controller is one deployment's role table.
// Safe for concurrent use; the engine's single-writer discipline means
// contention is rare, but the CLI reads roles outside the engine lock.
type Controller struct {
	mu     sync.RWMutex
	grants map[Role]map[asset.Address]bool
}

// NewController creates a role table with the given initial admins.
// At least one admin is required.
func NewController(admins ...asset.Address) (*Controller, error) {
	if len(admins) == 0 {
		return nil, asset.NewError(asset.CodeValidation, "access.NewController", "at least one admin is required")
	}
	c := &Controller{grants: make(map[Role]map[asset.Address]bool)}
	for _, a := range admins {
		if a.IsZero() {
			return nil, asset.NewError(asset.CodeValidation, "access.NewController", "admin address is zero")
		}
		c.set(RoleAdmin, a)
	}
	return c, nil
}

// Has reports whether addr holds role.
func (c *Controller) Has(role Role, addr asset.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grants[role][addr]
}

// Require returns an authorization error unless addr holds role.
func (c *Controller) Require(role Role, addr asset.Address) error {
	if !c.Has(role, addr) {
		return asset.NewError(asset.CodeAuthorization, "access.Require",
			"%s does not hold role %s", addr, role)
	}
	return nil
}

// Grant gives addr the role. Caller must be an admin.
func (c *Controller) Grant(caller asset.Address, role Role, addr asset.Address) error {
	if err := c.Require(RoleAdmin, caller); err != nil {
		return err
	}
	if addr.IsZero() {
		return asset.NewError(asset.CodeValidation, "access.Grant", "grantee address is zero")
	}
	if !validRole(role) {
		return asset.NewError(asset.CodeValidation, "access.Grant", "unknown role %q", role)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(role, addr)
	return nil
}

// Revoke removes the role from addr. Caller must be an admin.
// Revoking the last admin is refused.
func (c *Controller) Revoke(caller asset.Address, role Role, addr asset.Address) error {
	if err := c.Require(RoleAdmin, caller); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if role == RoleAdmin && len(c.grants[RoleAdmin]) == 1 && c.grants[RoleAdmin][addr] {
		return asset.NewError(asset.CodeValidation, "access.Revoke", "cannot revoke the last admin")
	}
	delete(c.grants[role], addr)
	return nil
}

// Holders returns the addresses holding role, in unspecified order.
func (c *Controller) Holders(role Role) []asset.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []asset.Address
	for a := range c.grants[role] {
		out = append(out, a)
	}
	return out
}

// set records a grant. Caller holds the write lock (or is the constructor).
func (c *Controller) set(role Role, addr asset.Address) {
	if c.grants[role] == nil {
		c.grants[role] = make(map[asset.Address]bool)
	}
	c.grants[role][addr] = true
}

func validRole(r Role) bool {
	switch r {
	case RoleAdmin, RolePauser, RoleOperator:
		return true
	}
	return false
}
