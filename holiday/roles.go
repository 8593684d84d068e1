/*
roles.go - Role classification resolution

PURPOSE:
  Resolving whether a staff member books in hours or sessions is the
  identity subsystem's job, but the engine needs a defined fallback path
  when the primary lookup fails. The precedence order is explicit and
  testable: primary store, then cached claim, then deny. Never a hardcoded
  identity allowlist embedded in logic.
*/
package holiday

import (
	"context"
	"sync"
)

// RoleResolver classifies a staff member's role for unit selection.
type RoleResolver interface {
	Resolve(ctx context.Context, staffID StaffID) (RoleClass, error)
}

// RoleResolverFunc adapts a function to the interface.
type RoleResolverFunc func(ctx context.Context, staffID StaffID) (RoleClass, error)

func (f RoleResolverFunc) Resolve(ctx context.Context, staffID StaffID) (RoleClass, error) {
	return f(ctx, staffID)
}

// StaticRoles resolves from a fixed map. Suitable for tests and demo data.
type StaticRoles map[StaffID]RoleClass

func (m StaticRoles) Resolve(_ context.Context, staffID StaffID) (RoleClass, error) {
	if rc, ok := m[staffID]; ok {
		return rc, nil
	}
	return "", &NotFoundError{Kind: "staff", Ref: string(staffID)}
}

// =============================================================================
// CHAIN RESOLVER - primary -> cached claim -> deny
// =============================================================================

// ChainResolver tries the primary resolver, falls back to the last claim it
// successfully cached for that staff member, and otherwise denies with
// ErrRoleUnresolved. Successful primary lookups refresh the cache.
type ChainResolver struct {
	Primary RoleResolver

	mu     sync.RWMutex
	claims map[StaffID]RoleClass
}

func NewChainResolver(primary RoleResolver) *ChainResolver {
	return &ChainResolver{Primary: primary, claims: make(map[StaffID]RoleClass)}
}

func (c *ChainResolver) Resolve(ctx context.Context, staffID StaffID) (RoleClass, error) {
	rc, err := c.Primary.Resolve(ctx, staffID)
	if err == nil {
		c.mu.Lock()
		c.claims[staffID] = rc
		c.mu.Unlock()
		return rc, nil
	}

	c.mu.RLock()
	cached, ok := c.claims[staffID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	return "", ErrRoleUnresolved
}
