// Package tenantctx carries (tenant_id, role, permissions, limits,
// timezone) from the trigger site to every downstream call. Most
// repository methods in this module take a Context rather than a bare
// tenant id; the job, tenant and quota repositories take the tenant id
// as a string.
package tenantctx

import (
	"context"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

// Context carries one tenant's identity and authorization through a core
// operation. It is deliberately not an interface: every field is plain
// data copied in at the trigger site (HTTP handler, scheduler tick).
type Context struct {
	TenantID    string
	Role        models.Role
	Permissions map[models.Permission]bool
	Limits      models.Limits
	Timezone    string

	// Admin is set only by the distinct admin API surface (never by
	// pipeline code) and makes CheckOwnership skip the tenant match; the
	// repositories in internal/repo filter by TenantID whether or not it
	// is set.
	Admin bool
}

// New builds a Context from a resolved Tenant.
func New(t models.Tenant) Context {
	return Context{
		TenantID:    t.ID,
		Role:        t.Role,
		Permissions: t.Permissions,
		Limits:      t.Limits,
		Timezone:    t.Timezone,
		Admin:       false,
	}
}

// AsAdmin returns a copy of ctx flagged for the admin bypass surface.
// Callers outside the admin API must never use this.
func (c Context) AsAdmin() Context {
	c.Admin = true
	return c
}

// Require fails with PermissionDenied if the tenant lacks p.
func (c Context) Require(p models.Permission) error {
	if c.Permissions[p] {
		return nil
	}
	return errs.New(errs.PermissionDenied, "missing permission "+string(p))
}

// ownsKey is a typed context.Context key carrying a Context, used only at
// the HTTP-to-core boundary to thread tenant identity through
// request-scoped cancellation.
type ownsKey struct{}

// WithContext attaches tc to a context.Context for cancellation/deadline
// propagation; core operations still take tenantctx.Context explicitly as
// their own argument so repositories can't accidentally read ambient state.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ownsKey{}, tc)
}

// FromContext retrieves a Context attached by WithContext.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ownsKey{}).(Context)
	return tc, ok
}

// CheckOwnership returns NotFound (never PermissionDenied) when the row's
// tenant does not match, per §4.1: this prevents existence-probing.
func CheckOwnership(c Context, rowTenantID string) error {
	if c.Admin {
		return nil
	}
	if c.TenantID != rowTenantID {
		return errs.New(errs.NotFound, "not found")
	}
	return nil
}
