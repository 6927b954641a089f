// Package orgcontext carries the resolved tenant through request contexts.
// Services never re-derive the tenant; the auth middleware injects it once.
package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type contextKey string

const orgIDKey contextKey = "org_id"

// WithOrgID attaches the tenant to the context.
func WithOrgID(ctx context.Context, orgID snowflake.ID) context.Context {
	if orgID == 0 {
		return ctx
	}
	return context.WithValue(ctx, orgIDKey, orgID)
}

// OrgID returns the tenant from the context, or false when unresolved.
func OrgID(ctx context.Context) (snowflake.ID, bool) {
	value, ok := ctx.Value(orgIDKey).(snowflake.ID)
	if !ok || value == 0 {
		return 0, false
	}
	return value, true
}
