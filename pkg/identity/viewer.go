// Package identity resolves who is making each request: an authenticated
// platform user or an anonymous visitor with a cookie-scoped session. The
// viewer travels in the request context instead of ambient globals, so every
// store and query call receives it explicitly.
package identity

import "context"

// Viewer identifies the requester for the lifetime of one request.
// UserID is zero for anonymous visitors; SessionID is always set and keys
// session-scoped skip state for visitors without an account.
type Viewer struct {
	UserID    int64
	SessionID string
	Admin     bool
}

// Anonymous reports whether the viewer has no platform account.
func (v Viewer) Anonymous() bool {
	return v.UserID == 0
}

type contextKey string

const viewerKey contextKey = "viewer"

// GetViewer retrieves the viewer from the request context.
// Returns a zero viewer and false if not present.
func GetViewer(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(Viewer)
	return v, ok
}

// SetViewer stores the viewer in the request context.
func SetViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}
