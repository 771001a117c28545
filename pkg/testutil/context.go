package testutil

import (
	"context"
	"net/http"
	"time"

	id "salegate/pkg/domain"
	"salegate/pkg/requestcontext"
)

// WithCaller adds an authenticated caller identity to the request
// context. This simulates what the auth middleware would do for
// authenticated requests. An invalid identity is silently ignored.
func WithCaller(req *http.Request, identity string) *http.Request {
	if caller, err := id.ParseIdentity(identity); err == nil {
		ctx := requestcontext.WithCallerID(req.Context(), caller)
		return req.WithContext(ctx)
	}
	return req
}

// WithRequestTime pins the request-scoped clock, so window checks in
// tests are deterministic.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), now)
	return req.WithContext(ctx)
}

// CallerContext builds a service-level context carrying a caller and a
// fixed clock.
func CallerContext(identity id.Identity, now time.Time) context.Context {
	ctx := requestcontext.WithCallerID(context.Background(), identity)
	return requestcontext.WithTime(ctx, now)
}
