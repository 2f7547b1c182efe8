package testutil

import (
	"net/http"

	id "titleguard/pkg/domain"
	"titleguard/pkg/requestcontext"
)

// WithUser adds an authenticated user to the request context, simulating what
// the auth middleware would do.
func WithUser(req *http.Request, userID id.UserID, roles ...string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	if len(roles) > 0 {
		ctx = requestcontext.WithRoles(ctx, roles)
	}
	return req.WithContext(ctx)
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
