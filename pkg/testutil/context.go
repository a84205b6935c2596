package testutil

import (
	"net/http"

	"carbonmint/pkg/domain"
	"carbonmint/pkg/requestcontext"
)

// WithCaller adds a caller address to the request context, as the auth
// middleware would for an authenticated request.
func WithCaller(req *http.Request, caller domain.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithBearer sets the Authorization header for requests that go through the
// full router.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
