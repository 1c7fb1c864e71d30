package api

import (
	"net/http"
	"strings"
)

// bearerToken extracts the opaque bearer token from the Authorization header.
//
// The scheme comparison is case-insensitive ("Bearer", "bearer"). Returns
// the empty string when the header is absent, uses a different scheme, or
// carries no token.
//
// Tokens are opaque shared secrets: the broker never interprets them, it
// only matches REST callers against registered WebSocket sessions.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
