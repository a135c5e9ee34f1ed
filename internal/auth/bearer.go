// Package auth holds the identity capabilities of the provider: verifying
// Google-signed ID tokens on push webhooks, verifying engine JWTs on the
// provider API, and minting the service token used to call the engine.
package auth

import (
	"net/http"
	"strings"

	"snapmaster-gcp/internal/common/errors"
)

const bearerPrefix = "Bearer "

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header. A missing header, another scheme or an empty token is an
// authentication error.
func ExtractBearer(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.AuthError("missing Authorization header")
	}

	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", errors.AuthError("invalid Authorization header format")
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", errors.AuthError("invalid Authorization header format")
	}
	return token, nil
}
