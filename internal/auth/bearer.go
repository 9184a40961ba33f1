package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	ErrMissingSecret = errors.New("server missing ETL_BEARER")
	ErrUnauthorized  = errors.New("unauthorized")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Anything else yields "".
func BearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// CheckBearer accepts the static secret itself or a JWT signed with it.
func CheckBearer(header, secret string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	token := BearerToken(header)
	if token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
		return nil
	}
	if _, err := ValidateJWT(token, secret); err == nil {
		return nil
	}
	return ErrUnauthorized
}
