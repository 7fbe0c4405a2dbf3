package auth

import (
	"net/http"
	"strings"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
)

const bearerPrefix = "bearer "

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if len(h) <= len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return "", apperr.ErrUnauthenticated
	}
	token := strings.TrimSpace(h[len(bearerPrefix):])
	if token == "" {
		return "", apperr.ErrUnauthenticated
	}
	return token, nil
}

// RequireOwner allows a mutation of account targetID only by that account.
func RequireOwner(identity *entity.Account, targetID int64) error {
	if identity == nil {
		return apperr.ErrUnauthenticated
	}
	if identity.ID != targetID {
		return apperr.ErrForbidden
	}
	return nil
}
