package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lpetrova/mira/internal/policy"
)

type authUserKey struct{}

// requireAuth resolves the bearer token to a user id and stores it in the
// request context. Personal-data endpoints respond 400 on missing or invalid
// authorization rather than 401: the companion UI treats the body's error
// field as a user-facing message and never runs a challenge flow.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			respondError(w, http.StatusBadRequest, "missing_authorization", "authorization header is required")
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(w, http.StatusBadRequest, "invalid_authorization", "authorization header must be a bearer token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		userID, err := s.svcs.Tokens.Verify(token)
		if err != nil {
			if errors.Is(err, policy.ErrNoSecret) {
				respondError(w, http.StatusBadRequest, "auth_not_configured", "set AUTH_SECRET to enable authenticated endpoints")
				return
			}
			respondError(w, http.StatusBadRequest, "invalid_token", "bearer token is not valid")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), authUserKey{}, userID)))
	}
}

func authedUser(r *http.Request) string {
	userID, _ := r.Context().Value(authUserKey{}).(string)
	return userID
}
