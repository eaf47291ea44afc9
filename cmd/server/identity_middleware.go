package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tutoring-platform/internal/middleware"
	"tutoring-platform/internal/models"
	"tutoring-platform/pkg/response"
)

// trustedIdentityMiddleware populates the request context with the acting
// user from gateway-set trust headers. Session-cookie validation and the
// identity store itself are external collaborators (spec.md §1); this
// engine only ever consumes the identity an upstream auth gateway already
// verified, the same way the teacher's own auth middleware turns validated
// credentials into a request-scoped user before handlers run.
func trustedIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get("X-User-Id"))
		if err != nil {
			response.Unauthorized(w, "Missing or invalid X-User-Id header")
			return
		}

		var roles models.Roles
		for _, name := range strings.Split(r.Header.Get("X-User-Roles"), ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				roles = append(roles, models.Role(name))
			}
		}
		if len(roles) == 0 {
			response.Unauthorized(w, "Missing X-User-Roles header")
			return
		}

		user := &models.User{
			ID:    userID,
			Name:  r.Header.Get("X-User-Name"),
			Roles: roles,
		}

		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
	})
}
