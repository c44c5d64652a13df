package middleware

import (
	"net/http"

	"github.com/destelloperu/destello-backend/api/responses"
	"github.com/destelloperu/destello-backend/pkg/enums"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/logger"
)

// RequireRole gates a route group on the role claim Auth placed in the
// context. Customers hitting the back office get a 403, not a 401, so the
// client knows the token itself is fine.
func RequireRole(role enums.UserRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != string(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
