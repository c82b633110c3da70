package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// AdminRole bypasses individual permission checks
const AdminRole = "admin"

// RequirePermission ensures the caller's capability set, fixed at token issue
// time, grants the named permission. Admins pass unconditionally. Denials
// name the permission the caller is missing.
func RequirePermission(permission string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deny := func() {
				RespondWithErrorDetails(w, http.StatusForbidden, CodePermissionDenied,
					fmt.Sprintf("missing permission %q", permission),
					map[string]interface{}{"required_permission": permission},
				)
			}

			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				deny()
				return
			}
			if role == AdminRole {
				next.ServeHTTP(w, r)
				return
			}

			perms, ok := GetPermissions(r.Context())
			if !ok {
				logger.Warn("Permissions not found in context")
				deny()
				return
			}

			if _, granted := perms[permission]; !granted {
				logger.Warn("Permission denied",
					zap.String("role", role),
					zap.String("permission", permission),
				)
				deny()
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin ensures the user has the admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || role != AdminRole {
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("role", role),
				)
				RespondWithError(w, http.StatusForbidden, CodePermissionDenied, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
