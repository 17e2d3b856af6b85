package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// Permissions carried in the "permissions" claim of a token.
const (
	PermDatasetCreate  = "dataset.create"
	PermDatasetDelete  = "dataset.delete"
	PermSnapshotCreate = "snapshot.create"
	PermGenerate       = "generate"
)

const roleAdmin = "admin"

var allPermissions = []string{
	PermDatasetCreate,
	PermDatasetDelete,
	PermSnapshotCreate,
	PermGenerate,
}

// HasPermission reports whether user may perform permission. Admins may
// perform everything.
func HasPermission(user *AppUser, permission string) bool {
	switch {
	case user == nil:
		return false
	case user.Role == roleAdmin:
		return true
	default:
		return slices.Contains(user.Permissions, permission)
	}
}

// grantedPermissions keeps the known string entries of a permissions claim.
// Admins without an explicit list are granted everything.
func grantedPermissions(role string, claim any) []string {
	var granted []string
	if list, ok := claim.([]any); ok {
		for _, p := range list {
			if name, ok := p.(string); ok && slices.Contains(allPermissions, name) && !slices.Contains(granted, name) {
				granted = append(granted, name)
			}
		}
	}
	if role == roleAdmin && len(granted) == 0 {
		return slices.Clone(allPermissions)
	}
	return granted
}

// RequirePermission must run after AuthMiddleware.
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return unauthorized(c, "Unauthorized")
			}
			if !HasPermission(user, permission) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing permission " + permission})
			}
			return next(c)
		}
	}
}
