package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
)

var errNoUserID = errors.New("token carries no user id")

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": msg})
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// AuthMiddleware accepts the master API key or a JWT verified with the
// application key set.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cc := c.(*AppContext)
		app := cc.App

		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return unauthorized(c, "Unauthorized")
		}

		if app.isMasterKey(token) {
			cc.User = &AppUser{
				UserID:      app.MasterUserID,
				Role:        app.MasterUserRole,
				Permissions: allPermissions,
			}
			return next(c)
		}

		if app.Key == nil {
			return unauthorized(c, "Unauthorized")
		}

		parsed, err := jwt.Parse(token, app.Key)
		if err != nil || !parsed.Valid {
			logger.Debug("[Auth] Rejected token", "err", err)
			return unauthorized(c, "Unauthorized")
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Unauthorized")
		}

		user, err := userFromClaims(claims)
		if err != nil {
			return unauthorized(c, "Invalid user ID")
		}
		cc.User = user
		return next(c)
	}
}

func (a *App) isMasterKey(token string) bool {
	return a.MasterAPIKey != "" && a.MasterUserID != "" && a.MasterUserRole != "" && token == a.MasterAPIKey
}

// userFromClaims reads the user id from the "id" claim (string or number)
// or falls back to "sub". The role defaults to "user".
func userFromClaims(claims jwt.MapClaims) (*AppUser, error) {
	var id string
	switch v := claims["id"].(type) {
	case string:
		id = v
	case float64:
		id = strconv.FormatInt(int64(v), 10)
	}
	if id == "" {
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return nil, errNoUserID
		}
		id = sub
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = "user"
	}

	return &AppUser{
		UserID:      id,
		Role:        role,
		Permissions: grantedPermissions(role, claims["permissions"]),
	}, nil
}
