package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/queue"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

// App holds the clients shared by all requests. Queue, Sampler and Key are
// optional; the routes depending on them answer 503 or 401 when unset.
type App struct {
	Store    store.DatasetStorage
	Objects  storage.ObjectStore
	Importer loader.DatasetLoader
	Queue    queue.Channel
	Sampler  ai.Sampler
	Key      jwt.Keyfunc

	Builder  *wordgraph.Builder
	Sessions *util.SessionRegistry

	MasterAPIKey   string
	MasterUserID   string
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
