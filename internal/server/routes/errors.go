package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/queue"
	serverutil "github.com/OFFIS-RIT/consistency-vis/backend/internal/server/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, wordgraph.ErrInvalidInput),
		errors.Is(err, wordgraph.ErrInvalidConfig),
		errors.Is(err, loader.ErrInvalidDataset),
		errors.Is(err, ai.ErrInvalidRequest),
		errors.Is(err, queue.ErrInvalidMessage),
		errors.Is(err, serverutil.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, loader.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, wordgraph.ErrSuperseded),
		errors.Is(err, wordgraph.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, serverutil.ErrRegistryClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": "..."}. Internal errors are logged
// and not exposed to the client.
func respondError(c echo.Context, err error) error {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
		msg = "Internal server error"
	}
	return c.JSON(status, map[string]string{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func unavailable(c echo.Context, msg string) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": msg})
}
