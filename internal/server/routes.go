package server

import (
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")
	auth := middleware.AuthMiddleware

	// Graph routes
	apiRoutes.POST("/graph", routes.PostGraphHandler)
	apiRoutes.POST("/graph/matrix", routes.PostGraphMatrixHandler)
	apiRoutes.DELETE("/sessions/:id", routes.DeleteSessionHandler)

	// Dataset routes
	apiRoutes.GET("/datasets", routes.GetDatasetsHandler)
	apiRoutes.GET("/datasets/schema", routes.GetDatasetSchemaHandler)
	apiRoutes.GET("/datasets/:id", routes.GetDatasetHandler)
	apiRoutes.GET("/datasets/:id/graph", routes.GetDatasetGraphHandler)
	apiRoutes.POST("/datasets", routes.PostDatasetHandler, auth, middleware.RequirePermission(middleware.PermDatasetCreate))
	apiRoutes.POST("/datasets/import", routes.PostDatasetImportHandler, auth, middleware.RequirePermission(middleware.PermDatasetCreate))
	apiRoutes.DELETE("/datasets/:id", routes.DeleteDatasetHandler, auth, middleware.RequirePermission(middleware.PermDatasetDelete))

	// Snapshot routes
	apiRoutes.POST("/datasets/:id/snapshots", routes.PostSnapshotHandler, auth, middleware.RequirePermission(middleware.PermSnapshotCreate))
	apiRoutes.GET("/datasets/:id/snapshots", routes.GetSnapshotsHandler)
	apiRoutes.GET("/snapshots/:id", routes.GetSnapshotHandler)
	apiRoutes.GET("/snapshots/:id/graph", routes.GetSnapshotGraphHandler)
	e.GET("/files/snapshots/*", routes.GetSnapshotFileHandler)

	// Live generation
	apiRoutes.POST("/generate", routes.PostGenerateHandler, auth, middleware.RequirePermission(middleware.PermGenerate))
}
