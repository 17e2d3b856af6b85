package routes

import (
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/queue"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
)

// PostSnapshotHandler queues a snapshot build for a stored dataset. The
// worker writes the graph to object storage and records the snapshot row.
func PostSnapshotHandler(c echo.Context) error {
	type snapshotRequest struct {
		MinFrequency *int `json:"minFrequency" validate:"omitempty,min=1,max=2147483647"`
	}

	data := new(snapshotRequest)
	if err := c.Bind(data); err != nil {
		return badRequest(c, "Invalid request params")
	}
	if err := c.Validate(data); err != nil {
		return badRequest(c, "Invalid request params")
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return unavailable(c, "Snapshot queue is not configured")
	}

	ds, err := app.Store.GetDataset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	snapshotID, err := gonanoid.New()
	if err != nil {
		return respondError(c, err)
	}

	msg := queue.SnapshotMsg{
		DatasetID:    ds.ID,
		SnapshotID:   snapshotID,
		MinFrequency: defaultMinFrequency(c),
	}
	if data.MinFrequency != nil {
		msg.MinFrequency = *data.MinFrequency
	}

	if err := queue.EnqueueSnapshot(app.Queue, msg); err != nil {
		return respondError(c, err)
	}
	logger.Info("[Server] Queued snapshot", "dataset_id", ds.ID, "snapshot_id", snapshotID, "min_frequency", msg.MinFrequency)

	return c.JSON(http.StatusAccepted, msg)
}

func GetSnapshotsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	id := c.Param("id")
	if _, err := app.Store.GetDataset(ctx, id); err != nil {
		return respondError(c, err)
	}

	snaps, err := app.Store.ListSnapshots(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, snaps)
}

// GetSnapshotHandler returns snapshot metadata with a temporary download link
// for the stored graph.
func GetSnapshotHandler(c echo.Context) error {
	type snapshotResponse struct {
		common.Snapshot
		DownloadURL string `json:"downloadUrl"`
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	snap, err := app.Store.GetSnapshot(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	link, err := app.Objects.GenerateDownloadLink(ctx, snap.ObjectKey)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, snapshotResponse{Snapshot: snap, DownloadURL: link})
}

// GetSnapshotGraphHandler streams the stored graph document of a snapshot.
func GetSnapshotGraphHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	snap, err := app.Store.GetSnapshot(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	body, err := app.Objects.GetFile(ctx, snap.ObjectKey)
	if err != nil {
		return respondError(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// GetSnapshotFileHandler serves snapshot objects by key. Download links of
// the in-memory object store point here.
func GetSnapshotFileHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	key := path.Clean("snapshots/" + c.Param("*"))
	if !strings.HasPrefix(key, "snapshots/") {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	body, err := app.Objects.GetFile(c.Request().Context(), key)
	if err != nil {
		return respondError(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}
