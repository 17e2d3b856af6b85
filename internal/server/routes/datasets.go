package routes

import (
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server/middleware"
	serverutil "github.com/OFFIS-RIT/consistency-vis/backend/internal/server/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader/csv"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
)

func summarize(ds common.Dataset) common.DatasetSummary {
	return common.DatasetSummary{
		ID:          ds.ID,
		Name:        ds.Name,
		Prompt:      ds.Prompt,
		Model:       ds.Model,
		Generations: len(ds.Generations),
		CreatedAt:   ds.CreatedAt,
	}
}

func GetDatasetsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	datasets, err := app.Store.ListDatasets(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, datasets)
}

// GetDatasetSchemaHandler serves the JSON schema accepted by the create and
// import routes.
func GetDatasetSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, loader.DatasetSchema())
}

func GetDatasetHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	ds, err := app.Store.GetDataset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ds)
}

// GetDatasetGraphHandler builds the graph of a stored dataset. The query
// parameter view=matrix switches to the adjacency matrix.
func GetDatasetGraphHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	minFrequency, err := serverutil.ParseMinFrequency(c.QueryParam("minFrequency"), defaultMinFrequency(c))
	if err != nil {
		return badRequest(c, err.Error())
	}
	view := c.QueryParam("view")
	if view != "" && view != "graph" && view != "matrix" {
		return badRequest(c, "view must be graph or matrix")
	}

	ds, err := app.Store.GetDataset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	res, err := buildGraph(c, ds.Generations, minFrequency)
	if err != nil {
		return respondError(c, err)
	}
	if view == "matrix" {
		return c.JSON(http.StatusOK, newMatrixResponse(res))
	}
	return c.JSON(http.StatusOK, newGraphResponse(res))
}

// PostDatasetHandler stores the dataset in the request body. The body uses
// the import format, so a bare array of generations is accepted as well.
func PostDatasetHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	stripMarkup, err := serverutil.ParseBool(c.QueryParam("stripMarkup"))
	if err != nil {
		return badRequest(c, "stripMarkup must be a boolean")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	ds, err := decodeUpload(c, body)
	if err != nil {
		return respondError(c, err)
	}
	if stripMarkup {
		loader.StripDatasetMarkup(&ds)
	}

	saved, err := app.Store.SaveDataset(c.Request().Context(), ds)
	if err != nil {
		return respondError(c, err)
	}
	logger.Info("[Server] Stored dataset", "dataset_id", saved.ID, "generations", len(saved.Generations))
	return c.JSON(http.StatusCreated, summarize(saved))
}

// decodeUpload reads a dataset JSON document, or a CSV file when the request
// is sent as text/csv. CSV uploads take name, prompt, model and column from
// the query string.
func decodeUpload(c echo.Context, body []byte) (common.Dataset, error) {
	mediaType, _, _ := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if mediaType != "text/csv" {
		return loader.DecodeDataset(body)
	}

	ds, err := csv.DecodeDataset(body, c.QueryParam("column"))
	if err != nil {
		return common.Dataset{}, err
	}
	ds.Name = c.QueryParam("name")
	ds.Prompt = c.QueryParam("prompt")
	ds.Model = c.QueryParam("model")
	return ds, nil
}

// PostDatasetImportHandler loads a dataset file through the configured
// importer and stores it under a new id.
func PostDatasetImportHandler(c echo.Context) error {
	type importRequest struct {
		Key         string `json:"key" validate:"required"`
		Name        string `json:"name"`
		StripMarkup bool   `json:"stripMarkup"`
	}

	data := new(importRequest)
	if err := c.Bind(data); err != nil {
		return badRequest(c, "Invalid request params")
	}
	if err := c.Validate(data); err != nil {
		return badRequest(c, "Invalid request params")
	}

	app := c.(*middleware.AppContext).App
	if app.Importer == nil {
		return unavailable(c, "Dataset import is not configured")
	}

	ds, err := app.Importer.Load(c.Request().Context(), data.Key)
	if err != nil {
		return respondError(c, err)
	}
	// the next import of this key reads the current object again
	if f, ok := app.Importer.(loader.Forgetter); ok {
		f.Forget(data.Key)
	}
	ds.ID = ""
	if data.Name != "" {
		ds.Name = data.Name
	}
	if data.StripMarkup {
		loader.StripDatasetMarkup(&ds)
	}

	saved, err := app.Store.SaveDataset(c.Request().Context(), ds)
	if err != nil {
		return respondError(c, err)
	}
	logger.Info("[Server] Imported dataset", "dataset_id", saved.ID, "key", data.Key)
	return c.JSON(http.StatusCreated, summarize(saved))
}

// DeleteDatasetHandler removes the dataset, its snapshot rows and the
// snapshot objects in the bucket.
func DeleteDatasetHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	id := c.Param("id")

	if err := app.Store.DeleteDataset(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := detach(c, 30*time.Second)
	defer cancel()
	if err := app.Objects.DeleteFolder(ctx, storage.SnapshotPrefix(id)); err != nil {
		logger.Warn("[Server] Failed to delete snapshot objects", "dataset_id", id, "err", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Dataset deleted"})
}
