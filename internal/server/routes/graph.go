package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

// SessionHeader selects the latest-wins session a graph request belongs to.
const SessionHeader = "X-Session-ID"

type timingsResponse struct {
	TokenizeMs float64 `json:"tokenizeMs"`
	EdgesMs    float64 `json:"edgesMs"`
	TotalMs    float64 `json:"totalMs"`
}

type graphResponse struct {
	Graph   common.WordGraph `json:"graph"`
	Timings timingsResponse  `json:"timings"`
}

type matrixResponse struct {
	Matrix  common.AdjacencyMatrix `json:"matrix"`
	Stats   common.GraphStats      `json:"stats"`
	Timings timingsResponse        `json:"timings"`
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func newGraphResponse(res *wordgraph.Result) graphResponse {
	return graphResponse{
		Graph: res.Graph,
		Timings: timingsResponse{
			TokenizeMs: ms(res.Timings.Tokenize),
			EdgesMs:    ms(res.Timings.Edges),
			TotalMs:    ms(res.Timings.Total),
		},
	}
}

func newMatrixResponse(res *wordgraph.Result) matrixResponse {
	g := newGraphResponse(res)
	return matrixResponse{
		Matrix:  wordgraph.Matrix(res.Graph),
		Stats:   res.Graph.Stats,
		Timings: g.Timings,
	}
}

// buildGraph runs the pipeline directly or, when the request names a
// session, through that session's service so only its newest request wins.
func buildGraph(c echo.Context, corpus common.Corpus, minFrequency int) (*wordgraph.Result, error) {
	app := c.(*middleware.AppContext).App

	sessionID := c.Request().Header.Get(SessionHeader)
	if sessionID == "" || app.Sessions == nil {
		if err := c.Request().Context().Err(); err != nil {
			return nil, err
		}
		return app.Builder.Build(corpus, minFrequency)
	}

	svc, err := app.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return svc.Submit(c.Request().Context(), corpus, minFrequency)
}

// defaultMinFrequency is the threshold of the configured builder, used when
// a request does not name one.
func defaultMinFrequency(c echo.Context) int {
	return c.(*middleware.AppContext).App.Builder.Config().MinFrequency
}

type graphRequest struct {
	Generations  common.Corpus `json:"generations"`
	MinFrequency *int          `json:"minFrequency" validate:"omitempty,min=1,max=2147483647"`
	StripMarkup  bool          `json:"stripMarkup"`
}

func bindGraphRequest(c echo.Context) (graphRequest, int, error) {
	data := graphRequest{}
	if err := c.Bind(&data); err != nil {
		return data, 0, err
	}
	if err := c.Validate(&data); err != nil {
		return data, 0, err
	}

	minFrequency := defaultMinFrequency(c)
	if data.MinFrequency != nil {
		minFrequency = *data.MinFrequency
	}
	if data.StripMarkup && data.Generations != nil {
		ds := common.Dataset{Generations: data.Generations}
		loader.StripDatasetMarkup(&ds)
		data.Generations = ds.Generations
	}
	return data, minFrequency, nil
}

// PostGraphHandler builds the co-occurrence graph of the posted generations.
func PostGraphHandler(c echo.Context) error {
	data, minFrequency, err := bindGraphRequest(c)
	if err != nil {
		return badRequest(c, "Invalid request params")
	}

	res, err := buildGraph(c, data.Generations, minFrequency)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newGraphResponse(res))
}

// PostGraphMatrixHandler answers with the adjacency matrix view.
func PostGraphMatrixHandler(c echo.Context) error {
	data, minFrequency, err := bindGraphRequest(c)
	if err != nil {
		return badRequest(c, "Invalid request params")
	}

	res, err := buildGraph(c, data.Generations, minFrequency)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newMatrixResponse(res))
}

func DeleteSessionHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	id := c.Param("id")
	if app.Sessions == nil || !app.Sessions.Dispose(id) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// detach keeps request values but drops the request deadline, so work that
// must finish, such as cleanup after a delete, is not cut short by a client
// disconnect.
func detach(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request().Context()), timeout)
}
