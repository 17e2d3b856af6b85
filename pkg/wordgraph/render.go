package wordgraph

import (
	"context"
	"encoding/json"
	"io"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
)

// Renderer consumes a finished graph. Layout and drawing happen entirely on
// the renderer's side; the graph handed over is never modified afterwards.
type Renderer interface {
	Render(ctx context.Context, graph common.WordGraph) error
}

// JSONRenderer writes graphs as JSON documents to W.
type JSONRenderer struct {
	W      io.Writer
	Indent bool
}

// Render encodes graph to the underlying writer.
func (r JSONRenderer) Render(ctx context.Context, graph common.WordGraph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(r.W)
	if r.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(graph)
}
