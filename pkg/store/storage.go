package store

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
)

// ErrNotFound is returned when a dataset or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// DatasetStorage defines the interface for persisting datasets and the
// metadata of precomputed graph snapshots. Graphs themselves are never
// stored here; they are derived from the generations on demand or written
// to object storage by the worker.
type DatasetStorage interface {
	// SaveDataset stores ds with its generations in one transaction. An empty
	// ID is replaced by a generated one. The stored dataset is returned.
	SaveDataset(ctx context.Context, ds common.Dataset) (common.Dataset, error)
	GetDataset(ctx context.Context, id string) (common.Dataset, error)
	ListDatasets(ctx context.Context) ([]common.DatasetSummary, error)
	// DeleteDataset removes the dataset, its generations and its snapshot
	// rows. Snapshot objects in the bucket are the caller's concern.
	DeleteDataset(ctx context.Context, id string) error

	SaveSnapshot(ctx context.Context, snap common.Snapshot) (common.Snapshot, error)
	ListSnapshots(ctx context.Context, datasetID string) ([]common.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (common.Snapshot, error)
}
