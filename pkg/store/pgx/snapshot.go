package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store"
)

// foreignKeyViolation is the Postgres SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

const upsertSnapshotSQL = `
INSERT INTO snapshots (id, dataset_id, min_frequency, object_key, node_count, edge_count, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
SET object_key  = EXCLUDED.object_key,
    node_count  = EXCLUDED.node_count,
    edge_count  = EXCLUDED.edge_count,
    duration_ms = EXCLUDED.duration_ms
RETURNING created_at;
`

const snapshotColumns = `id, dataset_id, min_frequency, object_key, node_count, edge_count, duration_ms, created_at`

const listSnapshotsSQL = `
SELECT ` + snapshotColumns + `
FROM snapshots
WHERE dataset_id = $1
ORDER BY created_at DESC, id;
`

const getSnapshotSQL = `
SELECT ` + snapshotColumns + `
FROM snapshots
WHERE id = $1;
`

// SaveSnapshot records snapshot metadata. Saving the same id again updates
// the row, which keeps redelivered queue messages idempotent.
func (s *DatasetDBStorage) SaveSnapshot(ctx context.Context, snap common.Snapshot) (common.Snapshot, error) {
	if snap.DatasetID == "" {
		return common.Snapshot{}, fmt.Errorf("snapshot without dataset id")
	}
	if snap.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return common.Snapshot{}, err
		}
		snap.ID = id
	}

	err := s.conn.QueryRow(
		ctx,
		upsertSnapshotSQL,
		snap.ID,
		snap.DatasetID,
		int32(snap.MinFrequency),
		snap.ObjectKey,
		int32(snap.NodeCount),
		int32(snap.EdgeCount),
		snap.DurationMs,
	).Scan(&snap.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return common.Snapshot{}, store.ErrNotFound
		}
		return common.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

func (s *DatasetDBStorage) ListSnapshots(ctx context.Context, datasetID string) ([]common.Snapshot, error) {
	rows, err := s.conn.Query(ctx, listSnapshotsSQL, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []common.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *DatasetDBStorage) GetSnapshot(ctx context.Context, id string) (common.Snapshot, error) {
	snap, err := scanSnapshot(s.conn.QueryRow(ctx, getSnapshotSQL, id))
	if err != nil {
		return common.Snapshot{}, notFound(err)
	}
	return snap, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (common.Snapshot, error) {
	var snap common.Snapshot
	var minFreq, nodes, edges int32
	err := row.Scan(
		&snap.ID,
		&snap.DatasetID,
		&minFreq,
		&snap.ObjectKey,
		&nodes,
		&edges,
		&snap.DurationMs,
		&snap.CreatedAt,
	)
	if err != nil {
		return common.Snapshot{}, err
	}
	snap.MinFrequency = int(minFreq)
	snap.NodeCount = int(nodes)
	snap.EdgeCount = int(edges)
	return snap, nil
}
