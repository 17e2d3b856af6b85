package queue

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

// Locker runs fn while holding the named lease.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// SnapshotProcessor builds the graph of a stored dataset and keeps the
// result in object storage.
type SnapshotProcessor struct {
	Store   store.DatasetStorage
	Objects storage.ObjectStore
	Locks   Locker
	Builder *wordgraph.Builder

	// LeaseOwner prefixes lock tokens so app_locks rows show which worker
	// holds them.
	LeaseOwner string

	// Tries bounds the attempts of each storage write.
	Tries   int
	Backoff util.Backoff
}

// ProcessSnapshotMessage handles one SnapshotMsg body. Returned errors are
// transient and lead to a retry. Messages that can never succeed, such as
// malformed bodies or deleted datasets, are logged and dropped.
func (p *SnapshotProcessor) ProcessSnapshotMessage(ctx context.Context, body []byte) error {
	msg, err := decodeSnapshotMsg(body)
	if err != nil {
		logger.Warn("[Queue] Dropping snapshot message", "err", err)
		return nil
	}

	lease := leaselock.Options{TTL: 2 * time.Minute, Owner: p.LeaseOwner}
	err = p.Locks.WithLease(ctx, leaselock.SnapshotKey(msg.DatasetID, msg.MinFrequency), lease, func(ctx context.Context) error {
		return p.buildSnapshot(ctx, msg)
	})
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("[Queue] Dataset no longer exists, dropping snapshot", "dataset_id", msg.DatasetID, "snapshot_id", msg.SnapshotID)
		return nil
	}
	if errors.Is(err, wordgraph.ErrInvalidInput) || errors.Is(err, wordgraph.ErrInvalidConfig) {
		logger.Error("[Queue] Snapshot can not be built", "dataset_id", msg.DatasetID, "err", err)
		return nil
	}
	return err
}

func (p *SnapshotProcessor) buildSnapshot(ctx context.Context, msg SnapshotMsg) error {
	ds, err := p.Store.GetDataset(ctx, msg.DatasetID)
	if err != nil {
		return err
	}

	res, err := p.Builder.Build(ds.Generations, msg.MinFrequency)
	if err != nil {
		return err
	}
	if res.Graph.IsEmpty() {
		logger.Warn("[Queue] Snapshot graph is empty", "dataset_id", ds.ID, "min_frequency", msg.MinFrequency)
	}
	logger.Debug("[Queue] Built snapshot graph",
		"dataset_id", ds.ID,
		"nodes", len(res.Graph.Nodes),
		"edges", len(res.Graph.Edges),
		"duration", res.Timings.Total,
	)

	var buf bytes.Buffer
	if err := (wordgraph.JSONRenderer{W: &buf}).Render(ctx, res.Graph); err != nil {
		return err
	}

	key := storage.SnapshotKey(ds.ID, msg.SnapshotID)
	err = util.RetryErrWithContext(ctx, p.tries(), p.Backoff, func(ctx context.Context) error {
		return p.Objects.PutFile(ctx, key, buf.Bytes(), "application/json")
	})
	if err != nil {
		return err
	}

	snap := common.Snapshot{
		ID:           msg.SnapshotID,
		DatasetID:    ds.ID,
		MinFrequency: msg.MinFrequency,
		ObjectKey:    key,
		NodeCount:    len(res.Graph.Nodes),
		EdgeCount:    len(res.Graph.Edges),
		DurationMs:   res.Timings.Total.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	err = util.RetryErrWithContext(ctx, p.tries(), p.Backoff, func(ctx context.Context) error {
		_, err := p.Store.SaveSnapshot(ctx, snap)
		if errors.Is(err, store.ErrNotFound) {
			return util.Permanent(err)
		}
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("[Queue] Stored snapshot", "dataset_id", ds.ID, "snapshot_id", snap.ID, "key", key)
	return nil
}

func (p *SnapshotProcessor) tries() int {
	if p.Tries < 1 {
		return 3
	}
	return p.Tries
}
