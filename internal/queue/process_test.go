package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store/memory"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

type fakeLocker struct {
	keys []string
	err  error
}

func (l *fakeLocker) WithLease(ctx context.Context, key string, _ leaselock.Options, fn func(context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

type flakyObjects struct {
	*storage.MemoryStore
	failures int
}

func (f *flakyObjects) PutFile(ctx context.Context, key string, body []byte, contentType string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("slow down")
	}
	return f.MemoryStore.PutFile(ctx, key, body, contentType)
}

func newTestProcessor(t *testing.T) (*SnapshotProcessor, *memory.DatasetMemoryStorage, *fakeLocker) {
	t.Helper()
	builder, err := wordgraph.NewBuilder(wordgraph.DefaultConfig())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	db := memory.NewDatasetMemoryStorage()
	locks := &fakeLocker{}
	return &SnapshotProcessor{
		Store:   db,
		Objects: storage.NewMemoryStore("http://localhost"),
		Locks:   locks,
		Builder: builder,
	}, db, locks
}

func body(t *testing.T, msg SnapshotMsg) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return b
}

func TestProcessSnapshotMessage(t *testing.T) {
	ctx := context.Background()
	p, db, locks := newTestProcessor(t)
	objects := &flakyObjects{MemoryStore: storage.NewMemoryStore("http://localhost"), failures: 2}
	p.Objects = objects

	ds, err := db.SaveDataset(ctx, common.Dataset{ID: "ds", Generations: common.Corpus{"dogs chase cats", "cats chase dogs"}})
	if err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	if err := p.ProcessSnapshotMessage(ctx, body(t, SnapshotMsg{DatasetID: ds.ID, SnapshotID: "snap", MinFrequency: 2})); err != nil {
		t.Fatalf("ProcessSnapshotMessage: %v", err)
	}

	if len(locks.keys) != 1 || locks.keys[0] != "snapshot:ds:2" {
		t.Fatalf("unexpected lease keys: %v", locks.keys)
	}

	snap, err := db.GetSnapshot(ctx, "snap")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.NodeCount != 3 || snap.EdgeCount != 3 || snap.ObjectKey != storage.SnapshotKey("ds", "snap") {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}

	raw, err := objects.GetFile(ctx, snap.ObjectKey)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	var graph common.WordGraph
	if err := json.Unmarshal(raw, &graph); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(graph.Nodes) != 3 {
		t.Fatalf("stored graph has %d nodes", len(graph.Nodes))
	}
}

func TestProcessSnapshotMessageDrops(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		body []byte
	}{
		{name: "malformed body", body: []byte("not json")},
		{name: "invalid threshold", body: []byte(`{"datasetId":"ds","snapshotId":"s","minFrequency":0}`)},
		{name: "threshold out of range", body: []byte(`{"datasetId":"ds","snapshotId":"s","minFrequency":2147483648}`)},
		{name: "deleted dataset", body: []byte(`{"datasetId":"gone","snapshotId":"s","minFrequency":2}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newTestProcessor(t)
			if err := p.ProcessSnapshotMessage(ctx, tt.body); err != nil {
				t.Fatalf("expected the message to be dropped, got %v", err)
			}
		})
	}
}

func TestProcessSnapshotMessageBusyLease(t *testing.T) {
	p, _, locks := newTestProcessor(t)
	locks.err = leaselock.ErrBusy

	err := p.ProcessSnapshotMessage(context.Background(), body(t, SnapshotMsg{DatasetID: "ds", SnapshotID: "s", MinFrequency: 2}))
	if !errors.Is(err, leaselock.ErrBusy) {
		t.Fatalf("busy lease should be retried, got %v", err)
	}
}

func TestProcessSnapshotMessageStorageFailure(t *testing.T) {
	ctx := context.Background()
	p, db, _ := newTestProcessor(t)
	p.Objects = &flakyObjects{MemoryStore: storage.NewMemoryStore(""), failures: 10}
	p.Tries = 2

	if _, err := db.SaveDataset(ctx, common.Dataset{ID: "ds", Generations: common.Corpus{"a word"}}); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	err := p.ProcessSnapshotMessage(ctx, body(t, SnapshotMsg{DatasetID: "ds", SnapshotID: "s", MinFrequency: 1}))
	if err == nil {
		t.Fatalf("expected the upload error to be returned for a retry")
	}
	if _, err := db.GetSnapshot(ctx, "s"); err == nil {
		t.Fatalf("snapshot row must not exist without its object")
	}
}
