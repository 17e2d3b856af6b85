// Package memory is a process local store.DatasetStorage. The server falls
// back to it when no database is configured; data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store"
)

type DatasetMemoryStorage struct {
	mu        sync.RWMutex
	datasets  map[string]common.Dataset
	snapshots map[string]common.Snapshot

	now func() time.Time
}

var _ store.DatasetStorage = (*DatasetMemoryStorage)(nil)

func NewDatasetMemoryStorage() *DatasetMemoryStorage {
	return &DatasetMemoryStorage{
		datasets:  map[string]common.Dataset{},
		snapshots: map[string]common.Snapshot{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *DatasetMemoryStorage) SaveDataset(_ context.Context, ds common.Dataset) (common.Dataset, error) {
	if ds.Generations == nil {
		return common.Dataset{}, fmt.Errorf("dataset has no generations")
	}
	if ds.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return common.Dataset{}, err
		}
		ds.ID = id
	}
	if ds.Name == "" {
		ds.Name = ds.ID
	}

	ds.Name = store.SanitizeText(ds.Name)
	ds.Prompt = store.SanitizeText(ds.Prompt)
	ds.Model = store.SanitizeText(ds.Model)
	generations := make(common.Corpus, len(ds.Generations))
	for i, g := range ds.Generations {
		generations[i] = store.SanitizeText(g)
	}
	ds.Generations = generations

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[ds.ID]; ok {
		return common.Dataset{}, fmt.Errorf("dataset %s already exists", ds.ID)
	}
	ds.CreatedAt = s.now()
	s.datasets[ds.ID] = ds
	return copyDataset(ds), nil
}

func (s *DatasetMemoryStorage) GetDataset(_ context.Context, id string) (common.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok {
		return common.Dataset{}, store.ErrNotFound
	}
	return copyDataset(ds), nil
}

// ListDatasets returns the newest datasets first, like the database
// implementation.
func (s *DatasetMemoryStorage) ListDatasets(_ context.Context) ([]common.DatasetSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.DatasetSummary, 0, len(s.datasets))
	for _, ds := range s.datasets {
		out = append(out, common.DatasetSummary{
			ID:          ds.ID,
			Name:        ds.Name,
			Prompt:      ds.Prompt,
			Model:       ds.Model,
			Generations: len(ds.Generations),
			CreatedAt:   ds.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b common.DatasetSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *DatasetMemoryStorage) DeleteDataset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.datasets, id)
	for sid, snap := range s.snapshots {
		if snap.DatasetID == id {
			delete(s.snapshots, sid)
		}
	}
	return nil
}

// SaveSnapshot inserts or replaces snap. The dataset must exist.
func (s *DatasetMemoryStorage) SaveSnapshot(_ context.Context, snap common.Snapshot) (common.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[snap.DatasetID]; !ok {
		return common.Snapshot{}, store.ErrNotFound
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = s.now()
	}
	s.snapshots[snap.ID] = snap
	return snap, nil
}

func (s *DatasetMemoryStorage) ListSnapshots(_ context.Context, datasetID string) ([]common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []common.Snapshot{}
	for _, snap := range s.snapshots {
		if snap.DatasetID == datasetID {
			out = append(out, snap)
		}
	}
	slices.SortFunc(out, func(a, b common.Snapshot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *DatasetMemoryStorage) GetSnapshot(_ context.Context, id string) (common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return common.Snapshot{}, store.ErrNotFound
	}
	return snap, nil
}

func copyDataset(ds common.Dataset) common.Dataset {
	ds.Generations = slices.Clone(ds.Generations)
	return ds
}
