package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the object storage used for graph snapshots and dataset
// imports.
type ObjectStore interface {
	GetFile(ctx context.Context, key string) ([]byte, error)
	PutFile(ctx context.Context, key string, body []byte, contentType string) error
	DeleteFolder(ctx context.Context, prefix string) error
	ListFilesWithPrefix(ctx context.Context, prefix string) ([]string, error)
	GenerateDownloadLink(ctx context.Context, key string) (string, error)
}

var (
	_ ObjectStore = (*S3Bucket)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)

// SnapshotPrefix is the folder holding every snapshot of a dataset.
func SnapshotPrefix(datasetID string) string {
	return fmt.Sprintf("snapshots/%s/", datasetID)
}

// SnapshotKey is the object key of one snapshot document.
func SnapshotKey(datasetID, snapshotID string) string {
	return SnapshotPrefix(datasetID) + snapshotID + ".json"
}

// MemoryStore keeps objects in process memory. It stands in for S3 in local
// setups without a bucket; download links point at LinkBase.
type MemoryStore struct {
	LinkBase string

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore(linkBase string) *MemoryStore {
	return &MemoryStore{LinkBase: linkBase, objects: map[string][]byte{}}
}

func (m *MemoryStore) GetFile(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return slices.Clone(b), nil
}

func (m *MemoryStore) PutFile(_ context.Context, key string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = slices.Clone(body)
	return nil
}

func (m *MemoryStore) DeleteFolder(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

func (m *MemoryStore) ListFilesWithPrefix(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := []string{}
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *MemoryStore) GenerateDownloadLink(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return strings.TrimSuffix(m.LinkBase, "/") + "/" + key, nil
}
