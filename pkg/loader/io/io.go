package io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader/csv"
)

// IODatasetLoader loads dataset files from the local filesystem. Contents are
// cached per path, modification time and size.
// Keys are paths relative to the loader's root; with an empty root they are
// used as given.
type IODatasetLoader struct {
	root  string
	cache *loader.Cache
}

// NewIODatasetLoader creates a new filesystem-based dataset loader.
func NewIODatasetLoader(root string) *IODatasetLoader {
	return &IODatasetLoader{
		root:  root,
		cache: loader.NewCache(),
	}
}

// Load reads and decodes the dataset stored at key. Files ending in .csv are
// read as one generation per row, anything else as a dataset JSON file. A
// dataset without an id gets the file name without extension.
func (l *IODatasetLoader) Load(ctx context.Context, key string) (common.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return common.Dataset{}, err
	}

	path := key
	if l.root != "" {
		path = filepath.Join(l.root, filepath.Clean("/"+key))
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return common.Dataset{}, fmt.Errorf("%w: %s", loader.ErrNotFound, key)
	}
	if err != nil {
		return common.Dataset{}, err
	}

	// an edited file gets a new cache entry
	cacheKey := fmt.Sprintf("%s@%d:%d", path, info.ModTime().UnixNano(), info.Size())
	data, err := l.cache.Get(cacheKey, func() ([]byte, error) {
		return os.ReadFile(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return common.Dataset{}, fmt.Errorf("%w: %s", loader.ErrNotFound, key)
	}
	if err != nil {
		return common.Dataset{}, err
	}

	decode := loader.DecodeDataset
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		decode = func(data []byte) (common.Dataset, error) { return csv.DecodeDataset(data, "") }
	}
	ds, err := decode(data)
	if err != nil {
		return common.Dataset{}, err
	}
	if ds.ID == "" {
		base := filepath.Base(path)
		ds.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if ds.Name == "" {
		ds.Name = ds.ID
	}
	return ds, nil
}
