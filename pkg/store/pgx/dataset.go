package pgx

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store"
)

const insertDatasetSQL = `
INSERT INTO datasets (id, name, prompt, model)
VALUES ($1, $2, $3, $4)
RETURNING created_at;
`

const insertGenerationsSQL = `
INSERT INTO generations (dataset_id, idx, text)
SELECT $1, g.idx, g.text
FROM unnest($2::int[], $3::text[]) AS g(idx, text);
`

const getDatasetSQL = `
SELECT id, name, prompt, model, created_at
FROM datasets
WHERE id = $1;
`

const getGenerationsSQL = `
SELECT text
FROM generations
WHERE dataset_id = $1
ORDER BY idx;
`

const listDatasetsSQL = `
SELECT d.id, d.name, d.prompt, d.model, d.created_at, count(g.idx)
FROM datasets d
LEFT JOIN generations g ON g.dataset_id = d.id
GROUP BY d.id
ORDER BY d.created_at DESC, d.id;
`

const deleteDatasetSQL = `
DELETE FROM datasets
WHERE id = $1;
`

// SaveDataset persists ds and all of its generations within a single
// transaction. Generation order is kept through the idx column so the
// sentence ids of a rebuilt graph match the original ones.
func (s *DatasetDBStorage) SaveDataset(ctx context.Context, ds common.Dataset) (common.Dataset, error) {
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

	logger.Debug("[Store] Saving dataset", "id", ds.ID, "generations", len(generations))

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return common.Dataset{}, err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, insertDatasetSQL, ds.ID, ds.Name, ds.Prompt, ds.Model).Scan(&ds.CreatedAt); err != nil {
		return common.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}

	err = store.ChunkRange(len(generations), s.chunkSize, func(start, end int) error {
		idx := make([]int32, 0, end-start)
		for i := start; i < end; i++ {
			idx = append(idx, int32(i))
		}
		_, err := tx.Exec(ctx, insertGenerationsSQL, ds.ID, idx, []string(generations[start:end]))
		return err
	})
	if err != nil {
		return common.Dataset{}, fmt.Errorf("insert generations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return common.Dataset{}, err
	}
	return ds, nil
}

// GetDataset loads a dataset with its generations in sampling order.
func (s *DatasetDBStorage) GetDataset(ctx context.Context, id string) (common.Dataset, error) {
	var ds common.Dataset
	err := s.conn.QueryRow(ctx, getDatasetSQL, id).Scan(&ds.ID, &ds.Name, &ds.Prompt, &ds.Model, &ds.CreatedAt)
	if err != nil {
		return common.Dataset{}, notFound(err)
	}

	rows, err := s.conn.Query(ctx, getGenerationsSQL, id)
	if err != nil {
		return common.Dataset{}, err
	}
	defer rows.Close()

	ds.Generations = common.Corpus{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return common.Dataset{}, err
		}
		ds.Generations = append(ds.Generations, text)
	}
	if err := rows.Err(); err != nil {
		return common.Dataset{}, err
	}

	return ds, nil
}

func (s *DatasetDBStorage) ListDatasets(ctx context.Context) ([]common.DatasetSummary, error) {
	rows, err := s.conn.Query(ctx, listDatasetsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []common.DatasetSummary{}
	for rows.Next() {
		var d common.DatasetSummary
		var count int64
		if err := rows.Scan(&d.ID, &d.Name, &d.Prompt, &d.Model, &d.CreatedAt, &count); err != nil {
			return nil, err
		}
		d.Generations = int(count)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset. Generations and snapshot rows go with it
// through ON DELETE CASCADE.
func (s *DatasetDBStorage) DeleteDataset(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, deleteDatasetSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
