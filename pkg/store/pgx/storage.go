package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// DatasetDBStorage implements the DatasetStorage interface on PostgreSQL.
// It works on a pool as well as on a single connection or transaction.
type DatasetDBStorage struct {
	conn      pgxIConn
	chunkSize int
}

var _ store.DatasetStorage = (*DatasetDBStorage)(nil)

type DatasetDBStorageOption func(*DatasetDBStorage)

// WithChunkSize sets how many generations are inserted per statement.
func WithChunkSize(n int) DatasetDBStorageOption {
	return func(s *DatasetDBStorage) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// NewDatasetDBStorageWithConnection creates a new DatasetDBStorage using an
// existing database connection.
//
// Example:
//
//	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	s := pgx.NewDatasetDBStorageWithConnection(pool)
//	ds, err := s.SaveDataset(ctx, common.Dataset{Name: "capitals", Generations: corpus})
func NewDatasetDBStorageWithConnection(conn pgxIConn, opts ...DatasetDBStorageOption) *DatasetDBStorage {
	s := &DatasetDBStorage{
		conn:      conn,
		chunkSize: 1000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func notFound(err error) error {
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
