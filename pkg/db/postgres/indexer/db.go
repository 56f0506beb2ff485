package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/postgres"
)

// Tables lists every table the indexer owns, in creation order.
var Tables = []indexermodels.Table{
	indexermodels.SendersTable,
	indexermodels.BlobIDsTable,
	indexermodels.BlobsTable,
	indexermodels.WatermarksTable,
}

// DB represents the PostgreSQL database the pipelines write to
type DB struct {
	postgres.Client
	Name string
}

// NewWithPoolConfig creates and initializes an indexer database instance with custom pool configuration
func NewWithPoolConfig(ctx context.Context, logger *zap.Logger, name string, poolConfig postgres.PoolConfig) (*DB, error) {
	client, err := postgres.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", poolConfig.Component),
	), name, &poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: name}
	if err := db.InitializeDB(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// DatabaseName returns the name of the indexer database
func (db *DB) DatabaseName() string {
	return db.Name
}

// InitializeDB ensures the required tables exist
func (db *DB) InitializeDB(ctx context.Context) error {
	initStart := time.Now()
	db.Logger.Info("Initializing indexer database", zap.String("database", db.Name))

	var wg sync.WaitGroup
	errChan := make(chan error, len(Tables))
	for _, table := range Tables {
		wg.Add(1)
		go func(table indexermodels.Table) {
			defer wg.Done()
			db.Logger.Debug("Initializing table", zap.String("table", table.Name))
			if _, err := db.Exec(ctx, table.CreateSQL()); err != nil {
				errChan <- fmt.Errorf("init %s: %w", table.Name, err)
			}
		}(table)
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		return err
	}

	db.Logger.Info("Indexer database initialized successfully",
		zap.String("database", db.Name),
		zap.Duration("duration", time.Since(initStart)))
	return nil
}

// Commit upserts rows into table. See postgres.Commit.
func (db *DB) Commit(ctx context.Context, table indexermodels.Table, policy postgres.Policy, rows []indexermodels.Row) (int64, error) {
	return postgres.Commit(ctx, db.Pool, table, policy, rows)
}
