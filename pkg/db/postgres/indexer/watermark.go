package indexer

import (
	"context"
	"fmt"

	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/postgres"
)

// RecordWatermark records that every checkpoint up to hi has been committed for pipeline.
// Uses GREATEST to ensure the watermark never moves backwards.
func (db *DB) RecordWatermark(ctx context.Context, pipeline string, hi uint64) error {
	query := `
		INSERT INTO watermarks (pipeline, checkpoint_hi_inclusive, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (pipeline) DO UPDATE SET
			checkpoint_hi_inclusive = GREATEST(watermarks.checkpoint_hi_inclusive, EXCLUDED.checkpoint_hi_inclusive),
			updated_at = NOW()
	`
	if _, err := db.Exec(ctx, query, pipeline, int64(hi)); err != nil {
		return fmt.Errorf("record watermark %s: %w", pipeline, err)
	}
	return nil
}

// Watermark returns the highest committed checkpoint for pipeline. ok is false when the
// pipeline has never committed.
func (db *DB) Watermark(ctx context.Context, pipeline string) (hi uint64, ok bool, err error) {
	query := `SELECT checkpoint_hi_inclusive FROM watermarks WHERE pipeline = $1`

	var v int64
	if err := db.QueryRow(ctx, query, pipeline).Scan(&v); err != nil {
		if postgres.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query watermark %s: %w", pipeline, err)
	}
	return uint64(v), true, nil
}

// Watermarks returns every pipeline's progress ordered by name.
func (db *DB) Watermarks(ctx context.Context) ([]indexermodels.Watermark, error) {
	rows, err := db.Query(ctx, `SELECT pipeline, checkpoint_hi_inclusive, updated_at FROM watermarks ORDER BY pipeline`)
	if err != nil {
		return nil, fmt.Errorf("query watermarks: %w", err)
	}
	defer rows.Close()

	var out []indexermodels.Watermark
	for rows.Next() {
		var (
			w  indexermodels.Watermark
			hi int64
		)
		if err := rows.Scan(&w.Pipeline, &hi, &w.UpdatedAt); err != nil {
			return nil, err
		}
		w.CheckpointHiInclusive = uint64(hi)
		out = append(out, w)
	}
	return out, rows.Err()
}
