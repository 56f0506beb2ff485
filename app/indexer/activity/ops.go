package activity

import (
	"context"

	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/types"
)

// GetWatermark returns the last checkpoint committed by the pipeline.
func (c *Context) GetWatermark(ctx context.Context, in types.PipelineInput) (types.WatermarkOutput, error) {
	if _, err := c.pipeline(in.Pipeline); err != nil {
		return types.WatermarkOutput{}, err
	}
	hi, ok, err := c.Store.Watermark(ctx, in.Pipeline)
	if err != nil {
		return types.WatermarkOutput{}, sdktemporal.NewApplicationErrorWithCause("watermark lookup failed", "db_error", err)
	}
	return types.WatermarkOutput{Checkpoint: hi, Found: ok}, nil
}

// GetLatestCheckpoint returns the newest checkpoint the source can serve.
func (c *Context) GetLatestCheckpoint(ctx context.Context) (uint64, error) {
	latest, err := c.Source.Latest(ctx)
	if err != nil {
		return 0, sdktemporal.NewApplicationErrorWithCause("latest checkpoint lookup failed", "source_error", err)
	}
	return latest, nil
}
