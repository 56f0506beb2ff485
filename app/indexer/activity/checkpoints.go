package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/types"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/pipeline"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/redis"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/source"
)

// MaxWindowSize bounds how many checkpoints one activity holds in memory.
const MaxWindowSize = 1000

// IndexCheckpoints fetches a window of checkpoints in parallel, then decodes and commits them one
// by one in sequence order. The watermark moves to the end of the window only after every
// checkpoint of the window is committed, so a retried activity replays at most one window.
func (c *Context) IndexCheckpoints(ctx context.Context, in types.IndexCheckpointsInput) (types.IndexCheckpointsOutput, error) {
	start := time.Now()

	p, err := c.pipeline(in.Pipeline)
	if err != nil {
		return types.IndexCheckpointsOutput{}, err
	}
	if in.To < in.From || in.To-in.From >= MaxWindowSize {
		return types.IndexCheckpointsOutput{}, sdktemporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid window %d-%d", in.From, in.To), "invalid_window", nil)
	}

	logger := c.Logger.With(zap.String("pipeline", p.Name()))

	cps, err := c.fetchWindow(ctx, in.From, in.To)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return types.IndexCheckpointsOutput{}, sdktemporal.NewApplicationErrorWithCause(
				"checkpoint not available yet", "checkpoint_not_found", err)
		}
		return types.IndexCheckpointsOutput{}, sdktemporal.NewApplicationErrorWithCause(
			"checkpoint fetch failed", "source_error", err)
	}

	out := types.IndexCheckpointsOutput{Checkpoints: len(cps), Watermark: in.To}
	for _, cp := range cps {
		res := p.Process(cp)

		for _, f := range res.Faults {
			logger.Warn("Dropping undecodable object",
				zap.Uint64("checkpoint", f.Checkpoint),
				zap.String("tx", f.TxDigest),
				zap.Stringer("object_id", f.ObjectID),
				zap.String("type", f.Type),
				zap.Error(f.Err))
		}
		c.Metrics.AddDecodeFailures(p.Name(), len(res.Faults))
		c.Metrics.AddRecordsDecoded(p.Name(), len(res.Rows))
		out.DecodeFailures += len(res.Faults)

		n, err := c.Store.Commit(ctx, p.Table(), p.Policy(), res.Rows)
		if err != nil {
			c.Metrics.IncCommitFailures(p.Name())
			logger.Error("Commit failed",
				zap.Uint64("checkpoint", cp.SequenceNumber),
				zap.Int("rows", len(res.Rows)),
				zap.Error(err))
			return out, err
		}
		c.Metrics.AddRowsCommitted(p.Name(), n)
		c.Metrics.IncCheckpointsProcessed(p.Name())
		out.RowsCommitted += n

		activity.RecordHeartbeat(ctx, cp.SequenceNumber)
	}

	if err := c.Store.RecordWatermark(ctx, p.Name(), in.To); err != nil {
		return out, fmt.Errorf("record watermark %s: %w", p.Name(), err)
	}
	c.Metrics.SetWatermark(p.Name(), in.To)

	if c.Publisher != nil {
		c.Publisher.PublishIndexed(ctx, redis.IndexedEvent{
			Pipeline:       p.Name(),
			Checkpoint:     in.To,
			RowsCommitted:  out.RowsCommitted,
			DecodeFailures: out.DecodeFailures,
			IndexedAt:      time.Now().UTC(),
		})
	}

	out.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	logger.Debug("Indexed window",
		zap.Uint64("from", in.From),
		zap.Uint64("to", in.To),
		zap.Int64("rows", out.RowsCommitted),
		zap.Int("decode_failures", out.DecodeFailures),
		zap.Float64("duration_ms", out.DurationMs))
	return out, nil
}

// fetchWindow returns checkpoints from..to ordered by sequence number.
func (c *Context) fetchWindow(ctx context.Context, from, to uint64) ([]*checkpoint.Checkpoint, error) {
	n := int(to - from + 1)
	cps := make([]*checkpoint.Checkpoint, n)
	errs := make([]error, n)

	group := c.WorkerPool().NewGroupContext(ctx)
	groupCtx := group.Context()
	for i := 0; i < n; i++ {
		seq := from + uint64(i)
		slot := i
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				errs[slot] = err
				return
			}
			cps[slot], errs[slot] = c.Source.Checkpoint(groupCtx, seq)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		c.Logger.Warn("parallel checkpoint fetch encountered error",
			zap.Uint64("from", from),
			zap.Uint64("to", to),
			zap.Error(err))
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fetch checkpoint %d: %w", from+uint64(i), err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cps, nil
}

func (c *Context) pipeline(name string) (pipeline.Pipeline, error) {
	p, ok := c.Pipelines.Get(name)
	if !ok {
		return nil, sdktemporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown pipeline %q", name), "unknown_pipeline", nil)
	}
	return p, nil
}
