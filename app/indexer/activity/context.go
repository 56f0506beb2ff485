package activity

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/postgres"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/metrics"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/pipeline"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/redis"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/source"
)

// Store is the part of the indexer database the activities write through.
type Store interface {
	Commit(ctx context.Context, table indexermodels.Table, policy postgres.Policy, rows []indexermodels.Row) (int64, error)
	RecordWatermark(ctx context.Context, pipeline string, hi uint64) error
	Watermark(ctx context.Context, pipeline string) (uint64, bool, error)
}

// Publisher announces committed windows. Implementations must not fail the caller.
type Publisher interface {
	PublishIndexed(ctx context.Context, ev redis.IndexedEvent)
}

type Context struct {
	Logger    *zap.Logger
	Store     Store
	Source    source.Source
	Pipelines *pipeline.Registry
	Metrics   *metrics.PipelineMetrics
	// Publisher is optional; nil disables indexed events.
	Publisher Publisher
	// FetchParallelism bounds concurrent checkpoint fetches across all activities.
	FetchParallelism int
	fetchPoolOnce    sync.Once
	fetchPool        pond.Pool
}

// WorkerPool returns the shared fetch pool, created on first use.
func (c *Context) WorkerPool() pond.Pool {
	c.fetchPoolOnce.Do(func() {
		c.fetchPool = pond.NewPool(FetchParallelism(c.FetchParallelism))
	})
	return c.fetchPool
}

// FetchParallelism resolves the fetch pool size: the override when set, else two workers per CPU.
func FetchParallelism(override int) int {
	if override > 0 {
		if override > 256 {
			return 256
		}
		return override
	}

	n := runtime.NumCPU() * 2
	if n < 2 {
		n = 2
	}
	if n > 64 {
		n = 64
	}
	return n
}

// Close stops the fetch pool after running tasks finish.
func (c *Context) Close() {
	if c.fetchPool != nil {
		c.fetchPool.StopAndWait()
	}
}
