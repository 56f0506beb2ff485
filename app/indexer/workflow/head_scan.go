package workflow

import (
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/types"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/temporal/indexer"
)

// HeadScanWorkflow indexes everything between the pipeline watermark and the latest checkpoint.
// It waits for the range to finish, so with the schedule's SKIP overlap policy at most one range
// per pipeline runs at a time.
func (wc *Context) HeadScanWorkflow(ctx workflow.Context, in indexer.HeadScanInput) (types.HeadScanOutput, error) {
	logger := workflow.GetLogger(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	var wm types.WatermarkOutput
	if err := workflow.ExecuteActivity(actx, wc.ActivityContext.GetWatermark, types.PipelineInput{Pipeline: in.Pipeline}).Get(actx, &wm); err != nil {
		return types.HeadScanOutput{}, err
	}

	var latest uint64
	if err := workflow.ExecuteActivity(actx, wc.ActivityContext.GetLatestCheckpoint).Get(actx, &latest); err != nil {
		return types.HeadScanOutput{}, err
	}

	next := wm.NextCheckpoint(wc.Config.FirstCheckpoint)
	out := types.HeadScanOutput{Start: next, End: latest, Latest: latest}
	if latest < next {
		out.End = next
		return out, nil
	}

	logger.Info("HeadScan starting",
		"pipeline", in.Pipeline,
		"range_start", next,
		"range_end", latest,
		"total_checkpoints", latest-next+1,
	)

	cwo := workflow.ChildWorkflowOptions{
		WorkflowID:          wc.TemporalClient.GetIndexRangeWorkflowID(in.Pipeline, next, latest),
		TaskQueue:           wc.TemporalClient.IndexerQueue,
		WorkflowTaskTimeout: 2 * time.Minute,
	}
	cctx := workflow.WithChildOptions(ctx, cwo)

	var totals indexer.RangeTotals
	err := workflow.ExecuteChildWorkflow(cctx, indexer.IndexRangeWorkflowName, indexer.IndexRangeInput{
		Pipeline: in.Pipeline,
		From:     next,
		To:       latest,
	}).Get(cctx, &totals)
	if err != nil {
		return out, err
	}

	out.Queued = true
	logger.Info("HeadScan completed",
		"pipeline", in.Pipeline,
		"watermark", totals.Watermark,
		"rows_committed", totals.RowsCommitted,
		"decode_failures", totals.DecodeFailures,
	)
	return out, nil
}
