package workflow

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/types"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/temporal/indexer"
)

// IndexRangeWorkflow commits checkpoints From..To window by window, strictly in order. Windows
// never overlap and the next one starts only after the previous one committed.
func (wc *Context) IndexRangeWorkflow(ctx workflow.Context, in indexer.IndexRangeInput) (indexer.RangeTotals, error) {
	logger := workflow.GetLogger(ctx)
	totals := in.Totals

	if in.To < in.From {
		return totals, sdktemporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid range %d-%d", in.From, in.To), "invalid_range", nil)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			NonRetryableErrorTypes: []string{"unknown_pipeline", "invalid_window"},
		},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	size := wc.Config.windowSize()
	maxWindows := wc.Config.maxWindowsPerRun()

	from := in.From
	for windows := 0; ; windows++ {
		if windows == maxWindows {
			logger.Info("IndexRange continuing as new",
				"pipeline", in.Pipeline,
				"resume_from", from,
				"range_end", in.To,
			)
			next := in
			next.From = from
			next.Totals = totals
			return totals, workflow.NewContinueAsNewError(ctx, indexer.IndexRangeWorkflowName, next)
		}

		to := in.To
		if in.To-from >= size {
			to = from + size - 1
		}

		var out types.IndexCheckpointsOutput
		err := workflow.ExecuteActivity(actx, wc.ActivityContext.IndexCheckpoints, types.IndexCheckpointsInput{
			Pipeline: in.Pipeline,
			From:     from,
			To:       to,
		}).Get(actx, &out)
		if err != nil {
			return totals, err
		}

		totals.Windows++
		totals.Checkpoints += out.Checkpoints
		totals.RowsCommitted += out.RowsCommitted
		totals.DecodeFailures += out.DecodeFailures
		totals.Watermark = out.Watermark

		if to == in.To {
			return totals, nil
		}
		from = to + 1
	}
}
