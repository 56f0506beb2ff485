package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/temporal/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/utils"
)

type Client struct {
	TClient   client.Client
	TSClient  client.ScheduleClient
	Namespace string

	// IndexerQueue serves every pipeline; workflow IDs keep pipelines apart.
	IndexerQueue string

	// Schedule IDs
	HeadScheduleID string

	// Workflow IDs
	HeadScanWorkflowID   string
	IndexRangeWorkflowID string
}

type Health struct {
	ConnectionOK bool                      `json:"connection_ok"`
	IndexerQueue []*taskqueuepb.PollerInfo `json:"indexer_queue"`
}

// NewConfiguredClient returns a Client with the default queue and ID formats around tc.
func NewConfiguredClient(tc client.Client, namespace string) *Client {
	c := &Client{
		TClient:              tc,
		Namespace:            namespace,
		IndexerQueue:         "sui-indexer",
		HeadScheduleID:       "headscan:%s",
		HeadScanWorkflowID:   "%s:headscan",
		IndexRangeWorkflowID: "%s:range:%d-%d",
	}
	if tc != nil {
		c.TSClient = tc.ScheduleClient()
	}
	return c
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "sui-indexer")

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, NewZapAdapter(logger))
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		tClient.Close()
		return nil, err
	}

	return NewConfiguredClient(tClient, ns), nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetHeadScheduleID returns the schedule ID for the head scan of the given pipeline.
func (c *Client) GetHeadScheduleID(pipeline string) string {
	return fmt.Sprintf(c.HeadScheduleID, pipeline)
}

// GetHeadScanWorkflowID returns the workflow ID scheduled head scans run under.
func (c *Client) GetHeadScanWorkflowID(pipeline string) string {
	return fmt.Sprintf(c.HeadScanWorkflowID, pipeline)
}

// GetIndexRangeWorkflowID is deterministic so a range is never indexed twice concurrently.
func (c *Client) GetIndexRangeWorkflowID(pipeline string, from, to uint64) string {
	return fmt.Sprintf(c.IndexRangeWorkflowID, pipeline, from, to)
}

// GetScheduleSpec returns a schedule spec for the given interval.
func GetScheduleSpec(interval time.Duration) client.ScheduleSpec {
	return client.ScheduleSpec{Intervals: []client.ScheduleIntervalSpec{{Every: interval}}}
}

// HeadScanScheduleOptions describes the per-pipeline head scan schedule. Overlapping runs are
// skipped so commits for one pipeline stay in checkpoint order.
func (c *Client) HeadScanScheduleOptions(pipeline string, interval time.Duration) client.ScheduleOptions {
	return client.ScheduleOptions{
		ID:      c.GetHeadScheduleID(pipeline),
		Spec:    GetScheduleSpec(interval),
		Overlap: enums.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &client.ScheduleWorkflowAction{
			ID:                  c.GetHeadScanWorkflowID(pipeline),
			Workflow:            indexer.HeadScanWorkflowName,
			Args:                []interface{}{indexer.HeadScanInput{Pipeline: pipeline}},
			TaskQueue:           c.IndexerQueue,
			WorkflowTaskTimeout: 2 * time.Minute,
		},
	}
}

// EnsureHeadScanSchedule creates the head scan schedule for pipeline unless it already exists.
func (c *Client) EnsureHeadScanSchedule(ctx context.Context, logger *zap.Logger, pipeline string, interval time.Duration) error {
	id := c.GetHeadScheduleID(pipeline)
	h := c.TSClient.GetHandle(ctx, id)
	_, err := h.Describe(ctx)
	if err == nil {
		logger.Info("Head scan schedule already exists",
			zap.String("id", id),
			zap.String("namespace", c.Namespace),
			zap.String("pipeline", pipeline))
		return nil
	}

	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		logger.Info("Creating head scan schedule",
			zap.String("id", id),
			zap.String("namespace", c.Namespace),
			zap.Duration("interval", interval))
		_, scheduleErr := c.TSClient.Create(ctx, c.HeadScanScheduleOptions(pipeline, interval))
		return scheduleErr
	}
	return err
}

// Health returns the health of the Temporal client.
func (c *Client) Health(ctx context.Context) (Health, error) {
	h := Health{ConnectionOK: true}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	svc := c.TClient.WorkflowService()
	if svc != nil {
		rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.IndexerQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		})
		if err != nil {
			h.ConnectionOK = false
			return h, err
		}
		h.IndexerQueue = rep.GetPollers()
	}
	return h, nil
}
