package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// IndexedEvent announces that a pipeline committed a checkpoint.
type IndexedEvent struct {
	Pipeline       string    `json:"pipeline"`
	Checkpoint     uint64    `json:"checkpoint"`
	RowsCommitted  int64     `json:"rows_committed"`
	DecodeFailures int       `json:"decode_failures"`
	IndexedAt      time.Time `json:"indexed_at"`
}

// IndexedChannel is the Pub/Sub channel for a pipeline, e.g. "sui:blobs:checkpoint.indexed".
func IndexedChannel(pipeline string) string {
	return fmt.Sprintf("sui:%s:checkpoint.indexed", pipeline)
}

// IndexedStream is the stream mirroring IndexedChannel for consumers that need replay.
func IndexedStream(pipeline string) string {
	return fmt.Sprintf("sui:%s:checkpoints", pipeline)
}

// PublishIndexed sends ev on both the channel and the stream of its pipeline.
func (c *Client) PublishIndexed(ctx context.Context, ev IndexedEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warn("Failed to encode indexed event", zap.String("pipeline", ev.Pipeline), zap.Error(err))
		return
	}
	c.publish(ctx, IndexedChannel(ev.Pipeline), payload)
	stream := IndexedStream(ev.Pipeline)
	id := c.xadd(ctx, stream, map[string]interface{}{
		"checkpoint": ev.Checkpoint,
		"payload":    string(payload),
	})
	if id != "" {
		c.logger.Debug("Indexed event appended",
			zap.String("stream", stream),
			zap.String("entry_id", id),
			zap.Uint64("checkpoint", ev.Checkpoint))
	}
}
