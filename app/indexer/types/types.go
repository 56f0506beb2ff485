package types

// Activity inputs and outputs. Values only: they are serialized into workflow history.

// PipelineInput names the pipeline an activity works for.
type PipelineInput struct {
	Pipeline string
}

// IndexCheckpointsInput is one window of checkpoints, From..To inclusive.
type IndexCheckpointsInput struct {
	Pipeline string
	From     uint64
	To       uint64
}

// IndexCheckpointsOutput summarizes a committed window.
type IndexCheckpointsOutput struct {
	Checkpoints    int
	RowsCommitted  int64
	DecodeFailures int
	Watermark      uint64
	DurationMs     float64
}

// WatermarkOutput is the resume point of a pipeline. Found is false before the first commit.
type WatermarkOutput struct {
	Checkpoint uint64
	Found      bool
}

// NextCheckpoint returns the first checkpoint still to be indexed.
func (w WatermarkOutput) NextCheckpoint(first uint64) uint64 {
	if !w.Found || w.Checkpoint+1 < first {
		return first
	}
	return w.Checkpoint + 1
}

// HeadScanOutput reports what a head scan found and scheduled.
type HeadScanOutput struct {
	Start  uint64
	End    uint64
	Latest uint64
	Queued bool
}
