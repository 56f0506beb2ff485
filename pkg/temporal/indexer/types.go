package indexer

// Input types for triggering workflows from schedules and other workflows

type HeadScanInput struct {
	Pipeline string
}

// IndexRangeInput covers checkpoints From..To inclusive. Totals carries progress across
// continue-as-new runs and is zero on the first run.
type IndexRangeInput struct {
	Pipeline string
	From     uint64
	To       uint64
	Totals   RangeTotals
}

// RangeTotals accumulates what an index range run committed.
type RangeTotals struct {
	Windows        int
	Checkpoints    int
	RowsCommitted  int64
	DecodeFailures int
	Watermark      uint64
}
