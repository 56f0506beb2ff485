package indexer

// Indexer Workflow names
const (
	HeadScanWorkflowName   = "HeadScanWorkflow"
	IndexRangeWorkflowName = "IndexRangeWorkflow"
)
