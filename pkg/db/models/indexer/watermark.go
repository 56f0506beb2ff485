package indexer

import "time"

// WatermarksTable tracks the highest checkpoint each pipeline has fully committed.
var WatermarksTable = Table{
	Name: "watermarks",
	Columns: []ColumnDef{
		{Name: "pipeline", Type: "TEXT NOT NULL", Key: true},
		{Name: "checkpoint_hi_inclusive", Type: "BIGINT NOT NULL"},
		{Name: "updated_at", Type: "TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()"},
	},
}

// Watermark is the progress cursor of one pipeline.
type Watermark struct {
	Pipeline              string    `json:"pipeline"`
	CheckpointHiInclusive uint64    `json:"checkpoint_hi_inclusive"`
	UpdatedAt             time.Time `json:"updated_at"`
}
