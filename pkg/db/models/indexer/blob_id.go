package indexer

// BlobIDsTable records the object id of every Blob seen, without attributes.
var BlobIDsTable = Table{
	Name: "blob_ids",
	Columns: []ColumnDef{
		{Name: "id", Type: "BYTEA NOT NULL", Key: true},
	},
}

type BlobID struct {
	ID []byte
}

func (b BlobID) Key() string   { return string(b.ID) }
func (b BlobID) Values() []any { return []any{b.ID} }
