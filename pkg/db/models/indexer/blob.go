package indexer

// BlobsTable stores the latest decoded state of each Blob object.
var BlobsTable = Table{
	Name: "blobs",
	Columns: []ColumnDef{
		{Name: "id", Type: "BYTEA NOT NULL", Key: true},
		{Name: "blob_id", Type: "BYTEA NOT NULL"},
		{Name: "registered_epoch", Type: "BIGINT NOT NULL"},
		{Name: "certified_epoch", Type: "BIGINT"},
		{Name: "deletable", Type: "BOOLEAN NOT NULL"},
		{Name: "encoding_type", Type: "INTEGER NOT NULL"},
		{Name: "size", Type: "TEXT NOT NULL"},
		{Name: "storage_id", Type: "BYTEA NOT NULL"},
		{Name: "storage_start_epoch", Type: "BIGINT NOT NULL"},
		{Name: "storage_end_epoch", Type: "BIGINT NOT NULL"},
		{Name: "storage_size", Type: "TEXT NOT NULL"},
	},
}

// Blob is the canonical record for a Walrus blob object, whatever on-chain layout it was decoded from.
type Blob struct {
	ID []byte
	// BlobID is the u256 content identifier as its 32 little-endian bytes.
	BlobID          []byte
	RegisteredEpoch int64
	// CertifiedEpoch is nil until the blob is certified.
	CertifiedEpoch    *int64
	Deletable         bool
	EncodingType      int32
	Size              string // decimal u64
	StorageID         []byte
	StorageStartEpoch int64
	StorageEndEpoch   int64
	StorageSize       string // decimal u64
}

func (b Blob) Key() string { return string(b.ID) }

func (b Blob) Values() []any {
	return []any{
		b.ID,
		b.BlobID,
		b.RegisteredEpoch,
		b.CertifiedEpoch,
		b.Deletable,
		b.EncodingType,
		b.Size,
		b.StorageID,
		b.StorageStartEpoch,
		b.StorageEndEpoch,
		b.StorageSize,
	}
}
