// Package pipeline pairs each tracked entity's decoder with its table and upsert policy.
package pipeline

import (
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/postgres"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/walrus"
)

const (
	SendersName = "senders"
	BlobIDsName = "blob_ids"
	BlobsName   = "blobs"
)

// Result is the output of processing one checkpoint.
type Result struct {
	Rows   []indexermodels.Row
	Faults []walrus.Fault
}

// Pipeline decodes checkpoints into rows of one table. Process must be pure.
type Pipeline interface {
	Name() string
	Table() indexermodels.Table
	Policy() postgres.Policy
	Process(cp *checkpoint.Checkpoint) Result
}

type senders struct{}

// Senders records the sender of every transaction.
func Senders() Pipeline { return senders{} }

func (senders) Name() string               { return SendersName }
func (senders) Table() indexermodels.Table { return indexermodels.SendersTable }
func (senders) Policy() postgres.Policy    { return postgres.InsertOrIgnore }

func (senders) Process(cp *checkpoint.Checkpoint) Result {
	rows := make([]indexermodels.Row, 0, len(cp.Transactions))
	for i := range cp.Transactions {
		rows = append(rows, indexermodels.Sender{Sender: cp.Transactions[i].Sender.Bytes()})
	}
	return Result{Rows: rows}
}

type blobIDs struct {
	decoder *walrus.Decoder
}

// BlobIDs records the object id of every tracked Blob without decoding it.
func BlobIDs(decoder *walrus.Decoder) Pipeline { return blobIDs{decoder: decoder} }

func (blobIDs) Name() string               { return BlobIDsName }
func (blobIDs) Table() indexermodels.Table { return indexermodels.BlobIDsTable }
func (blobIDs) Policy() postgres.Policy    { return postgres.InsertOrIgnore }

func (p blobIDs) Process(cp *checkpoint.Checkpoint) Result {
	ids := p.decoder.MatchCheckpoint(cp)
	rows := make([]indexermodels.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, id)
	}
	return Result{Rows: rows}
}

type blobs struct {
	decoder *walrus.Decoder
}

// Blobs keeps the latest decoded state of every tracked Blob.
func Blobs(decoder *walrus.Decoder) Pipeline { return blobs{decoder: decoder} }

func (blobs) Name() string               { return BlobsName }
func (blobs) Table() indexermodels.Table { return indexermodels.BlobsTable }
func (blobs) Policy() postgres.Policy    { return postgres.InsertOrOverwrite }

func (p blobs) Process(cp *checkpoint.Checkpoint) Result {
	decoded, faults := p.decoder.DecodeCheckpoint(cp)
	rows := make([]indexermodels.Row, 0, len(decoded))
	for _, b := range decoded {
		rows = append(rows, b)
	}
	return Result{Rows: rows, Faults: faults}
}
