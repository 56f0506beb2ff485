package walrus

import (
	"errors"
	"fmt"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
)

// Fault describes one tracked object that could not be decoded. Faults never abort a checkpoint.
type Fault struct {
	Checkpoint uint64
	TxDigest   string
	ObjectID   checkpoint.ObjectID
	Type       string
	Err        error
}

func (f Fault) Error() string {
	return fmt.Sprintf("checkpoint %d tx %s object %s: %v", f.Checkpoint, f.TxDigest, f.ObjectID, f.Err)
}

func (f Fault) Unwrap() error { return f.Err }

// Decoder turns output objects of the configured Blob types into canonical records.
type Decoder struct {
	cfg Config
}

func NewDecoder(cfg Config) *Decoder {
	return &Decoder{cfg: cfg}
}

// Match returns the tracked type an object's declared type equals, if any.
func (d *Decoder) Match(obj *checkpoint.Object) (TrackedType, bool) {
	return d.cfg.Lookup(obj.Type)
}

// Decode produces the canonical record for one object. Raw contents are tried first, then the
// field view. The returned error wraps ErrNotMatched when the object is not a tracked Blob;
// any other error is a decode fault.
func (d *Decoder) Decode(obj *checkpoint.Object) (indexermodels.Blob, error) {
	tracked, ok := d.Match(obj)
	if !ok {
		return indexermodels.Blob{}, ErrNotMatched
	}

	var rawErr error
	if contents, ok := obj.RawContents(); ok {
		blob, err := decodeRaw(tracked.Layout, obj.ID, contents)
		if err == nil {
			return blob, nil
		}
		rawErr = err
	}

	fields, ok := obj.FieldView()
	if !ok {
		if rawErr != nil {
			return indexermodels.Blob{}, rawErr
		}
		return indexermodels.Blob{}, fmt.Errorf("%w: no accessible contents", ErrNotMatched)
	}

	blob, err := decodeFields(obj.ID, fields)
	switch {
	case err == nil:
		return blob, nil
	case rawErr == nil:
		return indexermodels.Blob{}, err
	case errors.Is(err, ErrNotMatched):
		return indexermodels.Blob{}, rawErr
	default:
		return indexermodels.Blob{}, errors.Join(rawErr, fmt.Errorf("fields: %w", err))
	}
}

// DecodeCheckpoint decodes every tracked output object in transaction order. Objects that fail to
// decode are reported as faults and left out of the records.
func (d *Decoder) DecodeCheckpoint(cp *checkpoint.Checkpoint) ([]indexermodels.Blob, []Fault) {
	var (
		blobs  []indexermodels.Blob
		faults []Fault
	)
	for i := range cp.Transactions {
		tx := &cp.Transactions[i]
		for j := range tx.OutputObjects {
			obj := &tx.OutputObjects[j]
			blob, err := d.Decode(obj)
			if err == nil {
				blobs = append(blobs, blob)
				continue
			}
			if errors.Is(err, ErrNotMatched) {
				continue
			}
			faults = append(faults, Fault{
				Checkpoint: cp.SequenceNumber,
				TxDigest:   tx.Digest,
				ObjectID:   obj.ID,
				Type:       obj.RawType,
				Err:        err,
			})
		}
	}
	return blobs, faults
}

// MatchCheckpoint returns the ids of all tracked output objects without decoding their contents.
func (d *Decoder) MatchCheckpoint(cp *checkpoint.Checkpoint) []indexermodels.BlobID {
	var ids []indexermodels.BlobID
	for i := range cp.Transactions {
		tx := &cp.Transactions[i]
		for j := range tx.OutputObjects {
			obj := &tx.OutputObjects[j]
			if _, ok := d.Match(obj); ok {
				ids = append(ids, indexermodels.BlobID{ID: obj.ID.Bytes()})
			}
		}
	}
	return ids
}
