package walrus

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fardream/go-bcs/bcs"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
)

// ErrIDMismatch is returned when the UID inside the contents is not the object's id.
var ErrIDMismatch = errors.New("embedded uid does not match object id")

var (
	// ErrMalformed wraps every deserialization failure of raw contents.
	ErrMalformed = errors.New("malformed bcs contents")
	// ErrTrailingBytes is returned when contents continue past the end of the layout.
	ErrTrailingBytes = errors.New("trailing bytes after value")
)

// BlobV2 is the current on-chain layout of blob::Blob.
type BlobV2 struct {
	ID              checkpoint.Address
	RegisteredEpoch uint32
	BlobID          [BlobIDLength]byte // u256, little-endian
	Size            uint64
	EncodingType    uint8
	CertifiedEpoch  *uint32 `bcs:"optional"`
	Storage         StorageV2
	Deletable       bool
}

type StorageV2 struct {
	ID          checkpoint.Address
	StartEpoch  uint32
	EndEpoch    uint32
	StorageSize uint64
}

// BlobV1 is the early layout: u64 epochs and decimal strings for the wide values.
type BlobV1 struct {
	ID              checkpoint.Address
	BlobID          string
	RegisteredEpoch uint64
	CertifiedEpoch  *uint64 `bcs:"optional"`
	Deletable       bool
	EncodingType    uint64
	Size            string
	Storage         StorageV1
}

type StorageV1 struct {
	ID          checkpoint.Address
	StartEpoch  uint64
	EndEpoch    uint64
	StorageSize string
}

// decodeRaw deserializes contents with the given layout and resolves the canonical record.
func decodeRaw(layout Layout, id checkpoint.ObjectID, contents []byte) (indexermodels.Blob, error) {
	var (
		blob indexermodels.Blob
		err  error
	)
	switch layout {
	case LayoutV2:
		var v BlobV2
		if err = unmarshalExact(contents, &v); err == nil {
			blob, err = v.canonical(id)
		}
	case LayoutV1:
		var v BlobV1
		if err = unmarshalExact(contents, &v); err == nil {
			blob, err = v.canonical(id)
		}
	default:
		err = fmt.Errorf("unsupported layout %s", layout)
	}
	if err != nil {
		return indexermodels.Blob{}, fmt.Errorf("bcs %s: %w", layout, err)
	}
	return blob, nil
}

// unmarshalExact decodes v and requires that it consumes every byte of contents.
func unmarshalExact(contents []byte, v any) error {
	n, err := bcs.Unmarshal(contents, v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if n != len(contents) {
		return fmt.Errorf("%w: %d of %d bytes unread", ErrTrailingBytes, len(contents)-n, len(contents))
	}
	return nil
}

func (v BlobV2) canonical(id checkpoint.ObjectID) (indexermodels.Blob, error) {
	if v.ID != id {
		return indexermodels.Blob{}, fmt.Errorf("%w: %s", ErrIDMismatch, v.ID)
	}
	out := indexermodels.Blob{
		ID:                v.ID.Bytes(),
		BlobID:            v.BlobID[:],
		RegisteredEpoch:   int64(v.RegisteredEpoch),
		Deletable:         v.Deletable,
		EncodingType:      int32(v.EncodingType),
		Size:              strconv.FormatUint(v.Size, 10),
		StorageID:         v.Storage.ID.Bytes(),
		StorageStartEpoch: int64(v.Storage.StartEpoch),
		StorageEndEpoch:   int64(v.Storage.EndEpoch),
		StorageSize:       strconv.FormatUint(v.Storage.StorageSize, 10),
	}
	if v.CertifiedEpoch != nil {
		e := int64(*v.CertifiedEpoch)
		out.CertifiedEpoch = &e
	}
	return out, nil
}

func (v BlobV1) canonical(id checkpoint.ObjectID) (out indexermodels.Blob, err error) {
	if v.ID != id {
		return out, fmt.Errorf("%w: %s", ErrIDMismatch, v.ID)
	}
	out.ID = v.ID.Bytes()
	out.StorageID = v.Storage.ID.Bytes()
	out.Deletable = v.Deletable
	if out.BlobID, err = BlobIDFromDecimal(v.BlobID); err != nil {
		return out, err
	}
	if out.RegisteredEpoch, err = toInt64("registered_epoch", v.RegisteredEpoch); err != nil {
		return out, err
	}
	if out.CertifiedEpoch, err = optionToInt64("certified_epoch", v.CertifiedEpoch); err != nil {
		return out, err
	}
	if out.EncodingType, err = toInt32("encoding_type", v.EncodingType); err != nil {
		return out, err
	}
	if out.Size, err = decimalU64("size", v.Size); err != nil {
		return out, err
	}
	if out.StorageStartEpoch, err = toInt64("storage.start_epoch", v.Storage.StartEpoch); err != nil {
		return out, err
	}
	if out.StorageEndEpoch, err = toInt64("storage.end_epoch", v.Storage.EndEpoch); err != nil {
		return out, err
	}
	if out.StorageSize, err = decimalU64("storage.storage_size", v.Storage.StorageSize); err != nil {
		return out, err
	}
	return out, nil
}
