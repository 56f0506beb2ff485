package walrus

import (
	"bytes"

	"github.com/fardream/go-bcs/bcs"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
)

const blobType = DefaultPackage + "::blob::Blob"

func addr(s string) checkpoint.Address {
	a, err := checkpoint.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

type v2Fixture struct {
	id          checkpoint.Address
	registered  uint32
	blobID      []byte
	size        uint64
	encoding    uint8
	certified   *uint32
	storageID   checkpoint.Address
	start, end  uint32
	storageSize uint64
	deletable   bool
}

func newV2Fixture(id string) v2Fixture {
	return v2Fixture{
		id:          addr(id),
		registered:  10,
		blobID:      bytes.Repeat([]byte{0xab}, 32),
		size:        1 << 20,
		encoding:    1,
		storageID:   addr(id + "5"),
		start:       10,
		end:         60,
		storageSize: 5 << 20,
		deletable:   true,
	}
}

func (f v2Fixture) encode() []byte {
	v := BlobV2{
		ID:              f.id,
		RegisteredEpoch: f.registered,
		Size:            f.size,
		EncodingType:    f.encoding,
		CertifiedEpoch:  f.certified,
		Storage:         StorageV2{ID: f.storageID, StartEpoch: f.start, EndEpoch: f.end, StorageSize: f.storageSize},
		Deletable:       f.deletable,
	}
	copy(v.BlobID[:], f.blobID)
	return mustMarshal(v)
}

func (f v2Fixture) object() checkpoint.Object {
	tag, err := checkpoint.ParseStructTag(blobType)
	if err != nil {
		panic(err)
	}
	return checkpoint.Object{ID: f.id, Version: 1, RawType: blobType, Type: &tag, Contents: f.encode()}
}

type v1Fixture struct {
	id          checkpoint.Address
	blobID      string
	registered  uint64
	certified   *uint64
	deletable   bool
	encoding    uint64
	size        string
	storageID   checkpoint.Address
	start, end  uint64
	storageSize string
}

func (f v1Fixture) encode() []byte {
	return mustMarshal(BlobV1{
		ID:              f.id,
		BlobID:          f.blobID,
		RegisteredEpoch: f.registered,
		CertifiedEpoch:  f.certified,
		Deletable:       f.deletable,
		EncodingType:    f.encoding,
		Size:            f.size,
		Storage:         StorageV1{ID: f.storageID, StartEpoch: f.start, EndEpoch: f.end, StorageSize: f.storageSize},
	})
}

func mustMarshal(v any) []byte {
	b, err := bcs.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func objectOfType(id checkpoint.Address, typ string, contents []byte) checkpoint.Object {
	obj := checkpoint.Object{ID: id, Version: 1, RawType: typ, Contents: contents}
	if tag, err := checkpoint.ParseStructTag(typ); err == nil {
		obj.Type = &tag
	}
	return obj
}

func checkpointOf(seq uint64, objects ...checkpoint.Object) *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{
		SequenceNumber: seq,
		Transactions: []checkpoint.Transaction{{
			Digest:        "tx",
			Sender:        addr("0xa11ce"),
			OutputObjects: objects,
		}},
	}
}

func u32(v uint32) *uint32 { return &v }
func u64(v uint64) *uint64 { return &v }
