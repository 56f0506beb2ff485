package checkpoint

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	short, err := ParseAddress("0x2")
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000002", short.String())

	long, err := ParseAddress("795ddbc26b8cfff2551f45e198b87fc19473f2df50f995376b924ac80e56f88b")
	require.NoError(t, err)
	assert.Equal(t, "0x795ddbc26b8cfff2551f45e198b87fc19473f2df50f995376b924ac80e56f88b", long.String())

	_, err = ParseAddress("0x")
	assert.Error(t, err)
	_, err = ParseAddress("0xzz")
	assert.Error(t, err)
	_, err = ParseAddress("0x" + strings.Repeat("a", 65))
	assert.Error(t, err)
}

func TestParseStructTag(t *testing.T) {
	tag, err := ParseStructTag("0x2::coin::Coin<0x2::sui::SUI>")
	require.NoError(t, err)
	assert.Equal(t, "coin", tag.Module)
	assert.Equal(t, "Coin", tag.Name)
	assert.Equal(t, []string{"0x2::sui::SUI"}, tag.TypeParams)

	nested, err := ParseStructTag("0x2::dynamic_field::Field<u64, 0x2::table::Table<address, vector<u8>>>")
	require.NoError(t, err)
	assert.Equal(t, []string{"u64", "0x2::table::Table<address, vector<u8>>"}, nested.TypeParams)

	plain, err := ParseStructTag("0x795d::blob::Blob")
	require.NoError(t, err)
	assert.Empty(t, plain.TypeParams)
	assert.Equal(t, "0x000000000000000000000000000000000000000000000000000000000000795d::blob::Blob", plain.String())

	for _, bad := range []string{"blob::Blob", "0x1::::Blob", "0x1::m::N<T", "0x1::m::N<T>>", "0x1::m::N<,>"} {
		_, err := ParseStructTag(bad)
		assert.Error(t, err, bad)
	}
}

const sampleCheckpoint = `{
  "sequence_number": 42,
  "timestamp_ms": 1700000000000,
  "transactions": [
    {
      "digest": "tx-1",
      "sender": "0xa11ce",
      "effects": [
        {"kind": "created", "object_id": "0x10", "version": 1, "type": "0x795d::blob::Blob"},
        {"kind": "deleted", "object_id": "0x11", "version": 1}
      ],
      "output_objects": [
        {
          "object_id": "0x10",
          "version": 1,
          "type": "0x795d::blob::Blob",
          "bcs": "AQID",
          "fields": {"registered_epoch": 3, "size": "1024"}
        },
        {"object_id": "0x12", "version": 4, "type": "package"}
      ]
    }
  ]
}`

func TestDecodeCheckpoint(t *testing.T) {
	cp, err := Decode(strings.NewReader(sampleCheckpoint))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cp.SequenceNumber)
	require.Len(t, cp.Transactions, 1)
	assert.Equal(t, 2, cp.ObjectCount())

	tx := cp.Transactions[0]
	sender, _ := ParseAddress("0xa11ce")
	assert.Equal(t, sender, tx.Sender)

	blob := tx.OutputObjects[0]
	require.NotNil(t, blob.Type)
	assert.Equal(t, "Blob", blob.Type.Name)
	raw, ok := blob.RawContents()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, raw)

	fields, ok := blob.FieldView()
	require.True(t, ok)
	assert.Equal(t, json.Number("3"), fields["registered_epoch"], "numbers keep their textual form")

	pkg := tx.OutputObjects[1]
	assert.Nil(t, pkg.Type)
	_, ok = pkg.RawContents()
	assert.False(t, ok)
	_, ok = pkg.FieldView()
	assert.False(t, ok)

	obj, ok := tx.Resolve(tx.Effects[0])
	require.True(t, ok)
	assert.Equal(t, blob.ID, obj.ID)
}

func TestDecodeRejectsDanglingEffect(t *testing.T) {
	payload := `{"sequence_number": 7, "transactions": [{"digest": "d", "sender": "0x1",
		"effects": [{"kind": "mutated", "object_id": "0x99", "version": 2}], "output_objects": []}]}`
	_, err := Decode(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing from output objects")
}

func TestObjectJSONRoundTrip(t *testing.T) {
	id, _ := ParseAddress("0x10")
	in := Object{ID: id, Version: 9, RawType: "0x2::m::T", Contents: []byte{9, 9}}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Object
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Contents, out.Contents)
	require.NotNil(t, out.Type)
	assert.Equal(t, "T", out.Type.Name)
}
