package walrus

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
)

// ErrNotMatched marks an object that is not a tracked Blob. It is never a fault.
var ErrNotMatched = errors.New("not a tracked blob")

// fieldView reads named fields from the structured form of an object. A missing field yields
// ErrNotMatched; a field of the wrong shape is a fault.
type fieldView map[string]any

func (v fieldView) get(name string) (any, error) {
	val, ok := v[name]
	if !ok || val == nil {
		return nil, fmt.Errorf("%w: field %s missing", ErrNotMatched, name)
	}
	return val, nil
}

// nested returns the named struct field, unwrapping the {"type": ..., "fields": {...}} envelope.
func (v fieldView) nested(name string) (fieldView, error) {
	val, err := v.get(name)
	if err != nil {
		return nil, err
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %T", name, val)
	}
	if inner, ok := m["fields"].(map[string]any); ok {
		return inner, nil
	}
	return m, nil
}

// uid accepts "0x..", {"id": "0x.."} and {"id": {"id": "0x.."}}.
func (v fieldView) uid(name string) (checkpoint.Address, error) {
	val, err := v.get(name)
	if err != nil {
		return checkpoint.Address{}, err
	}
	for depth := 0; depth < 3; depth++ {
		switch t := val.(type) {
		case string:
			addr, err := checkpoint.ParseAddress(t)
			if err != nil {
				return checkpoint.Address{}, fmt.Errorf("%s: %w", name, err)
			}
			return addr, nil
		case map[string]any:
			inner, ok := t["id"]
			if !ok || inner == nil {
				return checkpoint.Address{}, fmt.Errorf("%w: field %s.id missing", ErrNotMatched, name)
			}
			val = inner
		default:
			return checkpoint.Address{}, fmt.Errorf("%s: expected uid, got %T", name, val)
		}
	}
	return checkpoint.Address{}, fmt.Errorf("%s: uid nested too deeply", name)
}

func (v fieldView) u64(name string) (uint64, error) {
	val, err := v.get(name)
	if err != nil {
		return 0, err
	}
	return asUint(name, val)
}

func (v fieldView) flag(name string) (bool, error) {
	val, err := v.get(name)
	if err != nil {
		return false, err
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected bool, got %T", name, val)
	}
	return b, nil
}

// decimalText returns the decimal rendering of a value too wide for u64.
func (v fieldView) decimalText(name string) (string, error) {
	val, err := v.get(name)
	if err != nil {
		return "", err
	}
	return asDecimalText(name, val)
}

// u64Text returns the canonical decimal text of a u64 field.
func (v fieldView) u64Text(name string) (string, error) {
	n, err := v.u64(name)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(n, 10), nil
}

// optionUint handles null, {"vec": []}, {"vec": [n]} and a bare number. The key itself must exist.
func (v fieldView) optionUint(name string) (*uint64, error) {
	val, ok := v[name]
	if !ok {
		return nil, fmt.Errorf("%w: field %s missing", ErrNotMatched, name)
	}
	if val == nil {
		return nil, nil
	}
	if m, ok := val.(map[string]any); ok {
		if f, ok := m["fields"].(map[string]any); ok {
			m = f
		}
		vec, ok := m["vec"].([]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected option, got %v", name, m)
		}
		switch len(vec) {
		case 0:
			return nil, nil
		case 1:
			val = vec[0]
		default:
			return nil, fmt.Errorf("%s: option with %d elements", name, len(vec))
		}
	}
	n, err := asUint(name, val)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func asUint(name string, val any) (uint64, error) {
	switch t := val.(type) {
	case json.Number:
		return parseUint(name, t.String())
	case string:
		return parseUint(name, t)
	case float64:
		if t < 0 || t != math.Trunc(t) || t > 1<<53 {
			return 0, fmt.Errorf("%s: %v is not an exact unsigned integer", name, t)
		}
		return uint64(t), nil
	case int:
		if t < 0 {
			return 0, fmt.Errorf("%s: negative value %d", name, t)
		}
		return uint64(t), nil
	case int64:
		if t < 0 {
			return 0, fmt.Errorf("%s: negative value %d", name, t)
		}
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	default:
		return 0, fmt.Errorf("%s: expected unsigned integer, got %T", name, val)
	}
}

func parseUint(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func asDecimalText(name string, val any) (string, error) {
	switch t := val.(type) {
	case json.Number:
		return t.String(), nil
	case string:
		return t, nil
	default:
		n, err := asUint(name, val)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(n, 10), nil
	}
}

// decodeFields extracts the canonical record from a structured field view. Field names are the
// same in every layout and numeric widths are accepted up to u64.
func decodeFields(id checkpoint.ObjectID, fields map[string]any) (out indexermodels.Blob, err error) {
	v := fieldView(fields)

	uid, err := v.uid("id")
	if err != nil {
		return out, err
	}
	if uid != id {
		return out, fmt.Errorf("%w: %s", ErrIDMismatch, uid)
	}
	out.ID = uid.Bytes()

	blobID, err := v.decimalText("blob_id")
	if err != nil {
		return out, err
	}
	if out.BlobID, err = BlobIDFromDecimal(blobID); err != nil {
		return out, err
	}

	registered, err := v.u64("registered_epoch")
	if err != nil {
		return out, err
	}
	if out.RegisteredEpoch, err = toInt64("registered_epoch", registered); err != nil {
		return out, err
	}

	certified, err := v.optionUint("certified_epoch")
	if err != nil {
		return out, err
	}
	if out.CertifiedEpoch, err = optionToInt64("certified_epoch", certified); err != nil {
		return out, err
	}

	if out.Deletable, err = v.flag("deletable"); err != nil {
		return out, err
	}

	encoding, err := v.u64("encoding_type")
	if err != nil {
		return out, err
	}
	if out.EncodingType, err = toInt32("encoding_type", encoding); err != nil {
		return out, err
	}

	if out.Size, err = v.u64Text("size"); err != nil {
		return out, err
	}

	storage, err := v.nested("storage")
	if err != nil {
		return out, err
	}
	storageID, err := storage.uid("id")
	if err != nil {
		return out, err
	}
	out.StorageID = storageID.Bytes()

	start, err := storage.u64("start_epoch")
	if err != nil {
		return out, err
	}
	if out.StorageStartEpoch, err = toInt64("storage.start_epoch", start); err != nil {
		return out, err
	}
	end, err := storage.u64("end_epoch")
	if err != nil {
		return out, err
	}
	if out.StorageEndEpoch, err = toInt64("storage.end_epoch", end); err != nil {
		return out, err
	}
	if out.StorageSize, err = storage.u64Text("storage_size"); err != nil {
		return out, err
	}
	return out, nil
}
