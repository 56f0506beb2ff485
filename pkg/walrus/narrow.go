package walrus

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when an unsigned on-chain value does not fit its signed column.
var ErrOverflow = errors.New("value out of range")

func toInt64(field string, v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%s: %d: %w for BIGINT", field, v, ErrOverflow)
	}
	return int64(v), nil
}

func toInt32(field string, v uint64) (int32, error) {
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("%s: %d: %w for INTEGER", field, v, ErrOverflow)
	}
	return int32(v), nil
}

func optionToInt64(field string, v *uint64) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	n, err := toInt64(field, *v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
