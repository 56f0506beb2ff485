package walrus

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// BlobIDLength is the width of a u256 blob id.
const BlobIDLength = 32

// BlobIDFromDecimal converts the decimal rendering of a u256 blob id into its little-endian bytes.
func BlobIDFromDecimal(s string) ([]byte, error) {
	if s == "" || s[0] == '+' {
		return nil, fmt.Errorf("blob_id %q: expected unsigned decimal digits", s)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("blob_id %q: %w", s, err)
	}
	return BlobIDFromInt(v), nil
}

// BlobIDFromInt returns the little-endian bytes of v.
func BlobIDFromInt(v *uint256.Int) []byte {
	be := v.Bytes32()
	le := make([]byte, BlobIDLength)
	for i := range be {
		le[i] = be[BlobIDLength-1-i]
	}
	return le
}

// BlobIDToInt interprets little-endian bytes as a u256.
func BlobIDToInt(le []byte) (*uint256.Int, error) {
	if len(le) != BlobIDLength {
		return nil, fmt.Errorf("blob_id: expected %d bytes, got %d", BlobIDLength, len(le))
	}
	be := make([]byte, BlobIDLength)
	for i := range le {
		be[i] = le[BlobIDLength-1-i]
	}
	return new(uint256.Int).SetBytes32(be), nil
}

// BlobIDString renders little-endian blob id bytes the way Walrus clients print them:
// unpadded URL-safe base64.
func BlobIDString(le []byte) string {
	return base64.RawURLEncoding.EncodeToString(le)
}

// decimalU64 validates an unsigned 64-bit decimal and returns its canonical form.
func decimalU64(field, s string) (string, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return strconv.FormatUint(n, 10), nil
}
