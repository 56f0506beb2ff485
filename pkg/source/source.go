// Package source fetches finalized checkpoints from a local directory or a remote store.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
)

// ErrNotFound is returned when a checkpoint is not (yet) available.
var ErrNotFound = errors.New("checkpoint not found")

// Source yields validated checkpoints by sequence number.
type Source interface {
	Checkpoint(ctx context.Context, seq uint64) (*checkpoint.Checkpoint, error)
	// Latest returns the highest sequence number the source can serve.
	Latest(ctx context.Context) (uint64, error)
}

// New builds a source from a URI: file:///path, a bare path, or an http(s) base URL.
// A positive cache TTL wraps it in a Cached source.
func New(uri string, cache CacheOptions, logger *zap.Logger) (Source, error) {
	var src Source
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		if _, err := url.Parse(uri); err != nil {
			return nil, fmt.Errorf("invalid checkpoint source %q: %w", uri, err)
		}
		src = NewHTTP(uri, logger)
	case strings.HasPrefix(uri, "file://"):
		src = NewFile(strings.TrimPrefix(uri, "file://"))
	case uri != "" && !strings.Contains(uri, "://"):
		src = NewFile(uri)
	default:
		return nil, fmt.Errorf("unsupported checkpoint source %q", uri)
	}
	if cache.TTL > 0 {
		src = NewCached(src, cache)
	}
	return src, nil
}
