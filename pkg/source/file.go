package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
)

// File reads checkpoints stored as <dir>/<seq>.json.
type File struct {
	Dir string
}

func NewFile(dir string) *File {
	return &File{Dir: dir}
}

func (f *File) Checkpoint(ctx context.Context, seq uint64) (*checkpoint.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.Dir, strconv.FormatUint(seq, 10)+".json")
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, seq)
		}
		return nil, err
	}
	defer fh.Close()

	cp, err := checkpoint.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cp.SequenceNumber != seq {
		return nil, fmt.Errorf("%s: holds checkpoint %d", path, cp.SequenceNumber)
	}
	return cp, nil
}

func (f *File) Latest(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return 0, err
	}
	var (
		latest uint64
		found  bool
	)
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		seq, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		if !found || seq > latest {
			latest, found = seq, true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: %s is empty", ErrNotFound, f.Dir)
	}
	return latest, nil
}
