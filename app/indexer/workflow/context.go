package workflow

import (
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/activity"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/temporal"
)

const (
	DefaultWindowSize       = 100
	DefaultMaxWindowsPerRun = 50
)

// Config holds the workflow configuration.
type Config struct {
	// WindowSize is the number of checkpoints per IndexCheckpoints activity.
	WindowSize uint64
	// MaxWindowsPerRun bounds history size; the range continues as new after that many windows.
	MaxWindowsPerRun int
	// FirstCheckpoint is where a pipeline without a watermark starts.
	FirstCheckpoint uint64
}

// Context holds the workflow context.
type Context struct {
	TemporalClient  *temporal.Client
	ActivityContext *activity.Context
	Config          Config
}

func (c Config) windowSize() uint64 {
	switch {
	case c.WindowSize == 0:
		return DefaultWindowSize
	case c.WindowSize > activity.MaxWindowSize:
		return activity.MaxWindowSize
	default:
		return c.WindowSize
	}
}

func (c Config) maxWindowsPerRun() int {
	if c.MaxWindowsPerRun <= 0 {
		return DefaultMaxWindowsPerRun
	}
	return c.MaxWindowsPerRun
}
