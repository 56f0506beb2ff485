package indexer

import (
	"fmt"
	"time"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer/activity"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/pipeline"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/source"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/utils"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/walrus"
)

// Config is the process configuration, read once from the environment at startup.
type Config struct {
	DatabaseName     string
	CheckpointSource string
	CacheTTL         time.Duration
	Pipelines        []string
	TrackedTypes     walrus.Config
	WindowSize       uint64
	MaxWindowsPerRun int
	FetchParallelism int
	HeadScanInterval time.Duration
	FirstCheckpoint  uint64
	RedisEnabled     bool
	StatusAddr       string
}

// LoadConfig reads the environment. TRACKED_BLOB_TYPES is parsed here and never again.
func LoadConfig() (Config, error) {
	cfg := Config{
		DatabaseName:     utils.Env("POSTGRES_DB", "sui_indexer"),
		CheckpointSource: utils.Env("CHECKPOINT_SOURCE", ""),
		Pipelines:        utils.EnvList("PIPELINES", nil),
		WindowSize:       utils.EnvUint64("WINDOW_SIZE", 100),
		MaxWindowsPerRun: utils.EnvInt("MAX_WINDOWS_PER_RUN", 50),
		FetchParallelism: utils.EnvInt("FETCH_PARALLELISM", 0),
		HeadScanInterval: utils.EnvDuration("HEAD_SCAN_INTERVAL", 5*time.Second),
		FirstCheckpoint:  utils.EnvUint64("FIRST_CHECKPOINT", 0),
		RedisEnabled:     utils.Env("REDIS_HOST", "") != "",
		StatusAddr:       utils.Env("STATUS_ADDR", ":3002"),
	}

	if cfg.CheckpointSource == "" {
		return cfg, fmt.Errorf("CHECKPOINT_SOURCE environment variable is required")
	}
	if cfg.WindowSize == 0 {
		return cfg, fmt.Errorf("WINDOW_SIZE must be positive")
	}
	ttl, err := cacheTTL()
	if err != nil {
		return cfg, err
	}
	cfg.CacheTTL = ttl

	tracked, err := walrus.ParseConfig(utils.Env("TRACKED_BLOB_TYPES", ""))
	if err != nil {
		return cfg, fmt.Errorf("TRACKED_BLOB_TYPES: %w", err)
	}
	cfg.TrackedTypes = tracked
	return cfg, nil
}

// SelectPipelines builds the registry and returns the enabled pipelines.
func (c Config) SelectPipelines() (*pipeline.Registry, []pipeline.Pipeline, error) {
	registry := pipeline.DefaultRegistry(c.TrackedTypes)
	enabled, err := registry.Select(c.Pipelines)
	if err != nil {
		return nil, nil, fmt.Errorf("PIPELINES: %w", err)
	}
	return registry, enabled, nil
}

// cacheTTL reads CHECKPOINT_CACHE_TTL. Any zero duration disables the cache.
func cacheTTL() (time.Duration, error) {
	raw := utils.Env("CHECKPOINT_CACHE_TTL", "")
	if raw == "" {
		return 2 * time.Minute, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("CHECKPOINT_CACHE_TTL: invalid duration %q", raw)
	}
	return d, nil
}

// CacheOptions sizes the checkpoint cache to hold one window for each enabled pipeline.
func (c Config) CacheOptions(pipelines int) source.CacheOptions {
	return source.CacheOptions{
		TTL:      c.CacheTTL,
		Capacity: min(c.WindowSize, activity.MaxWindowSize) * uint64(pipelines),
	}
}
