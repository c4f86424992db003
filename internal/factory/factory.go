package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/bracketlab/draftsync/internal/audit"
	"github.com/bracketlab/draftsync/internal/cache"
	filecache "github.com/bracketlab/draftsync/internal/cache/file"
	memorycache "github.com/bracketlab/draftsync/internal/cache/memory"
	"github.com/bracketlab/draftsync/internal/connectivity"
	"github.com/bracketlab/draftsync/internal/dependencies/clock"
	"github.com/bracketlab/draftsync/internal/remote"
	memoryremote "github.com/bracketlab/draftsync/internal/remote/memory"
	redisremote "github.com/bracketlab/draftsync/internal/remote/redis"
	"github.com/bracketlab/draftsync/internal/services/draft"
	syncengine "github.com/bracketlab/draftsync/internal/services/sync"
)

// Backend type constants
const (
	CacheTypeMemory = "memory"
	CacheTypeFile   = "file"

	RemoteTypeMemory = "memory"
	RemoteTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Cache  cache.Cache
	Remote remote.Store

	// External dependencies
	Clock   clock.Clock
	Monitor connectivity.Monitor
	Audit   audit.Recorder

	// Services
	SyncEngine   *syncengine.Engine
	DraftManager *draft.Manager

	closers []func()
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// CacheType selects the local cache backend ("memory" or "file")
	// If empty, defaults to "memory"
	CacheType string
	// DataDir is the local cache directory (required if CacheType is "file")
	DataDir string
	// RemoteType selects the remote store backend ("memory" or "redis")
	// If empty, defaults to "memory"
	RemoteType string
	// RedisConfig holds Redis settings (required if RemoteType is "redis")
	RedisConfig *redisremote.Config
	// ProbeConfig holds connectivity probe timings (optional)
	ProbeConfig *connectivity.ProbeConfig
	// ManagerConfig holds facade timing settings (optional)
	ManagerConfig *draft.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()

	// Create the local cache
	var localCache cache.Cache
	cacheType := cfg.CacheType
	if cacheType == "" {
		cacheType = CacheTypeMemory
	}
	switch cacheType {
	case CacheTypeMemory:
		localCache = memorycache.New()
	case CacheTypeFile:
		if cfg.DataDir == "" {
			return nil, errors.New("DataDir required when CacheType is file")
		}
		fc, err := filecache.New(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		localCache = fc
	default:
		return nil, errors.New("invalid CacheType: must be 'memory' or 'file'")
	}

	// Create the remote store
	var remoteStore remote.Store
	var closers []func()
	remoteType := cfg.RemoteType
	if remoteType == "" {
		remoteType = RemoteTypeMemory
	}
	switch remoteType {
	case RemoteTypeMemory:
		remoteStore = memoryremote.New(clk)
	case RemoteTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when RemoteType is redis")
		}
		rs, err := redisremote.New(*cfg.RedisConfig, clk)
		if err != nil {
			return nil, err
		}
		remoteStore = rs
		closers = append(closers, func() { _ = rs.Close() })
	default:
		return nil, errors.New("invalid RemoteType: must be 'memory' or 'redis'")
	}

	probeCfg := connectivity.DefaultProbeConfig()
	if cfg.ProbeConfig != nil {
		probeCfg = *cfg.ProbeConfig
	}
	monitor := connectivity.NewProbe(remoteStore, clk, probeCfg, logger)
	closers = append(closers, monitor.Close)

	managerCfg := draft.DefaultConfig()
	if cfg.ManagerConfig != nil {
		managerCfg = *cfg.ManagerConfig
	}

	app := newWithDependencies(localCache, remoteStore, monitor, clk, audit.NewSlogRecorder(logger), managerCfg, logger)
	app.closers = append(app.closers, closers...)
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	localCache cache.Cache,
	remoteStore remote.Store,
	monitor connectivity.Monitor,
	clk clock.Clock,
	recorder audit.Recorder,
	managerCfg draft.Config,
	logger *slog.Logger,
) *App {
	engine := syncengine.New(localCache, remoteStore, monitor, syncengine.DefaultRemoteTimeout, logger)
	engine.Start()
	manager := draft.NewManager(localCache, engine, monitor, recorder, clk, managerCfg, logger)

	return &App{
		Cache:        localCache,
		Remote:       remoteStore,
		Clock:        clk,
		Monitor:      monitor,
		Audit:        recorder,
		SyncEngine:   engine,
		DraftManager: manager,
		closers:      []func(){manager.Close, engine.Close},
	}
}

// Close releases all application resources
func (a *App) Close() {
	for _, f := range a.closers {
		f()
	}
}
