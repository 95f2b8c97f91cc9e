// Package app wires the client components together with fx.
package app

import (
	"context"
	"fmt"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/bus"
	"github.com/matheus3301/gcsearch/internal/config"
	"github.com/matheus3301/gcsearch/internal/coordinator"
	"github.com/matheus3301/gcsearch/internal/directory"
	"github.com/matheus3301/gcsearch/internal/history"
	"github.com/matheus3301/gcsearch/internal/lock"
	"github.com/matheus3301/gcsearch/internal/logging"
	"github.com/matheus3301/gcsearch/internal/pager"
	"github.com/matheus3301/gcsearch/internal/profile"
	"github.com/matheus3301/gcsearch/internal/search"
	"github.com/matheus3301/gcsearch/internal/status"
	"github.com/matheus3301/gcsearch/internal/store"
	"github.com/matheus3301/gcsearch/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	Config  *config.Config
	// Binary names the log file.
	Binary string
	// Interactive takes the profile lock and keeps logs off the terminal.
	Interactive bool
	// Verbose mirrors logs to stderr at debug level (non-interactive only).
	Verbose bool
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("gcsearch",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStatusMachine,
			provideLock,
			provideStore,
			provideTransport,
			provideAPI,
			provideDirectory,
			provideDispatcher,
			providePager,
			provideCoordinator,
			provideRecorder,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Path:    profile.LogPath(p.Profile, p.Binary),
		Profile: p.Profile,
		Console: p.Verbose && !p.Interactive,
		Debug:   p.Verbose,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStatusMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

// provideLock returns a nil lock for non-interactive runs; Release is nil-safe.
func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if !p.Interactive {
		return nil, nil
	}
	l, err := lock.Acquire(profile.Dir(p.Profile), p.Binary)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.String("path", l.Path()))
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.HistoryDBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	schema, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	fields := []zap.Field{
		zap.String("path", dbPath),
		zap.Uint("version", schema.To),
		zap.Int64("searches", schema.Searches),
		zap.Int64("opened", schema.Opened),
	}
	if schema.Applied() {
		logger.Info("history schema migrated", append(fields, zap.Uint("from", schema.From))...)
	} else {
		logger.Debug("history ready", fields...)
	}
	return db, nil
}

func provideTransport(p Params, logger *zap.Logger) *transport.Client {
	return transport.New(transport.Options{
		BaseURL: p.Config.BackendURL,
		Timeout: p.Config.RequestTimeout.Duration,
	}, logger.Named("transport"))
}

func provideAPI(t *transport.Client) *backend.API {
	return backend.New(t)
}

func provideDirectory(p Params, api *backend.API, logger *zap.Logger) *directory.Directory {
	return directory.New(api, p.Config.Directory.MaxParallel, logger.Named("directory"))
}

func provideDispatcher(p Params, api *backend.API, logger *zap.Logger) *search.Dispatcher {
	return search.New(api, p.Config.MaxProximityRange, logger.Named("search"))
}

func providePager(api *backend.API, b *bus.Bus, logger *zap.Logger) *pager.Controller {
	return pager.NewController(api, b, logger.Named("pager"))
}

func provideCoordinator(p Params, api *backend.API, dir *directory.Directory, d *search.Dispatcher, pg *pager.Controller, m *status.Machine, b *bus.Bus, logger *zap.Logger) *coordinator.Coordinator {
	return coordinator.New(coordinator.Deps{
		Backend:   api,
		Directory: dir,
		Search:    d,
		Pager:     pg,
		Status:    m,
		Bus:       b,
		Logger:    logger.Named("coordinator"),
	}, coordinator.Options{
		TopN:       p.Config.TopN,
		WindowSize: p.Config.WindowSize,
	})
}

func provideRecorder(db *store.DB, b *bus.Bus, logger *zap.Logger) *history.Recorder {
	return history.NewRecorder(db, b, logger.Named("history"))
}

func registerLifecycle(lc fx.Lifecycle, p Params, b *bus.Bus, rec *history.Recorder, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := p.Config.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			// Start history recorder (subscribes to search.* and pager.* bus events).
			rec.Start(context.Background())
			logger.Info("client started",
				zap.String("backend", p.Config.BackendURL),
				zap.Duration("request_timeout", p.Config.RequestTimeout.Duration))
			return nil
		},
		OnStop: func(_ context.Context) error {
			rec.Stop()
			if n := b.Dropped(); n > 0 {
				logger.Warn("bus deliveries dropped on full subscribers", zap.Uint64("count", n))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
