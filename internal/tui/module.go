package tui

import (
	"context"
	"fmt"

	"chatvault/internal/cache"
	"chatvault/internal/config"
	"chatvault/internal/lock"
	"chatvault/internal/logging"
	"chatvault/internal/profiledir"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved invocation options passed to the fx module.
type Params struct {
	Profiles []string // empty means every profile found under the data dir
	BaseDir  string   // empty means config / ~/.chatvault default
}

// Module composes the browser's providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("browser",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideCache,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	base := p.BaseDir
	if base == "" {
		base = profiledir.BaseDir()
	}
	cfg, err := config.LoadOrDefault(profiledir.ConfigPath(base))
	if err != nil {
		return nil, err
	}
	if p.BaseDir != "" || cfg.BaseDir == "" {
		cfg.BaseDir = base
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(profiledir.LogPath(cfg.BaseDir))
}

func provideLock(cfg *config.Config) (*lock.Lock, error) {
	return lock.Acquire(cfg.BaseDir)
}

func provideCache(cfg *config.Config, logger *zap.Logger) *cache.Cache {
	return cache.New(cache.Config{
		BaseDir:      cfg.BaseDir,
		NotifyBuffer: cfg.NotifyBuffer,
	}, logger)
}

// provideApp registers the requested profiles read-only and builds the
// browser over them. Partial-sync detection stays off: there is no origin
// to fall back to, so the cache serves whatever tail it has.
func provideApp(p Params, cfg *config.Config, c *cache.Cache, logger *zap.Logger) (*App, error) {
	profiles := p.Profiles
	if len(profiles) == 0 {
		var err error
		profiles, err = profiledir.ListProfiles(cfg.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles found under %s", cfg.BaseDir)
	}

	for _, id := range profiles {
		version, err := profiledir.ReadDirVersion(cfg.BaseDir, id)
		if err != nil {
			return nil, fmt.Errorf("read dir version for %q: %w", id, err)
		}
		if _, err := c.AddProfile(id, false, version, false, true); err != nil {
			return nil, fmt.Errorf("register profile %q: %w", id, err)
		}
		logger.Info("profile registered", zap.String("profile", id))
	}
	return NewApp(c, profiles), nil
}

func registerLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, app *App, c *cache.Cache, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := app.Run(); err != nil {
					logger.Error("browser exited", zap.Error(err))
				}
				_ = sd.Shutdown()
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			app.Stop()
			c.Close()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("browser stopped")
			return nil
		},
	})
}
