// Package app wires the process together: config, logging, storage, the
// event bus, the single-run Runner, and the optional recurring trigger.
package app

import (
	"context"
	"fmt"

	"blastbot/internal/config"
	"blastbot/internal/eventbus"
	"blastbot/internal/runtime/supervisor"
	"blastbot/internal/storage"
	"blastbot/internal/trigger"
	logx "blastbot/pkg/logx"
)

type App struct {
	cfgs *config.Manager
	logs *logx.Service
	log  logx.Logger

	store  storage.Store
	bus    eventbus.Bus
	sup    *supervisor.Supervisor
	runner *Runner
	trig   *trigger.Service
}

// New loads and validates the configuration at cfgPath and builds every
// component. Nothing runs until Start.
func New(cfgPath string) (*App, error) {
	cfgs := config.NewManager(cfgPath)
	cfgs.SetValidator(func(c *config.Config) error {
		config.ApplyDefaults(c)
		return config.Validate(c)
	})
	cfg, err := cfgs.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logs, log := logx.New(loggingConfig(cfg.Logging))
	log = log.With(logx.String("svc", "blastbot"))
	cfgs.SetLogger(log.With(logx.String("comp", "config")))

	var store storage.Store
	if cfg.Storage != nil {
		busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logs.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
	}

	return &App{
		cfgs:  cfgs,
		logs:  logs,
		log:   log,
		store: store,
		bus:   eventbus.New(),
	}, nil
}

// Config returns the currently loaded configuration.
func (a *App) Config() *config.Config { return a.cfgs.Get() }

// Logger returns the root process logger.
func (a *App) Logger() logx.Logger { return a.log }

// Runner is the operator control surface. Valid after Start.
func (a *App) Runner() *Runner { return a.runner }

// Go runs fn on the app's supervisor; it stops when the app stops.
func (a *App) Go(name string, fn func(ctx context.Context) error) { a.sup.Go(name, fn) }

// Start launches the background pieces: config watcher, change
// subscriber, and the recurring trigger when configured.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, a.log.With(logx.String("comp", "supervisor")))
	a.runner = NewRunner(a.cfgs, a.store, a.bus, a.sup, a.log)

	a.sup.Go("config-watch", a.cfgs.Watch)
	a.sup.Go("config-apply", a.applyConfigChanges)

	cfg := a.cfgs.Get()
	if cfg.Trigger != nil && cfg.Trigger.Enabled {
		trig, err := trigger.New(cfg.Trigger.Spec, a.runner, a.log.With(logx.String("comp", "trigger")))
		if err != nil {
			return fmt.Errorf("trigger: %w", err)
		}
		if err := trig.Start(a.sup.Context()); err != nil {
			return fmt.Errorf("trigger: %w", err)
		}
		a.trig = trig
	}

	a.log.Info("started",
		logx.String("batch", cfg.Batch.Path),
		logx.String("executor", cfg.Executor.Backend),
		logx.Bool("storage", a.store != nil))
	return nil
}

// applyConfigChanges re-applies hot-reloadable settings. Only logging is
// hot; dispatch and executor settings are read per run at StartRun.
func (a *App) applyConfigChanges(ctx context.Context) error {
	ch := a.cfgs.Subscribe(4)
	defer a.cfgs.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-ch:
			if !ok {
				return nil
			}
			a.logs.Apply(loggingConfig(cfg.Logging))
			a.log.Info("config reloaded", logx.String("log_level", cfg.Logging.Level))
		}
	}
}

// Stop shuts everything down: trigger first so no new run starts, then
// the supervisor (which cancels an in-flight run), then storage and logs.
func (a *App) Stop(ctx context.Context) error {
	if a.trig != nil {
		a.trig.Stop()
	}
	var firstErr error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			firstErr = err
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.logs.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func loggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console || !lc.File.Enabled,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}
