package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lolwatch/internal/bot"
	"lolwatch/internal/config"
	"lolwatch/internal/health"
	"lolwatch/internal/notifier"
	"lolwatch/internal/riot"
	rtsup "lolwatch/internal/runtime/supervisor"
	"lolwatch/internal/sweeper"
	"lolwatch/internal/tracker"
	kit "lolwatch/internal/transport"
	telegram "lolwatch/internal/transport/telegram/adapter"
	logx "lolwatch/pkg/logx"
)

// App wires the activity tracker together: config, logging, storage, the
// Riot poller, the inactivity sweeper, the Telegram command router, and the
// health listener.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	store   tracker.Store
	driver  string

	riot    *riot.Client
	watcher *riot.Watcher

	notif  *notifier.Service
	sweep  *sweeper.Service
	state  *bot.ServiceState
	router *bot.Router
	health *health.Service

	startedAt time.Time
	updates   chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	adCfg, err := mapAdapterConfig(cfg)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(adCfg, bootLog)
	if err != nil {
		return nil, err
	}

	// logx.New() applies its config immediately. Telegram logging needs a
	// target chat before it can be enabled, so bootstrap with it disabled,
	// set the target, then Apply() the final config.
	baseLogCfg := mapLoggingConfig(cfg)
	baseLogCfg.Telegram.Enabled = false
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))

	target, hasTarget := parseChatTarget(cfg.Telegram.GroupChat)
	if hasTarget {
		logSvc.SetTelegramTarget(target)
	}
	logSvc.Apply(mapLoggingConfig(cfg))

	stCfg, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := tracker.Open(stCfg, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}
	log.Info("activity store opened", logx.String("driver", storeDriverName(stCfg)))

	riotCfg, err := mapRiotConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := riot.NewClient(riotCfg, log.With(logx.String("comp", "riot")))

	pollInterval, err := mapPollInterval(cfg)
	if err != nil {
		return nil, err
	}
	classifier := tracker.NewClassifier(cfg.Tracker.Aliases)
	handler := tracker.NewHandler(store, log.With(logx.String("comp", "tracker")))
	watcher := riot.NewWatcher(client, store, classifier, handler, pollInterval, log.With(logx.String("comp", "watcher")))

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")))
	if hasTarget {
		notif.SetTarget(target)
	}

	swCfg, err := mapSweeperConfig(cfg)
	if err != nil {
		return nil, err
	}
	sweep := sweeper.New(swCfg, store, notif, log.With(logx.String("comp", "sweeper")))

	startedAt := time.Now()
	state := &bot.ServiceState{}
	router := bot.NewRouter(ad, state, cfg.Telegram.OwnerUserIDs, log.With(logx.String("comp", "commands")))
	bot.RegisterCommands(router, bot.Deps{
		Store:       store,
		Prober:      watcher,
		Resolver:    client,
		Notifier:    notif,
		Sweeper:     sweep,
		State:       state,
		Log:         log.With(logx.String("comp", "commands")),
		StartedAt:   startedAt,
		StoreDriver: storeDriverName(stCfg),
	})

	hCfg, err := mapHealthConfig(cfg)
	if err != nil {
		return nil, err
	}
	driver := storeDriverName(stCfg)
	healthSvc := health.New(hCfg, func(ctx context.Context) health.Status {
		tracked := 0
		if recs, err := store.All(ctx); err == nil {
			tracked = len(recs)
		}
		return health.Status{
			State:        state.String(),
			StartedAt:    startedAt,
			TrackedUsers: tracked,
			StoreDriver:  driver,
		}
	}, log.With(logx.String("comp", "health")))

	return &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		adapter:   ad,
		store:     store,
		driver:    driver,
		riot:      client,
		watcher:   watcher,
		notif:     notif,
		sweep:     sweep,
		state:     state,
		router:    router,
		health:    healthSvc,
		startedAt: startedAt,
		updates:   make(chan kit.Update, 256),
	}, nil
}

func storeDriverName(cfg tracker.Config) string {
	if cfg.Driver == "" {
		return "sqlite"
	}
	return cfg.Driver
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, err := mapAdapterConfig(cfg); err != nil {
			return err
		}
		if _, err := mapRiotConfig(cfg); err != nil {
			return err
		}
		if _, err := mapPollInterval(cfg); err != nil {
			return err
		}
		if _, err := mapSweeperConfig(cfg); err != nil {
			return err
		}
		if _, err := mapNotifierConfig(cfg); err != nil {
			return err
		}
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if _, err := mapHealthConfig(cfg); err != nil {
			return err
		}
		if raw := strings.TrimSpace(cfg.Telegram.GroupChat); raw != "" {
			if _, ok := parseChatTarget(raw); !ok {
				return fmt.Errorf("telegram.group_chat: invalid chat target %q", raw)
			}
		}
		return nil
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.sup.Go("watcher.poll", func(c context.Context) error {
		return a.watcher.Run(c)
	})
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.Run(c, a.updates)
	})

	a.sweep.Start(a.sup.Context())
	a.health.Start(a.sup.Context())

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Debug("config change summary", fields...)
				} else {
					a.log.Debug("config reload received, but no effective changes detected")
				}
				lastApplied = newCfg

				a.applyConfig(c, newCfg, sections)

				if len(sections) > 0 {
					a.log.Info("config reloaded", logx.String("changed", strings.Join(sections, ",")))
				} else {
					a.log.Info("config reloaded (no changes)")
				}
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig pushes a validated config into each running service. Storage
// is the one section that cannot change live.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config, sections []string) {
	for _, s := range sections {
		if s == "storage" {
			a.log.Warn("storage config changed; restart required for changes to take effect")
			break
		}
	}

	// update log target first (so Apply() doesn't warn when Telegram logging is enabled)
	target, hasTarget := parseChatTarget(cfg.Telegram.GroupChat)
	if hasTarget {
		a.logs.SetTelegramTarget(target)
	} else {
		a.logs.SetTelegramTarget(kit.ChatTarget{})
	}
	a.logs.Apply(mapLoggingConfig(cfg))

	a.router.SetOwners(cfg.Telegram.OwnerUserIDs)

	if rc, err := mapRiotConfig(cfg); err != nil {
		a.log.Warn("invalid riot config; keeping previous", logx.Err(err))
	} else {
		a.riot.Apply(rc)
	}
	if interval, err := mapPollInterval(cfg); err != nil {
		a.log.Warn("invalid poll interval; keeping previous", logx.Err(err))
	} else {
		a.watcher.Apply(interval, tracker.NewClassifier(cfg.Tracker.Aliases))
	}

	if sc, err := mapSweeperConfig(cfg); err != nil {
		a.log.Warn("invalid sweeper config; keeping previous", logx.Err(err))
	} else {
		a.sweep.Apply(sc)
	}

	if nc, err := mapNotifierConfig(cfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(nc)
	}
	if hasTarget {
		a.notif.SetTarget(target)
	}

	if hc, err := mapHealthConfig(cfg); err != nil {
		a.log.Warn("invalid health config; keeping previous", logx.Err(err))
	} else {
		a.health.Reconfigure(ctx, hc)
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			// Contract: fn MUST honor stepCtx and return promptly. If it doesn't, log a leak signal.
			elapsed := time.Since(start)
			a.log.Warn(
				"stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.String("err", stepCtx.Err().Error()),
				logx.Duration("elapsed", elapsed),
			)
			// Leak logging: observe when/if the step eventually finishes.
			go func() {
				err := <-done
				took := time.Since(start)
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
				} else {
					a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
				}
			}()
		}
	}

	step("sweeper", 2*time.Second, func(c context.Context) error { a.sweep.Stop(c); return nil })
	step("health", 2*time.Second, func(c context.Context) error { a.health.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("store", 1*time.Second, func(c context.Context) error { return a.store.Close() })

	// Finally, wait for supervised goroutines (watcher, dispatcher, config watch/reload).
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
