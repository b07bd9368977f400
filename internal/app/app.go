// Package app wires the status poller, the Telegram transport and the
// command router, and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homeworkbot/internal/config"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/poller"
	"homeworkbot/internal/practicum"
	"homeworkbot/internal/runtime/sdnotify"
	"homeworkbot/internal/runtime/supervisor"
	kit "homeworkbot/internal/transport"
	telegram "homeworkbot/internal/transport/telegram/adapter"
	"homeworkbot/internal/transport/telegram/router"
	logx "homeworkbot/pkg/logx"
)

type Option func(*options)

type options struct {
	lookup  config.LookupFunc
	offline bool
}

// WithLookup replaces os.LookupEnv for credential overrides (tests).
func WithLookup(fn config.LookupFunc) Option { return func(o *options) { o.lookup = fn } }

// WithOffline skips the Telegram getMe handshake on construction (tests).
func WithOffline() Option { return func(o *options) { o.offline = true } }

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	sd   *sdnotify.Notifier

	adapter kit.Adapter
	notif   *notifier.Service
	engine  *poller.Engine
	checker *poller.Checker
	cmdm    *router.CommandManager

	target  kit.ChatTarget
	started time.Time
	updates chan kit.Update
}

// New loads and validates configuration, then builds every component.
// Credentials are checked before anything touches the network, so a
// *config.MissingCredentialsError comes back without side effects.
func New(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewConfigManager(cfgPath)
	if o.lookup != nil {
		cfgm.SetLookup(o.lookup)
	}
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chatID, err := cfg.TargetChatID()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		APIURL:      cfg.Telegram.APIURL,
		Offline:     o.offline,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	apiTimeout, err := config.ParseDurationOrDefault("practicum.timeout", cfg.Practicum.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	api, err := practicum.New(practicum.Config{
		Endpoint: cfg.Practicum.Endpoint,
		Token:    cfg.Practicum.Token,
		Timeout:  apiTimeout,
	}, log.With(logx.String("comp", "practicum")))
	if err != nil {
		return nil, err
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")))

	sd := sdnotify.New(log.With(logx.String("comp", "sdnotify")))
	target := kit.ChatTarget{ChatID: chatID}
	eng := poller.NewEngine(poller.Config{
		Interval:     cfg.PollInterval(poller.DefaultInterval),
		Target:       target,
		ErrorMemoMax: cfg.Poll.ErrorMemoMax,
	}, api, notif, log.With(logx.String("comp", "poller")), poller.WithStatusReporter(sd))
	checker := poller.NewChecker(api, notif, log.With(logx.String("comp", "check")))

	a := &App{
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		sd:      sd,
		adapter: ad,
		notif:   notif,
		engine:  eng,
		checker: checker,
		target:  target,
		started: time.Now(),
		updates: make(chan kit.Update, 64),
	}
	a.cmdm = router.NewCommandManager(log.With(logx.String("comp", "commands")), ad, cfg.Telegram.OwnerUserIDs)
	a.cmdm.SetRegistry(a.commands())
	return a, nil
}

func (a *App) commands() []router.Command {
	return []router.Command{
		{
			Name:        "check",
			Description: "show status changes from the last 24 hours",
			Timeout:     2 * time.Minute,
			Handle: func(ctx context.Context, req *router.Request) error {
				a.checker.Check(ctx, req.Chat)
				return nil
			},
		},
		{
			Name:        "status",
			Description: "poller state",
			Access:      router.AccessOwnerOnly,
			Handle: func(ctx context.Context, req *router.Request) error {
				return req.Reply(ctx, a.statusText())
			},
		},
	}
}

func (a *App) statusText() string {
	s := a.engine.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "uptime: %s\n", time.Since(a.started).Truncate(time.Second))
	fmt.Fprintf(&b, "interval: %s\n", s.Interval)
	fmt.Fprintf(&b, "cursor: %s\n", time.Unix(s.Cursor, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "iterations: %d\n", s.Iterations)
	if !s.LastRunAt.IsZero() {
		fmt.Fprintf(&b, "last run: %s\n", s.LastRunAt.UTC().Format(time.RFC3339))
	}
	if s.LastErr != "" {
		fmt.Fprintf(&b, "last error: %s\n", s.LastErr)
	}
	fmt.Fprintf(&b, "reported errors: %d\n", s.MemoSize)
	fmt.Fprintf(&b, "sent messages: %d", len(a.notif.History()))
	if a.sup != nil {
		c := a.sup.Counters()
		fmt.Fprintf(&b, "\ngoroutines: %d active, %d started", c.Active, c.Started)
	}
	return b.String()
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
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		_, err := mapNotifierConfig(cfg)
		return err
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})
	a.sup.Go0("telegram.menu.update", func(c context.Context) {
		if err := a.cmdm.UpdateMenu(c); err != nil {
			a.log.Warn("menu update failed", logx.Err(err))
		}
	})
	a.sup.GoRestart("poll.engine", a.engine.Run,
		supervisor.WithRestartBackoff(time.Second, 30*time.Second),
		supervisor.WithStopOnCleanExit(true),
	)
	a.sup.Go0("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("sd.watchdog", a.sd.Watchdog)

	a.sd.Ready()
	a.log.Info("bot started", logx.Int64("chat_id", a.target.ChatID))
	return nil
}

func (a *App) reloadLoop(c context.Context) {
	sub := a.cfgm.Subscribe(4)
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
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	live, attrs, restart := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for changes to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLogConfig(newCfg))
	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}
	a.cmdm.SetOwners(newCfg.Telegram.OwnerUserIDs)

	if len(live) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(live, ","))}, attrs...)
		a.log.Info("config reloaded", fields...)
	} else {
		a.log.Info("config reloaded (no live changes)")
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	a.step(ctx, "adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	a.step(ctx, "supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't
// stall the whole stop. The caller's deadline is never extended.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped; no time left", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

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
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
