package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pricewatch/internal/clock"
	"pricewatch/internal/collector"
	"pricewatch/internal/config"
	"pricewatch/internal/history"
	"pricewatch/internal/metrics"
	"pricewatch/internal/monitor"
	"pricewatch/internal/notifier"
	"pricewatch/internal/recorder"
	"pricewatch/internal/scheduler"
)

// app holds the components built from one configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	notifier *notifier.Notifier
	recorder recorder.Recorder
	monitor  *monitor.Monitor
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.notifier = notifier.New(notifier.Options{
		Push:          buildPushSender(cfg),
		PushPriority:  cfg.Push.Priority,
		PushPolicy:    notifier.Policy(cfg.Push.FailurePolicy),
		Alert:         buildAlertSender(cfg),
		AlertPolicy:   notifier.Policy(cfg.Email.FailurePolicy),
		SubjectPrefix: cfg.Email.Subject,
		PageURL:       cfg.Fetch.URLTemplate,
	}, logger)

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Recorder.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			a.recorder = sr
		}
	}

	sleeper := clock.Real{}
	fetcher := collector.NewFetcher(buildBrowser(cfg), sleeper, cfg.Fetch.AttemptTimeout, logger)
	a.monitor = monitor.New(cfg.Domains, monitor.Deps{
		Fetcher:  fetcher,
		Store:    history.NewFileStore(cfg.DataPath, logger),
		Notifier: a.notifier,
		Clock:    sleeper,
		Recorder: a.recorder,
		Metrics:  metrics.New(a.registry),
	}, logger)
	return a
}

func buildBrowser(cfg *config.Config) collector.Browser {
	if cfg.Fetch.Driver == "mock" {
		return &collector.MockBrowser{Prices: cfg.Fetch.MockPrices}
	}
	return collector.NewChromeBrowser(collector.ChromeConfig{
		URLTemplate:       cfg.Fetch.URLTemplate,
		PriceSelector:     cfg.Fetch.PriceSelector,
		NavigationTimeout: cfg.Fetch.NavigationTimeout,
		SelectorTimeout:   cfg.Fetch.SelectorTimeout,
		ExecPath:          cfg.Fetch.ChromePath,
	})
}

func buildPushSender(cfg *config.Config) notifier.PushSender {
	if !cfg.Push.Enabled {
		return nil
	}
	if cfg.Push.Provider == "telegram" {
		return notifier.NewTelegramSender(cfg.Push.Telegram.BotToken, cfg.Push.Telegram.ChatID)
	}
	return notifier.NewPushoverSender(cfg.Push.Token, cfg.Push.User, cfg.Push.Device, cfg.Push.Sound)
}

func buildAlertSender(cfg *config.Config) notifier.AlertSender {
	if !cfg.Email.Enabled {
		return nil
	}
	return notifier.NewEmailSender(notifier.EmailConfig{
		From:     cfg.Email.From,
		To:       cfg.Email.To,
		Password: cfg.Email.Password,
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
	})
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("close recorder", zap.Error(err))
	}
}

// check runs a single pass and reports whether it completed.
func (a *app) check(ctx context.Context) error {
	return a.monitor.RunAndReport(ctx).Err
}

// testNotify sends one test message on the push channel.
func (a *app) testNotify(ctx context.Context) error {
	if !a.notifier.PushEnabled() {
		return errors.New("push notifications are disabled")
	}
	res := a.notifier.NotifyTest(ctx)
	if res.Err != nil {
		return res.Err
	}
	a.logger.Info("test notification sent")
	return nil
}

// serve runs checks on the configured schedule until ctx is done.
func (a *app) serve(ctx context.Context) error {
	sched := scheduler.NewScheduler(ctx, a.monitor, a.logger)
	if err := sched.Register(a.cfg.Schedule.Cron); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})

	if a.cfg.Schedule.RunOnStart {
		a.logger.Info("RUN_ON_START enabled, executing price check now")
		g.Go(func() error {
			sched.RunNow()
			return nil
		})
	}

	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, metrics.Handler(a.registry))
		srv := &http.Server{
			Addr:              a.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("metrics server listening", zap.String("addr", srv.Addr), zap.String("path", a.cfg.Metrics.Path))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	a.logger.Info("pricewatch is running, press Ctrl+C to stop", zap.String("cron", a.cfg.Schedule.Cron))
	return g.Wait()
}
