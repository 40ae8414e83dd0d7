package main

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"hnwatch/internal/config"
	"hnwatch/internal/feed"
	"hnwatch/internal/hn"
	"hnwatch/internal/notify"
	"hnwatch/internal/server"
	"hnwatch/internal/sink"
	"hnwatch/internal/state"
	"hnwatch/internal/watch"
	"hnwatch/internal/webhook"
)

func serve(ctx context.Context, configPath string) error {
	mgr, cfgErr := config.NewManager(configPath)
	cfg := mgr.Get()

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("Failed to load config, using defaults", "path", configPath, "error", cfgErr)
	}

	snapshot := state.NewSnapshot()
	ledger := state.NewLedger(cfg.Notify.Capacity)

	fetcher := feed.NewFetcher(newSource(cfg.Feed), snapshot, mgr)
	watcher := watch.NewWatcher(snapshot, ledger, mgr)
	notifier := notify.NewNotifier(ledger, mgr)

	closers := registerSinks(notifier, cfg.Sinks, logger)
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	logger.Info("Starting hnwatch",
		"source", cfg.Feed.Source,
		"interval", cfg.Settings.FetchInterval(),
		"limit", cfg.Settings.Limit,
		"watch", cfg.Watch.Enabled,
		"notify", cfg.Notify.Enabled,
		"sinks", len(notifier.Sinks()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetcher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		watcher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		notifier.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := mgr.Watch(ctx); err != nil {
			logger.Error("Config watcher stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return server.New(snapshot, ledger, logger).Run(ctx, cfg.Server.Addr)
	})

	err := g.Wait()
	logger.Info("Shutting down...")
	return err
}

func newSource(fc config.FeedConfig) feed.Source {
	if fc.Source == "hnrss" {
		return hn.NewRSSSource(fc.RSSURL)
	}
	return hn.NewClient(nil, fc.BaseURL, fc.RatePerSec)
}

// registerSinks builds every configured sink. A sink that cannot be built is
// logged and skipped. The returned funcs release sink resources.
func registerSinks(n *notify.Notifier, sc config.SinksConfig, logger *slog.Logger) []func() {
	var closers []func()

	if sc.Log {
		n.Register(sink.NewLog(logger))
	}

	if sc.Command.Enabled {
		cmd, err := sink.NewCommand(sc.Command.Command)
		if err != nil {
			logger.Error("Failed to set up command sink", "command", sc.Command.Command, "error", err)
		} else {
			n.Register(cmd)
		}
	}

	if len(sc.Webhooks) > 0 {
		client := webhook.NewClient()
		for _, wh := range sc.Webhooks {
			n.Register(webhook.NewSink(client, wh))
		}
	}

	if sc.Redis.Address != "" {
		r, err := sink.NewRedis(sc.Redis)
		if err != nil {
			logger.Error("Failed to set up redis sink", "address", sc.Redis.Address, "error", err)
		} else {
			n.Register(r)
			closers = append(closers, func() { r.Close() })
		}
	}

	if sc.Telegram.Token != "" {
		tg, err := sink.NewTelegram(sc.Telegram)
		if err != nil {
			logger.Error("Failed to set up telegram sink", "error", err)
		} else {
			n.Register(tg)
		}
	}

	for _, s := range n.Sinks() {
		logger.Info("Registered sink", "sink", s.Name())
	}
	return closers
}
