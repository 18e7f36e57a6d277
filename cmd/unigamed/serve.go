package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"unigame/internal/auth"
	"unigame/internal/cache"
	"unigame/internal/history"
	"unigame/internal/metrics"
	"unigame/internal/server"
	"unigame/internal/watcher"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	withSigner := false
	if keystoreDir, _ := cmd.Flags().GetString("keystore"); keystoreDir != "" {
		withSigner = true
	}

	a, cleanup, err := newApp(ctx, cmd, withSigner)
	if err != nil {
		return err
	}
	defer cleanup()

	prom := metrics.New()
	a.refresher.WithObserver(prom)
	a.orch.WithObserver(prom)

	var hist history.Store = history.Nop{}
	var pg *history.PostgresStore
	if a.cfg.PostgresDSN != "" {
		pg, err = history.NewPostgresStore(ctx, a.cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		hist = pg
		a.orch.WithHistory(pg)
	}

	var lookups *cache.Cache
	if a.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		defer rdb.Close()
		lookups = cache.New(rdb, a.reader, 30*time.Second, a.logger)
		a.orch.WithLookups(lookups)
	}

	a.logger.Info("initial refresh")
	if err := a.refresher.RefreshAll(ctx); err != nil {
		a.logger.Warn("initial refresh incomplete", zap.Error(err))
	}

	if a.cfg.WatcherEnabled {
		w := watcher.New(watcher.Config{
			FromBlock:         a.cfg.WatcherFromBlock,
			BatchSize:         a.cfg.WatcherBatchSize,
			CheckpointPath:    a.cfg.WatcherCheckpoint,
			CheckpointEnabled: a.cfg.WatcherCheckpoint != "",
			MaxRetries:        a.cfg.MaxRetries,
			RetryBackoff:      a.cfg.RetryBackoff,
			PollInterval:      a.cfg.PollInterval,
		}, a.chain, a.refresher, a.logger).WithObserver(prom)

		if a.cfg.EventJournal != "" {
			w.WithSinks(history.NewJsonlJournal(a.cfg.EventJournal))
		}
		if pg != nil {
			w.WithSinks(pg)
		}
		if len(a.cfg.KafkaBrokers) > 0 {
			publisher, err := watcher.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger)
			if err != nil {
				return err
			}
			defer publisher.Close()
			w.WithPublisher(publisher)
		}

		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	api := server.New(a.store, a.orch, lookups, hist, a.logger)
	if a.cfg.AuthBaseURL != "" {
		api.WithAuth(auth.New(a.cfg.AuthBaseURL))
	}
	apiSrv := api.Start(a.cfg.APIPort)
	metricsSrv := metrics.StartServer(a.cfg.MetricsPort, nil)

	a.logger.Info("serving",
		zap.String("contract", a.cfg.ContractAddress),
		zap.Int("api_port", a.cfg.APIPort),
		zap.Int("metrics_port", a.cfg.MetricsPort),
		zap.Bool("watcher", a.cfg.WatcherEnabled),
		zap.Bool("signer", withSigner),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	return nil
}
