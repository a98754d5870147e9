// Command notifier delivers queued notifications outside the API process. It
// runs the outbox relay (when the API is started with NOTIFY_RELAY=external)
// and, when AMQP_URL is set, consumes the notification queue.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
)

func main() {
	runRelay := flag.Bool("relay", true, "Drain the notification outbox")
	runConsumer := flag.Bool("consume", true, "Consume the AMQP notification queue (needs AMQP_URL)")
	flag.Parse()

	logging.Setup()
	cfg := config.Load()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.AppEnv}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	var closers []func() error

	if *runRelay {
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		pgLogHandler := logging.NewPGHandler(database.DB)
		logging.WithDB(pgLogHandler)
		closers = append(closers, func() error { pgLogHandler.Stop(); database.Close(); return nil })

		transport, closeTransport, err := notify.TransportFromConfig(cfg)
		if err != nil {
			slog.Error("notification transport failed", "error", err)
			os.Exit(1)
		}
		closers = append(closers, closeTransport)

		relay := notify.NewRelay(repository.New(database.DB).Outbox, transport, notify.RelayConfigFrom(cfg, cfg.DSN()))
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("notification relay started", "transport", cfg.NotifyTransport)
			if err := relay.Run(ctx); err != nil {
				slog.Error("notification relay stopped", "error", err)
				cancel()
			}
		}()
	}

	if *runConsumer && cfg.AMQPURL != "" {
		consumer, err := notify.NewAMQPConsumer(cfg.AMQPURL, cfg.NotifyQueue, notify.DirectFromConfig(cfg))
		if err != nil {
			slog.Error("amqp consumer failed", "error", err)
			os.Exit(1)
		}
		closers = append(closers, consumer.Close)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				slog.Error("notification consumer stopped", "error", err)
				cancel()
			}
		}()
	} else if *runConsumer {
		slog.Info("AMQP_URL not set, queue consumer disabled")
	}

	<-ctx.Done()
	slog.Info("shutting down notifier...")
	wg.Wait()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			slog.Error("close error", "error", err)
		}
	}
	sentry.Flush(2 * time.Second)
	slog.Info("notifier stopped")
}
