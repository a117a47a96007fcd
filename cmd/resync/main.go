package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	billingapp "github.com/daftar/backend/internal/application/billing"
	"github.com/daftar/backend/internal/infrastructure/config"
	"github.com/daftar/backend/internal/infrastructure/event"
	"github.com/daftar/backend/internal/infrastructure/logger"
	"github.com/daftar/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		logLevel string
		timeout  time.Duration
		notify   bool
	)

	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Overall run timeout")
	flag.BoolVar(&notify, "notify", true, "Emit change notifications for repaired invoices")
	flag.Parse()

	log, err := logger.NewFromSettings(logLevel, "console", "stdout")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)

	resyncService := billingapp.NewResyncService(invoiceRepo, paymentRepo, log)

	if notify {
		notifier, err := event.NewRedisChangeNotifier(&cfg.Redis, event.WithNotifierLogger(log))
		if err != nil {
			log.Warn("Change notifier unavailable, repairs will not be broadcast", zap.Error(err))
		} else {
			defer func() {
				_ = notifier.Close()
			}()
			resyncService.SetChangeNotifier(notifier)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := resyncService.Run(ctx)
	if err != nil {
		log.Fatal("Resync failed", zap.Error(err))
	}

	log.Info("Resync complete",
		zap.Int("invoices_checked", result.InvoicesChecked),
		zap.Int("amounts_fixed", result.AmountsFixed),
		zap.Int("statuses_fixed", result.StatusesFixed),
		zap.Int("marked_overdue", result.MarkedOverdue),
	)

	fmt.Printf("checked %d invoices: %d amounts fixed, %d statuses fixed, %d marked overdue\n",
		result.InvoicesChecked, result.AmountsFixed, result.StatusesFixed, result.MarkedOverdue)
}
