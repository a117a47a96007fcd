package main

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	backupapp "github.com/daftar/backend/internal/application/backup"
	"github.com/daftar/backend/internal/infrastructure/config"
	"github.com/daftar/backend/internal/infrastructure/logger"
	"github.com/daftar/backend/internal/infrastructure/persistence"
	"github.com/daftar/backend/internal/infrastructure/storage"
)

func main() {
	var (
		logLevel string
		file     string
		timeout  time.Duration
	)

	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&file, "file", "", "Archive file (restore input; export writes to the backup dir when empty)")
	flag.DurationVar(&timeout, "timeout", 30*time.Minute, "Overall run timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

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

	merchantRepo := persistence.NewGormMerchantRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	service := backupapp.NewBackupService(merchantRepo, invoiceRepo, paymentRepo, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch command {
	case "export":
		if err := runExport(ctx, service, &cfg.Backup, log); err != nil {
			log.Fatal("Export failed", zap.Error(err))
		}

	case "restore":
		if file == "" {
			log.Fatal("Archive file required. Usage: backup -file <archive> restore")
		}
		if err := runRestore(ctx, service, file, log); err != nil {
			log.Fatal("Restore failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func runExport(ctx context.Context, service *backupapp.BackupService, cfg *config.BackupConfig, log *zap.Logger) error {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := "daftar-" + time.Now().Format("20060102-150405") + ".json"
	if cfg.Compression {
		name += ".gz"
	}
	path := filepath.Join(cfg.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if cfg.Compression {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := service.Export(ctx, w); err != nil {
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("finish compression: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	log.Info("Archive written", zap.String("path", path))

	if cfg.S3Enabled {
		if err := uploadToS3(ctx, cfg, path, name, log); err != nil {
			// local archive already exists, upload failure is not fatal
			log.Warn("S3 upload failed, archive kept locally", zap.Error(err))
		}
	}

	if cfg.KeepLocal > 0 {
		if err := pruneLocal(cfg.Dir, cfg.KeepLocal, log); err != nil {
			log.Warn("Pruning old archives failed", zap.Error(err))
		}
	}

	fmt.Println("exported to", path)
	return nil
}

func uploadToS3(ctx context.Context, cfg *config.BackupConfig, path, name string, log *zap.Logger) error {
	store, err := storage.NewS3ArchiveStore(ctx, cfg, storage.WithArchiveLogger(log))
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := "application/json"
	if strings.HasSuffix(name, ".gz") {
		contentType = "application/gzip"
	}

	key, err := store.Upload(ctx, name, f, contentType)
	if err != nil {
		return err
	}
	log.Info("Archive uploaded",
		zap.String("bucket", store.Bucket()),
		zap.String("key", key),
	)
	return nil
}

// pruneLocal removes the oldest archives, keeping the most recent `keep`.
// Archive names embed a sortable timestamp so lexical order is enough.
func pruneLocal(dir string, keep int, log *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	archives := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "daftar-") &&
			(strings.HasSuffix(e.Name(), ".json") || strings.HasSuffix(e.Name(), ".json.gz")) {
			archives = append(archives, e.Name())
		}
	}
	if len(archives) <= keep {
		return nil
	}

	sort.Strings(archives)
	for _, name := range archives[:len(archives)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
		log.Info("Pruned old archive", zap.String("name", name))
	}
	return nil
}

func runRestore(ctx context.Context, service *backupapp.BackupService, path string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open compressed archive: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	result, err := service.Restore(ctx, r)
	if err != nil {
		return err
	}

	log.Info("Restore complete",
		zap.Int("merchants", result.Merchants),
		zap.Int("invoices", result.Invoices),
		zap.Int("payments", result.Payments),
	)
	fmt.Printf("restored %d merchants, %d invoices, %d payments\n",
		result.Merchants, result.Invoices, result.Payments)
	return nil
}

func printUsage() {
	fmt.Println(`Daftar Backup Tool

Usage:
  backup [flags] <command>

Commands:
  export    Write a JSON archive of all merchants, invoices and payments
  restore   Load an archive back into the database (upserts by ID)

Flags:
  -file string        Archive file for restore
  -log-level string   Log level: debug, info, warn, error (default: info)
  -timeout duration   Overall run timeout (default: 30m)

Examples:
  # Export to the configured backup directory
  backup export

  # Restore from an archive
  backup -file backups/daftar-20260101-120000.json.gz restore`)
}
