// Command ccktool is a small demo binary that wires MemoryService,
// PubSubService, DatabaseService, FileService, and MonitorBasedPubSub
// together against their in-memory/local-filesystem reference backends,
// runs each service's health probe, and exits. It exists to exercise the
// wiring end-to-end, not as a production server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bkio/crosscloudkit/database"
	"github.com/bkio/crosscloudkit/fileservice"
	"github.com/bkio/crosscloudkit/internal/logging"
	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/monitor"
	"github.com/bkio/crosscloudkit/pubsub"
)

func main() {
	configPath := flag.String("config", "", "path to a .toml or .yaml config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "ccktool:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	logger := logging.NewZap(zapLogger)

	mem := memory.New(&cfg.Memory, logger)
	defer mem.Close(context.Background())

	ps := pubsub.New(logger)
	defer ps.Close(context.Background())

	db := database.New(mem, logger)

	files := fileservice.New(cfg.FileServiceDir, logger)

	mon := monitor.New(mem, ps, files, logger, &cfg.Monitor, func(err error) {
		logger.Error("monitor scan pass failed", "error", err)
	})
	files.SetNotificationRegistrar(mon)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon.Start(ctx)
	defer mon.Stop()

	reportHealth(ctx, logger, mem, ps, db, files)

	logger.Info("ccktool wired and running", "fileServiceDir", cfg.FileServiceDir)

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		logger.Info("demo window elapsed, shutting down")
	}
	return nil
}

func reportHealth(ctx context.Context, logger logging.Logger, mem *memory.InMemoryService, ps *pubsub.InMemoryService, db *database.InMemoryService, files *fileservice.LocalService) {
	memReport := mem.Health(ctx)
	logger.Info("memory health", "status", memReport.Status.String(), "message", memReport.Message)

	psReport := ps.Health(ctx)
	logger.Info("pubsub health", "status", psReport.Status.String(), "message", psReport.Message)

	dbReport := db.Health(ctx)
	logger.Info("database health", "status", dbReport.Status.String(), "message", dbReport.Message)

	filesReport := files.Health(ctx)
	logger.Info("fileservice health", "status", filesReport.Status.String(), "message", filesReport.Message)
}
