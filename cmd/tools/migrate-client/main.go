// cmd/tools/migrate-client/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"notification-gateway/internal/common/config"
	"notification-gateway/internal/common/database"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/push/migration"
	"notification-gateway/internal/push/registration"
	"notification-gateway/internal/push/templates"
)

// migrate-client re-registers every stored device of one client against the
// hub, moving it onto the configured registration model.
func main() {
	clientID := flag.Int64("client", 0, "Client ID to migrate")
	configPath := flag.String("config", "", "Config file (defaults to configs/config.yaml lookup)")
	flag.Parse()

	if *clientID <= 0 {
		fmt.Println("Error: -client is required")
		flag.Usage()
		os.Exit(1)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	hubClient, err := hub.NewNotificationHubClient(cfg.Hub, log)
	if err != nil {
		zapLog.Fatal("hub client init failed", zap.Error(err))
	}
	catalog, err := templates.NewCatalog(cfg.Templates)
	if err != nil {
		zapLog.Fatal("template catalog init failed", zap.Error(err))
	}

	manager := registration.NewManager(registration.LoadConfig(cfg.Registration), hubClient, catalog, log)
	migrator := migration.NewMigrator(migration.NewPostgresSource(pg.DB), manager, log)

	report, err := migrator.MigrateClient(ctx, *clientID)
	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		zapLog.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
	if report.Failed > 0 {
		os.Exit(2)
	}
}
