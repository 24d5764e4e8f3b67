package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/infrastructure/config"
	"github.com/alpenform/storefront/internal/infrastructure/logger"
	"github.com/alpenform/storefront/internal/infrastructure/persistence"
	"github.com/alpenform/storefront/internal/infrastructure/persistence/models"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to session store", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing session store", zap.Error(err))
		}
	}()

	log.Info("Running migrations", zap.String("driver", cfg.Database.Driver))
	if err := db.DB.AutoMigrate(&models.SessionStateModel{}); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	log.Info("Migrations applied")
}
