package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/afterschool-match-api/migrations"
	"github.com/noah-isme/afterschool-match-api/pkg/config"
	"github.com/noah-isme/afterschool-match-api/pkg/database"
	"github.com/noah-isme/afterschool-match-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	applied, err := database.Migrate(ctx, db, migrations.Files)
	if err != nil {
		logr.Fatal("migration failed", zap.Strings("applied", applied), zap.Error(err))
	}
	logr.Info("migrations complete", zap.Strings("applied", applied))
}
