package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"chandlery/internal/config"
	"chandlery/internal/mailer"
	"chandlery/internal/server"
	"chandlery/internal/storage"
	"chandlery/internal/wizard"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fail("init logger: %v", err)
	}
	defer logger.Sync()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	sender, err := mailer.New(cfg, logger)
	if err != nil {
		logger.Fatal("init mail sender", zap.Error(err))
	}

	wiz := wizard.NewService(db, cfg, sender, logger)
	defer wiz.Close()

	srv := server.New(cfg, db, wiz, sender, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initLogger(cfg config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.LogFormat == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.LogLevel {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
