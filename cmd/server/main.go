package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/config"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/handler"
	"github.com/souschef/internal/logging"
	"github.com/souschef/internal/router"
	"github.com/souschef/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	zl, err := logging.New(cfg.LogLevel, cfg.LogFormat, "souschef")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// 初始化数据库
	if err := db.Init(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseURL,
		Logger: logger.Default.LogMode(logger.Warn),
	}); err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		zl.Fatal("failed to ensure admin user", zap.Error(err))
	}

	reports, err := storage.New(context.Background(), cfg.Reports, zl)
	if err != nil {
		zl.Fatal("failed to initialize report storage", zap.Error(err))
	}

	api := handler.NewAPI(db.DB, handler.Options{Reports: reports, Logger: zl})
	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        zl,
	})

	zl.Info("server starting",
		zap.String("addr", cfg.ListenAddr),
		zap.String("database", cfg.DatabaseDriver),
		zap.String("reports", cfg.Reports.Backend))
	if err := r.Run(cfg.ListenAddr); err != nil {
		zl.Fatal("failed to run server", zap.Error(err))
	}
}
