// souschefctl 是定时任务与运维脚本的入口：
//
//	souschefctl generateorders [-days N] YYYY-MM-DD
//	souschefctl setordersdelivered YYYY-MM-DD
//	souschefctl processscheduledstatuschange
//	souschefctl cleanreports [-days N]
//	souschefctl createuser -username NAME -password PASS
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/souschef/internal/config"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/logging"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	zl, err := logging.New(cfg.LogLevel, cfg.LogFormat, "souschefctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	if err := db.Init(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseURL,
		Logger: logger.Default.LogMode(logger.Warn),
	}); err != nil {
		zl.Fatal("init db", zap.Error(err))
	}

	app := &app{db: db.DB, cfg: cfg, logger: zl, out: os.Stdout}
	if err := app.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}
