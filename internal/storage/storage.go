package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/souschef/internal/config"
	"go.uber.org/zap"
)

// timestampLayout 归档文件名中的生成时间，精确到秒
const timestampLayout = "2006-01-02T15:04:05"

// ReportStore 保存生成的报表，并按保留期限清理旧文件
type ReportStore interface {
	// Save 以 ObjectKey 规则保存内容，返回存储键
	Save(ctx context.Context, name string, date time.Time, ext string, content []byte) (string, error)
	// Prune 删除最后修改时间早于 cutoff 的文件，返回删除数量
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// ObjectKey 返回 "<date>/<name>_<date>__<timestamp>.<ext>"
func ObjectKey(name string, date, now time.Time, ext string) string {
	day := date.Format("2006-01-02")
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s/%s_%s__%s.%s", day, name, day, now.Format(timestampLayout), ext)
}

// RetentionCutoff 保留期限之前的时间点
func RetentionCutoff(now time.Time, retentionDays int) time.Time {
	return now.AddDate(0, 0, -retentionDays)
}

// New 根据配置选择本地目录或 S3 存储
func New(ctx context.Context, cfg config.ReportsConfig, logger *zap.Logger) (ReportStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir, logger), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.Dir,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported reports backend %q", cfg.Backend)
	}
}
