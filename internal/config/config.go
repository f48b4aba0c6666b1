package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabaseDriver    string
	DatabasePath      string
	DatabaseURL       string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	LogFormat         string
	CORSOrigins       []string
	SuperRootUserName string
	SuperRootPassword string
	Reports           ReportsConfig
}

// ReportsConfig 描述生成的 PDF 报表归档位置。
type ReportsConfig struct {
	Backend       string
	Dir           string
	RetentionDays int
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 非 production 环境下会先尝试加载工作目录中的 .env 文件。
func Load() AppConfig {
	if getenv("APP_ENV", "") != "production" {
		_ = godotenv.Load()
	}

	port := getenv("PORT", "8080")

	listenAddr := getenv("LISTEN_ADDR", "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	driver := strings.ToLower(getenv("DATABASE_DRIVER", "sqlite"))
	if driver != "postgres" {
		driver = "sqlite"
	}

	retention, err := strconv.Atoi(getenv("REPORTS_RETENTION_DAYS", "356"))
	if err != nil || retention <= 0 {
		retention = 356
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabaseDriver:    driver,
		DatabasePath:      getenv("DATABASE_PATH", "souschef.db"),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		SessionSecret:     getenv("SESSION_SECRET", "souschef-dev-secret"),
		GinMode:           getenv("GIN_MODE", "release"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "")),
		SuperRootUserName: getenv("SUPER_ROOT_USER_NAME", ""),
		SuperRootPassword: getenv("SUPER_ROOT_PASSWORD", ""),
		Reports: ReportsConfig{
			Backend:       strings.ToLower(getenv("REPORTS_BACKEND", "local")),
			Dir:           getenv("REPORTS_DIR", "generated_docs"),
			RetentionDays: retention,
			S3Endpoint:    getenv("S3_ENDPOINT", ""),
			S3Region:      getenv("S3_REGION", "auto"),
			S3Bucket:      getenv("S3_BUCKET", ""),
			S3AccessKey:   getenv("S3_ACCESS_KEY", ""),
			S3SecretKey:   getenv("S3_SECRET_KEY", ""),
		},
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
