package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Models 列出需要自动迁移的全部模型，测试中也用它建表
var Models = []any{
	&User{},
	&SystemSetting{},
	&Route{},
	&Ingredient{},
	&Component{},
	&ComponentIngredient{},
	&RestrictedItem{},
	&FoodPreparation{},
	&Menu{},
	&Client{},
	&ClientMealDefault{},
	&ClientDaySchedule{},
	&ClientCancelledDate{},
	&ClientScheduledStatus{},
	&Order{},
	&OrderItem{},
	&OrderStatusChange{},
	&Billing{},
	&DeliveryHistory{},
	&Note{},
}

// Options 数据库连接参数
type Options struct {
	// Driver 为 sqlite 或 postgres，默认 sqlite
	Driver string
	// Path sqlite 文件路径，为空时回退到 souschef.db
	Path string
	// DSN postgres 连接串
	DSN string
	// Logger 可选的 gorm 日志实现
	Logger logger.Interface
}

// Init 初始化数据库连接并执行自动迁移。
func Init(opts Options) error {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return err
	}

	cfg := &gorm.Config{}
	if opts.Logger != nil {
		cfg.Logger = opts.Logger
	}

	DB, err = gorm.Open(dialector, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	return Migrate(DB)
}

// Migrate 为全部模型建表
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		path := strings.TrimSpace(opts.Path)
		if path == "" {
			path = "souschef.db"
		}
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
		return sqlite.Open(path), nil
	case "postgres":
		dsn := strings.TrimSpace(opts.DSN)
		if dsn == "" {
			return nil, errors.New("postgres driver requires DATABASE_URL")
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
