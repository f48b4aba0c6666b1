package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/souschef/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceTestDB 为每个测试创建独立的内存数据库
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	db.DB = gdb

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func mustDay(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDay(value)
	if err != nil {
		t.Fatalf("parse day %q: %v", value, err)
	}
	return d
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

type clientFixture struct {
	first, last string
	rate        db.RateType
	status      db.ClientStatus
	delivery    db.DeliveryType
	routeID     *uint
	located     bool
}

func createClient(t *testing.T, gdb *gorm.DB, f clientFixture) db.Client {
	t.Helper()
	client := db.Client{
		FirstName:    f.first,
		LastName:     f.last,
		BillingEmail: strings.ToLower(f.first) + "@example.org",
		Status:       f.status,
		DeliveryType: f.delivery,
		RateType:     f.rate,
		RouteID:      f.routeID,
	}
	if client.Status == "" {
		client.Status = db.ClientStatusActive
	}
	if client.DeliveryType == "" {
		client.DeliveryType = db.DeliveryTypeOngoing
	}
	if client.RateType == "" {
		client.RateType = db.RateTypeDefault
	}
	if f.located {
		client.Latitude = floatPtr(45.5)
		client.Longitude = floatPtr(-73.6)
	}
	if err := gdb.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func createRoute(t *testing.T, gdb *gorm.DB, name string) db.Route {
	t.Helper()
	route := db.Route{Name: name, Vehicle: db.DefaultVehicle}
	if err := gdb.Create(&route).Error; err != nil {
		t.Fatalf("create route: %v", err)
	}
	return route
}
