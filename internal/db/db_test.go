package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestInitSQLiteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "souschef.db")
	if err := Init(Options{Driver: "sqlite", Path: path, Logger: logger.Default.LogMode(logger.Silent)}); err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		DB = nil
	})

	for _, model := range Models {
		if !DB.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
}

func TestInitRejectsUnknownDriver(t *testing.T) {
	if err := Init(Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if err := Init(Options{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

func TestDeliveryHistorySequenceRoundTrip(t *testing.T) {
	var h DeliveryHistory
	if got := h.Sequence(); got != nil {
		t.Fatalf("expected nil sequence, got %v", got)
	}
	if err := h.SetSequence([]uint{3, 1, 2}); err != nil {
		t.Fatalf("set sequence: %v", err)
	}
	got := h.Sequence()
	if len(got) != 3 || got[0] != 3 || got[2] != 2 {
		t.Fatalf("unexpected sequence %v", got)
	}
	h.ClientIDSequence = []byte("not json")
	if h.Sequence() != nil {
		t.Fatal("invalid json should yield nil")
	}
}

func TestClientIsGeolocalized(t *testing.T) {
	lat, lng := 45.5, -73.6
	if (Client{Latitude: &lat}).IsGeolocalized() {
		t.Fatal("missing longitude should not be geolocalized")
	}
	if !(Client{Latitude: &lat, Longitude: &lng}).IsGeolocalized() {
		t.Fatal("expected geolocalized client")
	}
}

func TestBillingPeriod(t *testing.T) {
	b := Billing{BillingMonth: 2, BillingYear: 2024}
	want := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !b.Period().Equal(want) {
		t.Fatalf("expected %v, got %v", want, b.Period())
	}
}

func TestComponentGroupLabels(t *testing.T) {
	if ComponentGroupMainDish.Label() != "Main Dish" {
		t.Fatalf("unexpected label %q", ComponentGroupMainDish.Label())
	}
	if ComponentGroup("soup").Valid() {
		t.Fatal("unknown group should be invalid")
	}
	if ClientStatus("X").Label() != "Unknown" {
		t.Fatal("unknown status should have Unknown label")
	}
}

func TestEnsureUserCreatesStaffAccountOnce(t *testing.T) {
	DB = nil
	if err := EnsureUser("admin", "secret"); !errors.Is(err, ErrDatabaseNotInitialized) {
		t.Fatalf("expected ErrDatabaseNotInitialized, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "users.db")
	if err := Init(Options{Driver: "sqlite", Path: path, Logger: logger.Default.LogMode(logger.Silent)}); err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		DB = nil
	})

	// 未配置 SUPER_ROOT_* 时跳过
	if err := EnsureUser("  ", "secret"); err != nil {
		t.Fatalf("blank username: %v", err)
	}
	if err := EnsureUser(" kitchen ", " secret "); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if err := EnsureUser("kitchen", "other"); err != nil {
		t.Fatalf("ensure existing user: %v", err)
	}

	var users []User
	if err := DB.Find(&users).Error; err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "kitchen" {
		t.Fatalf("unexpected users %+v", users)
	}
	if !users[0].CheckPassword("secret") {
		t.Fatal("original password should still match")
	}
	if users[0].CheckPassword("other") {
		t.Fatal("existing account must keep its password")
	}
}
