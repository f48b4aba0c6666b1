package service

import (
	"fmt"
	"strings"

	"github.com/souschef/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultSiteName     = "Sous-Chef"
	defaultBillingTerms = "Payable dès réception"
	defaultBillingClass = "2 - Béatrice:Popote - Clients"
)

// SystemSettings 描述后台可配置的系统信息。
type SystemSettings struct {
	SiteName     string
	BillingTerms string
	BillingClass string
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	SiteName     string
	BillingTerms string
	BillingClass string
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db *gorm.DB
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{db: gdb}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeyBillingTerms,
	db.SettingKeyBillingClass,
}

// DefaultSystemSettings 未配置时使用的默认值
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		SiteName:     defaultSiteName,
		BillingTerms: defaultBillingTerms,
		BillingClass: defaultBillingClass,
	}
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := DefaultSystemSettings()

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		if value == "" {
			continue
		}
		switch record.Key {
		case db.SettingKeySiteName:
			result.SiteName = value
		case db.SettingKeyBillingTerms:
			result.BillingTerms = value
		case db.SettingKeyBillingClass:
			result.BillingClass = value
		}
	}

	return result, nil
}

// UpdateSettings 保存系统设置，空值回退默认值。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	defaults := DefaultSystemSettings()
	sanitized := SystemSettings{
		SiteName:     strings.TrimSpace(input.SiteName),
		BillingTerms: strings.TrimSpace(input.BillingTerms),
		BillingClass: strings.TrimSpace(input.BillingClass),
	}
	if sanitized.SiteName == "" {
		sanitized.SiteName = defaults.SiteName
	}
	if sanitized.BillingTerms == "" {
		sanitized.BillingTerms = defaults.BillingTerms
	}
	if sanitized.BillingClass == "" {
		sanitized.BillingClass = defaults.BillingClass
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeySiteName, sanitized.SiteName); err != nil {
			return err
		}
		if err := upsertSetting(tx, db.SettingKeyBillingTerms, sanitized.BillingTerms); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyBillingClass, sanitized.BillingClass)
	})
	if err != nil {
		return SystemSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	return sanitized, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
