package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeySiteName 表示机构名称，出现在报表页眉。
	SettingKeySiteName = "site_name"
	// SettingKeyBillingTerms 账单导出中的付款条件。
	SettingKeyBillingTerms = "billing_terms"
	// SettingKeyBillingClass 账单导出中的会计类别。
	SettingKeyBillingClass = "billing_class"
)
