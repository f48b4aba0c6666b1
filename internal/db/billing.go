package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Billing 某个月份的账单汇总，每个 (年, 月) 只能存在一份
type Billing struct {
	gorm.Model
	TotalAmount  decimal.Decimal `gorm:"type:decimal(8,2);not null"`
	BillingMonth int             `gorm:"not null;index:idx_billing_period,unique"`
	BillingYear  int             `gorm:"not null;index:idx_billing_period,unique"`
	CreatedDate  time.Time       `gorm:"not null"`
	Orders       []Order         `gorm:"many2many:billing_orders;"`
}

// Period 返回账单月份的第一天
func (b Billing) Period() time.Time {
	return time.Date(b.BillingYear, time.Month(b.BillingMonth), 1, 0, 0, 0, 0, time.UTC)
}
