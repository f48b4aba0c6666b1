package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order 某个客户在某一天的送餐订单
type Order struct {
	gorm.Model
	ClientID     uint `gorm:"not null;index:idx_order_client_date"`
	Client       Client
	CreationDate time.Time   `gorm:"not null"`
	DeliveryDate time.Time   `gorm:"not null;index:idx_order_client_date;index"`
	Status       OrderStatus `gorm:"size:1;not null;default:O;index"`
	Items        []OrderItem `gorm:"constraint:OnDelete:CASCADE"`
}

// Price 汇总所有计费订单行的金额
func (o Order) Price() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		if item.BillableFlag {
			total = total.Add(item.Price)
		}
	}
	return total
}

// HasMainDish 订单是否包含主菜
func (o Order) HasMainDish() bool {
	for _, item := range o.Items {
		if item.ComponentGroup == ComponentGroupMainDish {
			return true
		}
	}
	return false
}

// OrderItem 订单行。Price 为该行总价，不是单价
type OrderItem struct {
	gorm.Model
	OrderID        uint            `gorm:"not null;index"`
	Price          decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	BillableFlag   bool
	Size           MealSize       `gorm:"size:1"`
	OrderItemType  OrderItemType  `gorm:"size:20;not null"`
	Remark         string         `gorm:"size:256"`
	TotalQuantity  int            `gorm:"not null;default:0"`
	ComponentGroup ComponentGroup `gorm:"size:100"`
}

// OrderStatusChange 订单状态变更记录
type OrderStatusChange struct {
	gorm.Model
	OrderID    uint        `gorm:"not null;index"`
	StatusFrom OrderStatus `gorm:"size:1;not null"`
	StatusTo   OrderStatus `gorm:"size:1;not null"`
	Reason     string      `gorm:"size:200"`
	ChangeTime time.Time   `gorm:"not null"`
}
