package db

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Route 送餐路线
type Route struct {
	gorm.Model
	Name        string `gorm:"size:50;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	Vehicle     string `gorm:"size:20;not null;default:cycling"`
}

// DeliveryHistory 某条路线在某一天的实际配送顺序
type DeliveryHistory struct {
	gorm.Model
	RouteID          uint `gorm:"not null;index:idx_delivery_history_route_date,unique"`
	Route            Route
	Date             time.Time      `gorm:"not null;index:idx_delivery_history_route_date,unique"`
	Vehicle          string         `gorm:"size:20;not null;default:cycling"`
	ClientIDSequence datatypes.JSON `gorm:"not null"`
	Comments         string         `gorm:"type:text"`
}

// Sequence 解析已保存的客户顺序，解析失败时返回空
func (h DeliveryHistory) Sequence() []uint {
	if len(h.ClientIDSequence) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(h.ClientIDSequence, &ids); err != nil {
		return nil
	}
	return ids
}

// SetSequence 序列化客户顺序
func (h *DeliveryHistory) SetSequence(ids []uint) error {
	if ids == nil {
		ids = []uint{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	h.ClientIDSequence = datatypes.JSON(raw)
	return nil
}
