package db

import (
	"time"

	"gorm.io/gorm"
)

// Client 接受送餐服务的客户
// 地址坐标均存在时才视为已定位，未定位客户不会出现在路线与厨房报表中
type Client struct {
	gorm.Model
	FirstName    string `gorm:"size:50;not null"`
	LastName     string `gorm:"size:50;not null;index"`
	BillingEmail string `gorm:"size:320"`
	Phone        string `gorm:"size:30"`

	AddressNumber    string `gorm:"size:10"`
	AddressStreet    string `gorm:"size:100"`
	AddressApartment string `gorm:"size:10"`
	Latitude         *float64
	Longitude        *float64

	DeliveryNote string       `gorm:"type:text"`
	Status       ClientStatus `gorm:"size:1;not null;default:D;index"`
	DeliveryType DeliveryType `gorm:"size:1;not null;default:O"`
	RateType     RateType     `gorm:"size:10;not null;default:default"`

	RouteID *uint `gorm:"index"`
	Route   *Route

	AvoidIngredients []Ingredient      `gorm:"many2many:client_avoid_ingredients;"`
	AvoidComponents  []Component       `gorm:"many2many:client_avoid_components;"`
	Restrictions     []RestrictedItem  `gorm:"many2many:client_restrictions;"`
	Preparations     []FoodPreparation `gorm:"many2many:client_preparations;"`

	MealDefaults  []ClientMealDefault   `gorm:"constraint:OnDelete:CASCADE"`
	DaySchedules  []ClientDaySchedule   `gorm:"constraint:OnDelete:CASCADE"`
	CancelledDays []ClientCancelledDate `gorm:"constraint:OnDelete:CASCADE"`
}

// IsGeolocalized 判断客户地址是否已定位
func (c Client) IsGeolocalized() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// ClientMealDefault 记录客户在某个星期几对某类餐品的默认数量
// Quantity 为 nil 表示未设置，0 表示客户明确不要
type ClientMealDefault struct {
	gorm.Model
	ClientID       uint           `gorm:"not null;index:idx_client_meal_default,unique"`
	Weekday        time.Weekday   `gorm:"not null;index:idx_client_meal_default,unique"`
	ComponentGroup ComponentGroup `gorm:"size:20;not null;index:idx_client_meal_default,unique"`
	Quantity       *int
}

// ClientDaySchedule 记录客户某个星期几是否配送以及主菜份量
type ClientDaySchedule struct {
	gorm.Model
	ClientID  uint         `gorm:"not null;index:idx_client_day_schedule,unique"`
	Weekday   time.Weekday `gorm:"not null;index:idx_client_day_schedule,unique"`
	Scheduled bool
	Size      MealSize `gorm:"size:1"`
}

// ClientCancelledDate 客户取消送餐的日期，自动生成订单时跳过
type ClientCancelledDate struct {
	gorm.Model
	ClientID   uint      `gorm:"not null;index:idx_client_cancel_date,unique"`
	CancelDate time.Time `gorm:"not null;index:idx_client_cancel_date,unique"`
}

// FoodPreparation 特殊的食物处理方式（如切碎、打成泥）
type FoodPreparation struct {
	gorm.Model
	Name string `gorm:"size:150;uniqueIndex;not null"`
}

const (
	ScheduledStatusStart = "START"
	ScheduledStatusEnd   = "END"

	OperationToBeProcessed = "NEW"
	OperationProcessed     = "PRO"
	OperationError         = "ERR"
)

// ClientScheduledStatus 计划在未来某日生效的客户状态变更
// 暂停一段时间会生成一对记录：START 与 END，通过 PairID 关联
type ClientScheduledStatus struct {
	gorm.Model
	ClientID        uint `gorm:"not null;index"`
	Client          Client
	PairID          *uint
	StatusFrom      ClientStatus `gorm:"size:1;not null"`
	StatusTo        ClientStatus `gorm:"size:1;not null"`
	Reason          string       `gorm:"size:200"`
	ChangeDate      time.Time    `gorm:"not null;index"`
	ChangeState     string       `gorm:"size:5;not null;default:START"`
	OperationStatus string       `gorm:"size:3;not null;default:NEW;index"`
}
