package db

// ComponentGroup 表示可订购的餐品类别。
type ComponentGroup string

const (
	ComponentGroupMainDish   ComponentGroup = "main_dish"
	ComponentGroupDessert    ComponentGroup = "dessert"
	ComponentGroupDiabetic   ComponentGroup = "diabetic"
	ComponentGroupFruitSalad ComponentGroup = "fruit_salad"
	ComponentGroupGreenSalad ComponentGroup = "green_salad"
	ComponentGroupPudding    ComponentGroup = "pudding"
	ComponentGroupCompote    ComponentGroup = "compote"
	ComponentGroupSides      ComponentGroup = "sides"
)

// ComponentGroups 按声明顺序列出所有类别。
// 免费配菜的抵扣顺序依赖这个顺序，不要调整。
var ComponentGroups = []ComponentGroup{
	ComponentGroupMainDish,
	ComponentGroupDessert,
	ComponentGroupDiabetic,
	ComponentGroupFruitSalad,
	ComponentGroupGreenSalad,
	ComponentGroupPudding,
	ComponentGroupCompote,
	ComponentGroupSides,
}

var componentGroupLabels = map[ComponentGroup]string{
	ComponentGroupMainDish:   "Main Dish",
	ComponentGroupDessert:    "Dessert",
	ComponentGroupDiabetic:   "Diabetic",
	ComponentGroupFruitSalad: "Fruit Salad",
	ComponentGroupGreenSalad: "Green Salad",
	ComponentGroupPudding:    "Pudding",
	ComponentGroupCompote:    "Compote",
	ComponentGroupSides:      "Sides",
}

// Label 返回类别的显示名称。
func (g ComponentGroup) Label() string {
	if label, ok := componentGroupLabels[g]; ok {
		return label
	}
	return string(g)
}

// Valid 判断类别是否为已知值。
func (g ComponentGroup) Valid() bool {
	_, ok := componentGroupLabels[g]
	return ok
}

// MealSize 主菜份量，空字符串表示未设置。
type MealSize string

const (
	MealSizeRegular MealSize = "R"
	MealSizeLarge   MealSize = "L"
)

// RateType 客户的计价类型。
type RateType string

const (
	RateTypeDefault   RateType = "default"
	RateTypeLowIncome RateType = "low income"
	RateTypeSolidary  RateType = "solidary"
)

// OrderStatus 订单状态。
type OrderStatus string

const (
	OrderStatusOrdered   OrderStatus = "O"
	OrderStatusDelivered OrderStatus = "D"
	OrderStatusNoCharge  OrderStatus = "N"
	OrderStatusCancelled OrderStatus = "C"
	OrderStatusBilled    OrderStatus = "B"
	OrderStatusPaid      OrderStatus = "P"
)

// Valid 判断订单状态是否为已知值。
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOrdered, OrderStatusDelivered, OrderStatusNoCharge,
		OrderStatusCancelled, OrderStatusBilled, OrderStatusPaid:
		return true
	}
	return false
}

// OrderItemType 订单行的类型。
type OrderItemType string

const (
	OrderItemTypeComponent OrderItemType = "meal_component"
	OrderItemTypeDelivery  OrderItemType = "delivery"
	OrderItemTypePickup    OrderItemType = "pickup"
	OrderItemTypeVisit     OrderItemType = "visit"
)

// ExtraOrderItemTypes 为非餐品类的订单行类型。
var ExtraOrderItemTypes = []OrderItemType{
	OrderItemTypeDelivery,
	OrderItemTypePickup,
	OrderItemTypeVisit,
}

// ClientStatus 客户状态，沿用旧系统的单字符编码。
type ClientStatus string

const (
	ClientStatusPending       ClientStatus = "D"
	ClientStatusActive        ClientStatus = "A"
	ClientStatusPaused        ClientStatus = "S"
	ClientStatusStopNoContact ClientStatus = "N"
	ClientStatusStopContact   ClientStatus = "C"
	ClientStatusDeceased      ClientStatus = "I"
)

var clientStatusLabels = map[ClientStatus]string{
	ClientStatusPending:       "Pending",
	ClientStatusActive:        "Active",
	ClientStatusPaused:        "Paused",
	ClientStatusStopNoContact: "Stop: no contact",
	ClientStatusStopContact:   "Stop: contact",
	ClientStatusDeceased:      "Deceased",
}

// Label 返回状态的显示名称。
func (s ClientStatus) Label() string {
	if label, ok := clientStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Valid 判断客户状态是否为已知值。
func (s ClientStatus) Valid() bool {
	_, ok := clientStatusLabels[s]
	return ok
}

// DeliveryType 配送类型：长期或临时。
type DeliveryType string

const (
	DeliveryTypeOngoing  DeliveryType = "O"
	DeliveryTypeEpisodic DeliveryType = "E"
)

const (
	VehicleCycling = "cycling"
	VehicleWalking = "walking"
	VehicleDriving = "driving"

	DefaultVehicle = VehicleCycling
)

// ValidVehicle 判断交通方式是否受支持。
func ValidVehicle(vehicle string) bool {
	switch vehicle {
	case VehicleCycling, VehicleWalking, VehicleDriving:
		return true
	}
	return false
}
