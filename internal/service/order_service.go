package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/souschef/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidOrderRequest 订单数量或份量不合法
	ErrInvalidOrderRequest = errors.New("invalid order request")
	// ErrInvalidOrderStatus 订单状态不是已知值
	ErrInvalidOrderStatus = errors.New("invalid order status")
	// ErrOrderStatusMismatch 状态变更的起始状态与订单当前状态不一致
	ErrOrderStatusMismatch = errors.New("order status does not match change origin")
)

// OrderRequest 一天的订餐请求：各类餐品数量、主菜份量与附加服务
type OrderRequest struct {
	Quantities map[db.ComponentGroup]int
	Size       db.MealSize
	Extras     []db.OrderItemType
	// MainDishNotCharged 主菜照常配送但不计费，配菜规则不变
	MainDishNotCharged bool
}

// Quantity 返回某类餐品的数量
func (r OrderRequest) Quantity(group db.ComponentGroup) int {
	if r.Quantities == nil {
		return 0
	}
	return r.Quantities[group]
}

// IsEmpty 所有类别数量都为 0
func (r OrderRequest) IsEmpty() bool {
	for _, qty := range r.Quantities {
		if qty > 0 {
			return false
		}
	}
	return true
}

// Validate 检查数量非负、主菜带份量、附加服务类型合法
func (r OrderRequest) Validate() error {
	for group, qty := range r.Quantities {
		if !group.Valid() {
			return fmt.Errorf("%w: unknown component group %q", ErrInvalidOrderRequest, group)
		}
		if qty < 0 {
			return fmt.Errorf("%w: negative quantity for %s", ErrInvalidOrderRequest, group)
		}
	}
	if r.Quantity(db.ComponentGroupMainDish) > 0 && r.Size != db.MealSizeRegular && r.Size != db.MealSizeLarge {
		return fmt.Errorf("%w: main dish requires a size", ErrInvalidOrderRequest)
	}
	for _, extra := range r.Extras {
		switch extra {
		case db.OrderItemTypeDelivery, db.OrderItemTypePickup, db.OrderItemTypeVisit:
		default:
			return fmt.Errorf("%w: unknown extra %q", ErrInvalidOrderRequest, extra)
		}
	}
	return nil
}

// OrderFilter 订单列表过滤条件
type OrderFilter struct {
	Status       db.OrderStatus
	ClientID     uint
	DeliveryDate *time.Time
}

// OrderService 负责订单的创建、查询与状态维护
type OrderService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderService 构造 OrderService
func NewOrderService(gdb *gorm.DB, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{db: gdb, logger: logger}
}

// BuildOrderItems 按价格规则把请求拆成订单行。
// 每份主菜附带一份免费配菜，按 db.ComponentGroups 的声明顺序依次抵扣，剩余部分计费。
func BuildOrderItems(req OrderRequest, prices Prices) []db.OrderItem {
	var items []db.OrderItem

	mainQty := req.Quantity(db.ComponentGroupMainDish)
	if mainQty > 0 {
		price := prices.Main.Mul(decimal.NewFromInt(int64(mainQty)))
		if req.Size == db.MealSizeLarge {
			price = price.Add(prices.Side.Mul(decimal.NewFromInt(int64(mainQty))))
		}
		items = append(items, db.OrderItem{
			ComponentGroup: db.ComponentGroupMainDish,
			Price:          price,
			BillableFlag:   !req.MainDishNotCharged,
			Size:           req.Size,
			OrderItemType:  db.OrderItemTypeComponent,
			TotalQuantity:  mainQty,
		})
	}

	free := mainQty
	for _, group := range db.ComponentGroups {
		if group == db.ComponentGroupMainDish || group == db.ComponentGroupSides {
			continue
		}
		qty := req.Quantity(group)
		if qty <= 0 {
			continue
		}

		deduct := min(free, qty)
		if deduct > 0 {
			free -= deduct
			items = append(items, db.OrderItem{
				ComponentGroup: group,
				Price:          prices.Side.Mul(decimal.NewFromInt(int64(deduct))),
				BillableFlag:   false,
				OrderItemType:  db.OrderItemTypeComponent,
				TotalQuantity:  deduct,
			})
		}

		if rest := qty - deduct; rest > 0 {
			items = append(items, db.OrderItem{
				ComponentGroup: group,
				Price:          prices.Side.Mul(decimal.NewFromInt(int64(rest))),
				BillableFlag:   true,
				OrderItemType:  db.OrderItemTypeComponent,
				TotalQuantity:  rest,
			})
		}
	}

	for _, extra := range req.Extras {
		items = append(items, db.OrderItem{
			Price:         decimal.Zero,
			BillableFlag:  false,
			OrderItemType: extra,
			TotalQuantity: 1,
		})
	}

	return items
}

// CreateOrder 在一个事务内创建订单及其订单行
func (s *OrderService) CreateOrder(date time.Time, client db.Client, req OrderRequest, prices Prices) (*db.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var order *db.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		created, err := createOrderTx(tx, date, client.ID, req, prices)
		order = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func createOrderTx(tx *gorm.DB, date time.Time, clientID uint, req OrderRequest, prices Prices) (*db.Order, error) {
	order := db.Order{
		ClientID:     clientID,
		CreationDate: time.Now().UTC(),
		DeliveryDate: Day(date),
		Status:       db.OrderStatusOrdered,
		Items:        BuildOrderItems(req, prices),
	}
	if err := tx.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// DefaultRequestFor 根据客户每周默认设置生成某天的订餐请求。
// 第二个返回值表示客户在这一天是否安排配送。
func DefaultRequestFor(client db.Client, weekday time.Weekday) (OrderRequest, bool) {
	req := OrderRequest{Quantities: map[db.ComponentGroup]int{}}
	scheduled := false
	for _, sched := range client.DaySchedules {
		if sched.Weekday == weekday {
			scheduled = sched.Scheduled
			req.Size = sched.Size
		}
	}
	for _, def := range client.MealDefaults {
		if def.Weekday != weekday || def.Quantity == nil {
			continue
		}
		req.Quantities[def.ComponentGroup] = *def.Quantity
	}
	return req, scheduled
}

func isCancelledOn(client db.Client, date time.Time) bool {
	day := Day(date)
	for _, cancelled := range client.CancelledDays {
		if Day(cancelled.CancelDate).Equal(day) {
			return true
		}
	}
	return false
}

// AutoCreateOrders 按客户的每周默认设置生成某一天的订单。
// 已有订单的客户直接返回已有订单；同一天重复调用不会创建第二份订单。
func (s *OrderService) AutoCreateOrders(date time.Time, clients []db.Client) ([]db.Order, error) {
	day := Day(date)
	start, end := dayRange(day)
	var created []db.Order

	for _, client := range clients {
		if isCancelledOn(client, day) {
			continue
		}

		var existing db.Order
		err := s.db.Where("client_id = ? AND delivery_date >= ? AND delivery_date < ?", client.ID, start, end).
			First(&existing).Error
		if err == nil {
			created = append(created, existing)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lookup order: %w", err)
		}

		if client.DeliveryType == db.DeliveryTypeEpisodic {
			continue
		}
		req, scheduled := DefaultRequestFor(client, day.Weekday())
		if !scheduled || req.IsEmpty() {
			continue
		}

		prices, err := ClientPrices(client.RateType)
		if err != nil {
			return nil, fmt.Errorf("client %d: %w", client.ID, err)
		}
		order, err := s.CreateOrder(day, client, req, prices)
		if err != nil {
			if errors.Is(err, ErrInvalidOrderRequest) {
				s.logger.Warn("skip client with invalid defaults",
					zap.Uint("client_id", client.ID), zap.Error(err))
				continue
			}
			return nil, err
		}
		created = append(created, *order)
	}

	s.logger.Info("orders generated",
		zap.String("delivery_date", day.Format(DateLayout)),
		zap.Int("count", len(created)))
	return created, nil
}

// BatchDay 批量下单中的一天
type BatchDay struct {
	Date    time.Time
	Request OrderRequest
}

// CreateBatchOrders 为一个客户批量创建多天的订单。
// 已存在订单的日期默认跳过；出现在 overrideDates 中时取消旧订单并重新创建。
// 所有日期先校验，再在同一个事务内写入。
func (s *OrderService) CreateBatchOrders(client db.Client, days []BatchDay, overrideDates []time.Time) ([]db.Order, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: no delivery dates", ErrInvalidOrderRequest)
	}
	for _, day := range days {
		if err := day.Request.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", Day(day.Date).Format(DateLayout), err)
		}
	}
	prices, err := ClientPrices(client.RateType)
	if err != nil {
		return nil, err
	}

	override := make(map[time.Time]bool, len(overrideDates))
	for _, d := range overrideDates {
		override[Day(d)] = true
	}

	var created []db.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, day := range days {
			date := Day(day.Date)
			start, end := dayRange(date)

			var existing []db.Order
			if err := tx.Where("client_id = ? AND delivery_date >= ? AND delivery_date < ? AND status <> ?",
				client.ID, start, end, db.OrderStatusCancelled).Find(&existing).Error; err != nil {
				return fmt.Errorf("lookup orders: %w", err)
			}
			if len(existing) > 0 {
				if !override[date] {
					continue
				}
				for _, old := range existing {
					if err := changeStatusTx(tx, old, db.OrderStatusCancelled, "replaced by batch order"); err != nil {
						return err
					}
				}
			}

			order, err := createOrderTx(tx, date, client.ID, day.Request, prices)
			if err != nil {
				return err
			}
			created = append(created, *order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get 根据 ID 获取订单及订单行
func (s *OrderService) Get(id uint) (*db.Order, error) {
	var order db.Order
	if err := s.db.Preload("Items").Preload("Client").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// List 返回订单列表，按配送日期倒序
func (s *OrderService) List(filter OrderFilter) ([]db.Order, error) {
	query := s.db.Model(&db.Order{}).Preload("Items").Preload("Client")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.DeliveryDate != nil {
		start, end := dayRange(*filter.DeliveryDate)
		query = query.Where("delivery_date >= ? AND delivery_date < ?", start, end)
	}

	var orders []db.Order
	if err := query.Order("delivery_date DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ShippableOrders 某天待配送的订单：状态为 O 且客户处于活跃状态
func (s *OrderService) ShippableOrders(date time.Time, routeID *uint, excludeNonGeolocalized bool) ([]db.Order, error) {
	start, end := dayRange(date)
	query := s.db.Model(&db.Order{}).
		Joins("JOIN clients ON clients.id = orders.client_id AND clients.deleted_at IS NULL").
		Where("orders.status = ? AND orders.delivery_date >= ? AND orders.delivery_date < ?", db.OrderStatusOrdered, start, end).
		Where("clients.status = ?", db.ClientStatusActive)
	if routeID != nil {
		query = query.Where("clients.route_id = ?", *routeID)
	}
	if excludeNonGeolocalized {
		query = query.Where("clients.latitude IS NOT NULL AND clients.longitude IS NOT NULL")
	}

	var orders []db.Order
	if err := query.Preload("Client").Preload("Items").Order("orders.id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list shippable orders: %w", err)
	}
	return orders, nil
}

// BillableOrders 某个月份已送达的订单
func (s *OrderService) BillableOrders(year, month int) ([]db.Order, error) {
	start, end := monthRange(year, month)
	var orders []db.Order
	if err := s.db.Preload("Items").Preload("Client").
		Where("status = ? AND delivery_date >= ? AND delivery_date < ?", db.OrderStatusDelivered, start, end).
		Order("delivery_date, id").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list billable orders: %w", err)
	}
	return orders, nil
}

// ChangeStatus 记录一次状态变更并更新订单
func (s *OrderService) ChangeStatus(orderID uint, to db.OrderStatus, reason string) (*db.Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	var order db.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		if err := changeStatusTx(tx, order, to, reason); err != nil {
			return err
		}
		order.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func changeStatusTx(tx *gorm.DB, order db.Order, to db.OrderStatus, reason string) error {
	change := db.OrderStatusChange{
		OrderID:    order.ID,
		StatusFrom: order.Status,
		StatusTo:   to,
		Reason:     reason,
		ChangeTime: time.Now().UTC(),
	}
	res := tx.Model(&db.Order{}).
		Where("id = ? AND status = ?", order.ID, change.StatusFrom).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderStatusMismatch
	}
	if err := tx.Create(&change).Error; err != nil {
		return fmt.Errorf("create status change: %w", err)
	}
	return nil
}

// UpdateStatuses 批量修改订单状态，返回更新条数
func (s *OrderService) UpdateStatuses(ids []uint, status db.OrderStatus) (int64, error) {
	if !status.Valid() {
		return 0, ErrInvalidOrderStatus
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.Model(&db.Order{}).Where("id IN ?", ids).Update("status", status)
	if res.Error != nil {
		return 0, fmt.Errorf("update order statuses: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SetDelivered 把某天所有已下单的订单标记为已送达
func (s *OrderService) SetDelivered(date time.Time) (int64, error) {
	start, end := dayRange(date)
	res := s.db.Model(&db.Order{}).
		Where("status = ? AND delivery_date >= ? AND delivery_date < ?", db.OrderStatusOrdered, start, end).
		Update("status", db.OrderStatusDelivered)
	if res.Error != nil {
		return 0, fmt.Errorf("set orders delivered: %w", res.Error)
	}
	s.logger.Info("orders delivered",
		zap.String("delivery_date", Day(date).Format(DateLayout)),
		zap.Int64("count", res.RowsAffected))
	return res.RowsAffected, nil
}
