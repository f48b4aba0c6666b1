package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/souschef/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrRouteNotFound 路线不存在
	ErrRouteNotFound = errors.New("route not found")
	// ErrInvalidRoute 路线名称或交通方式不合法
	ErrInvalidRoute = errors.New("invalid route")
	// ErrNoShippableClients 路线当天没有可配送的客户
	ErrNoShippableClients = errors.New("no shippable clients on route")
	// ErrDeliveryHistoryNotFound 路线当天尚未整理
	ErrDeliveryHistoryNotFound = errors.New("delivery history not found")
	// ErrRoutesNotOrganized 仍有路线未整理或整理已过期
	ErrRoutesNotOrganized = errors.New("some routes are not organized")
)

// 路线整理状态
const (
	OrganizeStateYes     = "yes"
	OrganizeStateNo      = "no"
	OrganizeStateInvalid = "invalid"
)

// RouteStatus 某条路线在某天的订单数与整理状态
type RouteStatus struct {
	Route         db.Route
	OrderCount    int
	OrganizeState string
	History       *db.DeliveryHistory
}

// RouteOverview 某天全部路线的状态
type RouteOverview struct {
	Date          time.Time
	Routes        []RouteStatus
	AllConfigured bool
}

// RouteInput 新建或修改路线的字段
type RouteInput struct {
	Name        string
	Description string
	Vehicle     string
}

// DeliveryHistoryInput 保存路线整理结果
type DeliveryHistoryInput struct {
	Vehicle  string
	Sequence []uint
	Comments string
}

// RouteSheet 一条路线的路线单
type RouteSheet struct {
	Route    db.Route
	Date     time.Time
	Vehicle  string
	Comments string
	Summary  []RouteSummaryLine
	Details  []DeliveryClient
}

// RouteService 负责路线、每日配送顺序与路线单
type RouteService struct {
	db     *gorm.DB
	orders *OrderService
	logger *zap.Logger
}

// NewRouteService 构造 RouteService
func NewRouteService(gdb *gorm.DB, orders *OrderService, logger *zap.Logger) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if orders == nil {
		orders = NewOrderService(gdb, logger)
	}
	return &RouteService{db: gdb, orders: orders, logger: logger}
}

// List 按名称返回全部路线
func (s *RouteService) List() ([]db.Route, error) {
	var routes []db.Route
	if err := s.db.Order("name").Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// Get 根据 ID 获取路线
func (s *RouteService) Get(id uint) (*db.Route, error) {
	var route db.Route
	if err := s.db.First(&route, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteNotFound
		}
		return nil, fmt.Errorf("get route: %w", err)
	}
	return &route, nil
}

func normalizeRouteInput(input RouteInput) (RouteInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Vehicle = strings.TrimSpace(input.Vehicle)
	if input.Vehicle == "" {
		input.Vehicle = db.DefaultVehicle
	}
	if input.Name == "" {
		return input, fmt.Errorf("%w: empty name", ErrInvalidRoute)
	}
	if !db.ValidVehicle(input.Vehicle) {
		return input, fmt.Errorf("%w: unknown vehicle %q", ErrInvalidRoute, input.Vehicle)
	}
	return input, nil
}

// Create 新建路线
func (s *RouteService) Create(input RouteInput) (*db.Route, error) {
	input, err := normalizeRouteInput(input)
	if err != nil {
		return nil, err
	}
	route := db.Route{Name: input.Name, Description: input.Description, Vehicle: input.Vehicle}
	if err := s.db.Create(&route).Error; err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}
	return &route, nil
}

// Update 修改路线
func (s *RouteService) Update(id uint, input RouteInput) (*db.Route, error) {
	input, err := normalizeRouteInput(input)
	if err != nil {
		return nil, err
	}
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	route.Name = input.Name
	route.Description = input.Description
	route.Vehicle = input.Vehicle
	if err := s.db.Save(route).Error; err != nil {
		return nil, fmt.Errorf("update route: %w", err)
	}
	return route, nil
}

func (s *RouteService) findHistory(routeID uint, date time.Time) (*db.DeliveryHistory, error) {
	start, end := dayRange(date)
	var history db.DeliveryHistory
	err := s.db.Preload("Route").
		Where("route_id = ? AND date >= ? AND date < ?", routeID, start, end).
		First(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeliveryHistoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery history: %w", err)
	}
	return &history, nil
}

func (s *RouteService) shippableClientIDs(routeID uint, date time.Time) ([]uint, error) {
	orders, err := s.orders.ShippableOrders(date, &routeID, true)
	if err != nil {
		return nil, err
	}
	seen := map[uint]bool{}
	var ids []uint
	for _, o := range orders {
		if !seen[o.ClientID] {
			seen[o.ClientID] = true
			ids = append(ids, o.ClientID)
		}
	}
	return ids, nil
}

// OrganizeState 比较保存的顺序与当前可配送客户集合
func OrganizeState(history *db.DeliveryHistory, clientIDs []uint) string {
	if history == nil {
		return OrganizeStateNo
	}
	if len(history.ClientIDSequence) > 0 && history.Sequence() == nil && string(history.ClientIDSequence) != "null" {
		return OrganizeStateInvalid
	}
	saved := map[uint]bool{}
	for _, id := range history.Sequence() {
		saved[id] = true
	}
	current := map[uint]bool{}
	for _, id := range clientIDs {
		current[id] = true
	}
	if len(saved) != len(current) {
		return OrganizeStateInvalid
	}
	for id := range current {
		if !saved[id] {
			return OrganizeStateInvalid
		}
	}
	return OrganizeStateYes
}

// Overview 返回某天每条路线的订单数与整理状态
func (s *RouteService) Overview(date time.Time) (*RouteOverview, error) {
	routes, err := s.List()
	if err != nil {
		return nil, err
	}
	overview := &RouteOverview{Date: Day(date), AllConfigured: true}
	for _, route := range routes {
		ids, err := s.shippableClientIDs(route.ID, date)
		if err != nil {
			return nil, err
		}
		history, err := s.findHistory(route.ID, date)
		if err != nil && !errors.Is(err, ErrDeliveryHistoryNotFound) {
			return nil, err
		}
		status := RouteStatus{
			Route:         route,
			OrderCount:    len(ids),
			OrganizeState: OrganizeState(history, ids),
			History:       history,
		}
		if status.OrderCount > 0 && status.OrganizeState != OrganizeStateYes {
			overview.AllConfigured = false
		}
		overview.Routes = append(overview.Routes, status)
	}
	return overview, nil
}

// Organize 为路线当天创建配送记录，已存在时直接返回
func (s *RouteService) Organize(routeID uint, date time.Time) (*db.DeliveryHistory, error) {
	route, err := s.Get(routeID)
	if err != nil {
		return nil, err
	}
	ids, err := s.shippableClientIDs(routeID, date)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoShippableClients
	}

	history, err := s.findHistory(routeID, date)
	if err == nil {
		return history, nil
	}
	if !errors.Is(err, ErrDeliveryHistoryNotFound) {
		return nil, err
	}

	created := db.DeliveryHistory{RouteID: route.ID, Date: Day(date), Vehicle: route.Vehicle}
	if err := created.SetSequence(nil); err != nil {
		return nil, err
	}
	if err := s.db.Create(&created).Error; err != nil {
		return nil, fmt.Errorf("create delivery history: %w", err)
	}
	created.Route = *route
	s.logger.Info("route organized",
		zap.String("route", route.Name),
		zap.String("delivery_date", Day(date).Format(DateLayout)))
	return &created, nil
}

// History 返回路线当天的配送记录，以及按保存顺序排列的可配送客户
func (s *RouteService) History(routeID uint, date time.Time) (*db.DeliveryHistory, []DeliveryClient, error) {
	history, err := s.findHistory(routeID, date)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.DeliveryList(date, routeID)
	if err != nil {
		return nil, nil, err
	}
	return history, SortBySequence(list, history.Sequence()), nil
}

// UpdateHistory 保存交通方式、客户顺序与备注
func (s *RouteService) UpdateHistory(routeID uint, date time.Time, input DeliveryHistoryInput) (*db.DeliveryHistory, error) {
	history, err := s.findHistory(routeID, date)
	if err != nil {
		return nil, err
	}
	vehicle := strings.TrimSpace(input.Vehicle)
	if vehicle == "" {
		vehicle = history.Vehicle
	}
	if !db.ValidVehicle(vehicle) {
		return nil, fmt.Errorf("%w: unknown vehicle %q", ErrInvalidRoute, vehicle)
	}
	history.Vehicle = vehicle
	history.Comments = strings.TrimSpace(input.Comments)
	if err := history.SetSequence(input.Sequence); err != nil {
		return nil, err
	}
	if err := s.db.Model(history).Select("vehicle", "comments", "client_id_sequence").Updates(history).Error; err != nil {
		return nil, fmt.Errorf("update delivery history: %w", err)
	}
	return history, nil
}

// DeliveryList 路线当天的配送清单（按客户 ID 排序，未定位客户除外）
func (s *RouteService) DeliveryList(date time.Time, routeID uint) ([]DeliveryClient, error) {
	start, end := dayRange(date)
	var orders []db.Order
	if err := s.db.Model(&db.Order{}).
		Joins("JOIN clients ON clients.id = orders.client_id AND clients.deleted_at IS NULL").
		Where("orders.delivery_date >= ? AND orders.delivery_date < ? AND orders.status <> ?", start, end, db.OrderStatusCancelled).
		Where("clients.route_id = ?", routeID).
		Preload("Client").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Order("orders.client_id, orders.id").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("load delivery list: %w", err)
	}
	return MakeDeliveryList(orders), nil
}

// RouteSheet 生成路线单，要求路线当天已整理
func (s *RouteService) RouteSheet(routeID uint, date time.Time) (*RouteSheet, error) {
	history, list, err := s.History(routeID, date)
	if err != nil {
		return nil, err
	}
	summary, details := MakeRouteSheetLines(list)
	return &RouteSheet{
		Route:    history.Route,
		Date:     Day(date),
		Vehicle:  history.Vehicle,
		Comments: history.Comments,
		Summary:  summary,
		Details:  details,
	}, nil
}

// RouteSheets 返回当天所有已整理路线的路线单；存在未整理的路线时拒绝
func (s *RouteService) RouteSheets(date time.Time) ([]RouteSheet, error) {
	overview, err := s.Overview(date)
	if err != nil {
		return nil, err
	}
	if !overview.AllConfigured {
		return nil, ErrRoutesNotOrganized
	}
	var sheets []RouteSheet
	for _, status := range overview.Routes {
		if status.History == nil {
			continue
		}
		sheet, err := s.RouteSheet(status.Route.ID, date)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, *sheet)
	}
	return sheets, nil
}
