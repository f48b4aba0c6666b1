package service

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/souschef/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrClientNotFound 客户不存在
	ErrClientNotFound = errors.New("client not found")
	// ErrInvalidClient 客户资料不完整或取值非法
	ErrInvalidClient = errors.New("invalid client")
)

// ClientInput 新建或修改客户的基本资料
type ClientInput struct {
	FirstName        string
	LastName         string
	BillingEmail     string
	Phone            string
	AddressNumber    string
	AddressStreet    string
	AddressApartment string
	Latitude         *float64
	Longitude        *float64
	DeliveryNote     string
	Status           db.ClientStatus
	DeliveryType     db.DeliveryType
	RateType         db.RateType
	RouteID          *uint
}

// ClientFilter 客户列表过滤条件。Name 按空格拆分，任一词命中姓或名即可
type ClientFilter struct {
	Name         string
	Statuses     []db.ClientStatus
	DeliveryType db.DeliveryType
	RouteID      *uint
}

// DaySchedule 客户某个星期几的默认订餐
type DaySchedule struct {
	Weekday    time.Weekday
	Scheduled  bool
	Size       db.MealSize
	Quantities map[db.ComponentGroup]int
}

// DietaryInput 客户的饮食限制，每项都整体替换
type DietaryInput struct {
	AvoidIngredientIDs []uint
	AvoidComponentIDs  []uint
	RestrictedItemIDs  []uint
	PreparationIDs     []uint
}

// ClientService 管理客户资料、每周默认订餐与饮食限制
type ClientService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewClientService 构造 ClientService
func NewClientService(gdb *gorm.DB, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{db: gdb, logger: logger}
}

func normalizeClientInput(input ClientInput) (ClientInput, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.BillingEmail = strings.TrimSpace(input.BillingEmail)
	input.Phone = strings.TrimSpace(input.Phone)
	input.AddressNumber = strings.TrimSpace(input.AddressNumber)
	input.AddressStreet = strings.TrimSpace(input.AddressStreet)
	input.AddressApartment = strings.TrimSpace(input.AddressApartment)
	input.DeliveryNote = strings.TrimSpace(input.DeliveryNote)

	if input.FirstName == "" || input.LastName == "" {
		return input, fmt.Errorf("%w: first and last name are required", ErrInvalidClient)
	}
	if input.BillingEmail != "" {
		if _, err := mail.ParseAddress(input.BillingEmail); err != nil {
			return input, fmt.Errorf("%w: billing email %q", ErrInvalidClient, input.BillingEmail)
		}
	}
	if input.Status == "" {
		input.Status = db.ClientStatusPending
	}
	if !input.Status.Valid() {
		return input, fmt.Errorf("%w: unknown status %q", ErrInvalidClient, input.Status)
	}
	if input.DeliveryType == "" {
		input.DeliveryType = db.DeliveryTypeOngoing
	}
	if input.DeliveryType != db.DeliveryTypeOngoing && input.DeliveryType != db.DeliveryTypeEpisodic {
		return input, fmt.Errorf("%w: unknown delivery type %q", ErrInvalidClient, input.DeliveryType)
	}
	if input.RateType == "" {
		input.RateType = db.RateTypeDefault
	}
	if _, err := ClientPrices(input.RateType); err != nil {
		return input, fmt.Errorf("%w: %v", ErrInvalidClient, err)
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return input, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidClient)
	}
	return input, nil
}

func applyClientInput(client *db.Client, input ClientInput) {
	client.FirstName = input.FirstName
	client.LastName = input.LastName
	client.BillingEmail = input.BillingEmail
	client.Phone = input.Phone
	client.AddressNumber = input.AddressNumber
	client.AddressStreet = input.AddressStreet
	client.AddressApartment = input.AddressApartment
	client.Latitude = input.Latitude
	client.Longitude = input.Longitude
	client.DeliveryNote = input.DeliveryNote
	client.Status = input.Status
	client.DeliveryType = input.DeliveryType
	client.RateType = input.RateType
	client.RouteID = input.RouteID
}

// Create 新建客户
func (s *ClientService) Create(input ClientInput) (*db.Client, error) {
	input, err := normalizeClientInput(input)
	if err != nil {
		return nil, err
	}
	var client db.Client
	applyClientInput(&client, input)
	if err := s.db.Create(&client).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	s.logger.Info("client created", zap.Uint("client_id", client.ID))
	return &client, nil
}

// Update 修改客户基本资料，状态变更请使用计划状态变更
func (s *ClientService) Update(id uint, input ClientInput) (*db.Client, error) {
	input, err := normalizeClientInput(input)
	if err != nil {
		return nil, err
	}
	var client db.Client
	if err := s.db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	applyClientInput(&client, input)
	if err := s.db.Save(&client).Error; err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return &client, nil
}

// Get 获取客户及全部关联资料
func (s *ClientService) Get(id uint) (*db.Client, error) {
	var client db.Client
	err := s.db.
		Preload("Route").
		Preload("AvoidIngredients").
		Preload("AvoidComponents").
		Preload("Restrictions").
		Preload("Preparations").
		Preload("MealDefaults").
		Preload("DaySchedules").
		Preload("CancelledDays").
		First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &client, nil
}

// List 按姓、名排序返回客户
func (s *ClientService) List(filter ClientFilter) ([]db.Client, error) {
	query := s.db.Model(&db.Client{}).Preload("Route")
	if words := strings.Fields(filter.Name); len(words) > 0 {
		cond := s.db.Where("1 = 0")
		for _, w := range words {
			like := "%" + strings.ToLower(w) + "%"
			cond = cond.Or("LOWER(first_name) LIKE ?", like).Or("LOWER(last_name) LIKE ?", like)
		}
		query = query.Where(cond)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.DeliveryType != "" {
		query = query.Where("delivery_type = ?", filter.DeliveryType)
	}
	if filter.RouteID != nil {
		query = query.Where("route_id = ?", *filter.RouteID)
	}
	var clients []db.Client
	if err := query.Order("last_name, first_name, id").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// OrderingClients 返回生成订单所需的客户（含每周默认与取消日期）
func (s *ClientService) OrderingClients(ids []uint) ([]db.Client, error) {
	query := s.db.Preload("MealDefaults").Preload("DaySchedules").Preload("CancelledDays")
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	var clients []db.Client
	if err := query.Order("id").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("load ordering clients: %w", err)
	}
	return clients, nil
}

// SetWeeklySchedule 整体替换客户的每周默认订餐
func (s *ClientService) SetWeeklySchedule(clientID uint, days []DaySchedule) error {
	seen := map[time.Weekday]bool{}
	for _, day := range days {
		if day.Weekday < time.Sunday || day.Weekday > time.Saturday || seen[day.Weekday] {
			return fmt.Errorf("%w: weekday %d", ErrInvalidClient, day.Weekday)
		}
		seen[day.Weekday] = true
		req := OrderRequest{Quantities: day.Quantities, Size: day.Size}
		if day.Scheduled {
			if err := req.Validate(); err != nil {
				return fmt.Errorf("%s: %w", day.Weekday, err)
			}
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&db.Client{}, clientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("get client: %w", err)
		}
		if err := tx.Unscoped().Where("client_id = ?", clientID).Delete(&db.ClientDaySchedule{}).Error; err != nil {
			return fmt.Errorf("clear day schedules: %w", err)
		}
		if err := tx.Unscoped().Where("client_id = ?", clientID).Delete(&db.ClientMealDefault{}).Error; err != nil {
			return fmt.Errorf("clear meal defaults: %w", err)
		}
		for _, day := range days {
			sched := db.ClientDaySchedule{ClientID: clientID, Weekday: day.Weekday, Scheduled: day.Scheduled, Size: day.Size}
			if err := tx.Create(&sched).Error; err != nil {
				return fmt.Errorf("create day schedule: %w", err)
			}
			for _, group := range db.ComponentGroups {
				qty, ok := day.Quantities[group]
				if !ok {
					continue
				}
				def := db.ClientMealDefault{ClientID: clientID, Weekday: day.Weekday, ComponentGroup: group, Quantity: &qty}
				if err := tx.Create(&def).Error; err != nil {
					return fmt.Errorf("create meal default: %w", err)
				}
			}
		}
		return nil
	})
}

// SetDietary 替换客户的忌口食材、忌口餐品、饮食限制与特殊处理方式
func (s *ClientService) SetDietary(clientID uint, input DietaryInput) (*db.Client, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var client db.Client
		if err := tx.First(&client, clientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("get client: %w", err)
		}

		var ingredients []db.Ingredient
		if err := findAll(tx, input.AvoidIngredientIDs, &ingredients); err != nil {
			return err
		}
		var components []db.Component
		if err := findAll(tx, input.AvoidComponentIDs, &components); err != nil {
			return err
		}
		var restrictions []db.RestrictedItem
		if err := findAll(tx, input.RestrictedItemIDs, &restrictions); err != nil {
			return err
		}
		var preparations []db.FoodPreparation
		if err := findAll(tx, input.PreparationIDs, &preparations); err != nil {
			return err
		}

		if err := tx.Model(&client).Association("AvoidIngredients").Replace(ingredients); err != nil {
			return fmt.Errorf("replace avoid ingredients: %w", err)
		}
		if err := tx.Model(&client).Association("AvoidComponents").Replace(components); err != nil {
			return fmt.Errorf("replace avoid components: %w", err)
		}
		if err := tx.Model(&client).Association("Restrictions").Replace(restrictions); err != nil {
			return fmt.Errorf("replace restrictions: %w", err)
		}
		if err := tx.Model(&client).Association("Preparations").Replace(preparations); err != nil {
			return fmt.Errorf("replace preparations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(clientID)
}

// findAll 按 ID 查询记录，任一 ID 不存在即报错
func findAll[T any](tx *gorm.DB, ids []uint, out *[]T) error {
	if len(ids) == 0 {
		*out = []T{}
		return nil
	}
	if err := tx.Where("id IN ?", ids).Find(out).Error; err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	unique := map[uint]bool{}
	for _, id := range ids {
		unique[id] = true
	}
	if len(*out) != len(unique) {
		return fmt.Errorf("%w: unknown id in %v", ErrInvalidClient, ids)
	}
	return nil
}

// AddCancelledDates 登记客户不送餐的日期，重复登记忽略
func (s *ClientService) AddCancelledDates(clientID uint, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	rows := make([]db.ClientCancelledDate, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, db.ClientCancelledDate{ClientID: clientID, CancelDate: Day(d)})
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("add cancelled dates: %w", err)
	}
	return nil
}

// RemoveCancelledDate 取消某个不送餐日期
func (s *ClientService) RemoveCancelledDate(clientID uint, date time.Time) error {
	start, end := dayRange(date)
	if err := s.db.Unscoped().
		Where("client_id = ? AND cancel_date >= ? AND cancel_date < ?", clientID, start, end).
		Delete(&db.ClientCancelledDate{}).Error; err != nil {
		return fmt.Errorf("remove cancelled date: %w", err)
	}
	return nil
}
