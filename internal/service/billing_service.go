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
	// ErrBillingExists 该月份已生成账单
	ErrBillingExists = errors.New("billing already exists for period")
	// ErrBillingNotFound 账单不存在
	ErrBillingNotFound = errors.New("billing not found")
	// ErrInvalidPeriod 年月不合法
	ErrInvalidPeriod = errors.New("invalid billing period")
)

// BillingPreview 生成账单前的预览：该月已送达的订单与合计
type BillingPreview struct {
	Year   int
	Month  int
	Orders []db.Order
	Total  decimal.Decimal
}

// ClientBillingSummary 账单中某个客户的汇总
type ClientBillingSummary struct {
	Client              db.Client
	TotalOrders         int
	RegularMainDishes   int
	LargeMainDishes     int
	TotalBillableExtras int
	TotalAmount         decimal.Decimal
}

// BillingSummary 账单汇总
type BillingSummary struct {
	Clients             []ClientBillingSummary
	RegularMainDishes   int
	LargeMainDishes     int
	TotalBillableExtras int
	TotalAmount         decimal.Decimal
	// Warnings 列出主菜未设置份量的订单
	Warnings []string
}

// BillingService 负责月度账单
type BillingService struct {
	db     *gorm.DB
	orders *OrderService
	logger *zap.Logger
}

// NewBillingService 构造 BillingService
func NewBillingService(gdb *gorm.DB, orders *OrderService, logger *zap.Logger) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if orders == nil {
		orders = NewOrderService(gdb, logger)
	}
	return &BillingService{db: gdb, orders: orders, logger: logger}
}

func validatePeriod(year, month int) error {
	if year < 2000 || year > 9999 || month < 1 || month > 12 {
		return fmt.Errorf("%w: %d-%02d", ErrInvalidPeriod, year, month)
	}
	return nil
}

// TotalAmount 订单金额之和
func TotalAmount(orders []db.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Price())
	}
	return total
}

// Preview 返回该月可计费订单，不写入数据库
func (s *BillingService) Preview(year, month int) (*BillingPreview, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	orders, err := s.orders.BillableOrders(year, month)
	if err != nil {
		return nil, err
	}
	return &BillingPreview{Year: year, Month: month, Orders: orders, Total: TotalAmount(orders)}, nil
}

// Create 为某月生成账单：关联该月已送达的订单并缓存总额。
// 订单状态不变。同一月份只能生成一次。
func (s *BillingService) Create(year, month int) (*db.Billing, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	if _, err := s.GetPeriod(year, month); err == nil {
		return nil, ErrBillingExists
	} else if !errors.Is(err, ErrBillingNotFound) {
		return nil, err
	}

	orders, err := s.orders.BillableOrders(year, month)
	if err != nil {
		return nil, err
	}

	billing := db.Billing{
		TotalAmount:  TotalAmount(orders),
		BillingYear:  year,
		BillingMonth: month,
		CreatedDate:  time.Now().UTC(),
		Orders:       orders,
	}
	// 只写入关联表，不回写订单本身
	if err := s.db.Omit("Orders.*").Create(&billing).Error; err != nil {
		return nil, fmt.Errorf("create billing: %w", err)
	}

	s.logger.Info("billing created",
		zap.Uint("billing_id", billing.ID),
		zap.String("period", billing.Period().Format("2006-01")),
		zap.Int("orders", len(orders)),
		zap.String("total", billing.TotalAmount.StringFixed(2)))
	return &billing, nil
}

// GetPeriod 查询某月的账单
func (s *BillingService) GetPeriod(year, month int) (*db.Billing, error) {
	var billing db.Billing
	err := s.db.Where("billing_year = ? AND billing_month = ?", year, month).First(&billing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBillingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get billing period: %w", err)
	}
	return &billing, nil
}

// List 按期间倒序列出账单
func (s *BillingService) List() ([]db.Billing, error) {
	var billings []db.Billing
	if err := s.db.Order("billing_year DESC, billing_month DESC").Find(&billings).Error; err != nil {
		return nil, fmt.Errorf("list billings: %w", err)
	}
	return billings, nil
}

// Get 获取账单以及其订单、订单行与客户
func (s *BillingService) Get(id uint) (*db.Billing, error) {
	var billing db.Billing
	err := s.db.
		Preload("Orders", func(tx *gorm.DB) *gorm.DB { return tx.Order("orders.delivery_date, orders.id") }).
		Preload("Orders.Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Preload("Orders.Client").
		First(&billing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBillingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get billing: %w", err)
	}
	return &billing, nil
}

// Orders 账单中的订单，clientID 为 0 时返回全部
func (s *BillingService) Orders(id, clientID uint) ([]db.Order, decimal.Decimal, error) {
	billing, err := s.Get(id)
	if err != nil {
		return nil, decimal.Zero, err
	}
	var orders []db.Order
	for _, o := range billing.Orders {
		if clientID == 0 || o.ClientID == clientID {
			orders = append(orders, o)
		}
	}
	return orders, TotalAmount(orders), nil
}

// Delete 删除账单，订单本身保留
func (s *BillingService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var billing db.Billing
		if err := tx.First(&billing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBillingNotFound
			}
			return fmt.Errorf("get billing: %w", err)
		}
		if err := tx.Model(&billing).Association("Orders").Clear(); err != nil {
			return fmt.Errorf("detach billing orders: %w", err)
		}
		if err := tx.Unscoped().Delete(&billing).Error; err != nil {
			return fmt.Errorf("delete billing: %w", err)
		}
		return nil
	})
}

// SummarizeBilling 按客户统计主菜份数、计费附加餐品数与金额
func SummarizeBilling(billing db.Billing) BillingSummary {
	summary := BillingSummary{TotalAmount: decimal.Zero}
	for _, co := range GroupByClient(billing.Orders) {
		cs := ClientBillingSummary{
			Client:      co.Client,
			TotalOrders: len(co.Orders),
			TotalAmount: TotalAmount(co.Orders),
		}
		for _, order := range co.Orders {
			for _, item := range order.Items {
				if item.ComponentGroup == db.ComponentGroupMainDish {
					switch item.Size {
					case db.MealSizeRegular:
						cs.RegularMainDishes += item.TotalQuantity
					case db.MealSizeLarge:
						cs.LargeMainDishes += item.TotalQuantity
					default:
						summary.Warnings = append(summary.Warnings, fmt.Sprintf(
							"order #%d (%s %s): main dish without size excluded from totals",
							order.ID, co.Client.FirstName, co.Client.LastName))
					}
				} else if item.BillableFlag {
					cs.TotalBillableExtras += item.TotalQuantity
				}
			}
		}
		summary.RegularMainDishes += cs.RegularMainDishes
		summary.LargeMainDishes += cs.LargeMainDishes
		summary.TotalBillableExtras += cs.TotalBillableExtras
		summary.TotalAmount = summary.TotalAmount.Add(cs.TotalAmount)
		summary.Clients = append(summary.Clients, cs)
	}
	return summary
}

// Summary 加载账单并生成汇总
func (s *BillingService) Summary(id uint) (*db.Billing, BillingSummary, error) {
	billing, err := s.Get(id)
	if err != nil {
		return nil, BillingSummary{}, err
	}
	summary := SummarizeBilling(*billing)
	for _, w := range summary.Warnings {
		s.logger.Warn("billing data quality", zap.Uint("billing_id", id), zap.String("warning", w))
	}
	return billing, summary, nil
}

// Invoice 生成账单的发票行，发票模式与类别取自系统设置
func (s *BillingService) Invoice(id uint, settings InvoiceSettings) (*db.Billing, []InvoiceRow, error) {
	billing, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	rows, warnings := InvoiceRows(*billing, settings)
	for _, w := range warnings {
		s.logger.Warn("billing data quality", zap.Uint("billing_id", id), zap.String("warning", w))
	}
	return billing, rows, nil
}
