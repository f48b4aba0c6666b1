package handler

import (
	"time"

	"github.com/souschef/internal/report"
	"github.com/souschef/internal/service"
	"github.com/souschef/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	clients   *service.ClientService
	orders    *service.OrderService
	menus     *service.MenuService
	kitchen   *service.KitchenService
	routes    *service.RouteService
	billings  *service.BillingService
	notes     *service.NoteService
	scheduled *service.ScheduledStatusService
	system    *service.SystemSettingService
	reports   storage.ReportStore
	header    report.RouteSheetHeader
	logger    *zap.Logger
	now       func() time.Time
}

// Options 可选依赖
type Options struct {
	// Reports 生成的 PDF 同时归档到这里，为 nil 时不归档
	Reports storage.ReportStore
	// RouteSheetHeader 路线单页眉
	RouteSheetHeader report.RouteSheetHeader
	Logger           *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	orders := service.NewOrderService(gdb, logger)
	header := opts.RouteSheetHeader
	if header.Organisation == "" {
		header = report.RouteSheetHeader{Organisation: "Santropol Roulant", Phone: "Tel. : (514) 284-9335"}
	}

	return &API{
		db:        gdb,
		clients:   service.NewClientService(gdb, logger),
		orders:    orders,
		menus:     service.NewMenuService(gdb),
		kitchen:   service.NewKitchenService(gdb, logger),
		routes:    service.NewRouteService(gdb, orders, logger),
		billings:  service.NewBillingService(gdb, orders, logger),
		notes:     service.NewNoteService(gdb),
		scheduled: service.NewScheduledStatusService(gdb, logger),
		system:    service.NewSystemSettingService(gdb),
		reports:   opts.Reports,
		header:    header,
		logger:    logger,
		now:       time.Now,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

func (a *API) today() time.Time {
	return service.Day(a.now())
}
