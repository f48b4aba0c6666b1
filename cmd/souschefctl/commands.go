package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/souschef/internal/config"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/service"
	"github.com/souschef/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = `usage: souschefctl <command> [flags]

commands:
  generateorders [-days N] YYYY-MM-DD   create orders from client defaults
  setordersdelivered YYYY-MM-DD         mark ordered orders as delivered
  processscheduledstatuschange          apply due client status changes
  cleanreports [-days N]                delete archived reports past retention
  createuser -username U -password P    create an admin account`

type app struct {
	db     *gorm.DB
	cfg    config.AppConfig
	logger *zap.Logger
	out    io.Writer
	now    func() time.Time
	// reports 为空时按配置创建
	reports storage.ReportStore
}

func (a *app) today() time.Time {
	if a.now == nil {
		return service.Day(time.Now())
	}
	return service.Day(a.now())
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "generateorders":
		return a.generateOrders(args)
	case "setordersdelivered":
		return a.setOrdersDelivered(args)
	case "processscheduledstatuschange":
		return a.processScheduledStatusChange()
	case "cleanreports":
		return a.cleanReports(ctx, args)
	case "createuser":
		return a.createUser(args)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func parseDateArg(fs *flag.FlagSet) (time.Time, error) {
	if fs.NArg() != 1 {
		return time.Time{}, errors.New("delivery date is required (YYYY-MM-DD)")
	}
	return service.ParseDay(fs.Arg(0))
}

// generateOrders 为起始日期起的 days 天生成订单，已有订单的客户不会重复生成
func (a *app) generateOrders(args []string) error {
	fs := flag.NewFlagSet("generateorders", flag.ContinueOnError)
	days := fs.Int("days", 1, "number of days to create in advance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	start, err := parseDateArg(fs)
	if err != nil {
		return err
	}
	if *days < 1 {
		return errors.New("days must be at least 1")
	}

	orders := service.NewOrderService(a.db, a.logger)
	scheduled := service.NewScheduledStatusService(a.db, a.logger)
	for i := 0; i < *days; i++ {
		date := start.AddDate(0, 0, i)
		clients, err := scheduled.OngoingClientsAt(date, a.today())
		if err != nil {
			return err
		}
		created, err := orders.AutoCreateOrders(date, clients)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d orders created on %s: to be delivered on %s.\n",
			len(created), a.today().Format(service.DateLayout), date.Format(service.DateLayout))
	}
	return nil
}

func (a *app) setOrdersDelivered(args []string) error {
	fs := flag.NewFlagSet("setordersdelivered", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := parseDateArg(fs)
	if err != nil {
		return err
	}
	count, err := service.NewOrderService(a.db, a.logger).SetDelivered(date)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Status set to Delivered for %d orders whose delivery date is %s.\n",
		count, date.Format(service.DateLayout))
	return nil
}

func (a *app) processScheduledStatusChange() error {
	result, err := service.NewScheduledStatusService(a.db, a.logger).ProcessDue(a.today())
	if err != nil {
		return err
	}
	for _, change := range result.Processed {
		fmt.Fprintf(a.out, "client %d status updated from %s to %s.\n",
			change.ClientID, change.StatusFrom.Label(), change.StatusTo.Label())
	}
	for _, change := range result.Failed {
		fmt.Fprintf(a.out, "client %d status not updated: expected %s.\n",
			change.ClientID, change.StatusFrom.Label())
	}
	return nil
}

func (a *app) cleanReports(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cleanreports", flag.ContinueOnError)
	days := fs.Int("days", a.cfg.Reports.RetentionDays, "retention in days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days <= 0 {
		return errors.New("days must be positive")
	}

	store := a.reports
	if store == nil {
		var err error
		if store, err = storage.New(ctx, a.cfg.Reports, a.logger); err != nil {
			return err
		}
	}
	now := time.Now()
	if a.now != nil {
		now = a.now()
	}
	removed, err := store.Prune(ctx, storage.RetentionCutoff(now, *days))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d archived reports removed.\n", removed)
	return nil
}

func (a *app) createUser(args []string) error {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name := strings.TrimSpace(*username)
	if name == "" || strings.TrimSpace(*password) == "" {
		return errors.New("username and password are required")
	}

	var count int64
	if err := a.db.Model(&db.User{}).Where("username = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if count > 0 {
		fmt.Fprintf(a.out, "user %s already exists.\n", name)
		return nil
	}
	if err := db.EnsureUser(name, *password); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(a.out, "user %s created.\n", name)
	return nil
}
