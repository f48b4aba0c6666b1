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
	// ErrScheduledStatusNotFound 计划状态变更不存在
	ErrScheduledStatusNotFound = errors.New("scheduled status change not found")
	// ErrInvalidScheduledStatus 计划状态变更的日期或状态不合法
	ErrInvalidScheduledStatus = errors.New("invalid scheduled status change")
)

// ScheduleInput 计划一次客户状态变更；EndDate 不为空时在该日恢复原状态
type ScheduleInput struct {
	ClientID   uint
	StatusTo   db.ClientStatus
	Reason     string
	ChangeDate time.Time
	EndDate    *time.Time
}

// ProcessResult 一次批量处理的结果
type ProcessResult struct {
	Processed []db.ClientScheduledStatus
	Failed    []db.ClientScheduledStatus
}

// ScheduledStatusService 管理计划中的客户状态变更
type ScheduledStatusService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduledStatusService 构造 ScheduledStatusService
func NewScheduledStatusService(gdb *gorm.DB, logger *zap.Logger) *ScheduledStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduledStatusService{db: gdb, logger: logger, now: time.Now}
}

func (s *ScheduledStatusService) today() time.Time {
	return Day(s.now())
}

// Schedule 创建状态变更（以及可选的恢复记录）。
// 变更日期为今天时立即处理。
func (s *ScheduledStatusService) Schedule(input ScheduleInput) ([]db.ClientScheduledStatus, error) {
	today := s.today()
	change := Day(input.ChangeDate)
	if !input.StatusTo.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidScheduledStatus, input.StatusTo)
	}
	if change.Before(today) {
		return nil, fmt.Errorf("%w: change date is in the past", ErrInvalidScheduledStatus)
	}
	if input.EndDate != nil && !Day(*input.EndDate).After(change) {
		return nil, fmt.Errorf("%w: end date must be after change date", ErrInvalidScheduledStatus)
	}

	var created []db.ClientScheduledStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var client db.Client
		if err := tx.First(&client, input.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("get client: %w", err)
		}
		if client.Status == input.StatusTo {
			return fmt.Errorf("%w: client is already %s", ErrInvalidScheduledStatus, client.Status.Label())
		}

		start := db.ClientScheduledStatus{
			ClientID:        client.ID,
			StatusFrom:      client.Status,
			StatusTo:        input.StatusTo,
			Reason:          strings.TrimSpace(input.Reason),
			ChangeDate:      change,
			ChangeState:     db.ScheduledStatusStart,
			OperationStatus: db.OperationToBeProcessed,
		}
		if err := tx.Create(&start).Error; err != nil {
			return fmt.Errorf("create scheduled status: %w", err)
		}
		created = append(created, start)

		if input.EndDate != nil {
			end := db.ClientScheduledStatus{
				ClientID:        client.ID,
				PairID:          &start.ID,
				StatusFrom:      input.StatusTo,
				StatusTo:        client.Status,
				Reason:          start.Reason,
				ChangeDate:      Day(*input.EndDate),
				ChangeState:     db.ScheduledStatusEnd,
				OperationStatus: db.OperationToBeProcessed,
			}
			if err := tx.Create(&end).Error; err != nil {
				return fmt.Errorf("create scheduled status end: %w", err)
			}
			if err := tx.Model(&start).Update("pair_id", end.ID).Error; err != nil {
				return fmt.Errorf("link scheduled status pair: %w", err)
			}
			created[0].PairID = &end.ID
			created = append(created, end)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range created {
		if Day(created[i].ChangeDate).Equal(today) {
			processed, _, err := s.process(created[i].ID)
			if err != nil {
				return nil, err
			}
			created[i] = *processed
		}
	}
	return created, nil
}

// Reschedule 删除原变更（连同配对记录）并按新输入重新创建
func (s *ScheduledStatusService) Reschedule(id uint, input ScheduleInput) ([]db.ClientScheduledStatus, error) {
	if err := s.Cancel(id); err != nil {
		return nil, err
	}
	return s.Schedule(input)
}

// Cancel 删除尚未处理的变更及其配对记录
func (s *ScheduledStatusService) Cancel(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var change db.ClientScheduledStatus
		if err := tx.First(&change, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrScheduledStatusNotFound
			}
			return fmt.Errorf("get scheduled status: %w", err)
		}
		ids := []uint{change.ID}
		if change.PairID != nil {
			ids = append(ids, *change.PairID)
		}
		if err := tx.Unscoped().
			Where("id IN ? AND operation_status = ?", ids, db.OperationToBeProcessed).
			Delete(&db.ClientScheduledStatus{}).Error; err != nil {
			return fmt.Errorf("delete scheduled status: %w", err)
		}
		return nil
	})
}

// List 某个客户的全部计划变更，按日期排序；clientID 为 0 时返回全部
func (s *ScheduledStatusService) List(clientID uint, operationStatus string) ([]db.ClientScheduledStatus, error) {
	query := s.db.Preload("Client")
	if clientID != 0 {
		query = query.Where("client_id = ?", clientID)
	}
	if operationStatus != "" {
		query = query.Where("operation_status = ?", operationStatus)
	}
	var changes []db.ClientScheduledStatus
	if err := query.Order("change_date, id").Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("list scheduled statuses: %w", err)
	}
	return changes, nil
}

// NeedsAttention 处理失败或日期已过仍未处理
func NeedsAttention(change db.ClientScheduledStatus, today time.Time) bool {
	if change.OperationStatus == db.OperationError {
		return true
	}
	return change.OperationStatus == db.OperationToBeProcessed && !Day(change.ChangeDate).After(Day(today))
}

func scheduledStatusNote(change db.ClientScheduledStatus) string {
	return fmt.Sprintf("Update %s %s status: from %s to %s, on %s",
		change.Client.FirstName, change.Client.LastName,
		change.StatusFrom.Label(), change.StatusTo.Label(),
		Day(change.ChangeDate).Format(DateLayout))
}

// process 客户当前状态等于 StatusFrom 且记录为 NEW 时生效，否则标记为 ERR
func (s *ScheduledStatusService) process(id uint) (*db.ClientScheduledStatus, bool, error) {
	var (
		change  db.ClientScheduledStatus
		applied bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Client").First(&change, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrScheduledStatusNotFound
			}
			return fmt.Errorf("get scheduled status: %w", err)
		}
		if change.Client.Status != change.StatusFrom || change.OperationStatus != db.OperationToBeProcessed {
			change.OperationStatus = db.OperationError
			return tx.Model(&change).Update("operation_status", db.OperationError).Error
		}

		if err := tx.Model(&db.Client{}).Where("id = ?", change.ClientID).Update("status", change.StatusTo).Error; err != nil {
			return fmt.Errorf("update client status: %w", err)
		}
		if err := tx.Model(&change).Update("operation_status", db.OperationProcessed).Error; err != nil {
			return fmt.Errorf("update scheduled status: %w", err)
		}
		change.OperationStatus = db.OperationProcessed
		change.Client.Status = change.StatusTo
		if _, err := createNote(tx, NoteInput{ClientID: change.ClientID, Note: scheduledStatusNote(change)}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &change, applied, nil
}

// ProcessDue 处理所有到期（变更日期不晚于 today）且尚未处理的变更
func (s *ScheduledStatusService) ProcessDue(today time.Time) (*ProcessResult, error) {
	var due []db.ClientScheduledStatus
	_, end := dayRange(today)
	if err := s.db.
		Where("operation_status = ? AND change_date < ?", db.OperationToBeProcessed, end).
		Order("change_date, id").
		Find(&due).Error; err != nil {
		return nil, fmt.Errorf("list due scheduled statuses: %w", err)
	}

	result := &ProcessResult{}
	for _, d := range due {
		change, applied, err := s.process(d.ID)
		if err != nil {
			return nil, err
		}
		if applied {
			s.logger.Info("client status updated",
				zap.Uint("client_id", change.ClientID),
				zap.String("from", change.StatusFrom.Label()),
				zap.String("to", change.StatusTo.Label()))
			result.Processed = append(result.Processed, *change)
			continue
		}
		s.logger.Warn("client status not updated",
			zap.Uint("client_id", change.ClientID),
			zap.String("current", change.Client.Status.Label()),
			zap.String("expected", change.StatusFrom.Label()))
		result.Failed = append(result.Failed, *change)
	}
	return result, nil
}

// StatusPlannedAt 客户在 date 那天的计划状态：
// 取 [today, date] 之间最后一条尚未处理的变更，没有则为当前状态
func (s *ScheduledStatusService) StatusPlannedAt(client db.Client, date, today time.Time) (db.ClientStatus, error) {
	statuses, err := s.plannedStatuses([]db.Client{client}, date, today)
	if err != nil {
		return "", err
	}
	return statuses[client.ID], nil
}

func (s *ScheduledStatusService) plannedStatuses(clients []db.Client, date, today time.Time) (map[uint]db.ClientStatus, error) {
	planned := make(map[uint]db.ClientStatus, len(clients))
	ids := make([]uint, 0, len(clients))
	for _, c := range clients {
		planned[c.ID] = c.Status
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return planned, nil
	}

	start := Day(today)
	_, end := dayRange(date)
	var changes []db.ClientScheduledStatus
	if err := s.db.
		Where("client_id IN ? AND operation_status = ?", ids, db.OperationToBeProcessed).
		Where("change_date >= ? AND change_date < ?", start, end).
		Order("change_date, id").
		Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("list planned statuses: %w", err)
	}
	for _, c := range changes {
		planned[c.ClientID] = c.StatusTo
	}
	return planned, nil
}

// OngoingClientsAt 在 date 那天计划为活跃状态的长期配送客户
func (s *ScheduledStatusService) OngoingClientsAt(date, today time.Time) ([]db.Client, error) {
	var clients []db.Client
	if err := s.db.
		Preload("MealDefaults").Preload("DaySchedules").Preload("CancelledDays").
		Where("delivery_type = ?", db.DeliveryTypeOngoing).
		Order("id").
		Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list ongoing clients: %w", err)
	}
	planned, err := s.plannedStatuses(clients, date, today)
	if err != nil {
		return nil, err
	}
	out := clients[:0]
	for _, c := range clients {
		if planned[c.ID] == db.ClientStatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}
