package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/service"
)

type scheduleStatusRequest struct {
	ClientID   uint   `json:"clientId" binding:"required"`
	StatusTo   string `json:"statusTo" binding:"required"`
	Reason     string `json:"reason"`
	ChangeDate string `json:"changeDate" binding:"required"`
	EndDate    string `json:"endDate"`
}

func (r scheduleStatusRequest) toInput() (service.ScheduleInput, error) {
	change, err := service.ParseDay(r.ChangeDate)
	if err != nil {
		return service.ScheduleInput{}, err
	}
	input := service.ScheduleInput{
		ClientID:   r.ClientID,
		StatusTo:   db.ClientStatus(r.StatusTo),
		Reason:     r.Reason,
		ChangeDate: change,
	}
	if r.EndDate != "" {
		end, err := service.ParseDay(r.EndDate)
		if err != nil {
			return service.ScheduleInput{}, err
		}
		input.EndDate = &end
	}
	return input, nil
}

func scheduledStatusPayload(change db.ClientScheduledStatus, today time.Time) gin.H {
	return gin.H{
		"id":              change.ID,
		"clientId":        change.ClientID,
		"pairId":          change.PairID,
		"statusFrom":      change.StatusFrom,
		"statusTo":        change.StatusTo,
		"reason":          change.Reason,
		"changeDate":      change.ChangeDate.Format(service.DateLayout),
		"changeState":     change.ChangeState,
		"operationStatus": change.OperationStatus,
		"needsAttention":  service.NeedsAttention(change, today),
	}
}

func (a *API) scheduledStatusesPayload(changes []db.ClientScheduledStatus) []gin.H {
	today := a.today()
	out := make([]gin.H, 0, len(changes))
	for _, change := range changes {
		out = append(out, scheduledStatusPayload(change, today))
	}
	return out
}

// ListScheduledStatuses 列出计划中的客户状态变更
func (a *API) ListScheduledStatuses(c *gin.Context) {
	var clientID uint
	if raw := c.Query("clientId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的客户ID")
			return
		}
		clientID = uint(id)
	}
	changes, err := a.scheduled.List(clientID, c.Query("operationStatus"))
	if err != nil {
		a.respondServiceError(c, err, "获取计划状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": a.scheduledStatusesPayload(changes)})
}

// ScheduleStatus 计划一次客户状态变更
func (a *API) ScheduleStatus(c *gin.Context) {
	var req scheduleStatusRequest
	if !bindJSON(c, &req, "请提供客户、状态与日期") {
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}
	changes, err := a.scheduled.Schedule(input)
	if err != nil {
		a.respondServiceError(c, err, "保存计划状态失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "状态变更已计划", "changes": a.scheduledStatusesPayload(changes)})
}

// RescheduleStatus 取消原计划并按新的日期重新计划
func (a *API) RescheduleStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req scheduleStatusRequest
	if !bindJSON(c, &req, "请提供客户、状态与日期") {
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}
	changes, err := a.scheduled.Reschedule(id, input)
	if err != nil {
		a.respondServiceError(c, err, "修改计划状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "状态变更已重新计划", "changes": a.scheduledStatusesPayload(changes)})
}

// CancelScheduledStatus 删除尚未处理的计划变更
func (a *API) CancelScheduledStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := a.scheduled.Cancel(id); err != nil {
		a.respondServiceError(c, err, "取消计划状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "计划状态已取消"})
}

// ProcessScheduledStatuses 立即处理所有到期的计划变更
func (a *API) ProcessScheduledStatuses(c *gin.Context) {
	result, err := a.scheduled.ProcessDue(a.today())
	if err != nil {
		a.respondServiceError(c, err, "处理计划状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"processed": a.scheduledStatusesPayload(result.Processed),
		"failed":    a.scheduledStatusesPayload(result.Failed),
	})
}
