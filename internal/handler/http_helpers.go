package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseUintQuerySlice(values []string) []uint {
	ids := make([]uint, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			parsed, err := strconv.ParseUint(trimmed, 10, 32)
			if err != nil {
				continue
			}
			ids = append(ids, uint(parsed))
		}
	}
	return ids
}

// idParam 解析路径中的 ID，失败时直接写 400
func idParam(c *gin.Context, key string) (uint, bool) {
	id, err := parseUintParam(c, key)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// queryDate 读取 YYYY-MM-DD 格式的查询参数，缺省时为 fallback
func queryDate(c *gin.Context, key string, fallback time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return service.Day(fallback), true
	}
	date, err := service.ParseDay(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s, expected YYYY-MM-DD", key))
		return time.Time{}, false
	}
	return date, true
}

func parseDates(values []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(values))
	for _, raw := range values {
		date, err := service.ParseDay(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", raw)
		}
		dates = append(dates, date)
	}
	return dates, nil
}

// statusFor 把业务错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrRouteNotFound),
		errors.Is(err, service.ErrComponentNotFound),
		errors.Is(err, service.ErrNoteNotFound),
		errors.Is(err, service.ErrBillingNotFound),
		errors.Is(err, service.ErrDeliveryHistoryNotFound),
		errors.Is(err, service.ErrScheduledStatusNotFound),
		errors.Is(err, service.ErrNoShippableClients),
		errors.Is(err, service.ErrNoMainDish):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidClient),
		errors.Is(err, service.ErrInvalidOrderRequest),
		errors.Is(err, service.ErrInvalidOrderStatus),
		errors.Is(err, service.ErrOrderStatusMismatch),
		errors.Is(err, service.ErrInvalidRoute),
		errors.Is(err, service.ErrInvalidComponent),
		errors.Is(err, service.ErrInvalidNote),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, service.ErrInvalidScheduledStatus),
		errors.Is(err, service.ErrUnknownRateType),
		errors.Is(err, service.ErrUnknownMealSize):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBillingExists),
		errors.Is(err, service.ErrRoutesNotOrganized),
		errors.Is(err, service.ErrIngredientsMissing),
		errors.Is(err, service.ErrSidesComponentMissing):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError 4xx 返回错误信息；5xx 记录日志并返回通用信息
func (a *API) respondServiceError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
		respondError(c, status, message)
		return
	}
	respondError(c, status, err.Error())
}

// sendFile 以附件形式下载
func sendFile(c *gin.Context, filename, contentType string, content []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, content)
}
