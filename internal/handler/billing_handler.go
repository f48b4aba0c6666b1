package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/report"
	"github.com/souschef/internal/service"
)

type billingRequest struct {
	Year  int `json:"year" binding:"required"`
	Month int `json:"month" binding:"required"`
}

func billingPayload(billing db.Billing) gin.H {
	return gin.H{
		"id":          billing.ID,
		"year":        billing.BillingYear,
		"month":       billing.BillingMonth,
		"period":      billing.Period().Format("2006-01"),
		"totalAmount": billing.TotalAmount.StringFixed(2),
		"createdDate": billing.CreatedDate.Format(service.DateLayout),
	}
}

// queryPeriod 读取 year 与 month 查询参数
func queryPeriod(c *gin.Context) (int, int, bool) {
	year, errYear := strconv.Atoi(c.Query("year"))
	month, errMonth := strconv.Atoi(c.Query("month"))
	if errYear != nil || errMonth != nil {
		respondError(c, http.StatusBadRequest, "请提供账单年份与月份")
		return 0, 0, false
	}
	return year, month, true
}

// ListBillings 按期间倒序列出账单
func (a *API) ListBillings(c *gin.Context) {
	billings, err := a.billings.List()
	if err != nil {
		a.respondServiceError(c, err, "获取账单列表失败")
		return
	}
	response := make([]gin.H, 0, len(billings))
	for _, billing := range billings {
		response = append(response, billingPayload(billing))
	}
	c.JSON(http.StatusOK, gin.H{"billings": response})
}

// PreviewBilling 生成账单前查看该月可计费订单
func (a *API) PreviewBilling(c *gin.Context) {
	year, month, ok := queryPeriod(c)
	if !ok {
		return
	}
	preview, err := a.billings.Preview(year, month)
	if err != nil {
		a.respondServiceError(c, err, "获取账单预览失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"year":   preview.Year,
		"month":  preview.Month,
		"orders": ordersPayload(preview.Orders),
		"total":  preview.Total.StringFixed(2),
	})
}

// CreateBilling 生成某月账单
func (a *API) CreateBilling(c *gin.Context) {
	var req billingRequest
	if !bindJSON(c, &req, "请提供账单年份与月份") {
		return
	}
	billing, err := a.billings.Create(req.Year, req.Month)
	if err != nil {
		a.respondServiceError(c, err, "生成账单失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "账单已生成", "billing": billingPayload(*billing)})
}

// GetBilling 账单汇总：按客户统计份数与金额
func (a *API) GetBilling(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	billing, summary, err := a.billings.Summary(id)
	if err != nil {
		a.respondServiceError(c, err, "获取账单失败")
		return
	}

	clients := make([]gin.H, 0, len(summary.Clients))
	for _, cs := range summary.Clients {
		clients = append(clients, gin.H{
			"client":              clientSummary(cs.Client),
			"totalOrders":         cs.TotalOrders,
			"regularMainDishes":   cs.RegularMainDishes,
			"largeMainDishes":     cs.LargeMainDishes,
			"totalBillableExtras": cs.TotalBillableExtras,
			"totalAmount":         cs.TotalAmount.StringFixed(2),
		})
	}
	warnings := summary.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"billing": billingPayload(*billing),
		"summary": gin.H{
			"clients":             clients,
			"regularMainDishes":   summary.RegularMainDishes,
			"largeMainDishes":     summary.LargeMainDishes,
			"totalBillableExtras": summary.TotalBillableExtras,
			"totalAmount":         summary.TotalAmount.StringFixed(2),
			"warnings":            warnings,
		},
	})
}

// BillingClientOrders 账单中某个客户的订单
func (a *API) BillingClientOrders(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	clientID, ok := idParam(c, "clientId")
	if !ok {
		return
	}
	orders, total, err := a.billings.Orders(id, clientID)
	if err != nil {
		a.respondServiceError(c, err, "获取账单订单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": ordersPayload(orders), "total": total.StringFixed(2)})
}

// ExportBilling 导出发票。format 为 csv（默认）或 xlsx
func (a *API) ExportBilling(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	settings, err := a.system.GetSettings()
	if err != nil {
		a.respondServiceError(c, err, "读取系统设置失败")
		return
	}
	billing, rows, err := a.billings.Invoice(id, service.InvoiceSettingsFrom(settings))
	if err != nil {
		a.respondServiceError(c, err, "生成发票失败")
		return
	}

	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		content, err := report.BillingCSV(rows)
		if err != nil {
			a.respondServiceError(c, err, "导出发票失败")
			return
		}
		sendFile(c, service.BillingFileName(billing.BillingYear, billing.BillingMonth, "csv"), "text/csv; charset=utf-8", content)
	case "xlsx":
		content, err := report.BillingXLSX(rows)
		if err != nil {
			a.respondServiceError(c, err, "导出发票失败")
			return
		}
		sendFile(c, service.BillingFileName(billing.BillingYear, billing.BillingMonth, "xlsx"),
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
	default:
		respondError(c, http.StatusBadRequest, "不支持的导出格式："+format)
	}
}

// DeleteBilling 删除账单，订单保留
func (a *API) DeleteBilling(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := a.billings.Delete(id); err != nil {
		a.respondServiceError(c, err, "删除账单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "账单已删除"})
}
