package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/report"
	"github.com/souschef/internal/service"
)

type routeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Vehicle     string `json:"vehicle"`
}

type deliveryHistoryRequest struct {
	Date     string `json:"date" binding:"required"`
	Vehicle  string `json:"vehicle"`
	Sequence []uint `json:"sequence"`
	Comments string `json:"comments"`
}

func routePayload(route db.Route) gin.H {
	return gin.H{
		"id":          route.ID,
		"name":        route.Name,
		"description": route.Description,
		"vehicle":     route.Vehicle,
	}
}

func historyPayload(history db.DeliveryHistory) gin.H {
	sequence := history.Sequence()
	if sequence == nil {
		sequence = []uint{}
	}
	return gin.H{
		"id":       history.ID,
		"routeId":  history.RouteID,
		"date":     history.Date.Format(service.DateLayout),
		"vehicle":  history.Vehicle,
		"sequence": sequence,
		"comments": history.Comments,
	}
}

func deliveryClientsPayload(list []service.DeliveryClient) []gin.H {
	out := make([]gin.H, 0, len(list))
	for _, client := range list {
		items := make([]gin.H, 0, len(client.DeliveryItems))
		for _, item := range client.DeliveryItems {
			items = append(items, gin.H{
				"componentGroup": item.ComponentGroup,
				"label":          item.GroupLabel,
				"quantity":       item.TotalQuantity,
				"type":           item.OrderItemType,
				"size":           item.Size,
				"remark":         item.Remark,
			})
		}
		out = append(out, gin.H{
			"clientId":     client.ClientID,
			"firstName":    client.FirstName,
			"lastName":     client.LastName,
			"number":       client.Number,
			"street":       client.Street,
			"apartment":    client.Apartment,
			"phone":        client.Phone,
			"deliveryNote": client.DeliveryNote,
			"orderId":      client.OrderID,
			"includeABill": client.IncludeABill,
			"items":        items,
		})
	}
	return out
}

// ListRoutes 列出全部路线
func (a *API) ListRoutes(c *gin.Context) {
	routes, err := a.routes.List()
	if err != nil {
		a.respondServiceError(c, err, "获取路线失败")
		return
	}
	response := make([]gin.H, 0, len(routes))
	for _, route := range routes {
		response = append(response, routePayload(route))
	}
	c.JSON(http.StatusOK, gin.H{"routes": response})
}

// CreateRoute 新建路线
func (a *API) CreateRoute(c *gin.Context) {
	var req routeRequest
	if !bindJSON(c, &req, "路线名称不能为空") {
		return
	}
	route, err := a.routes.Create(service.RouteInput{Name: req.Name, Description: req.Description, Vehicle: req.Vehicle})
	if err != nil {
		a.respondServiceError(c, err, "创建路线失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "路线创建成功", "route": routePayload(*route)})
}

// UpdateRoute 修改路线
func (a *API) UpdateRoute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req routeRequest
	if !bindJSON(c, &req, "路线名称不能为空") {
		return
	}
	route, err := a.routes.Update(id, service.RouteInput{Name: req.Name, Description: req.Description, Vehicle: req.Vehicle})
	if err != nil {
		a.respondServiceError(c, err, "更新路线失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "路线更新成功", "route": routePayload(*route)})
}

// RoutesOverview 某天各路线的订单数与整理状态
func (a *API) RoutesOverview(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	overview, err := a.routes.Overview(date)
	if err != nil {
		a.respondServiceError(c, err, "获取路线状态失败")
		return
	}
	routes := make([]gin.H, 0, len(overview.Routes))
	for _, status := range overview.Routes {
		entry := gin.H{
			"route":         routePayload(status.Route),
			"orderCount":    status.OrderCount,
			"organizeState": status.OrganizeState,
		}
		if status.History != nil {
			entry["history"] = historyPayload(*status.History)
		}
		routes = append(routes, entry)
	}
	c.JSON(http.StatusOK, gin.H{
		"date":          overview.Date.Format(service.DateLayout),
		"routes":        routes,
		"allConfigured": overview.AllConfigured,
	})
}

// OrganizeRoute 为路线当天建立配送记录
func (a *API) OrganizeRoute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	history, err := a.routes.Organize(id, date)
	if err != nil {
		a.respondServiceError(c, err, "整理路线失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": historyPayload(*history)})
}

// GetRouteHistory 返回路线当天的配送记录与按顺序排列的客户
func (a *API) GetRouteHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	history, clients, err := a.routes.History(id, date)
	if err != nil {
		a.respondServiceError(c, err, "获取配送记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history": historyPayload(*history),
		"clients": deliveryClientsPayload(clients),
	})
}

// UpdateRouteHistory 保存交通方式、客户顺序与备注
func (a *API) UpdateRouteHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req deliveryHistoryRequest
	if !bindJSON(c, &req, "请提供配送日期") {
		return
	}
	date, err := service.ParseDay(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}
	history, err := a.routes.UpdateHistory(id, date, service.DeliveryHistoryInput{
		Vehicle:  req.Vehicle,
		Sequence: req.Sequence,
		Comments: req.Comments,
	})
	if err != nil {
		a.respondServiceError(c, err, "保存配送记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "配送记录已保存", "history": historyPayload(*history)})
}

// RouteDeliveryList 路线当天的配送清单
func (a *API) RouteDeliveryList(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	list, err := a.routes.DeliveryList(date, id)
	if err != nil {
		a.respondServiceError(c, err, "获取配送清单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": deliveryClientsPayload(list)})
}

// RouteSheet 单条路线的路线单 PDF
func (a *API) RouteSheet(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	sheet, err := a.routes.RouteSheet(id, date)
	if err != nil {
		a.respondServiceError(c, err, "生成路线单失败")
		return
	}
	content, err := report.RouteSheetsPDF([]service.RouteSheet{*sheet}, a.header, a.now())
	if err != nil {
		a.respondServiceError(c, err, "生成路线单失败")
		return
	}
	sendFile(c, "route_sheet_"+date.Format(service.DateLayout)+".pdf", "application/pdf", content)
}

// RouteSheets 当天所有路线的路线单 PDF，要求路线均已整理
func (a *API) RouteSheets(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	sheets, err := a.routes.RouteSheets(date)
	if err != nil {
		a.respondServiceError(c, err, "生成路线单失败")
		return
	}
	content, err := report.RouteSheetsPDF(sheets, a.header, a.now())
	if err != nil {
		a.respondServiceError(c, err, "生成路线单失败")
		return
	}
	a.archive(c, "route_sheets", date, "pdf", content)
	sendFile(c, "route_sheets_"+date.Format(service.DateLayout)+".pdf", "application/pdf", content)
}
