package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/service"
	"go.uber.org/zap"
)

type orderRequestPayload struct {
	Quantities         map[string]int `json:"quantities"`
	Size               string         `json:"size"`
	Extras             []string       `json:"extras"`
	MainDishNotCharged bool           `json:"mainDishNotCharged"`
}

func (p orderRequestPayload) toRequest() service.OrderRequest {
	req := service.OrderRequest{
		Quantities:         make(map[db.ComponentGroup]int, len(p.Quantities)),
		Size:               db.MealSize(p.Size),
		MainDishNotCharged: p.MainDishNotCharged,
	}
	for group, qty := range p.Quantities {
		req.Quantities[db.ComponentGroup(group)] = qty
	}
	for _, extra := range p.Extras {
		req.Extras = append(req.Extras, db.OrderItemType(extra))
	}
	return req
}

func orderPayload(order db.Order) gin.H {
	items := make([]gin.H, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, gin.H{
			"id":             item.ID,
			"type":           item.OrderItemType,
			"componentGroup": item.ComponentGroup,
			"size":           item.Size,
			"quantity":       item.TotalQuantity,
			"billable":       item.BillableFlag,
			"price":          item.Price.StringFixed(2),
			"remark":         item.Remark,
		})
	}
	payload := gin.H{
		"id":           order.ID,
		"clientId":     order.ClientID,
		"deliveryDate": order.DeliveryDate.Format(service.DateLayout),
		"creationDate": order.CreationDate.Format(service.DateLayout),
		"status":       order.Status,
		"price":        order.Price().StringFixed(2),
		"items":        items,
	}
	if order.Client.ID != 0 {
		payload["client"] = service.FormatClientName(order.Client.FirstName, order.Client.LastName)
	}
	return payload
}

func ordersPayload(orders []db.Order) []gin.H {
	out := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		out = append(out, orderPayload(order))
	}
	return out
}

// ListOrders 按状态、客户与配送日期过滤订单
func (a *API) ListOrders(c *gin.Context) {
	filter := service.OrderFilter{Status: db.OrderStatus(c.Query("status"))}
	if raw := c.Query("clientId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的客户ID")
			return
		}
		filter.ClientID = uint(id)
	}
	if c.Query("deliveryDate") != "" {
		date, ok := queryDate(c, "deliveryDate", a.today())
		if !ok {
			return
		}
		filter.DeliveryDate = &date
	}

	orders, err := a.orders.List(filter)
	if err != nil {
		a.respondServiceError(c, err, "获取订单列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": ordersPayload(orders)})
}

// GetOrder 返回订单及订单行
func (a *API) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := a.orders.Get(id)
	if err != nil {
		a.respondServiceError(c, err, "获取订单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": orderPayload(*order)})
}

type createOrderRequest struct {
	ClientID     uint                `json:"clientId" binding:"required"`
	DeliveryDate string              `json:"deliveryDate" binding:"required"`
	Order        orderRequestPayload `json:"order"`
}

// CreateOrder 按客户的费率为某一天下单
func (a *API) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req, "请提供客户与配送日期") {
		return
	}
	date, err := service.ParseDay(req.DeliveryDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的配送日期")
		return
	}
	client, err := a.clients.Get(req.ClientID)
	if err != nil {
		a.respondServiceError(c, err, "获取客户失败")
		return
	}
	prices, err := service.ClientPrices(client.RateType)
	if err != nil {
		a.respondServiceError(c, err, "获取客户价格失败")
		return
	}

	order, err := a.orders.CreateOrder(date, *client, req.Order.toRequest(), prices)
	if err != nil {
		a.respondServiceError(c, err, "创建订单失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "订单创建成功", "order": orderPayload(*order)})
}

type batchDayPayload struct {
	Date  string              `json:"date"`
	Order orderRequestPayload `json:"order"`
}

type batchOrderRequest struct {
	ClientID      uint              `json:"clientId" binding:"required"`
	Days          []batchDayPayload `json:"days" binding:"required"`
	OverrideDates []string          `json:"overrideDates"`
}

// CreateBatchOrders 为客户一次下多天的订单。
// 校验失败时按日期返回错误，不写入任何订单。
func (a *API) CreateBatchOrders(c *gin.Context) {
	var req batchOrderRequest
	if !bindJSON(c, &req, "请提供客户与配送日期") {
		return
	}

	fieldErrors := gin.H{}
	days := make([]service.BatchDay, 0, len(req.Days))
	for _, day := range req.Days {
		date, err := service.ParseDay(day.Date)
		if err != nil {
			fieldErrors[day.Date] = "invalid date"
			continue
		}
		request := day.Order.toRequest()
		if err := request.Validate(); err != nil {
			fieldErrors[day.Date] = err.Error()
			continue
		}
		days = append(days, service.BatchDay{Date: date, Request: request})
	}
	if len(days) == 0 && len(fieldErrors) == 0 {
		fieldErrors["days"] = "at least one delivery date is required"
	}
	overrides, err := parseDates(req.OverrideDates)
	if err != nil {
		fieldErrors["overrideDates"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "订单校验失败", "errors": fieldErrors})
		return
	}

	client, err := a.clients.Get(req.ClientID)
	if err != nil {
		a.respondServiceError(c, err, "获取客户失败")
		return
	}
	orders, err := a.orders.CreateBatchOrders(*client, days, overrides)
	if err != nil {
		a.respondServiceError(c, err, "批量创建订单失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "订单创建成功", "orders": ordersPayload(orders)})
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// ChangeOrderStatus 修改单个订单的状态并记录变更
func (a *API) ChangeOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req orderStatusRequest
	if !bindJSON(c, &req, "请提供订单状态") {
		return
	}
	order, err := a.orders.ChangeStatus(id, db.OrderStatus(req.Status), req.Reason)
	if err != nil {
		a.respondServiceError(c, err, "修改订单状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "订单状态已更新", "order": gin.H{"id": order.ID, "status": order.Status}})
}

type bulkStatusRequest struct {
	OrderIDs []uint `json:"orderIds" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

// UpdateOrderStatuses 批量修改订单状态
func (a *API) UpdateOrderStatuses(c *gin.Context) {
	var req bulkStatusRequest
	if !bindJSON(c, &req, "请提供订单与状态") {
		return
	}
	updated, err := a.orders.UpdateStatuses(req.OrderIDs, db.OrderStatus(req.Status))
	if err != nil {
		a.respondServiceError(c, err, "批量修改订单状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "订单状态已更新", "updated": updated})
}

type generateOrdersRequest struct {
	DeliveryDate string `json:"deliveryDate"`
	ClientIDs    []uint `json:"clientIds"`
}

// GenerateOrders 为某天的持续客户按默认设置生成订单。
// 传入 clientIds 时只为这些客户生成。
func (a *API) GenerateOrders(c *gin.Context) {
	var req generateOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "请求格式错误")
		return
	}
	date := a.today()
	if req.DeliveryDate != "" {
		parsed, err := service.ParseDay(req.DeliveryDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的配送日期")
			return
		}
		date = parsed
	}

	var (
		clients []db.Client
		err     error
	)
	if len(req.ClientIDs) > 0 {
		clients, err = a.clients.OrderingClients(req.ClientIDs)
	} else {
		clients, err = a.scheduled.OngoingClientsAt(date, a.today())
	}
	if err != nil {
		a.respondServiceError(c, err, "读取客户失败")
		return
	}

	orders, err := a.orders.AutoCreateOrders(date, clients)
	if err != nil {
		a.respondServiceError(c, err, "生成订单失败")
		return
	}
	a.logger.Info("orders generated from api",
		zap.String("delivery_date", date.Format(service.DateLayout)),
		zap.Int("clients", len(clients)),
		zap.Int("orders", len(orders)))
	c.JSON(http.StatusOK, gin.H{"message": "订单已生成", "orders": ordersPayload(orders)})
}
