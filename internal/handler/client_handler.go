package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/service"
)

type clientRequest struct {
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	BillingEmail     string   `json:"billingEmail"`
	Phone            string   `json:"phone"`
	AddressNumber    string   `json:"addressNumber"`
	AddressStreet    string   `json:"addressStreet"`
	AddressApartment string   `json:"addressApartment"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	DeliveryNote     string   `json:"deliveryNote"`
	Status           string   `json:"status"`
	DeliveryType     string   `json:"deliveryType"`
	RateType         string   `json:"rateType"`
	RouteID          *uint    `json:"routeId"`
}

func (r clientRequest) toInput() service.ClientInput {
	return service.ClientInput{
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		BillingEmail:     r.BillingEmail,
		Phone:            r.Phone,
		AddressNumber:    r.AddressNumber,
		AddressStreet:    r.AddressStreet,
		AddressApartment: r.AddressApartment,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		DeliveryNote:     r.DeliveryNote,
		Status:           db.ClientStatus(r.Status),
		DeliveryType:     db.DeliveryType(r.DeliveryType),
		RateType:         db.RateType(r.RateType),
		RouteID:          r.RouteID,
	}
}

func clientSummary(client db.Client) gin.H {
	payload := gin.H{
		"id":           client.ID,
		"firstName":    client.FirstName,
		"lastName":     client.LastName,
		"status":       client.Status,
		"statusLabel":  client.Status.Label(),
		"deliveryType": client.DeliveryType,
		"rateType":     client.RateType,
		"routeId":      client.RouteID,
	}
	if client.Route != nil {
		payload["route"] = client.Route.Name
	}
	return payload
}

func clientPayload(client db.Client) gin.H {
	payload := clientSummary(client)
	payload["billingEmail"] = client.BillingEmail
	payload["phone"] = client.Phone
	payload["address"] = gin.H{
		"number":    client.AddressNumber,
		"street":    client.AddressStreet,
		"apartment": client.AddressApartment,
		"latitude":  client.Latitude,
		"longitude": client.Longitude,
	}
	payload["deliveryNote"] = client.DeliveryNote

	names := func(n int, name func(int) string) []string {
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, name(i))
		}
		return out
	}
	payload["avoidIngredients"] = names(len(client.AvoidIngredients), func(i int) string { return client.AvoidIngredients[i].Name })
	payload["avoidComponents"] = names(len(client.AvoidComponents), func(i int) string { return client.AvoidComponents[i].Name })
	payload["restrictions"] = names(len(client.Restrictions), func(i int) string { return client.Restrictions[i].Name })
	payload["preparations"] = names(len(client.Preparations), func(i int) string { return client.Preparations[i].Name })

	schedule := make([]gin.H, 0, len(client.DaySchedules))
	for _, day := range client.DaySchedules {
		quantities := gin.H{}
		for _, def := range client.MealDefaults {
			if def.Weekday == day.Weekday && def.Quantity != nil {
				quantities[string(def.ComponentGroup)] = *def.Quantity
			}
		}
		schedule = append(schedule, gin.H{
			"weekday":    int(day.Weekday),
			"scheduled":  day.Scheduled,
			"size":       day.Size,
			"quantities": quantities,
		})
	}
	payload["schedule"] = schedule

	cancelled := make([]string, 0, len(client.CancelledDays))
	for _, day := range client.CancelledDays {
		cancelled = append(cancelled, day.CancelDate.Format(service.DateLayout))
	}
	payload["cancelledDates"] = cancelled
	return payload
}

// ListClients 按姓名、状态、配送类型与路线过滤客户
func (a *API) ListClients(c *gin.Context) {
	filter := service.ClientFilter{
		Name:         c.Query("name"),
		DeliveryType: db.DeliveryType(c.Query("deliveryType")),
	}
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, db.ClientStatus(part))
			}
		}
	}
	if raw := c.Query("routeId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的路线ID")
			return
		}
		routeID := uint(id)
		filter.RouteID = &routeID
	}

	clients, err := a.clients.List(filter)
	if err != nil {
		a.respondServiceError(c, err, "获取客户列表失败")
		return
	}
	response := make([]gin.H, 0, len(clients))
	for _, client := range clients {
		response = append(response, clientSummary(client))
	}
	c.JSON(http.StatusOK, gin.H{"clients": response})
}

// GetClient 返回客户详情
func (a *API) GetClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	client, err := a.clients.Get(id)
	if err != nil {
		a.respondServiceError(c, err, "获取客户失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": clientPayload(*client)})
}

// CreateClient 新建客户
func (a *API) CreateClient(c *gin.Context) {
	var req clientRequest
	if !bindJSON(c, &req, "请填写客户资料") {
		return
	}
	client, err := a.clients.Create(req.toInput())
	if err != nil {
		a.respondServiceError(c, err, "创建客户失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "客户创建成功", "client": clientPayload(*client)})
}

// UpdateClient 修改客户资料
func (a *API) UpdateClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req clientRequest
	if !bindJSON(c, &req, "请填写客户资料") {
		return
	}
	client, err := a.clients.Update(id, req.toInput())
	if err != nil {
		a.respondServiceError(c, err, "更新客户失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "客户更新成功", "client": clientPayload(*client)})
}

type dayScheduleRequest struct {
	Weekday    int            `json:"weekday"`
	Scheduled  bool           `json:"scheduled"`
	Size       string         `json:"size"`
	Quantities map[string]int `json:"quantities"`
}

type scheduleRequest struct {
	Days []dayScheduleRequest `json:"days" binding:"required"`
}

// SetClientSchedule 替换客户的每周默认订餐
func (a *API) SetClientSchedule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req scheduleRequest
	if !bindJSON(c, &req, "请提供每周订餐设置") {
		return
	}

	days := make([]service.DaySchedule, 0, len(req.Days))
	for _, day := range req.Days {
		if day.Weekday < 0 || day.Weekday > 6 {
			respondError(c, http.StatusBadRequest, "weekday 必须在 0 到 6 之间")
			return
		}
		quantities := make(map[db.ComponentGroup]int, len(day.Quantities))
		for group, qty := range day.Quantities {
			quantities[db.ComponentGroup(group)] = qty
		}
		days = append(days, service.DaySchedule{
			Weekday:    time.Weekday(day.Weekday),
			Scheduled:  day.Scheduled,
			Size:       db.MealSize(day.Size),
			Quantities: quantities,
		})
	}

	if err := a.clients.SetWeeklySchedule(id, days); err != nil {
		a.respondServiceError(c, err, "保存每周订餐失败")
		return
	}
	client, err := a.clients.Get(id)
	if err != nil {
		a.respondServiceError(c, err, "获取客户失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "每周订餐已更新", "client": clientPayload(*client)})
}

type dietaryRequest struct {
	AvoidIngredientIDs []uint `json:"avoidIngredientIds"`
	AvoidComponentIDs  []uint `json:"avoidComponentIds"`
	RestrictedItemIDs  []uint `json:"restrictedItemIds"`
	PreparationIDs     []uint `json:"preparationIds"`
}

// SetClientDietary 替换客户的饮食限制
func (a *API) SetClientDietary(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dietaryRequest
	if !bindJSON(c, &req, "请提供饮食限制") {
		return
	}
	client, err := a.clients.SetDietary(id, service.DietaryInput{
		AvoidIngredientIDs: req.AvoidIngredientIDs,
		AvoidComponentIDs:  req.AvoidComponentIDs,
		RestrictedItemIDs:  req.RestrictedItemIDs,
		PreparationIDs:     req.PreparationIDs,
	})
	if err != nil {
		a.respondServiceError(c, err, "保存饮食限制失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "饮食限制已更新", "client": clientPayload(*client)})
}

type cancelledDatesRequest struct {
	Dates []string `json:"dates" binding:"required"`
}

// AddCancelledDates 登记客户不需要送餐的日期
func (a *API) AddCancelledDates(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req cancelledDatesRequest
	if !bindJSON(c, &req, "请提供取消日期") {
		return
	}
	dates, err := parseDates(req.Dates)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.clients.AddCancelledDates(id, dates); err != nil {
		a.respondServiceError(c, err, "保存取消日期失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "取消日期已保存"})
}

// RemoveCancelledDate 撤销某个取消日期
func (a *API) RemoveCancelledDate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date, err := service.ParseDay(c.Param("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}
	if err := a.clients.RemoveCancelledDate(id, date); err != nil {
		a.respondServiceError(c, err, "删除取消日期失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "取消日期已删除"})
}
