package service

import (
	"testing"

	"github.com/souschef/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveryClients(ids ...uint) []DeliveryClient {
	out := make([]DeliveryClient, 0, len(ids))
	for _, id := range ids {
		out = append(out, DeliveryClient{ClientID: id})
	}
	return out
}

func clientIDs(list []DeliveryClient) []uint {
	ids := make([]uint, 0, len(list))
	for _, dc := range list {
		ids = append(ids, dc.ClientID)
	}
	return ids
}

func TestSortBySequenceAppendsUnknownClients(t *testing.T) {
	list := deliveryClients(1, 2, 3, 4)
	sorted := SortBySequence(list, []uint{3, 9, 1, 3})
	assert.Equal(t, []uint{3, 1, 2, 4}, clientIDs(sorted))

	assert.Equal(t, []uint{1, 2, 3, 4}, clientIDs(SortBySequence(list, nil)))
	assert.Empty(t, SortBySequence(nil, []uint{1}))
}

func TestMakeDeliveryListCumulatesItems(t *testing.T) {
	lat, lng := 45.5, -73.6
	client := db.Client{FirstName: "Marie", LastName: "Tremblay", Latitude: &lat, Longitude: &lng}
	client.ID = 7
	order := db.Order{ClientID: 7, Client: client, Status: db.OrderStatusOrdered, Items: []db.OrderItem{
		{ComponentGroup: db.ComponentGroupPudding, OrderItemType: db.OrderItemTypeComponent, TotalQuantity: 1, Remark: "no sugar"},
		{ComponentGroup: db.ComponentGroupMainDish, OrderItemType: db.OrderItemTypeComponent, TotalQuantity: 1, Size: db.MealSizeLarge},
		{ComponentGroup: db.ComponentGroupPudding, OrderItemType: db.OrderItemTypeComponent, TotalQuantity: 2, Remark: "extra"},
		{ComponentGroup: db.ComponentGroupDessert, OrderItemType: db.OrderItemTypeComponent, TotalQuantity: 1},
		{OrderItemType: db.OrderItemTypeDelivery, TotalQuantity: 1},
	}}
	order.ID = 11

	floating := db.Client{FirstName: "Paul", LastName: "Gagnon"}
	floating.ID = 8
	other := db.Order{ClientID: 8, Client: floating, Status: db.OrderStatusOrdered, Items: []db.OrderItem{
		{ComponentGroup: db.ComponentGroupMainDish, OrderItemType: db.OrderItemTypeComponent, TotalQuantity: 1},
	}}

	list := MakeDeliveryList([]db.Order{order, other})
	require.Len(t, list, 1)
	dc := list[0]
	assert.True(t, dc.IncludeABill)
	assert.EqualValues(t, 11, dc.OrderID)
	require.Len(t, dc.DeliveryItems, 3)
	assert.Equal(t, db.ComponentGroupMainDish, dc.DeliveryItems[0].ComponentGroup)
	assert.Equal(t, db.MealSizeLarge, dc.DeliveryItems[0].Size)
	assert.Equal(t, db.ComponentGroupDessert, dc.DeliveryItems[1].ComponentGroup)
	assert.Equal(t, db.ComponentGroupPudding, dc.DeliveryItems[2].ComponentGroup)
	assert.Equal(t, 3, dc.DeliveryItems[2].TotalQuantity)
	assert.Equal(t, "no sugar; extra", dc.DeliveryItems[2].Remark)

	summary, details := MakeRouteSheetLines(list)
	require.Len(t, summary, 3)
	assert.Equal(t, 1, summary[0].LQty)
	assert.Equal(t, 0, summary[0].RQty)
	assert.Equal(t, "Dessert", summary[1].GroupLabel)
	assert.Equal(t, 3, summary[2].RQty)
	assert.Len(t, details, 1)
}

func TestOrganizeState(t *testing.T) {
	assert.Equal(t, OrganizeStateNo, OrganizeState(nil, []uint{1}))

	var h db.DeliveryHistory
	require.NoError(t, h.SetSequence([]uint{2, 1}))
	assert.Equal(t, OrganizeStateYes, OrganizeState(&h, []uint{1, 2}))
	assert.Equal(t, OrganizeStateInvalid, OrganizeState(&h, []uint{1, 2, 3}))
	assert.Equal(t, OrganizeStateInvalid, OrganizeState(&h, []uint{1}))

	h.ClientIDSequence = []byte("{broken")
	assert.Equal(t, OrganizeStateInvalid, OrganizeState(&h, nil))
}

func TestRouteServiceOrganizeAndSheet(t *testing.T) {
	gdb := setupServiceTestDB(t)
	orders := NewOrderService(gdb, nil)
	routes := NewRouteService(gdb, orders, nil)

	route, err := routes.Create(RouteInput{Name: "Mile End"})
	require.NoError(t, err)
	assert.Equal(t, db.VehicleCycling, route.Vehicle)
	empty, err := routes.Create(RouteInput{Name: "Plateau", Vehicle: db.VehicleDriving})
	require.NoError(t, err)
	_, err = routes.Create(RouteInput{Name: "Bad", Vehicle: "rocket"})
	require.ErrorIs(t, err, ErrInvalidRoute)

	day := mustDay(t, "2024-03-04")
	a := createClient(t, gdb, clientFixture{first: "Marie", last: "Tremblay", routeID: &route.ID, located: true})
	b := createClient(t, gdb, clientFixture{first: "Paul", last: "Gagnon", routeID: &route.ID, located: true})
	req := OrderRequest{Quantities: map[db.ComponentGroup]int{db.ComponentGroupMainDish: 1, db.ComponentGroupDessert: 1}, Size: db.MealSizeRegular}
	for _, c := range []db.Client{a, b} {
		_, err := orders.CreateOrder(day, c, req, defaultPrices(t))
		require.NoError(t, err)
	}

	overview, err := routes.Overview(day)
	require.NoError(t, err)
	require.Len(t, overview.Routes, 2)
	assert.False(t, overview.AllConfigured)
	assert.Equal(t, 2, overview.Routes[0].OrderCount)
	assert.Equal(t, OrganizeStateNo, overview.Routes[0].OrganizeState)
	assert.Equal(t, 0, overview.Routes[1].OrderCount)

	_, err = routes.RouteSheets(day)
	require.ErrorIs(t, err, ErrRoutesNotOrganized)

	_, err = routes.Organize(empty.ID, day)
	require.ErrorIs(t, err, ErrNoShippableClients)
	_, err = routes.Organize(999, day)
	require.ErrorIs(t, err, ErrRouteNotFound)

	history, err := routes.Organize(route.ID, day)
	require.NoError(t, err)
	again, err := routes.Organize(route.ID, day)
	require.NoError(t, err)
	assert.Equal(t, history.ID, again.ID)

	overview, err = routes.Overview(day)
	require.NoError(t, err)
	assert.Equal(t, OrganizeStateInvalid, overview.Routes[0].OrganizeState)

	_, err = routes.UpdateHistory(route.ID, day, DeliveryHistoryInput{Vehicle: db.VehicleWalking, Sequence: []uint{b.ID, a.ID}, Comments: "  ring twice "})
	require.NoError(t, err)

	overview, err = routes.Overview(day)
	require.NoError(t, err)
	assert.True(t, overview.AllConfigured)

	sheet, err := routes.RouteSheet(route.ID, day)
	require.NoError(t, err)
	assert.Equal(t, "Mile End", sheet.Route.Name)
	assert.Equal(t, db.VehicleWalking, sheet.Vehicle)
	assert.Equal(t, "ring twice", sheet.Comments)
	assert.Equal(t, []uint{b.ID, a.ID}, clientIDs(sheet.Details))
	require.Len(t, sheet.Summary, 2)
	assert.Equal(t, 2, sheet.Summary[0].RQty)

	// 新客户未加入顺序时仍出现在路线单末尾
	c := createClient(t, gdb, clientFixture{first: "Lise", last: "Roy", routeID: &route.ID, located: true})
	_, err = orders.CreateOrder(day, c, req, defaultPrices(t))
	require.NoError(t, err)
	sheet, err = routes.RouteSheet(route.ID, day)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, a.ID, c.ID}, clientIDs(sheet.Details))

	sheets, err := routes.RouteSheets(day)
	require.ErrorIs(t, err, ErrRoutesNotOrganized)
	assert.Nil(t, sheets)

	_, err = routes.RouteSheet(empty.ID, day)
	require.ErrorIs(t, err, ErrDeliveryHistoryNotFound)
}
