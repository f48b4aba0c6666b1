package service

import (
	"sort"

	"github.com/souschef/internal/db"
)

// DeliveryItem 路线单上一个客户的一类餐品
type DeliveryItem struct {
	ComponentGroup db.ComponentGroup
	GroupLabel     string
	TotalQuantity  int
	OrderItemType  db.OrderItemType
	Remark         string
	Size           db.MealSize
}

// DeliveryClient 路线单上的一个客户及其配送内容
type DeliveryClient struct {
	ClientID      uint
	FirstName     string
	LastName      string
	Number        string
	Street        string
	Apartment     string
	Phone         string
	DeliveryNote  string
	OrderID       uint
	IncludeABill  bool
	DeliveryItems []DeliveryItem
}

// componentGroupSortKey 主菜在前，其余类别按字母，没有类别的排最后
func componentGroupSortKey(group db.ComponentGroup) string {
	switch {
	case group == db.ComponentGroupMainDish:
		return "1"
	case group != "":
		return "2" + string(group)
	default:
		return "3"
	}
}

// includesABill 订单中含有不属于任何类别的 delivery 行，表示随餐附账单
func includesABill(order db.Order) bool {
	for _, item := range order.Items {
		if item.OrderItemType == db.OrderItemTypeDelivery && item.ComponentGroup == "" {
			return true
		}
	}
	return false
}

// MakeDeliveryList 把一条路线某天的订单整理为按客户的配送清单。
// 同一类别的数量累加，备注用 "; " 连接。返回值按客户 ID 排序。
func MakeDeliveryList(orders []db.Order) []DeliveryClient {
	byClient := map[uint]*DeliveryClient{}
	var ids []uint
	for _, order := range orders {
		if order.Status == db.OrderStatusCancelled || !order.Client.IsGeolocalized() {
			continue
		}
		client := order.Client
		dc, ok := byClient[client.ID]
		if !ok {
			dc = &DeliveryClient{
				ClientID:     client.ID,
				FirstName:    client.FirstName,
				LastName:     client.LastName,
				Number:       client.AddressNumber,
				Street:       client.AddressStreet,
				Apartment:    client.AddressApartment,
				Phone:        client.Phone,
				DeliveryNote: client.DeliveryNote,
				OrderID:      order.ID,
				IncludeABill: includesABill(order),
			}
			byClient[client.ID] = dc
			ids = append(ids, client.ID)
		}

		for _, oi := range order.Items {
			if oi.OrderItemType != db.OrderItemTypeComponent || oi.ComponentGroup == "" {
				continue
			}
			merged := false
			for i := range dc.DeliveryItems {
				existing := &dc.DeliveryItems[i]
				if existing.ComponentGroup != oi.ComponentGroup {
					continue
				}
				existing.TotalQuantity += oi.TotalQuantity
				if existing.Remark != "" {
					existing.Remark += "; "
				}
				existing.Remark += oi.Remark
				merged = true
				break
			}
			if merged {
				continue
			}
			item := DeliveryItem{
				ComponentGroup: oi.ComponentGroup,
				GroupLabel:     oi.ComponentGroup.Label(),
				TotalQuantity:  oi.TotalQuantity,
				OrderItemType:  oi.OrderItemType,
				Remark:         oi.Remark,
			}
			if oi.ComponentGroup == db.ComponentGroupMainDish {
				item.Size = oi.Size
			}
			dc.DeliveryItems = append(dc.DeliveryItems, item)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]DeliveryClient, 0, len(ids))
	for _, id := range ids {
		dc := byClient[id]
		sort.SliceStable(dc.DeliveryItems, func(i, j int) bool {
			return componentGroupSortKey(dc.DeliveryItems[i].ComponentGroup) < componentGroupSortKey(dc.DeliveryItems[j].ComponentGroup)
		})
		out = append(out, *dc)
	}
	return out
}

// SortBySequence 按人工整理的顺序排列客户。
// seq 中没有数据的 ID 被忽略，不在 seq 中的客户追加到末尾，不会被丢弃。
func SortBySequence(list []DeliveryClient, seq []uint) []DeliveryClient {
	index := make(map[uint]int, len(list))
	for i, dc := range list {
		index[dc.ClientID] = i
	}
	used := make(map[uint]bool, len(list))
	out := make([]DeliveryClient, 0, len(list))
	for _, id := range seq {
		i, ok := index[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		out = append(out, list[i])
	}
	for _, dc := range list {
		if !used[dc.ClientID] {
			out = append(out, dc)
		}
	}
	return out
}

// RouteSummaryLine 路线单顶部每类餐品的总数
type RouteSummaryLine struct {
	ComponentGroup db.ComponentGroup
	GroupLabel     string
	RQty           int
	LQty           int
}

// MakeRouteSheetLines 生成汇总行，大份主菜单独计数；明细行即传入的客户顺序
func MakeRouteSheetLines(list []DeliveryClient) ([]RouteSummaryLine, []DeliveryClient) {
	byGroup := map[db.ComponentGroup]*RouteSummaryLine{}
	for _, dc := range list {
		for _, item := range dc.DeliveryItems {
			if item.ComponentGroup == "" {
				continue
			}
			line, ok := byGroup[item.ComponentGroup]
			if !ok {
				line = &RouteSummaryLine{ComponentGroup: item.ComponentGroup, GroupLabel: item.ComponentGroup.Label()}
				byGroup[item.ComponentGroup] = line
			}
			if item.ComponentGroup == db.ComponentGroupMainDish && item.Size == db.MealSizeLarge {
				line.LQty += item.TotalQuantity
			} else {
				line.RQty += item.TotalQuantity
			}
		}
	}

	summary := make([]RouteSummaryLine, 0, len(byGroup))
	for _, line := range byGroup {
		summary = append(summary, *line)
	}
	sort.Slice(summary, func(i, j int) bool {
		return componentGroupSortKey(summary[i].ComponentGroup) < componentGroupSortKey(summary[j].ComponentGroup)
	})
	return summary, list
}
