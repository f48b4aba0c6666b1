package service

import (
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/souschef/internal/db"
)

// InvoiceHeader 发票 CSV 固定表头，列顺序与会计软件导入模板一致
var InvoiceHeader = []string{
	"Nº de facture",
	"Client",
	"Courriel",
	"Modalités",
	"Date de facturation",
	"Échéance",
	"Produit/service",
	"Description",
	"Qté",
	"Taux",
	"Montant",
	"Classe",
}

const mainDishDescription = "Repas"

// 产品名称
const (
	ProductMain            = "Popote roulante"
	ProductMainLowIncome   = "Popote roulante_Low income"
	ProductLarge           = "Popote roulante_Repas Large"
	ProductLargeLowIncome  = "Popote roulante_Low income Large"
	ProductExtra           = "Popote roulante_Extra"
	ProductExtraLowIncome  = "Popote roulante_Extra Low Income"
	ProductMainNotCharged  = "Popote roulante_non-chargé"
	ProductLargeNotCharged = "Popote roulante_Large_non-chargé"
)

// InvoiceSettings 发票中由系统设置决定的列
type InvoiceSettings struct {
	Terms string
	Class string
}

// InvoiceSettingsFrom 从系统设置中取出发票相关字段
func InvoiceSettingsFrom(settings SystemSettings) InvoiceSettings {
	out := InvoiceSettings{Terms: settings.BillingTerms, Class: settings.BillingClass}
	if out.Terms == "" {
		out.Terms = defaultBillingTerms
	}
	if out.Class == "" {
		out.Class = defaultBillingClass
	}
	return out
}

// GroupedItem 同一 (类别, 份量, 单价) 的订单行合并后的数量
type GroupedItem struct {
	ComponentGroup db.ComponentGroup
	Description    string
	Size           db.MealSize
	UnitPrice      decimal.Decimal
	Billable       bool
	Quantity       int
}

// Amount = Quantity × UnitPrice
func (g GroupedItem) Amount() decimal.Decimal {
	return g.UnitPrice.Mul(decimal.NewFromInt(int64(g.Quantity)))
}

func itemDescription(group db.ComponentGroup) string {
	if group == db.ComponentGroupMainDish {
		return mainDishDescription
	}
	return group.Label()
}

func unitPrice(item db.OrderItem) decimal.Decimal {
	if !item.BillableFlag || item.TotalQuantity == 0 {
		return decimal.Zero
	}
	return item.Price.Div(decimal.NewFromInt(int64(item.TotalQuantity)))
}

// GroupInvoiceItems 合并一组订单中的餐品行。
// 主菜的免费行保留（显示为不收费），其他类别的免费行跳过。
// 没有份量的主菜不参与合并，作为数据问题返回 warnings。
func GroupInvoiceItems(orders []db.Order) ([]GroupedItem, []string) {
	var (
		groups   []GroupedItem
		warnings []string
	)
	for _, order := range orders {
		for _, item := range order.Items {
			if item.OrderItemType != db.OrderItemTypeComponent || item.ComponentGroup == "" {
				continue
			}
			isMain := item.ComponentGroup == db.ComponentGroupMainDish
			if !isMain && !item.BillableFlag {
				continue
			}
			if isMain && item.Size == "" {
				warnings = append(warnings, fmt.Sprintf("order %d: main dish without size excluded from billing", order.ID))
				continue
			}
			size := item.Size
			if !isMain {
				size = ""
			}
			price := unitPrice(item)

			idx := slices.IndexFunc(groups, func(g GroupedItem) bool {
				return g.ComponentGroup == item.ComponentGroup && g.Size == size && g.UnitPrice.Equal(price)
			})
			if idx < 0 {
				groups = append(groups, GroupedItem{
					ComponentGroup: item.ComponentGroup,
					Description:    itemDescription(item.ComponentGroup),
					Size:           size,
					UnitPrice:      price,
					Billable:       item.BillableFlag,
				})
				idx = len(groups) - 1
			}
			groups[idx].Quantity += item.TotalQuantity
		}
	}

	order := make(map[db.ComponentGroup]int, len(db.ComponentGroups))
	for i, g := range db.ComponentGroups {
		order[g] = i
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if order[a.ComponentGroup] != order[b.ComponentGroup] {
			return order[a.ComponentGroup] < order[b.ComponentGroup]
		}
		if a.Size != b.Size {
			return a.Size > b.Size // R 在 L 前
		}
		return a.UnitPrice.GreaterThan(b.UnitPrice)
	})
	return groups, warnings
}

// ProductName 根据类别、份量、费率与是否计费选择产品名称
func ProductName(group db.ComponentGroup, size db.MealSize, rate db.RateType, billable bool) string {
	lowIncome := rate == db.RateTypeLowIncome
	if group == db.ComponentGroupMainDish {
		if !billable {
			if size == db.MealSizeLarge {
				return ProductLargeNotCharged
			}
			return ProductMainNotCharged
		}
		switch size {
		case db.MealSizeRegular:
			if lowIncome {
				return ProductMainLowIncome
			}
			return ProductMain
		case db.MealSizeLarge:
			if lowIncome {
				return ProductLargeLowIncome
			}
			return ProductLarge
		}
	}
	if lowIncome {
		return ProductExtraLowIncome
	}
	return ProductExtra
}

// InvoiceRow 发票 CSV 中的一行
type InvoiceRow struct {
	InvoiceNumber uint
	Client        string
	Email         string
	Terms         string
	InvoiceDate   string
	DueDate       string
	Product       string
	Description   string
	Quantity      int
	Rate          decimal.Decimal
	Amount        decimal.Decimal
	Class         string
}

func formatMoney(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	return d.StringFixed(2)
}

// Strings 按表头顺序输出
func (r InvoiceRow) Strings() []string {
	return []string{
		strconv.FormatUint(uint64(r.InvoiceNumber), 10),
		r.Client,
		r.Email,
		r.Terms,
		r.InvoiceDate,
		r.DueDate,
		r.Product,
		r.Description,
		strconv.Itoa(r.Quantity),
		formatMoney(r.Rate),
		formatMoney(r.Amount),
		r.Class,
	}
}

// BillingDate 账单日期为该月最后一天
func BillingDate(year, month int) string {
	return LastDayOfMonth(year, month).Format(DateLayout)
}

// BillingFileName 导出文件名，ext 不带点
func BillingFileName(year, month int, ext string) string {
	return fmt.Sprintf("%s_sous_chef_billing.%s", BillingDate(year, month), ext)
}

// ClientOrders 某个客户在账单中的订单
type ClientOrders struct {
	Client db.Client
	Orders []db.Order
}

// GroupByClient 把账单订单按客户分组，客户按姓、名排序
func GroupByClient(orders []db.Order) []ClientOrders {
	byClient := map[uint]*ClientOrders{}
	var ids []uint
	for _, order := range orders {
		co, ok := byClient[order.ClientID]
		if !ok {
			client := order.Client
			if client.ID == 0 {
				client.ID = order.ClientID
			}
			co = &ClientOrders{Client: client}
			byClient[order.ClientID] = co
			ids = append(ids, order.ClientID)
		}
		co.Orders = append(co.Orders, order)
	}

	out := make([]ClientOrders, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byClient[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Client, out[j].Client
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return out
}

// InvoiceRows 生成账单的全部发票行以及数据问题提示。
// 每个客户第一行带完整抬头，后续行只保留客户编号。
func InvoiceRows(billing db.Billing, settings InvoiceSettings) ([]InvoiceRow, []string) {
	date := BillingDate(billing.BillingYear, billing.BillingMonth)
	var (
		rows     []InvoiceRow
		warnings []string
	)
	for _, co := range GroupByClient(billing.Orders) {
		groups, w := GroupInvoiceItems(co.Orders)
		warnings = append(warnings, w...)
		first := true
		for _, g := range groups {
			if g.Quantity <= 0 {
				continue
			}
			row := InvoiceRow{
				InvoiceNumber: co.Client.ID,
				Product:       ProductName(g.ComponentGroup, g.Size, co.Client.RateType, g.Billable),
				Description:   g.Description,
				Quantity:      g.Quantity,
				Rate:          g.UnitPrice,
				Amount:        g.Amount(),
				Class:         settings.Class,
			}
			if first {
				row.Client = fmt.Sprintf("%s, %s", co.Client.LastName, co.Client.FirstName)
				row.Email = co.Client.BillingEmail
				row.Terms = settings.Terms
				row.InvoiceDate = date
				row.DueDate = date
				first = false
			}
			rows = append(rows, row)
		}
	}
	return rows, warnings
}

// RowsTotal 所有发票行金额之和
func RowsTotal(rows []InvoiceRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}
