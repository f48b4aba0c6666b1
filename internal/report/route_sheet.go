package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/souschef/internal/db"
	"github.com/souschef/internal/service"
)

var summaryColumns = []column{
	{"PLAT / DISH", 120, "L"},
	{"Qté / Qty", 60, "C"},
}

var routeColumns = []column{
	{"Client", 190, "L"},
	{"Note", 150, "L"},
	{"Items", 150, "L"},
	{"", 50, "R"},
}

// RouteSheetHeader 页眉中的机构名称与电话
type RouteSheetHeader struct {
	Organisation string
	Phone        string
}

// RouteSheetsPDF 每条路线从新的一页开始：汇总表、路线名、按顺序排列的客户明细
func RouteSheetsPDF(sheets []service.RouteSheet, header RouteSheetHeader, generated time.Time) ([]byte, error) {
	doc := newDocument("P", "Letter", "Route sheets", generated)
	printed := 0
	for _, sheet := range sheets {
		if len(sheet.Summary) == 0 {
			continue
		}
		printed++
		routeStart := doc.pdf.PageNo() + 1
		date := sheet.Date.Format(ReportDateLayout)
		pageHeader := func() {
			pdf := doc.pdf
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(200, 14, doc.tr(header.Organisation), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(240, 14, "(Ce document contient des informations CONFIDENTIELLES.)", "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 14, fmt.Sprintf("Page %d", pdf.PageNo()-routeStart+1), "", 1, "R", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(200, 14, doc.tr(header.Phone), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(0, 14, "(This document contains CONFIDENTIAL information.)", "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(0, 14, doc.tr(date), "", 1, "L", false, 0, "")
			pdf.Ln(8)
		}
		doc.onNewPage = pageHeader
		doc.addPage()

		doc.tableHeader(summaryColumns)
		for _, line := range sheet.Summary {
			doc.tableRow(summaryColumns, []string{summaryLabel(line), fmt.Sprint(line.RQty + line.LQty)}, "", 10)
		}

		doc.pdf.Ln(14)
		doc.text("Helvetica", "B", 20, 0, sheet.Route.Name, "C")
		if sheet.Vehicle != "" {
			doc.text("Helvetica", "", 11, 0, "Vehicle: "+sheet.Vehicle, "C")
		}
		if sheet.Comments != "" {
			doc.text("Helvetica", "I", 10, 0, sheet.Comments, "C")
		}
		doc.pdf.Ln(10)
		doc.text("Helvetica", "", 12, 0, "- DÉBUT DE LA ROUTE / START ROUTE -", "L")
		doc.pdf.Ln(4)

		doc.onNewPage = func() {
			pageHeader()
			doc.tableHeader(routeColumns)
		}
		doc.tableHeader(routeColumns)
		for _, client := range sheet.Details {
			doc.tableRow(routeColumns, deliveryCells(client), "", 11)
		}
		doc.tableRow(routeColumns, []string{
			"- FIN DE LA ROUTE -\n- END OF ROUTE -",
			"Nombre d'arrêts :\nNumber of Stops :",
			fmt.Sprint(len(sheet.Details)),
			"",
		}, "B", 11)
	}
	if printed == 0 {
		doc.onNewPage = nil
		doc.addPage()
		doc.text("Helvetica", "", 11, 0, "No deliveries.", "L")
	}
	return doc.bytes()
}

func summaryLabel(line service.RouteSummaryLine) string {
	if line.ComponentGroup == db.ComponentGroupMainDish && line.LQty > 0 {
		return fmt.Sprintf("%s (%d L)", line.GroupLabel, line.LQty)
	}
	return line.GroupLabel
}

// deliveryCells 客户单元格：姓名、地址、电话；物品列附上账单提示
func deliveryCells(client service.DeliveryClient) []string {
	who := []string{client.FirstName + " " + client.LastName}
	who = append(who, strings.TrimSpace(client.Number+" "+client.Street))
	if client.Apartment != "" {
		who = append(who, "Apt "+client.Apartment)
	}
	if client.Phone != "" {
		who = append(who, client.Phone)
	}

	var items, quantities []string
	for _, item := range client.DeliveryItems {
		label := item.GroupLabel
		if item.ComponentGroup == db.ComponentGroupMainDish && item.Size == db.MealSizeLarge {
			label += " (L)"
		}
		if item.Remark != "" {
			label += " - " + item.Remark
		}
		items = append(items, label)
		quantities = append(quantities, fmt.Sprint(item.TotalQuantity))
	}
	if client.IncludeABill {
		items = append(items, "Facture / Bill")
	}
	return []string{
		strings.Join(who, "\n"),
		client.DeliveryNote,
		strings.Join(items, "\n"),
		strings.Join(quantities, "\n"),
	}
}
