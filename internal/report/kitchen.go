package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/souschef/internal/service"
)

var componentColumns = []column{
	{"Component", 110, "L"},
	{"Regular", 50, "R"},
	{"Large", 50, "R"},
	{"Portions", 55, "R"},
	{"Ingredients", 275, "L"},
}

var mealColumns = []column{
	{"Clashing ingredients", 130, "L"},
	{"Reg", 35, "R"},
	{"Lrg", 35, "R"},
	{"Portions", 50, "R"},
	{"Client & Food Prep", 130, "L"},
	{"Other restrictions", 160, "L"},
}

var preparationColumns = []column{
	{"Food Preparation", 150, "L"},
	{"Quantity", 60, "R"},
	{"Clients", 330, "L"},
}

// KitchenCountPDF 厨房统计表：餐品汇总、特殊餐明细、特殊处理方式
func KitchenCountPDF(r service.KitchenReport, generated time.Time) ([]byte, error) {
	doc := newDocument("P", "Legal", "Kitchen count report", generated)
	date := r.Date.Format(ReportDateLayout)
	header := func() {
		doc.pdf.SetFont("Helvetica", "", 14)
		doc.pdf.CellFormat(300, 18, "Kitchen count report", "", 0, "L", false, 0, "")
		doc.pdf.SetFont("Helvetica", "", 9)
		doc.pdf.CellFormat(140, 18, doc.tr(date), "", 0, "R", false, 0, "")
		doc.pdf.CellFormat(0, 18, fmt.Sprintf("Page %d of {nb}", doc.pdf.PageNo()), "", 1, "R", false, 0, "")
		doc.pdf.Ln(6)
	}
	doc.onNewPage = header
	doc.addPage()

	if r.Empty() {
		doc.text("Helvetica", "", 11, 0, "No meals to prepare.", "L")
		return doc.bytes()
	}

	doc.text("Helvetica", "B", 14, 0, r.ComponentLines[0].Name, "L")
	doc.pdf.Ln(10)

	doc.tableHeader(componentColumns)
	for _, line := range r.ComponentLines {
		portions := ""
		if line.LQty > 0 {
			portions = service.FormatPortions(line.Portions())
		}
		doc.tableRow(componentColumns, []string{
			line.ComponentGroup, qty(line.RQty), qty(line.LQty), portions, line.Ingredients,
		}, "", 9)
	}
	doc.pdf.Ln(18)

	doc.onNewPage = func() {
		header()
		doc.tableHeader(mealColumns)
	}
	doc.ensureSpace(60)
	doc.tableHeader(mealColumns)
	for _, line := range r.MealLines {
		if line.IsBlank() {
			continue
		}
		doc.tableRow(mealColumns, mealLineCells(line), mealLineStyle(line), 9)
	}

	for _, section := range []struct {
		lines  []service.PreparationLine
		suffix string
	}{
		{r.PreparationsWithClashes, "with restrictions"},
		{r.PreparationsWithoutClashes, "without restrictions"},
	} {
		cols := append([]column(nil), preparationColumns...)
		cols[2].title = "Clients (" + section.suffix + ")"
		doc.onNewPage = func() {
			header()
			doc.tableHeader(cols)
		}
		doc.pdf.Ln(18)
		doc.ensureSpace(60)
		doc.tableHeader(cols)
		for _, line := range section.lines {
			doc.tableRow(cols, []string{
				line.Method, fmt.Sprint(line.Quantity), strings.Join(line.ClientNames, ";  "),
			}, "", 9)
		}
	}

	if len(r.Warnings) > 0 {
		doc.onNewPage = header
		doc.pdf.Ln(18)
		doc.ensureSpace(40)
		doc.text("Helvetica", "B", 10, 0, "Data warnings", "L")
		for _, warning := range r.Warnings {
			doc.ensureSpace(lineHeight)
			doc.text("Helvetica", "", 9, 0, warning, "L")
		}
	}
	return doc.bytes()
}

func mealLineStyle(line service.MealLine) string {
	if line.Client == service.SubtotalLabel || line.Client == "" {
		return "B"
	}
	return ""
}

// mealLineCells 小计行显示冲突食材，组内客户行留空；合计行没有客户
func mealLineCells(line service.MealLine) []string {
	portions := service.FormatPortions(service.Portions(line.RQty, line.LQty))
	if line.Client == "" {
		return []string{line.IngrClash, fmt.Sprint(line.RQty), fmt.Sprint(line.LQty), portions, "", ""}
	}
	if line.Client == service.SubtotalLabel {
		return []string{line.IngrClash, qty(line.RQty), qty(line.LQty), portions, "", ""}
	}

	client := line.Client
	if line.FoodPrep != "" {
		client += " (" + line.FoodPrep + ")"
	}
	other := line.RestIngr
	if other != "" && line.RestItem != "" {
		other += " ; "
	}
	other += line.RestItem
	if portions == "0" {
		portions = ""
	}
	return []string{"", qty(line.RQty), qty(line.LQty), portions, client, other}
}
