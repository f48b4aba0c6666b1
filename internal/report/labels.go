package report

import (
	"time"

	"github.com/souschef/internal/service"
)

// Avery 5162：Letter 纸，2 列 × 7 行，单位 pt
const (
	sheetWidth      = 8.5 * 72
	sheetHeight     = 11.0 * 72
	labelColumns    = 2
	labelRows       = 7
	labelsPerSheet  = labelColumns * labelRows
	labelTopMargin  = 21.0 / 25.4 * 72
	labelSideMargin = 4.0 / 25.4 * 72
	labelGutter     = 3.0 / 16.0 * 72
	labelWidth      = (sheetWidth - 2*labelSideMargin - labelGutter) / labelColumns
	labelHeight     = (sheetHeight - 2*labelTopMargin) / labelRows
	labelPadding    = 9.0
	labelNameLine   = 11.0
)

// LabelOrigin 第 i 张标签在所在页上的左上角坐标
func LabelOrigin(i int) (x, y float64) {
	slot := i % labelsPerSheet
	col, row := slot%labelColumns, slot/labelColumns
	x = labelSideMargin + float64(col)*(labelWidth+labelGutter)
	y = labelTopMargin + float64(row)*labelHeight
	return x, y
}

// LabelPages 标签需要的页数
func LabelPages(count int) int {
	return (count + labelsPerSheet - 1) / labelsPerSheet
}

// MealLabelsPDF 每份餐一张标签；没有标签时返回 nil
func MealLabelsPDF(labels []service.MealLabel, generated time.Time) ([]byte, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	doc := newDocument("P", "Letter", "Meal labels", generated)
	doc.pdf.SetMargins(0, 0, 0)
	for i, label := range labels {
		if i%labelsPerSheet == 0 {
			doc.pdf.AddPage()
		}
		x, y := LabelOrigin(i)
		drawLabel(doc, x, y, label)
	}
	return doc.bytes()
}

// drawLabel 自上而下：主菜与份量、配菜、配菜冲突、特殊处理、主菜冲突、其他限制、食材；
// 底部一行为姓名、路线、日期
func drawLabel(doc *document, x, y float64, label service.MealLabel) {
	pdf := doc.pdf
	right := x + labelWidth - labelPadding
	baseline := y + labelHeight*0.15 + 14

	if label.MainDishName != "" || label.Size != "" {
		pdf.SetFont("Helvetica", "B", 10)
		if label.MainDishName != "" {
			pdf.Text(x+labelPadding, baseline, doc.tr(label.MainDishName))
		}
		if label.Size != "" {
			pdf.Text(right-pdf.GetStringWidth(label.Size), baseline, label.Size)
		}
		baseline += 14
	}

	plain := func(lines []string, size, step float64) {
		pdf.SetFont("Helvetica", "", size)
		for _, line := range lines {
			pdf.Text(x+labelPadding, baseline, doc.tr(line))
			baseline += step
		}
	}
	prefixed := func(lines []string) {
		if len(lines) == 0 {
			return
		}
		pdf.SetFont("Helvetica", "", 9)
		prefix := doc.tr(lines[0])
		pdf.Text(x+labelPadding, baseline, prefix)
		offset := pdf.GetStringWidth(prefix)
		pdf.SetFont("Helvetica", "B", 9)
		for _, line := range lines[1:] {
			pdf.Text(x+labelPadding+offset, baseline, doc.tr(line))
			offset = 0
			baseline += 10
		}
	}

	plain(label.Sides, 9, 10)
	prefixed(label.SidesClashes)
	prefixed(label.Preparations)
	plain(label.DishClashes, 9, 10)
	plain(label.OtherRestrictions, 9, 10)
	plain(label.Ingredients, 8, 9)

	// 底部白底遮住溢出的文字
	bottom := y + labelHeight - labelNameLine
	pdf.SetFillColor(255, 255, 255)
	pdf.Rect(x, bottom-13, labelWidth, labelNameLine+13, "F")
	if label.Name != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(x+labelPadding, bottom, doc.tr(label.Name))
	}
	if label.Route != "" {
		pdf.SetFont("Helvetica", "I", 10)
		route := doc.tr(label.Route)
		pdf.Text(x+labelWidth/2-pdf.GetStringWidth(route)/2, bottom, route)
	}
	if label.Date != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(right-pdf.GetStringWidth(label.Date), bottom, label.Date)
	}
}
