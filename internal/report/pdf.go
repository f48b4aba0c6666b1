// Package report 把聚合结果渲染成可下载的文件：PDF、PNG、CSV 与 XLSX。
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// 所有 PDF 以 pt 为单位，72 pt = 1 inch
const (
	pageMargin = 36.0
	lineHeight = 12.0
)

// ReportDateLayout 报表页眉中的日期格式
const ReportDateLayout = "Mon., 02 January 2006"

type column struct {
	title string
	width float64
	align string
}

// document 包装 fpdf，处理 cp1252 编码与跨页表头
type document struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	onNewPage func()
}

func newDocument(orientation, size, title string, created time.Time) *document {
	pdf := fpdf.New(orientation, "pt", size, "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("souschef", true)
	pdf.SetCreationDate(created)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AliasNbPages("")
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) addPage() {
	d.pdf.AddPage()
	if d.onNewPage != nil {
		d.onNewPage()
	}
}

// ensureSpace 剩余高度不足 h 时换页
func (d *document) ensureSpace(h float64) {
	_, pageH := d.pdf.GetPageSize()
	if d.pdf.GetY()+h > pageH-pageMargin {
		d.addPage()
	}
}

func (d *document) text(font string, style string, size float64, w float64, txt, align string) {
	d.pdf.SetFont(font, style, size)
	d.pdf.CellFormat(w, size+3, d.tr(txt), "", 1, align, false, 0, "")
}

// split 在 cp1252 编码后的文本上折行，核心字体的宽度表只覆盖 256 个字符
func (d *document) split(txt string, w float64) []string {
	encoded := d.tr(txt)
	runes := make([]rune, len(encoded))
	for i := 0; i < len(encoded); i++ {
		runes[i] = rune(encoded[i])
	}
	var out []string
	for _, line := range d.pdf.SplitText(string(runes), w) {
		b := make([]byte, 0, len(line))
		for _, r := range line {
			b = append(b, byte(r))
		}
		out = append(out, string(b))
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

// tableHeader 粗体灰底表头
func (d *document) tableHeader(cols []column) {
	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.SetFillColor(230, 230, 230)
	for _, col := range cols {
		d.pdf.CellFormat(col.width, lineHeight+4, d.tr(col.title), "1", 0, col.align, true, 0, "")
	}
	d.pdf.Ln(-1)
}

// tableRow 每个单元格按列宽折行，整行高度取最高的单元格
func (d *document) tableRow(cols []column, values []string, style string, size float64) {
	d.pdf.SetFont("Helvetica", style, size)
	lines := make([][]string, len(cols))
	rows := 1
	for i, col := range cols {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		lines[i] = d.split(value, col.width)
		if len(lines[i]) > rows {
			rows = len(lines[i])
		}
	}
	lh := size + 3
	h := float64(rows)*lh + 2
	d.ensureSpace(h)
	d.pdf.SetFont("Helvetica", style, size)

	x, y := d.pdf.GetXY()
	left := x
	for i, col := range cols {
		d.pdf.Rect(x, y, col.width, h, "D")
		for j, line := range lines[i] {
			d.pdf.SetXY(x, y+1+float64(j)*lh)
			d.pdf.CellFormat(col.width, lh, line, "", 0, col.align, false, 0, "")
		}
		x += col.width
	}
	d.pdf.SetXY(left, y+h)
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func qty(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprint(n)
}
