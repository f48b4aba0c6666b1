package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/souschef/internal/service"
	"github.com/xuri/excelize/v2"
)

// BillingCSV 按会计软件导入格式输出，CRLF 换行
func BillingCSV(rows []service.InvoiceRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write(service.InvoiceHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.Strings()); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

const billingSheet = "Facturation"

// 列宽与 InvoiceHeader 对应
var billingColumnWidths = []float64{12, 28, 28, 22, 16, 14, 34, 14, 8, 10, 12, 30}

// BillingXLSX 与 CSV 相同的列，数量与金额写成数值单元格，末尾追加合计行
func BillingXLSX(rows []service.InvoiceRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(billingSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFormat := "0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	header := make([]interface{}, len(service.InvoiceHeader))
	for i, h := range service.InvoiceHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(billingSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(billingSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	for i, width := range billingColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(billingSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range rows {
		cells := row.Strings()
		values := make([]interface{}, len(cells))
		for j, cell := range cells {
			values[j] = cell
		}
		values[0] = row.InvoiceNumber
		values[8] = row.Quantity
		values[9] = row.Rate.InexactFloat64()
		values[10] = row.Amount.InexactFloat64()

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(billingSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	totalRow := len(rows) + 2
	labelCell, _ := excelize.CoordinatesToCellName(10, totalRow)
	totalCell, _ := excelize.CoordinatesToCellName(11, totalRow)
	if err := f.SetCellValue(billingSheet, labelCell, "Total"); err != nil {
		return nil, fmt.Errorf("failed to write total label: %w", err)
	}
	if err := f.SetCellValue(billingSheet, totalCell, service.RowsTotal(rows).InexactFloat64()); err != nil {
		return nil, fmt.Errorf("failed to write total: %w", err)
	}
	firstMoney, _ := excelize.CoordinatesToCellName(10, 2)
	if err := f.SetCellStyle(billingSheet, firstMoney, totalCell, moneyStyle); err != nil {
		return nil, fmt.Errorf("failed to set money style: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
