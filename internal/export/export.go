// Package export renders range-summary rows as downloadable files. The CSV
// and XLSX shapes mirror the dashboard's report table.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eggbucket/admin-api/internal/dates"
	"github.com/eggbucket/admin-api/internal/report"
)

// header matches the report table column order.
var header = []string{"DATE", "ALL", "DELIVERED", "CHECKED", "NOT DELIVERED"}

const sheetName = "Summary"

// displayDate renders a day key as the short form the dashboard shows.
// A key that fails to parse passes through untouched.
func displayDate(dayKey string) string {
	t, err := time.ParseInLocation(dates.Layout, dayKey, time.Local)
	if err != nil {
		return dayKey
	}
	return t.Format("02 Jan")
}

// WriteCSV streams the rows as CSV with the report header.
func WriteCSV(w io.Writer, rows []report.SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			displayDate(row.Date),
			strconv.Itoa(row.Total),
			strconv.Itoa(row.Delivered),
			strconv.Itoa(row.Checked),
			strconv.Itoa(row.NotDelivered),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX builds a single-sheet workbook and writes it out.
func WriteXLSX(w io.Writer, rows []report.SummaryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("set header %s: %w", h, err)
		}
	}
	for i, row := range rows {
		values := []any{
			displayDate(row.Date),
			row.Total,
			row.Delivered,
			row.Checked,
			row.NotDelivered,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("set row %s: %w", row.Date, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename builds the attachment name for a range export.
func Filename(startKey, endKey, ext string) string {
	return fmt.Sprintf("delivery-report_%s_%s.%s", startKey, endKey, ext)
}
