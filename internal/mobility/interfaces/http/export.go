package http

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	mobility "central-backend/internal/mobility/domain"
)

// BuildRecordsPDF renders a minimal PDF listing of mobility records.
func BuildRecordsPDF(records []mobility.MobilityRecord) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "CDR Records")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, "IMEI", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "BTS", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Prev BTS", "1", 0, "C", false, 0, "")
	pdf.CellFormat(42, 6, "Arrival", "1", 0, "C", false, 0, "")
	pdf.CellFormat(42, 6, "Departure", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Distance", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Duration", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Speed", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i := range records {
		record := &records[i]
		pdf.CellFormat(30, 6, record.IMEI, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, record.BTSID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, stringOrEmpty(record.PreviousBTSID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(42, 6, formatLocalTime(record.TimestampArrival), "1", 0, "L", false, 0, "")
		departure := ""
		if record.TimestampDeparture != nil {
			departure = formatLocalTime(*record.TimestampDeparture)
		}
		pdf.CellFormat(42, 6, departure, "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, floatCell(record.Distance), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, intCell(record.DurationSeconds), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, floatCell(record.Speed), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRecordsXLSX renders a minimal XLSX listing of mobility records.
func BuildRecordsXLSX(records []mobility.MobilityRecord) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "records"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"id", "imei", "mcc", "mnc", "lac", "btsId", "previousBtsId",
		"timestampArrival", "timestampDeparture", "distance", "duration", "speed",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}

	for rowIdx := range records {
		record := &records[rowIdx]
		departure := ""
		if record.TimestampDeparture != nil {
			departure = formatLocalTime(*record.TimestampDeparture)
		}
		values := []any{
			record.ID,
			record.IMEI,
			record.MCC,
			record.MNC,
			record.LAC,
			record.BTSID,
			stringOrEmpty(record.PreviousBTSID),
			formatLocalTime(record.TimestampArrival),
			departure,
			floatCell(record.Distance),
			intCell(record.DurationSeconds),
			floatCell(record.Speed),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func floatCell(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *value)
}

func intCell(value *int) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%d", *value)
}
