// Package export renders occupancy statistics as downloadable reports.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"cto-inventory-backend/internal/occupancy"
)

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var headers = []string{"Name", "Status", "Splitter", "Total", "Occupied", "Available", "Rate (%)", "Level", "Latitude", "Longitude"}

// ContentType returns the MIME type of a report format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Build renders the report in the requested format.
func Build(format string, stats []occupancy.BoxStats, generated time.Time) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return BuildOccupancyXLSX(stats, generated)
	case FormatPDF:
		return BuildOccupancyPDF(stats, generated)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// BuildOccupancyXLSX renders a workbook with a summary sheet and one row per box.
func BuildOccupancyXLSX(stats []occupancy.BoxStats, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	boxesSheet := "boxes"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(boxesSheet); err != nil {
		return nil, err
	}

	total, occupied := totals(stats)
	_ = f.SetCellValue(summarySheet, "A1", "CTO Occupancy Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", generated.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Boxes")
	_ = f.SetCellValue(summarySheet, "B4", len(stats))
	_ = f.SetCellValue(summarySheet, "A5", "Total ports")
	_ = f.SetCellValue(summarySheet, "B5", total)
	_ = f.SetCellValue(summarySheet, "A6", "Occupied ports")
	_ = f.SetCellValue(summarySheet, "B6", occupied)
	_ = f.SetCellValue(summarySheet, "A7", "Overall rate (%)")
	_ = f.SetCellValue(summarySheet, "B7", occupancy.Rate(occupied, total))

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(boxesSheet, cell, h)
	}
	for i, s := range stats {
		row := i + 2
		values := []interface{}{
			s.Name, string(s.Status), s.SplitterType, s.TotalPorts, s.OccupiedPorts,
			s.AvailablePorts, s.OccupancyRate, string(s.OccupancyLevel), s.Latitude, s.Longitude,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(boxesSheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOccupancyPDF renders a one-table PDF listing every box.
func BuildOccupancyPDF(stats []occupancy.BoxStats, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	total, occupied := totals(stats)
	pdf.Cell(0, 8, "CTO Occupancy Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Boxes: %d  Ports: %d  Occupied: %d  Rate: %d%%",
		len(stats), total, occupied, occupancy.Rate(occupied, total)))
	pdf.Ln(8)

	widths := []float64{60, 30, 22, 18, 22, 22, 20, 20, 30, 30}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, s := range stats {
		cells := []string{
			s.Name,
			string(s.Status),
			s.SplitterType,
			fmt.Sprintf("%d", s.TotalPorts),
			fmt.Sprintf("%d", s.OccupiedPorts),
			fmt.Sprintf("%d", s.AvailablePorts),
			fmt.Sprintf("%d", s.OccupancyRate),
			string(s.OccupancyLevel),
			fmt.Sprintf("%.7f", s.Latitude),
			fmt.Sprintf("%.7f", s.Longitude),
		}
		for i, v := range cells {
			align := "R"
			if i < 3 || i == 7 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func totals(stats []occupancy.BoxStats) (total, occupied int) {
	for _, s := range stats {
		total += s.TotalPorts
		occupied += s.OccupiedPorts
	}
	return total, occupied
}
