package export

import (
	"fmt"
	"io"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	XLSXFilename    = "farmsetu_weather_data.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	RawDataSheet    = "Raw Data"
	StatisticsSheet = "Statistics"
)

// WriteXLSX writes a workbook with the matched rows and their statistics.
// unit labels the statistics values; stats may be nil for an empty result.
func WriteXLSX(w io.Writer, rows []domain.Observation, stats *domain.Statistics, unit string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", RawDataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRawData(f, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(StatisticsSheet); err != nil {
		return fmt.Errorf("create statistics sheet: %w", err)
	}
	if err := writeStatistics(f, stats, unit); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeRawData(f *excelize.File, rows []domain.Observation) error {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(RawDataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(RawDataSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(RawDataSheet, "A", "E", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	for i, o := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{o.Region, string(o.Parameter), o.Year, o.Month, o.Value}
		if err := f.SetSheetRow(RawDataSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeStatistics(f *excelize.File, stats *domain.Statistics, unit string) error {
	cells := [][]any{{"Statistic", "Value", "Unit"}}
	if stats != nil {
		cells = append(cells,
			[]any{"Average", stats.Average, unit},
			[]any{"Maximum", stats.Max, unit},
			[]any{"Minimum", stats.Min, unit},
		)
	}
	for i, row := range cells {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(StatisticsSheet, cell, &row); err != nil {
			return fmt.Errorf("write statistics row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(StatisticsSheet, "A", "C", 14); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}
