package render

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/chemvis/dashboard/internal/models"
)

const (
	equipmentSheet = "Equipment"
	summarySheet   = "Summary"
)

// ExportWorkbook writes the dataset as an XLSX workbook with an Equipment
// sheet (the table) and a Summary sheet (stats and type distribution).
func ExportWorkbook(ds *models.Dataset, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", equipmentSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(TableColumns))
	for i, col := range TableColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(equipmentSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, item := range ds.Items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{item.Name, item.EquipmentType, item.Flowrate, item.Pressure, item.Temperature}
		if err := f.SetSheetRow(equipmentSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	stats := ds.SummaryStats
	summary := [][]interface{}{
		{"Dataset", ds.Filename},
		{"Total Count", stats.TotalCount},
		{"Avg Flowrate", FormatAverage(stats.AvgFlowrate)},
		{"Avg Pressure", FormatAverage(stats.AvgPressure)},
		{"Avg Temperature", FormatAverage(stats.AvgTemperature)},
		{},
		{"Type", "Count"},
	}
	for _, tc := range stats.TypeDistribution {
		summary = append(summary, []interface{}{tc.Type, tc.Count})
	}
	for i := range summary {
		if len(summary[i]) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &summary[i]); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WorkbookFilename is the download name of a dataset export.
func WorkbookFilename(datasetID int64) string {
	return fmt.Sprintf("dataset_%d.xlsx", datasetID)
}
