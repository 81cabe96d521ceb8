// Package render turns backend datasets into display-ready view models:
// formatted stat fields, table rows, history rows, chart specs and images,
// and workbook exports. Nothing here talks to the network.
package render

import (
	"strconv"

	"github.com/chemvis/dashboard/internal/models"
)

// TableColumns are the dataset table headers, in cell order.
var TableColumns = []string{"Name", "Type", "Flowrate", "Pressure", "Temperature"}

// Stats are the four summary fields as they are displayed.
type Stats struct {
	Count       string `json:"count"`
	Flowrate    string `json:"flowrate"`
	Pressure    string `json:"pressure"`
	Temperature string `json:"temperature"`
}

// DashboardView is everything the dashboard panel shows for one dataset.
type DashboardView struct {
	DatasetID int64       `json:"datasetId"`
	Filename  string      `json:"filename"`
	Stats     Stats       `json:"stats"`
	Rows      [][5]string `json:"rows"`
	Chart     ChartSpec   `json:"chart"`
}

// BuildDashboard formats a dataset for display. The count is shown as is,
// the three averages to exactly two decimals, and table rows keep the
// backend's order and values.
func BuildDashboard(ds *models.Dataset) *DashboardView {
	stats := ds.SummaryStats
	view := &DashboardView{
		DatasetID: ds.ID,
		Filename:  ds.Filename,
		Stats: Stats{
			Count:       strconv.Itoa(stats.TotalCount),
			Flowrate:    FormatAverage(stats.AvgFlowrate),
			Pressure:    FormatAverage(stats.AvgPressure),
			Temperature: FormatAverage(stats.AvgTemperature),
		},
		Rows:  make([][5]string, 0, len(ds.Items)),
		Chart: BuildChartSpec(stats.TypeDistribution),
	}

	for _, item := range ds.Items {
		view.Rows = append(view.Rows, [5]string{
			item.Name,
			item.EquipmentType,
			FormatValue(item.Flowrate),
			FormatValue(item.Pressure),
			FormatValue(item.Temperature),
		})
	}
	return view
}

// FormatAverage formats a summary average to two decimals.
func FormatAverage(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatValue formats a measured value without rounding or padding.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
