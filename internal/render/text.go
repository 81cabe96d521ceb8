package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteHistory prints history rows as an aligned table.
func WriteHistory(w io.Writer, rows []HistoryRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tUPLOADED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Filename, r.Uploaded)
	}
	return tw.Flush()
}

// WriteDashboard prints stats, distribution and table of a dashboard view.
func WriteDashboard(w io.Writer, view *DashboardView) error {
	fmt.Fprintf(w, "Dataset %d: %s\n\n", view.DatasetID, view.Filename)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Count\t%s\n", view.Stats.Count)
	fmt.Fprintf(tw, "Avg Flowrate\t%s\n", view.Stats.Flowrate)
	fmt.Fprintf(tw, "Avg Pressure\t%s\n", view.Stats.Pressure)
	fmt.Fprintf(tw, "Avg Temperature\t%s\n", view.Stats.Temperature)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(view.Chart.Labels) > 0 {
		fmt.Fprintln(w, "\nType distribution:")
		for i, label := range view.Chart.Labels {
			fmt.Fprintf(w, "  - %s: %d\n", label, view.Chart.Values[i])
		}
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(TableColumns, "\t")))
	for _, row := range view.Rows {
		fmt.Fprintln(tw, strings.Join(row[:], "\t"))
	}
	return tw.Flush()
}
