package render

import (
	"time"

	"github.com/chemvis/dashboard/internal/models"
)

// DefaultTimeLayout is used when no display layout is configured.
const DefaultTimeLayout = "Jan 2, 2006 15:04:05"

// HistoryRow is one entry of the rendered history list. The view action
// is bound to ID.
type HistoryRow struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Uploaded string `json:"uploaded"`
}

// HistoryFormatter renders upload timestamps in the viewer's timezone.
type HistoryFormatter struct {
	Location *time.Location
	Layout   string
}

// Rows builds history rows in the order the backend returned them.
func (f HistoryFormatter) Rows(datasets []models.Dataset) []HistoryRow {
	rows := make([]HistoryRow, 0, len(datasets))
	for i := range datasets {
		entry := datasets[i].Entry()
		rows = append(rows, HistoryRow{
			ID:       entry.ID,
			Filename: entry.Filename,
			Uploaded: f.Format(entry.UploadDate.Time),
		})
	}
	return rows
}

// Format renders t for display; the zero time renders empty.
func (f HistoryFormatter) Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	layout := f.Layout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return t.In(loc).Format(layout)
}
