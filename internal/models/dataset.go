// Package models contains domain types for the equipment dashboard.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Equipment is a single row of an uploaded dataset.
type Equipment struct {
	ID            int64   `json:"id,omitempty"`
	Name          string  `json:"name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

// SummaryStats are computed by the backend when a dataset is uploaded.
type SummaryStats struct {
	TotalCount       int              `json:"total_count"`
	AvgFlowrate      float64          `json:"avg_flowrate"`
	AvgPressure      float64          `json:"avg_pressure"`
	AvgTemperature   float64          `json:"avg_temperature"`
	TypeDistribution TypeDistribution `json:"type_distribution"`
}

// Dataset is an uploaded CSV together with its statistics and rows.
// The backend owns it; the dashboard never mutates one locally.
type Dataset struct {
	ID           int64        `json:"id"`
	Filename     string       `json:"filename"`
	UploadDate   Timestamp    `json:"upload_date"`
	SummaryStats SummaryStats `json:"summary_stats"`
	Items        []Equipment  `json:"items"`
}

// Entry projects the dataset onto its history list entry.
func (d *Dataset) Entry() HistoryEntry {
	return HistoryEntry{
		ID:         d.ID,
		Filename:   d.Filename,
		UploadDate: d.UploadDate,
	}
}

// HistoryEntry is one line of the upload history.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate Timestamp `json:"upload_date"`
}

// The backend emits RFC 3339, or a naive local time when timezone support
// is disabled on its side. Naive times are read in time.Local.
var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a time.Time that accepts the backend's date formats.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveTimestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}
