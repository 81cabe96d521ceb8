package models

import "fmt"

// Credentials are typed at login and never stored.
type Credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Empty reports whether either field is missing.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// UploadFile is a file ready to be posted to the backend.
type UploadFile struct {
	Name string
	Data []byte
}

// Report is a downloaded PDF report.
type Report struct {
	DatasetID   int64
	Filename    string
	ContentType string
	Data        []byte
}

// ReportFilename is the save name for a dataset's report.
func ReportFilename(datasetID int64) string {
	return fmt.Sprintf("report_%d.pdf", datasetID)
}
