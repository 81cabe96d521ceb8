// mock_backend.go - Fake equipment API for testing
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chemvis/dashboard/internal/models"
)

// Endpoint names used by the call counters.
const (
	EndpointHistory = "history"
	EndpointUpload  = "upload"
	EndpointReport  = "report"
)

// FakeBackend emulates the equipment API's /history/, /upload/ and
// /report/{id}/ endpoints behind Basic auth.
type FakeBackend struct {
	Server *httptest.Server

	mu           sync.Mutex
	username     string
	password     string
	datasets     []models.Dataset // newest first
	historyLimit int
	nextID       int64
	calls        map[string]int
	authHeaders  []string

	uploadStatus  int
	uploadMessage string
	historyStatus int
	reportStatus  int
	historyDelay  time.Duration

	lastUploadName string
	lastUploadData []byte
}

// NewFakeBackend starts a fake API accepting the given credentials.
func NewFakeBackend(username, password string) *FakeBackend {
	f := &FakeBackend{
		username:     username,
		password:     password,
		historyLimit: 5,
		nextID:       1,
		calls:        make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/history/", f.handleHistory)
	mux.HandleFunc("/api/upload/", f.handleUpload)
	mux.HandleFunc("/api/report/", f.handleReport)
	f.Server = httptest.NewServer(mux)
	return f
}

// URL returns the API root, including the /api prefix.
func (f *FakeBackend) URL() string {
	return f.Server.URL + "/api"
}

// Close shuts the server down.
func (f *FakeBackend) Close() {
	f.Server.Close()
}

// AddDataset pushes a dataset onto the front of the history.
func (f *FakeBackend) AddDataset(ds models.Dataset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ds.ID == 0 {
		ds.ID = f.nextID
	}
	if ds.ID >= f.nextID {
		f.nextID = ds.ID + 1
	}
	f.datasets = append([]models.Dataset{ds}, f.datasets...)
}

// FailUploads makes every upload answer status with {"error": message}.
func (f *FakeBackend) FailUploads(status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadStatus = status
	f.uploadMessage = message
}

// FailHistory makes /history/ answer status. Zero restores normal behaviour.
func (f *FakeBackend) FailHistory(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyStatus = status
}

// FailReports makes /report/{id}/ answer status. Zero restores normal behaviour.
func (f *FakeBackend) FailReports(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportStatus = status
}

// SetHistoryLimit changes how many datasets /history/ returns.
func (f *FakeBackend) SetHistoryLimit(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyLimit = n
}

// SetHistoryDelay delays every /history/ answer.
func (f *FakeBackend) SetHistoryDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyDelay = d
}

// Calls returns how many requests hit endpoint, authorized or not.
func (f *FakeBackend) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// TotalCalls returns the number of requests across all endpoints.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// AuthHeaders returns the Authorization header of every request received.
func (f *FakeBackend) AuthHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHeaders...)
}

// LastUpload returns the filename and content of the latest upload.
func (f *FakeBackend) LastUpload() (string, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUploadName, f.lastUploadData
}

func (f *FakeBackend) record(endpoint string, r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[endpoint]++
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))

	user, pass, ok := r.BasicAuth()
	return ok && user == f.username && pass == f.password
}

func (f *FakeBackend) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !f.record(EndpointHistory, r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username/password."})
		return
	}

	f.mu.Lock()
	status := f.historyStatus
	delay := f.historyDelay
	list := f.datasets
	if len(list) > f.historyLimit {
		list = list[:f.historyLimit]
	}
	list = append([]models.Dataset{}, list...)
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (f *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !f.record(EndpointUpload, r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username/password."})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUploadName = header.Filename
	f.lastUploadData = data

	if f.uploadStatus != 0 {
		body := map[string]string{}
		if f.uploadMessage != "" {
			body["error"] = f.uploadMessage
		}
		writeJSON(w, f.uploadStatus, body)
		return
	}

	ds := SampleDataset(f.nextID, header.Filename)
	f.nextID++
	f.datasets = append([]models.Dataset{ds}, f.datasets...)
	writeJSON(w, http.StatusCreated, ds)
}

func (f *FakeBackend) handleReport(w http.ResponseWriter, r *http.Request) {
	if !f.record(EndpointReport, r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username/password."})
		return
	}

	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/report/"), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Dataset not found"})
		return
	}

	f.mu.Lock()
	status := f.reportStatus
	found := false
	for _, ds := range f.datasets {
		if ds.ID == id {
			found = true
			break
		}
	}
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "report failed"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Dataset not found"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%%PDF-1.4 report %d", id)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SampleDataset builds a small, fully computed dataset.
func SampleDataset(id int64, filename string) models.Dataset {
	return models.Dataset{
		ID:         id,
		Filename:   filename,
		UploadDate: models.Timestamp{Time: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)},
		SummaryStats: models.SummaryStats{
			TotalCount:     3,
			AvgFlowrate:    119.8,
			AvgPressure:    6.1333333,
			AvgTemperature: 117.5,
			TypeDistribution: models.TypeDistribution{
				{Type: "Pump", Count: 2},
				{Type: "Valve", Count: 1},
			},
		},
		Items: []models.Equipment{
			{Name: "Pump-1", EquipmentType: "Pump", Flowrate: 120, Pressure: 5.2, Temperature: 110},
			{Name: "Pump-2", EquipmentType: "Pump", Flowrate: 125.4, Pressure: 6.1, Temperature: 115.5},
			{Name: "Valve-1", EquipmentType: "Valve", Flowrate: 114, Pressure: 7.1, Temperature: 127},
		},
	}
}
