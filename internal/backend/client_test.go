package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chemvis/dashboard/internal/models"
	"github.com/chemvis/dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *testutil.FakeBackend) {
	t.Helper()
	fake := testutil.NewFakeBackend("admin", "admin123")
	t.Cleanup(fake.Close)
	return NewClient(fake.URL()+"/", 5*time.Second), fake
}

func TestBasicToken(t *testing.T) {
	assert.Equal(t, "Basic YWRtaW46YWRtaW4xMjM=", BasicToken("admin", "admin123"))
}

func TestClient_History(t *testing.T) {
	client, fake := newTestClient(t)
	fake.AddDataset(testutil.SampleDataset(1, "first.csv"))
	fake.AddDataset(testutil.SampleDataset(2, "second.csv"))

	datasets, err := client.History(context.Background(), BasicToken("admin", "admin123"))
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	assert.Equal(t, "second.csv", datasets[0].Filename)
	assert.Equal(t, []string{"Pump", "Valve"}, datasets[0].SummaryStats.TypeDistribution.Labels())
	assert.Equal(t, []string{"Basic YWRtaW46YWRtaW4xMjM="}, fake.AuthHeaders())
}

func TestClient_HistoryUnauthorized(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.History(context.Background(), BasicToken("admin", "wrong"))
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsTransport(err))

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Equal(t, "Invalid username/password.", be.Message)
}

func TestClient_Upload(t *testing.T) {
	client, fake := newTestClient(t)

	ds, err := client.Upload(context.Background(), BasicToken("admin", "admin123"), &models.UploadFile{
		Name: "equipment.csv",
		Data: []byte("Equipment Name,Type,Flowrate,Pressure,Temperature\nPump-1,Pump,120,5.2,110\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "equipment.csv", ds.Filename)
	assert.Equal(t, 3, ds.SummaryStats.TotalCount)

	name, data := fake.LastUpload()
	assert.Equal(t, "equipment.csv", name)
	assert.Contains(t, string(data), "Pump-1,Pump")
}

func TestClient_UploadBackendError(t *testing.T) {
	client, fake := newTestClient(t)
	fake.FailUploads(http.StatusBadRequest, "bad format")

	_, err := client.Upload(context.Background(), BasicToken("admin", "admin123"), &models.UploadFile{Name: "x.csv", Data: []byte("a")})
	require.Error(t, err)
	assert.Equal(t, "bad format", Message(err, "Upload failed"))
	assert.False(t, IsUnauthorized(err))
}

func TestClient_UploadBackendErrorWithoutMessage(t *testing.T) {
	client, fake := newTestClient(t)
	fake.FailUploads(http.StatusInternalServerError, "")

	_, err := client.Upload(context.Background(), BasicToken("admin", "admin123"), &models.UploadFile{Name: "x.csv", Data: []byte("a")})
	require.Error(t, err)
	assert.Equal(t, "Upload failed", Message(err, "Upload failed"))
}

func TestClient_Report(t *testing.T) {
	client, fake := newTestClient(t)
	fake.AddDataset(testutil.SampleDataset(4, "plant.csv"))

	report, err := client.Report(context.Background(), BasicToken("admin", "admin123"), 4)
	require.NoError(t, err)
	assert.Equal(t, "report_4.pdf", report.Filename)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.Equal(t, "%PDF-1.4 report 4", string(report.Data))

	_, err = client.Report(context.Background(), BasicToken("admin", "admin123"), 99)
	require.Error(t, err)
	assert.Equal(t, "Dataset not found", Message(err, ""))
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	_, err := client.History(context.Background(), BasicToken("a", "b"))
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsUnauthorized(err))
}

func TestClient_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.History(context.Background(), BasicToken("a", "b"))
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestClient_AcceptHeaders(t *testing.T) {
	var mu sync.Mutex
	accepts := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		accepts[r.URL.Path] = r.Header.Get("Accept")
		mu.Unlock()
		if r.URL.Path == "/api/report/4/" {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL+"/api", 5*time.Second)
	token := BasicToken("admin", "admin123")

	_, err := client.History(context.Background(), token)
	require.NoError(t, err)
	_, err = client.Report(context.Background(), token, 4)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "application/json", accepts["/api/history/"])
	assert.Equal(t, "application/pdf", accepts["/api/report/4/"])
}
