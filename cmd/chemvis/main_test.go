package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemvis/dashboard/internal/testutil"
)

func runCLI(t *testing.T, fake *testutil.FakeBackend, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("CHEMVIS_USER", "")
	t.Setenv("CHEMVIS_PASSWORD", "")
	t.Setenv("CHEMVIS_API_URL", "")

	full := append([]string{"-api", fake.URL(), "-tz", "UTC"}, args...)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func newFake(t *testing.T) *testutil.FakeBackend {
	t.Helper()
	fake := testutil.NewFakeBackend("admin", "admin123")
	t.Cleanup(fake.Close)
	return fake
}

func TestHistoryCommand(t *testing.T) {
	fake := newFake(t)
	fake.AddDataset(testutil.SampleDataset(7, "plant.csv"))

	code, out, _ := runCLI(t, fake, "-user", "admin", "-password", "admin123", "history")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "FILENAME")
	assert.Contains(t, out, "plant.csv")
	assert.Equal(t, 2, fake.Calls(testutil.EndpointHistory))
}

func TestCredentialsFromEnvironment(t *testing.T) {
	fake := newFake(t)
	t.Setenv("CHEMVIS_USER", "admin")
	t.Setenv("CHEMVIS_PASSWORD", "admin123")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-api", fake.URL(), "history"}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
}

func TestMissingCredentials(t *testing.T) {
	fake := newFake(t)

	code, _, errOut := runCLI(t, fake, "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "username and password are required")
	assert.Equal(t, 0, fake.TotalCalls())
}

func TestRejectedCredentials(t *testing.T) {
	fake := newFake(t)

	code, _, errOut := runCLI(t, fake, "-user", "admin", "-password", "wrong", "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid credentials")
}

func TestShowCommand(t *testing.T) {
	fake := newFake(t)
	fake.AddDataset(testutil.SampleDataset(3, "line.csv"))

	code, out, _ := runCLI(t, fake, "-user", "admin", "-password", "admin123", "show", "3")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Dataset 3: line.csv")
	assert.Contains(t, out, "Pump: 2")
	assert.Contains(t, out, "Valve-1")
}

func TestShowUnknownDataset(t *testing.T) {
	fake := newFake(t)

	code, _, errOut := runCLI(t, fake, "-user", "admin", "-password", "admin123", "show", "42")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "dataset 42 is not in the recent upload history")
}

func TestUploadCommand(t *testing.T) {
	fake := newFake(t)
	path := filepath.Join(t.TempDir(), "equipment.csv")
	require.NoError(t, os.WriteFile(path, []byte("Equipment Name,Type,Flowrate,Pressure,Temperature\nPump-1,Pump,120,5.2,110\n"), 0644))

	code, out, _ := runCLI(t, fake, "-user", "admin", "-password", "admin123", "upload", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "equipment.csv")

	name, _ := fake.LastUpload()
	assert.Equal(t, "equipment.csv", name)
}

func TestUploadRejected(t *testing.T) {
	fake := newFake(t)
	fake.FailUploads(http.StatusBadRequest, "Missing columns")
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))

	code, _, errOut := runCLI(t, fake, "-user", "admin", "-password", "admin123", "upload", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "upload: Missing columns")
}

func TestReportCommand(t *testing.T) {
	fake := newFake(t)
	fake.AddDataset(testutil.SampleDataset(5, "plant.csv"))
	out := filepath.Join(t.TempDir(), "r.pdf")

	code, stdout, _ := runCLI(t, fake, "-user", "admin", "-password", "admin123", "report", "5", "-o", out)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "saved")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 report 5", string(data))
}

func TestExportCommand(t *testing.T) {
	fake := newFake(t)
	fake.AddDataset(testutil.SampleDataset(5, "plant.csv"))
	out := filepath.Join(t.TempDir(), "plant.xlsx")

	code, _, _ := runCLI(t, fake, "-user", "admin", "-password", "admin123", "export", "-o", out, "5")
	require.Equal(t, 0, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestUsageErrors(t *testing.T) {
	fake := newFake(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"show without id", []string{"show"}},
		{"show bad id", []string{"show", "abc"}},
		{"upload without file", []string{"upload"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, fake, tt.args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, errOut, "usage: chemvis")
		})
	}
	assert.Equal(t, 0, fake.TotalCalls())
}

func TestIDAndOutput(t *testing.T) {
	id, out, err := idAndOutput([]string{"9", "-o", "x.pdf"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.Equal(t, "x.pdf", out)

	id, out, err = idAndOutput([]string{"-o", "y.pdf", "4"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
	assert.Equal(t, "y.pdf", out)

	_, _, err = idAndOutput([]string{"4", "extra"})
	assert.ErrorIs(t, err, errUsage)
}

func TestUploadConnectionErrorPrintedOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/history/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/api/upload/", func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "equipment.csv")
	require.NoError(t, os.WriteFile(path, []byte("Equipment Name,Type\nPump-1,Pump\n"), 0644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-api", srv.URL + "/api", "-user", "admin", "-password", "admin123", "upload", path},
		&stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Equal(t, "upload: Connection error\n", stderr.String())
}
