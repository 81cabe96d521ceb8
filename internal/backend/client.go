// Package backend is the HTTP client for the equipment API.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/chemvis/dashboard/internal/models"
)

// UploadField is the multipart field the backend reads the CSV from.
const UploadField = "file"

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 * 1024

// BasicToken builds the Authorization header value for a credential pair.
// This is an encoding, not encryption.
func BasicToken(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Client talks to the equipment API. The same token is attached to every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g. http://127.0.0.1:8000/api.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the API root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// History fetches GET /history/. The backend returns full datasets,
// newest first, capped at its own recent-items window.
func (c *Client) History(ctx context.Context, token string) ([]models.Dataset, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/history/", token, nil)
	if err != nil {
		return nil, err
	}

	var datasets []models.Dataset
	if err := c.doJSON(req, "history", &datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

// Upload posts the file as multipart form data to POST /upload/ and
// returns the dataset the backend computed from it.
func (c *Client) Upload(ctx context.Context, token string, file *models.UploadFile) (*models.Dataset, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(UploadField, file.Name)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload/", token, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var ds models.Dataset
	if err := c.doJSON(req, "upload", &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Report downloads GET /report/{id}/ as an opaque blob.
func (c *Client) Report(ctx context.Context, token string, datasetID int64) (*models.Report, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/report/%d/", datasetID), token, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "report", Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "report", Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	return &models.Report{
		DatasetID:   datasetID,
		Filename:    models.ReportFilename(datasetID),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", token)
	return req, nil
}

func (c *Client) doJSON(req *http.Request, op string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// checkStatus turns a non-2xx response into an *Error, picking up the
// backend's {"error": "..."} body when there is one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &Error{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Detail
		}
	}
	return apiErr
}
