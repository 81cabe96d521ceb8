package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/chemvis/dashboard/internal/backend"
	"github.com/chemvis/dashboard/internal/dashboard"
	"github.com/chemvis/dashboard/internal/render"
	"github.com/chemvis/dashboard/internal/upload"
)

func TestFromDashboardError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not logged in", dashboard.ErrNotAuthenticated, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in"},
		{"no dataset", dashboard.ErrNoActiveDataset, http.StatusConflict, "CONFLICT", "no dataset on display"},
		{"no chart", dashboard.ErrNoChart, http.StatusNotFound, "NOT_FOUND", "chart not found"},
		{"empty chart", render.ErrEmptyChart, http.StatusNotFound, "NOT_FOUND", "chart not found"},
		{"too large", fmt.Errorf("%w: 12MB", upload.ErrTooLarge), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", ""},
		{"unsupported", fmt.Errorf("%w: \".txt\"", upload.ErrUnsupportedType), http.StatusBadRequest, "BAD_REQUEST", ""},
		{"expired", &backend.Error{Status: http.StatusForbidden}, http.StatusUnauthorized, "UNAUTHORIZED", dashboard.MsgSessionExpired},
		{"transport", &backend.TransportError{Op: "history", Err: io.EOF}, http.StatusBadGateway, "BAD_GATEWAY", dashboard.MsgConnectionFailed},
		{"rejected", &backend.Error{Status: http.StatusBadRequest, Message: "bad format"}, http.StatusUnprocessableEntity, "REJECTED", "bad format"},
		{"server error", &backend.Error{Status: http.StatusInternalServerError}, http.StatusBadGateway, "BAD_GATEWAY", "fallback"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := fromDashboardError(tt.err, "fallback")
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	handler := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"api error", NewConflictError("no dataset on display"), http.StatusConflict, `"code":"CONFLICT"`},
		{"echo error", echo.NewHTTPError(http.StatusNotFound, "Not Found"), http.StatusNotFound, `"code":"HTTP_ERROR"`},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, `"code":"UNKNOWN_ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}
