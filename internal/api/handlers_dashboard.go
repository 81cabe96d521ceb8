// handlers_dashboard.go - History, dataset view and download handlers
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chemvis/dashboard/internal/dashboard"
	"github.com/chemvis/dashboard/internal/render"
)

// MIMEMsgpack is the content type of msgpack-encoded responses.
const MIMEMsgpack = "application/msgpack"

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardHandlerImpl implements the DashboardHandler interface
type DashboardHandlerImpl struct{}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler() DashboardHandler {
	return &DashboardHandlerImpl{}
}

// HandleHistory reloads the upload history and returns its rows.
func (h *DashboardHandlerImpl) HandleHistory(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	if err := ctrl.LoadHistory(c.Request().Context()); err != nil {
		return fromDashboardError(err, "Could not load upload history")
	}
	return c.JSON(http.StatusOK, ctrl.Snapshot().History)
}

// HandleView puts a dataset from the history on display. An id that is
// not in the history window leaves the view unchanged.
func (h *DashboardHandlerImpl) HandleView(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError("id")
	}

	if err := ctrl.View(c.Request().Context(), id); err != nil {
		return fromDashboardError(err, "Could not load dataset")
	}
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// HandleSnapshot returns the current view model as JSON, or as msgpack
// when the client asks for it.
func (h *DashboardHandlerImpl) HandleSnapshot(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	view := ctrl.Snapshot()
	if !acceptsMsgpack(c.Request()) {
		return c.JSON(http.StatusOK, view)
	}

	data, err := encodeMsgpack(view)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, MIMEMsgpack, data)
}

// HandleChartImage renders the chart on display, PNG unless ?format=svg.
func (h *DashboardHandlerImpl) HandleChartImage(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	format := render.ImagePNG
	if strings.EqualFold(c.QueryParam("format"), string(render.ImageSVG)) {
		format = render.ImageSVG
	}

	img, err := ctrl.ChartImage(format)
	if err != nil {
		return fromDashboardError(err, "Could not render chart")
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, format.ContentType(), img)
}

// HandleReport downloads the PDF report of the dataset on display.
func (h *DashboardHandlerImpl) HandleReport(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	report, err := ctrl.DownloadReport(c.Request().Context())
	if err != nil {
		return fromDashboardError(err, "Report download failed")
	}

	setAttachment(c, report.Filename)
	return c.Blob(http.StatusOK, report.ContentType, report.Data)
}

// HandleExport downloads the dataset on display as an xlsx workbook.
func (h *DashboardHandlerImpl) HandleExport(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	id, err := ctrl.ExportWorkbook(&buf)
	if err != nil {
		return fromDashboardError(err, "Export failed")
	}

	setAttachment(c, render.WorkbookFilename(id))
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func setAttachment(c echo.Context, filename string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}

func acceptsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), MIMEMsgpack)
}

// encodeMsgpack encodes a view with the same field names as its JSON form.
func encodeMsgpack(view dashboard.ViewModel) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
