// handlers_upload.go - Dataset upload handler
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chemvis/dashboard/internal/backend"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct{}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler() UploadHandler {
	return &UploadHandlerImpl{}
}

// HandleUpload forwards a multipart file to the equipment API. On success
// the new dataset is on display and the refreshed view is returned.
func (h *UploadHandlerImpl) HandleUpload(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile(backend.UploadField)
	if err != nil {
		return NewValidationError(backend.UploadField)
	}

	src, err := fh.Open()
	if err != nil {
		return NewBadRequestError("failed to read uploaded file", err)
	}
	defer src.Close()

	if err := ctrl.Upload(c.Request().Context(), fh.Filename, src); err != nil {
		return fromDashboardError(err, "Upload failed")
	}

	return c.JSON(http.StatusCreated, ctrl.Snapshot())
}
