// handlers_auth.go - Login and logout handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chemvis/dashboard/internal/dashboard"
	"github.com/chemvis/dashboard/internal/models"
)

// AuthHandlerImpl implements the AuthHandler interface
type AuthHandlerImpl struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() AuthHandler {
	return &AuthHandlerImpl{}
}

// HandleLogin verifies the credentials against the equipment API and, on
// success, returns the main-screen view. Credentials are kept only as the
// session's in-memory token.
func (h *AuthHandlerImpl) HandleLogin(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}

	var creds models.Credentials
	if err := c.Bind(&creds); err != nil {
		return NewBadRequestError("invalid login body", err)
	}

	switch ctrl.Login(c.Request().Context(), creds) {
	case dashboard.LoginIgnored:
		if creds.Username == "" {
			return NewValidationError("username")
		}
		return NewValidationError("password")
	case dashboard.LoginRejected:
		return NewUnauthorizedError(dashboard.MsgInvalidCredentials)
	case dashboard.LoginFailed:
		return NewBadGatewayError(dashboard.MsgConnectionFailed, nil)
	}

	return c.JSON(http.StatusOK, ctrl.Snapshot())
}

// HandleLogout drops the dashboard session and returns the login view.
func (h *AuthHandlerImpl) HandleLogout(c echo.Context) error {
	ctrl, err := controllerFrom(c)
	if err != nil {
		return err
	}
	ctrl.Logout()
	return c.JSON(http.StatusOK, ctrl.Snapshot())
}
