package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

// AdminHandler exposes account administration. Routes are admin-only.
type AdminHandler struct {
	authService ports.AuthService
}

func NewAdminHandler(authService ports.AuthService) *AdminHandler {
	return &AdminHandler{authService: authService}
}

// CreateUser creates an account with any role.
//
// @Summary      Create account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createStaffRequest  true  "Account details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /admin/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createStaffRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.CreateStaff(c.Request().Context(), req.toInput(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, userResponse{User: user})
}

// GetUser returns any account.
//
// @Summary      Get account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  map[string]string
// @Router       /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	user, err := h.authService.Me(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// SetStatus activates, suspends or verifies an account.
//
// @Summary      Set account status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "User ID"
// @Param        body  body      setStatusRequest  true  "Account flags"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /admin/users/{id}/status [put]
func (h *AdminHandler) SetStatus(c echo.Context) error {
	var req setStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.SetStatus(c.Request().Context(), c.Param("id"), domain.AccountStatus{
		IsActive:    *req.IsActive,
		IsSuspended: *req.IsSuspended,
		IsVerified:  *req.IsVerified,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// SetPermissions replaces the explicit permission list of an account. Role
// permissions are granted regardless.
//
// @Summary      Set account permissions
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "User ID"
// @Param        body  body      setPermissionsRequest  true  "Permissions"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /admin/users/{id}/permissions [put]
func (h *AdminHandler) SetPermissions(c echo.Context) error {
	var req setPermissionsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	perms := make([]domain.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, domain.Permission(p))
	}
	user, err := h.authService.SetPermissions(c.Request().Context(), c.Param("id"), perms)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}
