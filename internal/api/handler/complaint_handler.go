package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

type ComplaintHandler struct {
	intake ports.IntakeService
	base   records[*domain.Complaint]
}

func NewComplaintHandler(intake ports.IntakeService, complaints ports.RecordService[*domain.Complaint]) *ComplaintHandler {
	return &ComplaintHandler{intake: intake, base: records[*domain.Complaint]{service: complaints}}
}

// Create files a complaint.
//
// @Summary      File complaint
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      fileComplaintRequest  true  "Complaint"
// @Success      201   {object}  domain.Complaint
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string  "ALLOCATION_FAILURE"
// @Router       /complaints [post]
func (h *ComplaintHandler) Create(c echo.Context) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	var req fileComplaintRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	complaint, err := h.intake.FileComplaint(c.Request().Context(), ac, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, complaint)
}

// List returns the caller's complaints; staff see all.
//
// @Summary      List complaints
// @Tags         complaints
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  map[string]any
// @Router       /complaints [get]
func (h *ComplaintHandler) List(c echo.Context) error { return h.base.list(c) }

// Get returns one complaint.
//
// @Summary      Get complaint
// @Tags         complaints
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Complaint ID"
// @Success      200  {object}  domain.Complaint
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /complaints/{id} [get]
func (h *ComplaintHandler) Get(c echo.Context) error { return h.base.get(c) }

// UpdateStatus moves a complaint through handling.
//
// @Summary      Update complaint status
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Complaint ID"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  domain.Complaint
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /complaints/{id}/status [put]
func (h *ComplaintHandler) UpdateStatus(c echo.Context) error { return h.base.updateStatus(c) }
