package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

type PolicyHandler struct {
	intake ports.IntakeService
	base   records[*domain.Policy]
}

func NewPolicyHandler(intake ports.IntakeService, policies ports.RecordService[*domain.Policy]) *PolicyHandler {
	return &PolicyHandler{intake: intake, base: records[*domain.Policy]{service: policies}}
}

// Create issues a policy to a client. The policy number is assigned here.
//
// @Summary      Issue policy
// @Tags         policies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createPolicyRequest  true  "Policy"
// @Success      201   {object}  domain.Policy
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]string  "ALLOCATION_FAILURE"
// @Router       /policies [post]
func (h *PolicyHandler) Create(c echo.Context) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	var req createPolicyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	policy, err := h.intake.IssuePolicy(c.Request().Context(), ac, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, policy)
}

// List returns the caller's policies; staff see all.
//
// @Summary      List policies
// @Tags         policies
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  map[string]any
// @Router       /policies [get]
func (h *PolicyHandler) List(c echo.Context) error { return h.base.list(c) }

// Get returns one policy.
//
// @Summary      Get policy
// @Tags         policies
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Policy ID"
// @Success      200  {object}  domain.Policy
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /policies/{id} [get]
func (h *PolicyHandler) Get(c echo.Context) error { return h.base.get(c) }

// UpdateStatus moves a policy along its lifecycle.
//
// @Summary      Update policy status
// @Tags         policies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Policy ID"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  domain.Policy
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /policies/{id}/status [put]
func (h *PolicyHandler) UpdateStatus(c echo.Context) error { return h.base.updateStatus(c) }
