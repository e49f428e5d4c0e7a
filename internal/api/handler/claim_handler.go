package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

type ClaimHandler struct {
	intake ports.IntakeService
	base   records[*domain.Claim]
}

func NewClaimHandler(intake ports.IntakeService, claims ports.RecordService[*domain.Claim]) *ClaimHandler {
	return &ClaimHandler{intake: intake, base: records[*domain.Claim]{service: claims}}
}

// Create files a claim against one of the caller's active policies.
//
// @Summary      Submit claim
// @Tags         claims
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      submitClaimRequest  true  "Claim"
// @Success      201   {object}  domain.Claim
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]string  "ALLOCATION_FAILURE"
// @Router       /claims [post]
func (h *ClaimHandler) Create(c echo.Context) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	var req submitClaimRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	claim, err := h.intake.SubmitClaim(c.Request().Context(), ac, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, claim)
}

// List returns the caller's claims; staff see all.
//
// @Summary      List claims
// @Tags         claims
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  map[string]any
// @Router       /claims [get]
func (h *ClaimHandler) List(c echo.Context) error { return h.base.list(c) }

// Get returns one claim.
//
// @Summary      Get claim
// @Tags         claims
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Claim ID"
// @Success      200  {object}  domain.Claim
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /claims/{id} [get]
func (h *ClaimHandler) Get(c echo.Context) error { return h.base.get(c) }

// UpdateStatus records a review decision or payment.
//
// @Summary      Update claim status
// @Tags         claims
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Claim ID"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  domain.Claim
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /claims/{id}/status [put]
func (h *ClaimHandler) UpdateStatus(c echo.Context) error { return h.base.updateStatus(c) }
