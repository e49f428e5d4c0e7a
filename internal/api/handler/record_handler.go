package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insureportal/portal-api/internal/api/middleware"
	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

// records implements the read and status endpoints every numbered record
// type shares.
type records[R domain.NumberedRecord] struct {
	service ports.RecordService[R]
}

func (h records[R]) list(c echo.Context) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	var q listQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return domain.InvalidInput(domain.ReasonValidation, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	res, err := h.service.List(c.Request().Context(), ac, ports.RecordFilter{
		Status: q.Status,
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(res))
}

// get serves the record RequireOwnership already loaded, or loads it
// through the service's own ownership check.
func (h records[R]) get(c echo.Context) error {
	if rec, ok := middleware.Resource[R](c); ok {
		return c.JSON(http.StatusOK, rec)
	}
	ac, err := principal(c)
	if err != nil {
		return err
	}
	rec, err := h.service.Get(c.Request().Context(), ac, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h records[R]) updateStatus(c echo.Context) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rec, err := h.service.UpdateStatus(c.Request().Context(), ac, c.Param("id"), req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
