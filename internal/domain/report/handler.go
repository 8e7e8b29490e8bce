package report

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clintrack/clintrack/internal/domain/trial"
	"github.com/clintrack/clintrack/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.GET("/trials/:id/report", h.Generate)
}

func (h *Handler) Generate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	data, err := h.svc.Generate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, trial.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "trial not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, data)
}
