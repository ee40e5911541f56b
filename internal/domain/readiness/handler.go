package readiness

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orflow/orflow/internal/platform/apperr"
	"github.com/orflow/orflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireCapability(auth.CapReadinessRead))
	g.GET("/cases/:id/readiness", h.Evaluate)
	g.GET("/cases/:id/readiness/cached", h.Cached)
	g.GET("/cases/:id/readiness/gates", h.Gates)
}

// Evaluate computes the live signal and writes it through to the cache.
func (h *Handler) Evaluate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	snap, err := h.svc.EvaluateAndCache(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) Cached(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	snap, err := h.svc.Cached(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

type gatesResponse struct {
	CanStart    bool `json:"can_start"`
	CanComplete bool `json:"can_complete"`
}

func (h *Handler) Gates(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	canStart, err := h.svc.CanStart(ctx, id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	canComplete, err := h.svc.CanComplete(ctx, id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, gatesResponse{CanStart: canStart, CanComplete: canComplete})
}
