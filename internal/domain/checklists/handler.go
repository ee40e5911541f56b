package checklists

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
	readGroup := api.Group("", auth.RequireCapability(auth.CapCaseRead))
	readGroup.GET("/cases/:id/checklists", h.ListByCase)

	writeGroup := api.Group("", auth.RequireCapability(auth.CapChecklistWrite))
	writeGroup.POST("/cases/:id/checklists", h.CreateInstance)
	writeGroup.PATCH("/checklists/:id", h.UpdateStatus)
	writeGroup.POST("/cases/:id/attestations", h.Attest)
	writeGroup.POST("/attestations/:id/void", h.Void)
}

func (h *Handler) CreateInstance(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var i Instance
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	i.CaseID = caseID
	if err := h.svc.CreateInstance(c.Request().Context(), &i); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, i)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	inst, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status, actor)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *Handler) ListByCase(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListByCase(c.Request().Context(), caseID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

type attestRequest struct {
	Note *string `json:"note,omitempty"`
}

func (h *Handler) Attest(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req attestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	a, err := h.svc.Attest(c.Request().Context(), caseID, actor, req.Note)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Void(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	a, err := h.svc.Void(c.Request().Context(), id, actor)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
