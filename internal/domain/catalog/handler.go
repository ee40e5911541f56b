package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orflow/orflow/internal/platform/apperr"
	"github.com/orflow/orflow/internal/platform/auth"
	"github.com/orflow/orflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireCapability(auth.CapInventoryRead, auth.CapCaseRead))
	readGroup.GET("/catalog-items", h.ListItems)
	readGroup.GET("/catalog-items/:id", h.GetItem)
	readGroup.GET("/catalog-items/:id/components", h.GetComponents)

	writeGroup := api.Group("", auth.RequireCapability(auth.CapCatalogWrite))
	writeGroup.POST("/catalog-items", h.CreateItem)
	writeGroup.PUT("/catalog-items/:id", h.UpdateItem)
	writeGroup.DELETE("/catalog-items/:id", h.DeleteItem)
	writeGroup.POST("/catalog-items/:id/components", h.AddComponent)
	writeGroup.DELETE("/catalog-items/:id/components/:componentId", h.RemoveComponent)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var i Item
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateItem(c.Request().Context(), &i); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, i)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	i, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var i Item
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	i.ID = id
	if err := h.svc.UpdateItem(c.Request().Context(), &i); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return apperr.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AddComponent(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var comp Component
	if err := c.Bind(&comp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	comp.ParentID = parentID
	if err := h.svc.AddComponent(c.Request().Context(), &comp); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, comp)
}

func (h *Handler) RemoveComponent(c echo.Context) error {
	componentID, err := uuid.Parse(c.Param("componentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid component id")
	}
	if err := h.svc.RemoveComponent(c.Request().Context(), componentID); err != nil {
		return apperr.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetComponents(c echo.Context) error {
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	comps, err := h.svc.GetComponents(c.Request().Context(), parentID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, comps)
}
