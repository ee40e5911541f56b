package cases

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
	readGroup := api.Group("", auth.RequireCapability(auth.CapCaseRead))
	readGroup.GET("/cases", h.List)
	readGroup.GET("/cases/:id", h.Get)
	readGroup.GET("/cases/:id/transitions", h.Transitions)
	readGroup.GET("/cases/:id/anesthesia-plan", h.GetAnesthesiaPlan)
	readGroup.GET("/clinicians", h.ListClinicians)
	readGroup.GET("/rooms", h.ListRooms)

	writeGroup := api.Group("", auth.RequireCapability(auth.CapCaseWrite))
	writeGroup.POST("/cases", h.Create)
	writeGroup.PATCH("/cases/:id", h.Update)
	writeGroup.POST("/cases/:id/approve", h.Approve)
	writeGroup.POST("/cases/:id/reject", h.Reject)
	writeGroup.POST("/cases/:id/activate", h.Activate)
	writeGroup.POST("/cases/:id/deactivate", h.Deactivate)
	writeGroup.POST("/cases/:id/cancel", h.Cancel)
	writeGroup.PUT("/cases/:id/anesthesia-plan", h.SetAnesthesiaPlan)
	writeGroup.POST("/clinicians", h.CreateClinician)
	writeGroup.POST("/rooms", h.CreateRoom)

	api.DELETE("/cases/:id", h.Delete, auth.RequireCapability(auth.CapCaseDelete))
}

func (h *Handler) Create(c echo.Context) error {
	var cmd CreateCommand
	if err := c.Bind(&cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.Create(c.Request().Context(), cmd)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cs, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	f := ListFilter{Status: c.QueryParam("status")}
	if v := c.QueryParam("clinician_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician_id")
		}
		f.ClinicianID = &id
	}
	if v := c.QueryParam("room_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid room_id")
		}
		f.RoomID = &id
	}
	f.ActiveOnly = c.QueryParam("active") == "true"

	items, total, err := h.svc.List(c.Request().Context(), f, p)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd Update
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.Update(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var cmd ApproveCommand
	if err := c.Bind(&cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.Approve(c.Request().Context(), id, cmd)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

type reasonRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.Reject(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) Activate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sched ScheduleUpdate
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.Activate(c.Request().Context(), id, sched)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cs, err := h.svc.Deactivate(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Transitions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Transitions(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SetAnesthesiaPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p AnesthesiaPlan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.CaseID = id
	if err := h.svc.SetAnesthesiaPlan(c.Request().Context(), &p); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetAnesthesiaPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.AnesthesiaPlanForCase(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateClinician(c echo.Context) error {
	var cl Clinician
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateClinician(c.Request().Context(), &cl); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) ListClinicians(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListClinicians(c.Request().Context(), p)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var rm Room
	if err := c.Bind(&rm); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRoom(c.Request().Context(), &rm); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, rm)
}

func (h *Handler) ListRooms(c echo.Context) error {
	items, err := h.svc.ListRooms(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
