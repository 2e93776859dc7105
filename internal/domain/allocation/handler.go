package allocation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/bedalloc/internal/domain/patient"
	"github.com/ehr/bedalloc/pkg/pagination"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/wards", h.ListWards)
	api.POST("/wards", h.AddWard)
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.AdmitPatient)
	api.DELETE("/patients/:id", h.DischargePatient)
	api.GET("/waitlist", h.ListWaiting)
	api.GET("/report", h.Report)
}

type addWardRequest struct {
	ID         *int   `json:"id"`
	Department string `json:"department"`
	Capacity   int    `json:"capacity"`
}

type admitRequest struct {
	Name     string `json:"name"`
	Age      *int   `json:"age"`
	Severity *int   `json:"severity"`
}

// httpError maps engine errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrExhausted):
		return echo.NewHTTPError(http.StatusInsufficientStorage, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListWards(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.ListWards(c.Request().Context()))
}

func (h *Handler) AddWard(c echo.Context) error {
	var req addWardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	if err := h.engine.AddWard(c.Request().Context(), *req.ID, req.Department, req.Capacity); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, h.engine.ListWards(c.Request().Context()))
}

func (h *Handler) AdmitPatient(c echo.Context) error {
	var req admitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Age == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "age is required")
	}
	if req.Severity == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "severity is required")
	}
	adm, err := h.engine.Admit(c.Request().Context(), req.Name, *req.Age, *req.Severity)
	if err != nil {
		return httpError(err)
	}
	if adm.Placed() {
		return c.JSON(http.StatusCreated, adm)
	}
	return c.JSON(http.StatusAccepted, adm)
}

func (h *Handler) DischargePatient(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.engine.Discharge(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListPatients returns the roster in admission order. ?status=placed or
// ?status=waiting narrows the listing.
func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	roster := h.engine.ListPatients(c.Request().Context())

	status := c.QueryParam("status")
	if status != "" && status != "placed" && status != "waiting" {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be placed or waiting")
	}
	patients := make([]patient.Patient, 0, len(roster.Patients))
	for _, p := range roster.Patients {
		if status == "" || status == p.Status() {
			patients = append(patients, p)
		}
	}

	resp := pagination.NewResponse(pagination.Page(patients, pg), len(patients), pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, len(patients))
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListWaiting(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.ListPatients(c.Request().Context()).Waiting)
}

func (h *Handler) Report(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Report(c.Request().Context()))
}
