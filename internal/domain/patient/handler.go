package patient

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/auth"
	"github.com/clinicrecords/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient endpoints on g (normally /api/patients,
// already behind the auth middleware).
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type listResponse struct {
	Patients []*Patient `json:"patients"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PerPage  int        `json:"per_page"`
}

type createdResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ParseID reads a positive integer path parameter. Anything else is treated
// as a resource that does not exist.
func ParseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrNotFound
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	doc, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	params := ListParams{
		Params: pagination.FromContext(c),
		Search: strings.TrimSpace(c.QueryParam("search")),
	}
	patients, total, err := h.svc.List(c.Request().Context(), doc.ID, params)
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, listResponse{
		Patients: patients,
		Total:    total,
		Page:     params.Page,
		PerPage:  params.PerPage,
	})
}

func (h *Handler) Create(c echo.Context) error {
	doc, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("malformed request body")
	}
	p, err := h.svc.Create(c.Request().Context(), doc.ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createdResponse{Message: "patient created successfully", ID: p.ID})
}

func (h *Handler) Get(c echo.Context) error {
	doc, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), doc.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	doc, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}
	var patch Patch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("malformed request body")
	}
	p, err := h.svc.Update(c.Request().Context(), doc.ID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	doc, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), doc.ID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "patient deleted successfully"})
}
