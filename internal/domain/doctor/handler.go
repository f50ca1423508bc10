package doctor

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the auth endpoints on g (normally /api/auth).
// limit guards the credential endpoints; requireAuth guards /me.
func (h *Handler) RegisterRoutes(g *echo.Group, requireAuth, limit echo.MiddlewareFunc) {
	g.POST("/register", h.Register, limit)
	g.POST("/login", h.Login, limit)
	g.GET("/me", h.Me, requireAuth)
}

type createdResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("malformed request body")
	}
	d, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createdResponse{Message: "doctor registered successfully", ID: d.ID})
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("malformed request body")
	}
	res, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Me(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Profile{ID: p.ID, Name: p.Name, Email: p.Email, Specialization: p.Specialization})
}
