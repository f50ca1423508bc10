package record

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
	"github.com/clinicrecords/clinic/internal/platform/auth"
	"github.com/clinicrecords/clinic/internal/platform/filestore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the record endpoints on g (normally /api/records,
// behind the auth middleware). uploadLimit wraps the create route.
func (h *Handler) RegisterRoutes(g *echo.Group, uploadLimit echo.MiddlewareFunc) {
	g.GET("/download/:filename", h.Download)
	g.GET("/:patient_id", h.List)
	g.POST("/:patient_id", h.Create, uploadLimit)
}

type listResponse struct {
	PatientID int64     `json:"patient_id"`
	Records   []*Record `json:"records"`
}

type createdResponse struct {
	Message  string  `json:"message"`
	ID       int64   `json:"id"`
	FilePath *string `json:"file_path"`
}

func parsePatientID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("patient_id"), 10, 64)
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
	patientID, err := parsePatientID(c)
	if err != nil {
		return err
	}
	records, err := h.svc.List(c.Request().Context(), doc.ID, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{PatientID: patientID, Records: records})
}

// Create accepts either a JSON body or a multipart form whose optional
// "file" part is the attachment.
func (h *Handler) Create(c echo.Context) error {
	doc, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	patientID, err := parsePatientID(c)
	if err != nil {
		return err
	}

	var (
		in Input
		up *Upload
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return formError(err)
		}
		defer form.RemoveAll()

		in = inputFromForm(form)
		if files := form.File["file"]; len(files) > 0 {
			fh := files[0]
			f, err := fh.Open()
			if err != nil {
				return apperr.Storage("open upload", err)
			}
			defer f.Close()
			up = &Upload{Filename: fh.Filename, Content: f}
		}
	} else if err := c.Bind(&in); err != nil {
		return apperr.Validation("malformed request body")
	}

	rec, err := h.svc.Create(c.Request().Context(), doc.ID, patientID, in, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createdResponse{
		Message:  "record created successfully",
		ID:       rec.ID,
		FilePath: rec.FilePath,
	})
}

func inputFromForm(form *multipart.Form) Input {
	get := func(k string) string {
		if v := form.Value[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	in := Input{Title: get("title"), RecordDate: get("record_date")}
	if d := get("description"); d != "" {
		in.Description = &d
	}
	return in
}

func formError(err error) error {
	if errors.Is(err, apperr.ErrPayloadTooLarge) {
		return apperr.ErrPayloadTooLarge
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.ErrPayloadTooLarge
	}
	return apperr.Validation("malformed multipart form")
}

// Download streams a stored attachment. When the auth middleware ran for this
// request, the file must belong to the authenticated doctor.
func (h *Handler) Download(c echo.Context) error {
	var doctorID int64
	if p := auth.PrincipalFromContext(c.Request().Context()); p != nil {
		doctorID = p.ID
	}

	name := c.Param("filename")
	rc, err := h.svc.Download(c.Request().Context(), doctorID, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Stream(http.StatusOK, filestore.ContentType(name), rc)
}
