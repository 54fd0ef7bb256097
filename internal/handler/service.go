package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/repository"
)

// ServiceHandler serves the bookable service catalog.
type ServiceHandler struct {
	catalog *repository.ServiceRepo
}

// NewServiceHandler wires the handler.
func NewServiceHandler(catalog *repository.ServiceRepo) *ServiceHandler {
	return &ServiceHandler{catalog: catalog}
}

type serviceView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	DurationMin uint32    `json:"durationMin"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func viewService(s model.Service) serviceView {
	return serviceView{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		DurationMin: s.DurationMin,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Create adds a catalog entry.
func (h *ServiceHandler) Create(c echo.Context) error {
	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		DurationMin uint32  `json:"durationMin"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fail(c, apperror.BadRequest("Name is required"))
	}
	if req.Price <= 0 {
		return fail(c, apperror.BadRequest("Price must be greater than zero"))
	}

	s := model.Service{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		DurationMin: req.DurationMin,
	}
	if err := h.catalog.Create(c.Request().Context(), &s); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Service created successfully", viewService(s))
}

// Get returns one catalog entry.
func (h *ServiceHandler) Get(c echo.Context) error {
	s, err := h.catalog.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("Service not found"))
		}
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Service retrieved successfully", viewService(s))
}

// List returns a page of catalog entries.
func (h *ServiceHandler) List(c echo.Context) error {
	q := repository.ServiceQuery{
		SearchTerm: c.QueryParam("searchTerm"),
		Page:       pageOptions(c),
	}
	services, total, err := h.catalog.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, err)
	}
	views := make([]serviceView, 0, len(services))
	for _, s := range services {
		views = append(views, viewService(s))
	}
	return respondPage(c, "Services retrieved successfully", repository.NewPageMeta(q.Page, total), views)
}

// Update applies a partial update; absent fields keep their value.
func (h *ServiceHandler) Update(c echo.Context) error {
	var req struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		DurationMin *uint32  `json:"durationMin"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	if req.Price != nil && *req.Price <= 0 {
		return fail(c, apperror.BadRequest("Price must be greater than zero"))
	}

	s, err := h.catalog.Update(c.Request().Context(), c.Param("id"), repository.ServiceUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("Service not found"))
		}
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Service updated successfully", viewService(s))
}

// Delete removes a catalog entry.
func (h *ServiceHandler) Delete(c echo.Context) error {
	if err := h.catalog.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("Service not found"))
		}
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Service deleted successfully", nil)
}
