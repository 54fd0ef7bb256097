package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/repository"
)

// UserHandler serves the profile endpoints and the admin user directory.
type UserHandler struct {
	users *repository.UserRepo
}

// NewUserHandler wires the handler.
func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{users: users}
}

// Profile returns the authenticated user's record.
func (h *UserHandler) Profile(c echo.Context) error {
	u, err := h.users.GetByID(c.Request().Context(), callerID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("User not found"))
		}
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Profile retrieved successfully", viewUser(u))
}

// UpdateProfile changes the caller's display name.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fail(c, apperror.BadRequest("Name is required"))
	}

	u, err := h.users.UpdateName(c.Request().Context(), callerID(c), req.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("User not found"))
		}
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Profile updated successfully", viewUser(u))
}

// List returns a page of users. Routing restricts this to managers and
// super admins.
func (h *UserHandler) List(c echo.Context) error {
	q := repository.UserQuery{
		SearchTerm: c.QueryParam("searchTerm"),
		Role:       c.QueryParam("role"),
		Page:       pageOptions(c),
	}
	users, total, err := h.users.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, err)
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewUser(u))
	}
	return respondPage(c, "Users retrieved successfully", repository.NewPageMeta(q.Page, total), views)
}
