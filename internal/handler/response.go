// Package handler contains the HTTP handlers. Handlers bind and
// validate request payloads, delegate to the service layer and wrap
// every reply in the standard response envelope.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/repository"
)

// Response is the envelope every endpoint returns. Meta is present only
// on list endpoints.
type Response struct {
	StatusCode int                  `json:"statusCode"`
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Meta       *repository.PageMeta `json:"meta,omitempty"`
	Data       any                  `json:"data"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{StatusCode: status, Success: true, Message: message, Data: data})
}

func respondPage(c echo.Context, message string, meta repository.PageMeta, data any) error {
	return c.JSON(http.StatusOK, Response{
		StatusCode: http.StatusOK,
		Success:    true,
		Message:    message,
		Meta:       &meta,
		Data:       data,
	})
}

// fail translates an error into the envelope. Application errors keep
// their status and message; anything else becomes an opaque 500 and is
// logged for the operator.
func fail(c echo.Context, err error) error {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return c.JSON(ae.Status, Response{StatusCode: ae.Status, Success: false, Message: ae.Message})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, Response{
		StatusCode: http.StatusInternalServerError,
		Success:    false,
		Message:    "Something went wrong",
	})
}

// callerID returns the authenticated user id stored by the JWT middleware.
func callerID(c echo.Context) string {
	s, _ := c.Get("user_id").(string)
	return s
}

// callerRole returns the authenticated role stored by the JWT middleware.
func callerRole(c echo.Context) string {
	s, _ := c.Get("role").(string)
	return s
}

// pageOptions parses the shared pagination and sorting query parameters.
func pageOptions(c echo.Context) repository.PageOptions {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return repository.PageOptions{
		Page:      page,
		Limit:     limit,
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
}
