package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/repository"
	"github.com/chaudhuree/home-repair/internal/service"
)

// ReservationHandler exposes the reservation lifecycle over HTTP. All
// authorization beyond route-level role gates lives in the service
// layer, which scopes reads and guards transitions per caller.
type ReservationHandler struct {
	engine *service.ReservationService
}

// NewReservationHandler wires the handler.
func NewReservationHandler(engine *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{engine: engine}
}

// Create books a new reservation for the caller.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req struct {
		ServiceID     string    `json:"serviceId"`
		ProvidePaint  bool      `json:"providePaint"`
		BeforeImages  []string  `json:"beforeImages"`
		ScheduledDate time.Time `json:"scheduledDate"`
		Amount        float64   `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	if req.ServiceID == "" {
		return fail(c, apperror.BadRequest("Service id is required"))
	}

	detail, err := h.engine.Create(c.Request().Context(), callerID(c), service.CreateReservationInput{
		ServiceID:     req.ServiceID,
		ProvidePaint:  req.ProvidePaint,
		BeforeImages:  req.BeforeImages,
		ScheduledDate: req.ScheduledDate,
		Amount:        req.Amount,
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Reservation created successfully", detail)
}

// List returns the reservations visible to the caller's role.
func (h *ReservationHandler) List(c echo.Context) error {
	q := repository.ReservationQuery{
		SearchTerm:    c.QueryParam("searchTerm"),
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("paymentStatus"),
		EmployeeID:    c.QueryParam("employeeId"),
		UserID:        c.QueryParam("userId"),
		ServiceID:     c.QueryParam("serviceId"),
		Page:          pageOptions(c),
	}
	items, meta, err := h.engine.List(c.Request().Context(), callerID(c), callerRole(c), q)
	if err != nil {
		return fail(c, err)
	}
	return respondPage(c, "Reservations retrieved successfully", meta, items)
}

// Get returns one reservation if the caller's role scope admits it.
func (h *ReservationHandler) Get(c echo.Context) error {
	detail, err := h.engine.Get(c.Request().Context(), c.Param("id"), callerID(c), callerRole(c))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Reservation retrieved successfully", detail)
}

// Update applies a partial update through the central transition
// function.
func (h *ReservationHandler) Update(c echo.Context) error {
	var req struct {
		EmployeeID            *string  `json:"employeeId"`
		Status                *string  `json:"status"`
		AfterImages           []string `json:"afterImages"`
		FirstInstallmentPaid  *bool    `json:"firstInstallmentPaid"`
		SecondInstallmentPaid *bool    `json:"secondInstallmentPaid"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}

	detail, err := h.engine.Update(c.Request().Context(), c.Param("id"), callerID(c), callerRole(c), service.UpdatePayload{
		EmployeeID:            req.EmployeeID,
		Status:                req.Status,
		AfterImages:           req.AfterImages,
		FirstInstallmentPaid:  req.FirstInstallmentPaid,
		SecondInstallmentPaid: req.SecondInstallmentPaid,
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Reservation updated successfully", detail)
}

// ConfirmFirstInstallment marks the first installment paid.
func (h *ReservationHandler) ConfirmFirstInstallment(c echo.Context) error {
	detail, err := h.engine.ConfirmFirstInstallment(c.Request().Context(), c.Param("id"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "First installment paid successfully", detail)
}

// ConfirmSecondInstallment marks the second installment paid.
func (h *ReservationHandler) ConfirmSecondInstallment(c echo.Context) error {
	detail, err := h.engine.ConfirmSecondInstallment(c.Request().Context(), c.Param("id"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Second installment paid successfully", detail)
}

// AssignEmployee binds an employee to a reservation.
func (h *ReservationHandler) AssignEmployee(c echo.Context) error {
	var req struct {
		EmployeeID string `json:"employeeId"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	if req.EmployeeID == "" {
		return fail(c, apperror.BadRequest("Employee id is required"))
	}

	detail, err := h.engine.AssignEmployee(c.Request().Context(), c.Param("id"), req.EmployeeID)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Employee assigned successfully", detail)
}

// Delete removes a reservation and returns the deleted record.
func (h *ReservationHandler) Delete(c echo.Context) error {
	detail, err := h.engine.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Reservation deleted successfully", detail)
}
