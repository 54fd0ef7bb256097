package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/repository"
	"github.com/chaudhuree/home-repair/internal/service"
)

// OrderHandler exposes the gateway-backed payment track.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler wires the handler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create opens an order and a payment intent for the first half of the
// amount.
func (h *OrderHandler) Create(c echo.Context) error {
	var req struct {
		ReservationID string  `json:"reservationId"`
		TotalAmount   float64 `json:"totalAmount"`
		Currency      string  `json:"currency"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	if req.ReservationID == "" {
		return fail(c, apperror.BadRequest("Reservation id is required"))
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}

	detail, err := h.orders.CreateOrder(c.Request().Context(), callerID(c), service.CreateOrderInput{
		ReservationID: req.ReservationID,
		TotalAmount:   req.TotalAmount,
		Currency:      req.Currency,
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Order created successfully", detail)
}

type confirmRequest struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func bindConfirm(c echo.Context) (confirmRequest, error) {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return req, apperror.BadRequest("Invalid request body")
	}
	if req.OrderID == "" || req.PaymentIntentID == "" {
		return req, apperror.BadRequest("Order id and payment intent id are required")
	}
	return req, nil
}

// ConfirmPayment verifies the first-half intent and settles it.
func (h *OrderHandler) ConfirmPayment(c echo.Context) error {
	req, err := bindConfirm(c)
	if err != nil {
		return fail(c, err)
	}
	detail, err := h.orders.ConfirmPayment(c.Request().Context(), req.OrderID, req.PaymentIntentID)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Payment confirmed successfully", detail)
}

// ProcessSecondPayment opens an intent for the remaining half.
func (h *OrderHandler) ProcessSecondPayment(c echo.Context) error {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	if req.OrderID == "" {
		return fail(c, apperror.BadRequest("Order id is required"))
	}

	detail, err := h.orders.ProcessSecondPayment(c.Request().Context(), req.OrderID)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Second payment initiated successfully", detail)
}

// ConfirmSecondPayment verifies the second-half intent and settles it.
func (h *OrderHandler) ConfirmSecondPayment(c echo.Context) error {
	req, err := bindConfirm(c)
	if err != nil {
		return fail(c, err)
	}
	detail, err := h.orders.ConfirmSecondPayment(c.Request().Context(), req.OrderID, req.PaymentIntentID)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Payment confirmed successfully", detail)
}

// List returns orders; non-admin callers only see their own.
func (h *OrderHandler) List(c echo.Context) error {
	q := repository.OrderQuery{
		SearchTerm:    c.QueryParam("searchTerm"),
		PaymentStatus: c.QueryParam("paymentStatus"),
		UserID:        c.QueryParam("userId"),
		Page:          pageOptions(c),
	}
	switch callerRole(c) {
	case model.RoleManager, model.RoleSuperAdmin:
		// unrestricted
	default:
		q.UserID = callerID(c)
	}

	items, meta, err := h.orders.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, err)
	}
	return respondPage(c, "Orders retrieved successfully", meta, items)
}

// Get returns one order; non-admin callers may only fetch their own.
func (h *OrderHandler) Get(c echo.Context) error {
	detail, err := h.orders.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	switch callerRole(c) {
	case model.RoleManager, model.RoleSuperAdmin:
	default:
		if detail.UserID != callerID(c) {
			return fail(c, apperror.Forbidden("You do not have access to this order"))
		}
	}
	return respond(c, http.StatusOK, "Order retrieved successfully", detail)
}
