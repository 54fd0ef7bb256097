package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/payment"
	"github.com/chaudhuree/home-repair/internal/queue"
	"github.com/chaudhuree/home-repair/internal/repository"
)

// OrderStore is the persistence surface of the order workflow.
// *repository.OrderRepo satisfies it; ConfirmPayment is the atomic
// order-plus-reservation update.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id string) (model.Order, error)
	GetDetail(ctx context.Context, id string) (repository.OrderDetail, error)
	List(ctx context.Context, q repository.OrderQuery) ([]repository.OrderDetail, int64, error)
	SetPaymentIntent(ctx context.Context, id, intentID string) error
	ConfirmPayment(ctx context.Context, orderID, reservationID, reservationPaymentStatus string) error
}

// OrderService runs the gateway-backed payment track. An order pays a
// reservation in two halves: the first intent is opened at order
// creation, the second once the first has settled. Confirming verifies
// the intent against the gateway before any state changes.
type OrderService struct {
	orders       OrderStore
	reservations ReservationStore
	gateway      payment.Gateway
	events       Events

	newID func() string
}

// NewOrderService wires the workflow. events may be nil when no broker
// is configured.
func NewOrderService(orders OrderStore, reservations ReservationStore, gateway payment.Gateway, events Events) *OrderService {
	return &OrderService{
		orders:       orders,
		reservations: reservations,
		gateway:      gateway,
		events:       events,
		newID:        uuid.NewString,
	}
}

// halfCents converts half of a decimal amount into gateway minor units.
func halfCents(total float64) int64 {
	return int64(math.Round(total * 0.5 * 100))
}

// CreateOrderInput carries the client-supplied fields of a new order.
type CreateOrderInput struct {
	ReservationID string
	TotalAmount   float64
	Currency      string
}

// CreateOrder opens a payment intent for the first half of the amount
// and records the order in payment status failed until the intent is
// confirmed.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (repository.OrderDetail, error) {
	if in.TotalAmount <= 0 {
		return repository.OrderDetail{}, apperror.BadRequest("Total amount must be greater than zero")
	}
	if _, err := s.reservations.GetByID(ctx, in.ReservationID); err != nil {
		if isNoRows(err) {
			return repository.OrderDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.OrderDetail{}, err
	}

	intent, err := s.gateway.CreateIntent(ctx, halfCents(in.TotalAmount), in.Currency, map[string]string{
		"reservationId": in.ReservationID,
		"userId":        userID,
	})
	if err != nil {
		return repository.OrderDetail{}, err
	}

	order := model.Order{
		ID:            s.newID(),
		ReservationID: in.ReservationID,
		UserID:        userID,
		TotalAmount:   in.TotalAmount,
		Currency:      in.Currency,
		PaymentIntent: &intent.ID,
		PaymentStatus: model.OrderPaymentFailed,
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		return repository.OrderDetail{}, err
	}
	return s.orders.GetDetail(ctx, order.ID)
}

// ConfirmPayment verifies the first-half intent with the gateway, then
// atomically marks the order successful and the reservation partially
// paid. Nothing is persisted when the intent has not succeeded.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID, intentID string) (repository.OrderDetail, error) {
	return s.confirm(ctx, orderID, intentID, model.PaymentPartiallyPaid)
}

// ProcessSecondPayment opens a fresh intent for the second half. It
// requires the reservation to be exactly partially paid, which implies
// the first order payment settled and the second has not.
func (s *OrderService) ProcessSecondPayment(ctx context.Context, orderID string) (repository.OrderDetail, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if isNoRows(err) {
			return repository.OrderDetail{}, apperror.NotFound("Order not found")
		}
		return repository.OrderDetail{}, err
	}
	res, err := s.reservations.GetByID(ctx, order.ReservationID)
	if err != nil {
		if isNoRows(err) {
			return repository.OrderDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.OrderDetail{}, err
	}
	if res.PaymentStatus != model.PaymentPartiallyPaid {
		return repository.OrderDetail{}, apperror.BadRequest("Invalid payment status for second payment")
	}

	intent, err := s.gateway.CreateIntent(ctx, halfCents(order.TotalAmount), order.Currency, map[string]string{
		"orderId": orderID,
		"type":    "second_payment",
	})
	if err != nil {
		return repository.OrderDetail{}, err
	}
	if err := s.orders.SetPaymentIntent(ctx, orderID, intent.ID); err != nil {
		if isNoRows(err) {
			return repository.OrderDetail{}, apperror.NotFound("Order not found")
		}
		return repository.OrderDetail{}, err
	}
	return s.orders.GetDetail(ctx, orderID)
}

// ConfirmSecondPayment verifies the second-half intent and moves the
// reservation to fully paid.
func (s *OrderService) ConfirmSecondPayment(ctx context.Context, orderID, intentID string) (repository.OrderDetail, error) {
	return s.confirm(ctx, orderID, intentID, model.PaymentTotalPaid)
}

func (s *OrderService) confirm(ctx context.Context, orderID, intentID, reservationPaymentStatus string) (repository.OrderDetail, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if isNoRows(err) {
			return repository.OrderDetail{}, apperror.NotFound("Order not found")
		}
		return repository.OrderDetail{}, err
	}
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return repository.OrderDetail{}, err
	}
	if intent.Status != payment.IntentStatusSucceeded {
		return repository.OrderDetail{}, apperror.BadRequest("Payment not successful")
	}
	if err := s.orders.ConfirmPayment(ctx, orderID, order.ReservationID, reservationPaymentStatus); err != nil {
		if isNoRows(err) {
			return repository.OrderDetail{}, apperror.NotFound("Order not found")
		}
		return repository.OrderDetail{}, err
	}

	detail, err := s.orders.GetDetail(ctx, orderID)
	if err != nil {
		return repository.OrderDetail{}, err
	}
	if s.events != nil {
		_ = s.events.PaymentReceived(ctx, queue.PaymentReceivedEvent{
			ReservationID: detail.ReservationID,
			UserID:        detail.UserID,
			UserEmail:     detail.User.Email,
			Installment:   "order",
			Amount:        detail.TotalAmount * 0.5,
			PaymentStatus: detail.Reservation.PaymentStatus,
			ReceivedAt:    detail.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return detail, nil
}

// Get returns one order with its joined user and reservation.
func (s *OrderService) Get(ctx context.Context, id string) (repository.OrderDetail, error) {
	detail, err := s.orders.GetDetail(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return repository.OrderDetail{}, apperror.NotFound("Order not found")
		}
		return repository.OrderDetail{}, err
	}
	return detail, nil
}

// List returns one page of orders. Handlers scope q.UserID to the caller
// for non-admin roles before calling here.
func (s *OrderService) List(ctx context.Context, q repository.OrderQuery) ([]repository.OrderDetail, repository.PageMeta, error) {
	items, total, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, repository.PageMeta{}, err
	}
	return items, repository.NewPageMeta(q.Page, total), nil
}
