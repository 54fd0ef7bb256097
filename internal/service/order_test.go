package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/payment"
	"github.com/chaudhuree/home-repair/internal/repository"
)

type orderStoreMock struct {
	createFn           func(ctx context.Context, o *model.Order) error
	getByIDFn          func(ctx context.Context, id string) (model.Order, error)
	getDetailFn        func(ctx context.Context, id string) (repository.OrderDetail, error)
	listFn             func(ctx context.Context, q repository.OrderQuery) ([]repository.OrderDetail, int64, error)
	setPaymentIntentFn func(ctx context.Context, id, intentID string) error
	confirmPaymentFn   func(ctx context.Context, orderID, reservationID, reservationPaymentStatus string) error
}

func (m *orderStoreMock) Create(ctx context.Context, o *model.Order) error { return m.createFn(ctx, o) }
func (m *orderStoreMock) GetByID(ctx context.Context, id string) (model.Order, error) {
	return m.getByIDFn(ctx, id)
}
func (m *orderStoreMock) GetDetail(ctx context.Context, id string) (repository.OrderDetail, error) {
	return m.getDetailFn(ctx, id)
}
func (m *orderStoreMock) List(ctx context.Context, q repository.OrderQuery) ([]repository.OrderDetail, int64, error) {
	return m.listFn(ctx, q)
}
func (m *orderStoreMock) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	return m.setPaymentIntentFn(ctx, id, intentID)
}
func (m *orderStoreMock) ConfirmPayment(ctx context.Context, orderID, reservationID, reservationPaymentStatus string) error {
	return m.confirmPaymentFn(ctx, orderID, reservationID, reservationPaymentStatus)
}

type gatewayMock struct {
	createFn   func(ctx context.Context, amount int64, currency string, metadata map[string]string) (payment.Intent, error)
	retrieveFn func(ctx context.Context, id string) (payment.Intent, error)
}

func (m *gatewayMock) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (payment.Intent, error) {
	return m.createFn(ctx, amount, currency, metadata)
}

func (m *gatewayMock) RetrieveIntent(ctx context.Context, id string) (payment.Intent, error) {
	return m.retrieveFn(ctx, id)
}

func baseOrder() model.Order {
	intent := "pi_1"
	return model.Order{
		ID:            "ord-1",
		ReservationID: "res-1",
		UserID:        "user-1",
		TotalAmount:   200,
		Currency:      "usd",
		PaymentIntent: &intent,
		PaymentStatus: model.OrderPaymentFailed,
	}
}

func orderDetailOf(o model.Order, reservationPaymentStatus string) repository.OrderDetail {
	return repository.OrderDetail{
		ID:            o.ID,
		ReservationID: o.ReservationID,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		PaymentIntent: o.PaymentIntent,
		PaymentStatus: o.PaymentStatus,
		User:          repository.UserRef{ID: o.UserID, Name: "Dana", Email: "dana@example.com", Role: model.RoleUser},
		Reservation: repository.OrderReservationRef{
			ID:            o.ReservationID,
			Status:        model.StatusPending,
			PaymentStatus: reservationPaymentStatus,
			Amount:        o.TotalAmount,
		},
	}
}

func newOrderEngine(orders OrderStore, reservations ReservationStore, gateway payment.Gateway, events Events) *OrderService {
	s := NewOrderService(orders, reservations, gateway, events)
	s.newID = func() string { return "ord-1" }
	return s
}

func TestCreateOrderOpensHalfIntent(t *testing.T) {
	var created model.Order
	orders := &orderStoreMock{
		createFn: func(_ context.Context, o *model.Order) error {
			created = *o
			return nil
		},
		getDetailFn: func(_ context.Context, id string) (repository.OrderDetail, error) {
			return orderDetailOf(created, model.PaymentPending), nil
		},
	}
	reservations, _ := storeFor(baseReservation())
	var gotAmount int64
	var gotCurrency string
	gateway := &gatewayMock{
		createFn: func(_ context.Context, amount int64, currency string, metadata map[string]string) (payment.Intent, error) {
			gotAmount = amount
			gotCurrency = currency
			return payment.Intent{ID: "pi_1", Status: "requires_payment_method", Amount: amount, Currency: currency}, nil
		},
	}
	engine := newOrderEngine(orders, reservations, gateway, nil)

	detail, err := engine.CreateOrder(context.Background(), "user-1", CreateOrderInput{
		ReservationID: "res-1",
		TotalAmount:   200,
		Currency:      "usd",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if gotAmount != 10000 {
		t.Fatalf("expected intent for 10000 minor units, got %d", gotAmount)
	}
	if gotCurrency != "usd" {
		t.Fatalf("expected usd intent, got %s", gotCurrency)
	}
	if created.PaymentStatus != model.OrderPaymentFailed {
		t.Fatalf("new order must start failed, got %s", created.PaymentStatus)
	}
	if created.PaymentIntent == nil || *created.PaymentIntent != "pi_1" {
		t.Fatalf("intent reference not stored: %v", created.PaymentIntent)
	}
	if detail.ID != "ord-1" {
		t.Fatalf("unexpected detail id %s", detail.ID)
	}
}

func TestCreateOrderUnknownReservation(t *testing.T) {
	reservations := &reservationStoreMock{
		getByIDFn: func(_ context.Context, id string) (model.Reservation, error) {
			return model.Reservation{}, sql.ErrNoRows
		},
	}
	engine := newOrderEngine(&orderStoreMock{}, reservations, &gatewayMock{}, nil)

	_, err := engine.CreateOrder(context.Background(), "user-1", CreateOrderInput{
		ReservationID: "missing",
		TotalAmount:   200,
		Currency:      "usd",
	})
	wantAppError(t, err, http.StatusNotFound)
}

func TestConfirmPaymentRequiresSucceededIntent(t *testing.T) {
	confirmed := false
	orders := &orderStoreMock{
		getByIDFn: func(_ context.Context, id string) (model.Order, error) {
			return baseOrder(), nil
		},
		confirmPaymentFn: func(_ context.Context, _, _, _ string) error {
			confirmed = true
			return nil
		},
	}
	gateway := &gatewayMock{
		retrieveFn: func(_ context.Context, id string) (payment.Intent, error) {
			return payment.Intent{ID: id, Status: "processing"}, nil
		},
	}
	engine := newOrderEngine(orders, nil, gateway, nil)

	_, err := engine.ConfirmPayment(context.Background(), "ord-1", "pi_1")
	ae := wantAppError(t, err, http.StatusBadRequest)
	if ae.Message != "Payment not successful" {
		t.Fatalf("unexpected message %q", ae.Message)
	}
	if confirmed {
		t.Fatal("unverified intent must not reach the store")
	}
}

func TestConfirmPaymentMarksPartiallyPaid(t *testing.T) {
	var gotReservation, gotStatus string
	order := baseOrder()
	orders := &orderStoreMock{
		getByIDFn: func(_ context.Context, id string) (model.Order, error) { return order, nil },
		confirmPaymentFn: func(_ context.Context, orderID, reservationID, status string) error {
			gotReservation = reservationID
			gotStatus = status
			return nil
		},
		getDetailFn: func(_ context.Context, id string) (repository.OrderDetail, error) {
			o := order
			o.PaymentStatus = model.OrderPaymentSuccess
			return orderDetailOf(o, model.PaymentPartiallyPaid), nil
		},
	}
	gateway := &gatewayMock{
		retrieveFn: func(_ context.Context, id string) (payment.Intent, error) {
			return payment.Intent{ID: id, Status: payment.IntentStatusSucceeded}, nil
		},
	}
	events := &eventRecorder{}
	engine := newOrderEngine(orders, nil, gateway, events)

	detail, err := engine.ConfirmPayment(context.Background(), "ord-1", "pi_1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if gotReservation != "res-1" || gotStatus != model.PaymentPartiallyPaid {
		t.Fatalf("expected res-1/partially_paid, got %s/%s", gotReservation, gotStatus)
	}
	if detail.PaymentStatus != model.OrderPaymentSuccess {
		t.Fatalf("expected success order, got %s", detail.PaymentStatus)
	}
	if len(events.payments) != 1 || events.payments[0].Installment != "order" {
		t.Fatalf("expected one order payment event, got %+v", events.payments)
	}
}

func TestProcessSecondPaymentRequiresPartiallyPaid(t *testing.T) {
	orders := &orderStoreMock{
		getByIDFn: func(_ context.Context, id string) (model.Order, error) { return baseOrder(), nil },
	}
	reservations, _ := storeFor(baseReservation()) // payment status still pending
	engine := newOrderEngine(orders, reservations, &gatewayMock{}, nil)

	_, err := engine.ProcessSecondPayment(context.Background(), "ord-1")
	ae := wantAppError(t, err, http.StatusBadRequest)
	if ae.Message != "Invalid payment status for second payment" {
		t.Fatalf("unexpected message %q", ae.Message)
	}
}

func TestProcessSecondPaymentOpensNewIntent(t *testing.T) {
	var swapped string
	order := baseOrder()
	orders := &orderStoreMock{
		getByIDFn: func(_ context.Context, id string) (model.Order, error) { return order, nil },
		setPaymentIntentFn: func(_ context.Context, id, intentID string) error {
			swapped = intentID
			return nil
		},
		getDetailFn: func(_ context.Context, id string) (repository.OrderDetail, error) {
			return orderDetailOf(order, model.PaymentPartiallyPaid), nil
		},
	}
	res := baseReservation()
	res.FirstInstallmentPaid = true
	res.PaymentStatus = model.PaymentPartiallyPaid
	reservations, _ := storeFor(res)
	var gotAmount int64
	gateway := &gatewayMock{
		createFn: func(_ context.Context, amount int64, currency string, metadata map[string]string) (payment.Intent, error) {
			gotAmount = amount
			return payment.Intent{ID: "pi_2", Status: "requires_payment_method", Amount: amount, Currency: currency}, nil
		},
	}
	engine := newOrderEngine(orders, reservations, gateway, nil)

	if _, err := engine.ProcessSecondPayment(context.Background(), "ord-1"); err != nil {
		t.Fatalf("process second: %v", err)
	}
	if gotAmount != 10000 {
		t.Fatalf("expected second intent for 10000 minor units, got %d", gotAmount)
	}
	if swapped != "pi_2" {
		t.Fatalf("intent reference not swapped, got %q", swapped)
	}
}

func TestConfirmSecondPaymentMarksTotalPaid(t *testing.T) {
	var gotStatus string
	order := baseOrder()
	orders := &orderStoreMock{
		getByIDFn: func(_ context.Context, id string) (model.Order, error) { return order, nil },
		confirmPaymentFn: func(_ context.Context, _, _, status string) error {
			gotStatus = status
			return nil
		},
		getDetailFn: func(_ context.Context, id string) (repository.OrderDetail, error) {
			o := order
			o.PaymentStatus = model.OrderPaymentSuccess
			return orderDetailOf(o, model.PaymentTotalPaid), nil
		},
	}
	gateway := &gatewayMock{
		retrieveFn: func(_ context.Context, id string) (payment.Intent, error) {
			return payment.Intent{ID: id, Status: payment.IntentStatusSucceeded}, nil
		},
	}
	engine := newOrderEngine(orders, nil, gateway, nil)

	if _, err := engine.ConfirmSecondPayment(context.Background(), "ord-1", "pi_2"); err != nil {
		t.Fatalf("confirm second: %v", err)
	}
	if gotStatus != model.PaymentTotalPaid {
		t.Fatalf("expected total_paid, got %s", gotStatus)
	}
}

func TestGetMissingOrder(t *testing.T) {
	orders := &orderStoreMock{
		getDetailFn: func(_ context.Context, id string) (repository.OrderDetail, error) {
			return repository.OrderDetail{}, sql.ErrNoRows
		},
	}
	engine := newOrderEngine(orders, nil, nil, nil)

	_, err := engine.Get(context.Background(), "nope")
	wantAppError(t, err, http.StatusNotFound)
}
