package model

import "time"

// Order payment statuses. An order is persisted as failed until the
// gateway reports its intent as succeeded.
const (
	OrderPaymentFailed  = "failed"
	OrderPaymentSuccess = "success"
)

// Order is the second payment track over a reservation. It carries its
// own gateway intent reference and payment status; confirming an order
// also advances the linked reservation's payment status, and both updates
// land in one transaction.
type Order struct {
	ID            string    // orders.id
	ReservationID string    // orders.reservation_id
	UserID        string    // orders.user_id
	TotalAmount   float64   // orders.total_amount
	Currency      string    // orders.currency
	PaymentIntent *string   // orders.payment_intent (nullable)
	PaymentStatus string    // orders.payment_status
	CreatedAt     time.Time // orders.created_at
	UpdatedAt     time.Time // orders.updated_at
}
