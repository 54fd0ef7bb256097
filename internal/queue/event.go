// Package queue defines the message payloads exchanged over the broker
// and the publisher/consumer pair that moves them. Events carry enough
// denormalized information for the notification consumer to act without
// querying the primary database.
package queue

// Queue names. Both are declared durable by publisher and consumer.
const (
	ReservationCreatedQueue = "reservation.created"
	PaymentReceivedQueue    = "payment.received"
)

// ReservationCreatedEvent is published after a reservation is persisted.
type ReservationCreatedEvent struct {
	ReservationID string  `json:"reservation_id"`
	UserID        string  `json:"user_id"`
	UserName      string  `json:"user_name"`
	UserEmail     string  `json:"user_email"`
	ServiceName   string  `json:"service_name"`
	ScheduledDate string  `json:"scheduled_date"`
	Amount        float64 `json:"amount"`
	CreatedAt     string  `json:"created_at"`
}

// PaymentReceivedEvent is published after an installment or order
// payment is confirmed. Installment is "first", "second" or "order".
type PaymentReceivedEvent struct {
	ReservationID string  `json:"reservation_id"`
	UserID        string  `json:"user_id"`
	UserEmail     string  `json:"user_email"`
	Installment   string  `json:"installment"`
	Amount        float64 `json:"amount"`
	PaymentStatus string  `json:"payment_status"`
	ReceivedAt    string  `json:"received_at"`
}
