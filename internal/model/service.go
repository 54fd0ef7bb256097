package model

import "time"

// Service is one bookable catalog entry (e.g. interior painting, roof
// repair). Price is the full amount for the work; reservations split it
// into two equal installments.
type Service struct {
	ID          string    // services.id
	Name        string    // services.name
	Description string    // services.description
	Price       float64   // services.price
	DurationMin uint32    // services.duration_min
	CreatedAt   time.Time // services.created_at
	UpdatedAt   time.Time // services.updated_at
}
