package model

import "time"

// Work statuses of a reservation. A reservation starts in StatusPending
// and only ever advances through the lifecycle engine, which couples the
// transitions to the installment flags below.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is one of the reservation work statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Payment statuses of a reservation. These are never set directly; they
// are derived from the two installment flags via PaymentStatusFor.
const (
	PaymentPending       = "pending"
	PaymentPartiallyPaid = "partially_paid"
	PaymentTotalPaid     = "total_paid"
)

// PaymentStatusFor derives the aggregate payment status from the two
// installment flags. It is the single source of truth for the coupling:
// both flags paid -> total_paid, exactly one -> partially_paid, otherwise
// pending. Every mutation of either flag must recompute through here.
func PaymentStatusFor(firstPaid, secondPaid bool) string {
	switch {
	case firstPaid && secondPaid:
		return PaymentTotalPaid
	case firstPaid || secondPaid:
		return PaymentPartiallyPaid
	default:
		return PaymentPending
	}
}

// Reservation records one unit of requested repair work. The two
// installment amounts are always an equal split of Amount, fixed at
// creation time.
//
// Fields:
//  ID                      – uuid primary key.
//  UserID                  – user who booked the work.
//  ServiceID               – catalog service being booked.
//  EmployeeID              – assigned employee (nullable until assignment).
//  ProvidePaint            – whether the provider supplies the paint.
//  BeforeImages            – ordered image references taken before work.
//  AfterImages             – ordered image references taken after work.
//  ScheduledDate           – agreed date for the work.
//  Amount                  – total price for the work.
//  Status                  – one of the Status* constants.
//  FirstInstallmentAmount  – Amount * 0.5.
//  SecondInstallmentAmount – Amount * 0.5.
//  FirstInstallmentPaid    – whether the first installment is settled.
//  SecondInstallmentPaid   – whether the second installment is settled.
//  PaymentStatus           – derived, see PaymentStatusFor.
//  WorkStartTime           – set when status reaches in_progress (nullable).
//  WorkEndTime             – set when status reaches completed (nullable).
type Reservation struct {
	ID                      string     // reservations.id
	UserID                  string     // reservations.user_id
	ServiceID               string     // reservations.service_id
	EmployeeID              *string    // reservations.employee_id (nullable)
	ProvidePaint            bool       // reservations.provide_paint
	BeforeImages            []string   // reservations.before_images (JSON)
	AfterImages             []string   // reservations.after_images (JSON)
	ScheduledDate           time.Time  // reservations.scheduled_date
	Amount                  float64    // reservations.amount
	Status                  string     // reservations.status
	FirstInstallmentAmount  float64    // reservations.first_installment_amount
	SecondInstallmentAmount float64    // reservations.second_installment_amount
	FirstInstallmentPaid    bool       // reservations.first_installment_paid
	SecondInstallmentPaid   bool       // reservations.second_installment_paid
	PaymentStatus           string     // reservations.payment_status
	WorkStartTime           *time.Time // reservations.work_start_time (nullable)
	WorkEndTime             *time.Time // reservations.work_end_time (nullable)
	CreatedAt               time.Time  // reservations.created_at
	UpdatedAt               time.Time  // reservations.updated_at
}
