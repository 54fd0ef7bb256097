// Package service holds the business rules of the booking backend: the
// reservation lifecycle engine and the order payment workflow. Both
// operate over narrow store interfaces so the rules can be exercised
// without a database. Every domain failure is an *apperror.Error; any
// other error is an upstream fault the handlers surface as 500.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/queue"
	"github.com/chaudhuree/home-repair/internal/repository"
)

// ReservationStore is the persistence surface the lifecycle engine needs.
// *repository.ReservationRepo satisfies it.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id string) (model.Reservation, error)
	GetDetail(ctx context.Context, id string) (repository.ReservationDetail, error)
	List(ctx context.Context, q repository.ReservationQuery) ([]repository.ReservationDetail, int64, error)
	Update(ctx context.Context, r *model.Reservation) error
	Delete(ctx context.Context, id string) error
}

// CatalogStore resolves bookable services. *repository.ServiceRepo
// satisfies it.
type CatalogStore interface {
	GetByID(ctx context.Context, id string) (model.Service, error)
}

// UserStore resolves users for employee assignment checks.
// *repository.UserRepo satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Events receives domain events. *queue.Publisher satisfies it. Event
// delivery is best effort; the engine never fails an operation over it.
type Events interface {
	ReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error
	PaymentReceived(ctx context.Context, ev queue.PaymentReceivedEvent) error
}

// ReservationService is the lifecycle engine. It owns reservation
// creation, status transitions, installment confirmation and employee
// assignment, and enforces the role and state invariants coupling them.
type ReservationService struct {
	reservations ReservationStore
	catalog      CatalogStore
	users        UserStore
	events       Events

	now   func() time.Time
	newID func() string
}

// NewReservationService wires the engine. events may be nil when no
// broker is configured.
func NewReservationService(reservations ReservationStore, catalog CatalogStore, users UserStore, events Events) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		catalog:      catalog,
		users:        users,
		events:       events,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// CreateReservationInput carries the client-supplied fields of a new
// reservation.
type CreateReservationInput struct {
	ServiceID     string
	ProvidePaint  bool
	BeforeImages  []string
	ScheduledDate time.Time
	Amount        float64
}

// Create books a new reservation in status pending with both installment
// flags false and the amount split 50/50.
func (s *ReservationService) Create(ctx context.Context, userID string, in CreateReservationInput) (repository.ReservationDetail, error) {
	if len(in.BeforeImages) == 0 {
		return repository.ReservationDetail{}, apperror.BadRequest("At least one before image is required")
	}
	if in.Amount <= 0 {
		return repository.ReservationDetail{}, apperror.BadRequest("Amount must be greater than zero")
	}
	if _, err := s.catalog.GetByID(ctx, in.ServiceID); err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Service not found")
		}
		return repository.ReservationDetail{}, err
	}

	half := in.Amount * 0.5
	res := model.Reservation{
		ID:                      s.newID(),
		UserID:                  userID,
		ServiceID:               in.ServiceID,
		ProvidePaint:            in.ProvidePaint,
		BeforeImages:            in.BeforeImages,
		AfterImages:             []string{},
		ScheduledDate:           in.ScheduledDate,
		Amount:                  in.Amount,
		Status:                  model.StatusPending,
		FirstInstallmentAmount:  half,
		SecondInstallmentAmount: half,
		PaymentStatus:           model.PaymentStatusFor(false, false),
	}
	if err := s.reservations.Create(ctx, &res); err != nil {
		return repository.ReservationDetail{}, err
	}

	detail, err := s.reservations.GetDetail(ctx, res.ID)
	if err != nil {
		return repository.ReservationDetail{}, err
	}
	if s.events != nil {
		_ = s.events.ReservationCreated(ctx, queue.ReservationCreatedEvent{
			ReservationID: detail.ID,
			UserID:        detail.UserID,
			UserName:      detail.User.Name,
			UserEmail:     detail.User.Email,
			ServiceName:   detail.Service.Name,
			ScheduledDate: detail.ScheduledDate.Format(time.RFC3339),
			Amount:        detail.Amount,
			CreatedAt:     detail.CreatedAt.Format(time.RFC3339),
		})
	}
	return detail, nil
}

// List returns reservations visible to the caller. The visibility scope
// is fixed per role; a role outside the enumerated set fails closed with
// Forbidden rather than an empty result.
func (s *ReservationService) List(ctx context.Context, callerID, callerRole string, q repository.ReservationQuery) ([]repository.ReservationDetail, repository.PageMeta, error) {
	switch callerRole {
	case model.RoleUser, model.RolePropertyManager:
		q.UserID = callerID
	case model.RoleEmployee:
		q.EmployeeID = callerID
	case model.RoleManager, model.RoleSuperAdmin:
		// unrestricted
	default:
		return nil, repository.PageMeta{}, apperror.Forbidden("Forbidden")
	}
	items, total, err := s.reservations.List(ctx, q)
	if err != nil {
		return nil, repository.PageMeta{}, err
	}
	return items, repository.NewPageMeta(q.Page, total), nil
}

// Get returns one reservation if the caller's role scope admits it.
func (s *ReservationService) Get(ctx context.Context, id, callerID, callerRole string) (repository.ReservationDetail, error) {
	detail, err := s.reservations.GetDetail(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.ReservationDetail{}, err
	}
	switch callerRole {
	case model.RoleUser, model.RolePropertyManager:
		if detail.UserID != callerID {
			return repository.ReservationDetail{}, apperror.Forbidden("You do not have access to this reservation")
		}
	case model.RoleEmployee:
		if detail.EmployeeID == nil || *detail.EmployeeID != callerID {
			return repository.ReservationDetail{}, apperror.Forbidden("You do not have access to this reservation")
		}
	case model.RoleManager, model.RoleSuperAdmin:
		// unrestricted
	default:
		return repository.ReservationDetail{}, apperror.Forbidden("Forbidden")
	}
	return detail, nil
}

// ConfirmFirstInstallment marks the first installment paid. Only the
// reservation owner may confirm, and a second confirmation is rejected
// rather than treated as a no-op.
func (s *ReservationService) ConfirmFirstInstallment(ctx context.Context, id, callerID string) (repository.ReservationDetail, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.ReservationDetail{}, err
	}
	if res.UserID != callerID {
		return repository.ReservationDetail{}, apperror.Forbidden("Only the reservation owner can confirm an installment")
	}
	if res.FirstInstallmentPaid {
		return repository.ReservationDetail{}, apperror.BadRequest("First installment is already paid")
	}
	res.FirstInstallmentPaid = true
	res.PaymentStatus = model.PaymentStatusFor(true, res.SecondInstallmentPaid)
	if err := s.reservations.Update(ctx, &res); err != nil {
		return repository.ReservationDetail{}, err
	}
	return s.finishPayment(ctx, res, "first", res.FirstInstallmentAmount)
}

// ConfirmSecondInstallment marks the second installment paid. The first
// installment must already be settled.
func (s *ReservationService) ConfirmSecondInstallment(ctx context.Context, id, callerID string) (repository.ReservationDetail, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.ReservationDetail{}, err
	}
	if res.UserID != callerID {
		return repository.ReservationDetail{}, apperror.Forbidden("Only the reservation owner can confirm an installment")
	}
	if !res.FirstInstallmentPaid {
		return repository.ReservationDetail{}, apperror.BadRequest("You must pay the first installment first")
	}
	if res.SecondInstallmentPaid {
		return repository.ReservationDetail{}, apperror.BadRequest("Second installment is already paid")
	}
	res.SecondInstallmentPaid = true
	res.PaymentStatus = model.PaymentStatusFor(res.FirstInstallmentPaid, true)
	if err := s.reservations.Update(ctx, &res); err != nil {
		return repository.ReservationDetail{}, err
	}
	return s.finishPayment(ctx, res, "second", res.SecondInstallmentAmount)
}

func (s *ReservationService) finishPayment(ctx context.Context, res model.Reservation, installment string, amount float64) (repository.ReservationDetail, error) {
	detail, err := s.reservations.GetDetail(ctx, res.ID)
	if err != nil {
		return repository.ReservationDetail{}, err
	}
	if s.events != nil {
		_ = s.events.PaymentReceived(ctx, queue.PaymentReceivedEvent{
			ReservationID: detail.ID,
			UserID:        detail.UserID,
			UserEmail:     detail.User.Email,
			Installment:   installment,
			Amount:        amount,
			PaymentStatus: detail.PaymentStatus,
			ReceivedAt:    s.now().Format(time.RFC3339),
		})
	}
	return detail, nil
}

// AssignEmployee binds an employee to a reservation. The target user
// must exist and carry the employee role; assigning the same employee
// twice is rejected.
func (s *ReservationService) AssignEmployee(ctx context.Context, id, employeeID string) (repository.ReservationDetail, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.ReservationDetail{}, err
	}
	emp, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Employee not found")
		}
		return repository.ReservationDetail{}, err
	}
	if emp.Role != model.RoleEmployee {
		return repository.ReservationDetail{}, apperror.NotFound("Employee not found")
	}
	if res.EmployeeID != nil && *res.EmployeeID == employeeID {
		return repository.ReservationDetail{}, apperror.BadRequest("Employee is already assigned to this reservation")
	}
	res.EmployeeID = &employeeID
	if err := s.reservations.Update(ctx, &res); err != nil {
		return repository.ReservationDetail{}, err
	}
	return s.reservations.GetDetail(ctx, res.ID)
}

// UpdatePayload is the partial update accepted by Update. Nil fields are
// absent from the request; AfterImages nil means untouched.
type UpdatePayload struct {
	EmployeeID            *string
	Status                *string
	AfterImages           []string
	FirstInstallmentPaid  *bool
	SecondInstallmentPaid *bool
}

// Update is the central transition function. Work-status transitions are
// restricted to a manager or the currently assigned employee and are
// validated against the installment flags that would result from the
// payload, not only the stored ones. The merged record is persisted and
// returned joined with its related entities.
func (s *ReservationService) Update(ctx context.Context, id, callerID, callerRole string, p UpdatePayload) (repository.ReservationDetail, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.ReservationDetail{}, err
	}

	// Resulting values: payload wins over the stored record.
	firstPaid := res.FirstInstallmentPaid
	if p.FirstInstallmentPaid != nil {
		firstPaid = *p.FirstInstallmentPaid
	}
	secondPaid := res.SecondInstallmentPaid
	if p.SecondInstallmentPaid != nil {
		secondPaid = *p.SecondInstallmentPaid
	}
	employeeID := res.EmployeeID
	if p.EmployeeID != nil {
		employeeID = p.EmployeeID
	}

	if p.Status != nil {
		status := *p.Status
		if !model.ValidStatus(status) {
			return repository.ReservationDetail{}, apperror.BadRequest("Invalid status")
		}
		if status == model.StatusInProgress || status == model.StatusCompleted {
			assignedEmployee := callerRole == model.RoleEmployee &&
				res.EmployeeID != nil && *res.EmployeeID == callerID
			if callerRole != model.RoleManager && !assignedEmployee {
				return repository.ReservationDetail{}, apperror.Forbidden("Only a manager or the assigned employee can update work status")
			}
			if employeeID == nil {
				return repository.ReservationDetail{}, apperror.BadRequest("An employee must be assigned before work can progress")
			}
		}
		switch status {
		case model.StatusInProgress:
			if !firstPaid {
				return repository.ReservationDetail{}, apperror.BadRequest("First installment must be paid before work can start")
			}
			now := s.now()
			res.WorkStartTime = &now
		case model.StatusCompleted:
			if res.WorkStartTime == nil {
				return repository.ReservationDetail{}, apperror.BadRequest("Cannot complete work that has not been started")
			}
			if !secondPaid {
				return repository.ReservationDetail{}, apperror.BadRequest("Second installment must be paid before completing")
			}
			now := s.now()
			res.WorkEndTime = &now
		}
		res.Status = status
	}

	if p.EmployeeID != nil {
		res.EmployeeID = p.EmployeeID
	}
	if p.AfterImages != nil {
		res.AfterImages = p.AfterImages
	}
	if p.FirstInstallmentPaid != nil || p.SecondInstallmentPaid != nil {
		res.FirstInstallmentPaid = firstPaid
		res.SecondInstallmentPaid = secondPaid
		res.PaymentStatus = model.PaymentStatusFor(firstPaid, secondPaid)
	}

	if err := s.reservations.Update(ctx, &res); err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.ReservationDetail{}, err
	}
	return s.reservations.GetDetail(ctx, res.ID)
}

// Delete removes a reservation unconditionally and returns the deleted
// record joined with its related entities. Route middleware restricts
// this to managers.
func (s *ReservationService) Delete(ctx context.Context, id string) (repository.ReservationDetail, error) {
	detail, err := s.reservations.GetDetail(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return repository.ReservationDetail{}, apperror.NotFound("Reservation not found")
		}
		return repository.ReservationDetail{}, err
	}
	if err := s.reservations.Delete(ctx, id); err != nil && !isNoRows(err) {
		return repository.ReservationDetail{}, err
	}
	return detail, nil
}
