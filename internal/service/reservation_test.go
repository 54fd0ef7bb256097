package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/queue"
	"github.com/chaudhuree/home-repair/internal/repository"
)

type reservationStoreMock struct {
	createFn    func(ctx context.Context, r *model.Reservation) error
	getByIDFn   func(ctx context.Context, id string) (model.Reservation, error)
	getDetailFn func(ctx context.Context, id string) (repository.ReservationDetail, error)
	listFn      func(ctx context.Context, q repository.ReservationQuery) ([]repository.ReservationDetail, int64, error)
	updateFn    func(ctx context.Context, r *model.Reservation) error
	deleteFn    func(ctx context.Context, id string) error
}

func (m *reservationStoreMock) Create(ctx context.Context, r *model.Reservation) error {
	return m.createFn(ctx, r)
}
func (m *reservationStoreMock) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	return m.getByIDFn(ctx, id)
}
func (m *reservationStoreMock) GetDetail(ctx context.Context, id string) (repository.ReservationDetail, error) {
	return m.getDetailFn(ctx, id)
}
func (m *reservationStoreMock) List(ctx context.Context, q repository.ReservationQuery) ([]repository.ReservationDetail, int64, error) {
	return m.listFn(ctx, q)
}
func (m *reservationStoreMock) Update(ctx context.Context, r *model.Reservation) error {
	return m.updateFn(ctx, r)
}
func (m *reservationStoreMock) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type catalogMock struct {
	getFn func(ctx context.Context, id string) (model.Service, error)
}

func (m *catalogMock) GetByID(ctx context.Context, id string) (model.Service, error) {
	return m.getFn(ctx, id)
}

type userStoreMock struct {
	getFn func(ctx context.Context, id string) (model.User, error)
}

func (m *userStoreMock) GetByID(ctx context.Context, id string) (model.User, error) {
	return m.getFn(ctx, id)
}

type eventRecorder struct {
	created  []queue.ReservationCreatedEvent
	payments []queue.PaymentReceivedEvent
}

func (r *eventRecorder) ReservationCreated(_ context.Context, ev queue.ReservationCreatedEvent) error {
	r.created = append(r.created, ev)
	return nil
}

func (r *eventRecorder) PaymentReceived(_ context.Context, ev queue.PaymentReceivedEvent) error {
	r.payments = append(r.payments, ev)
	return nil
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func wantAppError(t *testing.T, err error, status int) *apperror.Error {
	t.Helper()
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected application error, got %v", err)
	}
	if ae.Status != status {
		t.Fatalf("expected status %d, got %d (%q)", status, ae.Status, ae.Message)
	}
	return ae
}

func baseReservation() model.Reservation {
	return model.Reservation{
		ID:                      "res-1",
		UserID:                  "user-1",
		ServiceID:               "svc-1",
		BeforeImages:            []string{"before.jpg"},
		AfterImages:             []string{},
		ScheduledDate:           time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Amount:                  200,
		Status:                  model.StatusPending,
		FirstInstallmentAmount:  100,
		SecondInstallmentAmount: 100,
		PaymentStatus:           model.PaymentPending,
	}
}

func detailOf(res model.Reservation) repository.ReservationDetail {
	d := repository.ReservationDetail{
		ID:                      res.ID,
		UserID:                  res.UserID,
		ServiceID:               res.ServiceID,
		EmployeeID:              res.EmployeeID,
		ProvidePaint:            res.ProvidePaint,
		BeforeImages:            res.BeforeImages,
		AfterImages:             res.AfterImages,
		ScheduledDate:           res.ScheduledDate,
		Amount:                  res.Amount,
		Status:                  res.Status,
		FirstInstallmentAmount:  res.FirstInstallmentAmount,
		SecondInstallmentAmount: res.SecondInstallmentAmount,
		FirstInstallmentPaid:    res.FirstInstallmentPaid,
		SecondInstallmentPaid:   res.SecondInstallmentPaid,
		PaymentStatus:           res.PaymentStatus,
		WorkStartTime:           res.WorkStartTime,
		WorkEndTime:             res.WorkEndTime,
		Service:                 repository.ServiceRef{ID: res.ServiceID, Name: "Wall painting", Price: 200},
		User:                    repository.UserRef{ID: res.UserID, Name: "Dana", Email: "dana@example.com", Role: model.RoleUser},
	}
	if res.EmployeeID != nil {
		d.Employee = &repository.UserRef{ID: *res.EmployeeID, Name: "Eli", Email: "eli@example.com", Role: model.RoleEmployee}
	}
	return d
}

// storeFor wires a mock around a single stored reservation: GetByID
// serves it, Update overwrites it, GetDetail reflects the latest state.
func storeFor(res model.Reservation) (*reservationStoreMock, *model.Reservation) {
	current := res
	m := &reservationStoreMock{
		getByIDFn: func(_ context.Context, id string) (model.Reservation, error) {
			if id != current.ID {
				return model.Reservation{}, sql.ErrNoRows
			}
			return current, nil
		},
		updateFn: func(_ context.Context, r *model.Reservation) error {
			current = *r
			return nil
		},
		getDetailFn: func(_ context.Context, id string) (repository.ReservationDetail, error) {
			if id != current.ID {
				return repository.ReservationDetail{}, sql.ErrNoRows
			}
			return detailOf(current), nil
		},
		deleteFn: func(_ context.Context, id string) error { return nil },
	}
	return m, &current
}

func newEngine(store ReservationStore, catalog CatalogStore, users UserStore, events Events) *ReservationService {
	s := NewReservationService(store, catalog, users, events)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "res-1" }
	return s
}

func TestCreateSplitsAmountAndPublishes(t *testing.T) {
	var created model.Reservation
	store := &reservationStoreMock{
		createFn: func(_ context.Context, r *model.Reservation) error {
			created = *r
			return nil
		},
		getDetailFn: func(_ context.Context, id string) (repository.ReservationDetail, error) {
			return detailOf(created), nil
		},
	}
	catalog := &catalogMock{getFn: func(_ context.Context, id string) (model.Service, error) {
		return model.Service{ID: id, Name: "Wall painting", Price: 200}, nil
	}}
	events := &eventRecorder{}
	engine := newEngine(store, catalog, nil, events)

	detail, err := engine.Create(context.Background(), "user-1", CreateReservationInput{
		ServiceID:     "svc-1",
		BeforeImages:  []string{"before.jpg"},
		ScheduledDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Amount:        200,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.FirstInstallmentAmount != 100 || created.SecondInstallmentAmount != 100 {
		t.Fatalf("expected 100/100 split, got %v/%v", created.FirstInstallmentAmount, created.SecondInstallmentAmount)
	}
	if created.Status != model.StatusPending {
		t.Fatalf("expected status pending, got %s", created.Status)
	}
	if created.PaymentStatus != model.PaymentPending {
		t.Fatalf("expected payment status pending, got %s", created.PaymentStatus)
	}
	if created.FirstInstallmentPaid || created.SecondInstallmentPaid {
		t.Fatal("new reservation must start with both installments unpaid")
	}
	if detail.ID != "res-1" {
		t.Fatalf("unexpected detail id %s", detail.ID)
	}
	if len(events.created) != 1 || events.created[0].ReservationID != "res-1" {
		t.Fatalf("expected one reservation.created event, got %+v", events.created)
	}
}

func TestCreateUnknownService(t *testing.T) {
	catalog := &catalogMock{getFn: func(_ context.Context, id string) (model.Service, error) {
		return model.Service{}, sql.ErrNoRows
	}}
	engine := newEngine(&reservationStoreMock{}, catalog, nil, nil)

	_, err := engine.Create(context.Background(), "user-1", CreateReservationInput{
		ServiceID:    "missing",
		BeforeImages: []string{"before.jpg"},
		Amount:       200,
	})
	wantAppError(t, err, http.StatusNotFound)
}

func TestCreateRequiresBeforeImage(t *testing.T) {
	engine := newEngine(&reservationStoreMock{}, &catalogMock{}, nil, nil)

	_, err := engine.Create(context.Background(), "user-1", CreateReservationInput{
		ServiceID: "svc-1",
		Amount:    200,
	})
	wantAppError(t, err, http.StatusBadRequest)
}

func TestConfirmFirstInstallment(t *testing.T) {
	store, current := storeFor(baseReservation())
	events := &eventRecorder{}
	engine := newEngine(store, nil, nil, events)

	detail, err := engine.ConfirmFirstInstallment(context.Background(), "res-1", "user-1")
	if err != nil {
		t.Fatalf("confirm first: %v", err)
	}
	if !current.FirstInstallmentPaid {
		t.Fatal("first installment flag not set")
	}
	if detail.PaymentStatus != model.PaymentPartiallyPaid {
		t.Fatalf("expected partially_paid, got %s", detail.PaymentStatus)
	}
	if len(events.payments) != 1 || events.payments[0].Installment != "first" {
		t.Fatalf("expected one first-installment event, got %+v", events.payments)
	}
}

func TestConfirmFirstInstallmentTwice(t *testing.T) {
	res := baseReservation()
	res.FirstInstallmentPaid = true
	res.PaymentStatus = model.PaymentPartiallyPaid
	store, _ := storeFor(res)
	updated := false
	store.updateFn = func(_ context.Context, _ *model.Reservation) error {
		updated = true
		return nil
	}
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.ConfirmFirstInstallment(context.Background(), "res-1", "user-1")
	wantAppError(t, err, http.StatusBadRequest)
	if updated {
		t.Fatal("rejected confirmation must not write")
	}
}

func TestConfirmSecondBeforeFirst(t *testing.T) {
	store, _ := storeFor(baseReservation())
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.ConfirmSecondInstallment(context.Background(), "res-1", "user-1")
	wantAppError(t, err, http.StatusBadRequest)
}

func TestConfirmSecondAfterFirst(t *testing.T) {
	res := baseReservation()
	res.FirstInstallmentPaid = true
	res.PaymentStatus = model.PaymentPartiallyPaid
	store, current := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	detail, err := engine.ConfirmSecondInstallment(context.Background(), "res-1", "user-1")
	if err != nil {
		t.Fatalf("confirm second: %v", err)
	}
	if !current.SecondInstallmentPaid {
		t.Fatal("second installment flag not set")
	}
	if detail.PaymentStatus != model.PaymentTotalPaid {
		t.Fatalf("expected total_paid, got %s", detail.PaymentStatus)
	}
}

func TestConfirmInstallmentOwnerOnly(t *testing.T) {
	store, _ := storeFor(baseReservation())
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.ConfirmFirstInstallment(context.Background(), "res-1", "someone-else")
	wantAppError(t, err, http.StatusForbidden)
}

func TestAssignEmployee(t *testing.T) {
	store, current := storeFor(baseReservation())
	users := &userStoreMock{getFn: func(_ context.Context, id string) (model.User, error) {
		return model.User{ID: id, Role: model.RoleEmployee}, nil
	}}
	engine := newEngine(store, nil, users, nil)

	detail, err := engine.AssignEmployee(context.Background(), "res-1", "emp-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if current.EmployeeID == nil || *current.EmployeeID != "emp-1" {
		t.Fatalf("employee not assigned: %v", current.EmployeeID)
	}
	if detail.Employee == nil || detail.Employee.ID != "emp-1" {
		t.Fatalf("detail missing employee: %+v", detail.Employee)
	}
}

func TestAssignSameEmployeeTwice(t *testing.T) {
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")
	store, _ := storeFor(res)
	users := &userStoreMock{getFn: func(_ context.Context, id string) (model.User, error) {
		return model.User{ID: id, Role: model.RoleEmployee}, nil
	}}
	engine := newEngine(store, nil, users, nil)

	_, err := engine.AssignEmployee(context.Background(), "res-1", "emp-1")
	wantAppError(t, err, http.StatusBadRequest)
}

func TestAssignNonEmployee(t *testing.T) {
	store, _ := storeFor(baseReservation())
	users := &userStoreMock{getFn: func(_ context.Context, id string) (model.User, error) {
		return model.User{ID: id, Role: model.RoleUser}, nil
	}}
	engine := newEngine(store, nil, users, nil)

	_, err := engine.AssignEmployee(context.Background(), "res-1", "user-2")
	wantAppError(t, err, http.StatusNotFound)
}

func TestUpdateStatusByUnassignedEmployee(t *testing.T) {
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")
	res.FirstInstallmentPaid = true
	store, _ := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.Update(context.Background(), "res-1", "emp-2", model.RoleEmployee, UpdatePayload{
		Status: strPtr(model.StatusInProgress),
	})
	wantAppError(t, err, http.StatusForbidden)
}

func TestUpdateInProgressRequiresAssignedEmployee(t *testing.T) {
	res := baseReservation()
	res.FirstInstallmentPaid = true
	store, _ := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.Update(context.Background(), "res-1", "mgr-1", model.RoleManager, UpdatePayload{
		Status: strPtr(model.StatusInProgress),
	})
	wantAppError(t, err, http.StatusBadRequest)
}

func TestUpdateInProgressRequiresFirstPaid(t *testing.T) {
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")
	store, _ := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.Update(context.Background(), "res-1", "mgr-1", model.RoleManager, UpdatePayload{
		Status: strPtr(model.StatusInProgress),
	})
	wantAppError(t, err, http.StatusBadRequest)
}

// The first-installment requirement is checked against the flags the
// payload would produce, so paying and starting in one request works.
func TestUpdateInProgressWithPayloadFlag(t *testing.T) {
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")
	store, current := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	detail, err := engine.Update(context.Background(), "res-1", "emp-1", model.RoleEmployee, UpdatePayload{
		Status:               strPtr(model.StatusInProgress),
		FirstInstallmentPaid: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if current.Status != model.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", current.Status)
	}
	if current.WorkStartTime == nil {
		t.Fatal("work start time not stamped")
	}
	if detail.PaymentStatus != model.PaymentPartiallyPaid {
		t.Fatalf("expected partially_paid, got %s", detail.PaymentStatus)
	}
}

func TestUpdateCompletedRequiresWorkStart(t *testing.T) {
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")
	res.FirstInstallmentPaid = true
	res.SecondInstallmentPaid = true
	res.PaymentStatus = model.PaymentTotalPaid
	store, _ := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.Update(context.Background(), "res-1", "mgr-1", model.RoleManager, UpdatePayload{
		Status: strPtr(model.StatusCompleted),
	})
	wantAppError(t, err, http.StatusBadRequest)
}

func TestUpdateCompletedRequiresSecondPaid(t *testing.T) {
	started := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")
	res.FirstInstallmentPaid = true
	res.PaymentStatus = model.PaymentPartiallyPaid
	res.Status = model.StatusInProgress
	res.WorkStartTime = &started
	store, _ := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.Update(context.Background(), "res-1", "mgr-1", model.RoleManager, UpdatePayload{
		Status: strPtr(model.StatusCompleted),
	})
	wantAppError(t, err, http.StatusBadRequest)
}

func TestUpdateCompleted(t *testing.T) {
	started := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")
	res.FirstInstallmentPaid = true
	res.PaymentStatus = model.PaymentPartiallyPaid
	res.Status = model.StatusInProgress
	res.WorkStartTime = &started
	store, current := storeFor(res)
	engine := newEngine(store, nil, nil, nil)

	detail, err := engine.Update(context.Background(), "res-1", "emp-1", model.RoleEmployee, UpdatePayload{
		Status:                strPtr(model.StatusCompleted),
		SecondInstallmentPaid: boolPtr(true),
		AfterImages:           []string{"after.jpg"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if current.Status != model.StatusCompleted {
		t.Fatalf("expected completed, got %s", current.Status)
	}
	if current.WorkEndTime == nil {
		t.Fatal("work end time not stamped")
	}
	if detail.PaymentStatus != model.PaymentTotalPaid {
		t.Fatalf("expected total_paid, got %s", detail.PaymentStatus)
	}
	if len(current.AfterImages) != 1 || current.AfterImages[0] != "after.jpg" {
		t.Fatalf("after images not merged: %v", current.AfterImages)
	}
}

func TestUpdateInvalidStatus(t *testing.T) {
	store, _ := storeFor(baseReservation())
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.Update(context.Background(), "res-1", "mgr-1", model.RoleManager, UpdatePayload{
		Status: strPtr("cancelled"),
	})
	wantAppError(t, err, http.StatusBadRequest)
}

func TestListScopesByRole(t *testing.T) {
	tests := []struct {
		name         string
		role         string
		wantUser     string
		wantEmployee string
	}{
		{name: "user sees own", role: model.RoleUser, wantUser: "caller-1"},
		{name: "property manager sees own", role: model.RolePropertyManager, wantUser: "caller-1"},
		{name: "employee sees assigned", role: model.RoleEmployee, wantEmployee: "caller-1"},
		{name: "manager sees all", role: model.RoleManager},
		{name: "super admin sees all", role: model.RoleSuperAdmin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got repository.ReservationQuery
			store := &reservationStoreMock{
				listFn: func(_ context.Context, q repository.ReservationQuery) ([]repository.ReservationDetail, int64, error) {
					got = q
					return []repository.ReservationDetail{}, 0, nil
				},
			}
			engine := newEngine(store, nil, nil, nil)

			_, _, err := engine.List(context.Background(), "caller-1", tc.role, repository.ReservationQuery{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got.UserID != tc.wantUser {
				t.Fatalf("expected user filter %q, got %q", tc.wantUser, got.UserID)
			}
			if got.EmployeeID != tc.wantEmployee {
				t.Fatalf("expected employee filter %q, got %q", tc.wantEmployee, got.EmployeeID)
			}
		})
	}
}

func TestListUnknownRoleFailsClosed(t *testing.T) {
	called := false
	store := &reservationStoreMock{
		listFn: func(_ context.Context, q repository.ReservationQuery) ([]repository.ReservationDetail, int64, error) {
			called = true
			return nil, 0, nil
		},
	}
	engine := newEngine(store, nil, nil, nil)

	_, _, err := engine.List(context.Background(), "caller-1", "admin", repository.ReservationQuery{})
	wantAppError(t, err, http.StatusForbidden)
	if called {
		t.Fatal("unknown role must not reach the store")
	}
}

func TestGetScopesByRole(t *testing.T) {
	res := baseReservation()
	res.EmployeeID = strPtr("emp-1")

	tests := []struct {
		name       string
		callerID   string
		callerRole string
		wantStatus int
	}{
		{name: "owner", callerID: "user-1", callerRole: model.RoleUser},
		{name: "other user", callerID: "user-2", callerRole: model.RoleUser, wantStatus: http.StatusForbidden},
		{name: "assigned employee", callerID: "emp-1", callerRole: model.RoleEmployee},
		{name: "other employee", callerID: "emp-2", callerRole: model.RoleEmployee, wantStatus: http.StatusForbidden},
		{name: "manager", callerID: "mgr-1", callerRole: model.RoleManager},
		{name: "unknown role", callerID: "user-1", callerRole: "root", wantStatus: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := storeFor(res)
			engine := newEngine(store, nil, nil, nil)

			_, err := engine.Get(context.Background(), "res-1", tc.callerID, tc.callerRole)
			if tc.wantStatus == 0 {
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				return
			}
			wantAppError(t, err, tc.wantStatus)
		})
	}
}

func TestGetMissingReservation(t *testing.T) {
	store, _ := storeFor(baseReservation())
	engine := newEngine(store, nil, nil, nil)

	_, err := engine.Get(context.Background(), "nope", "mgr-1", model.RoleManager)
	wantAppError(t, err, http.StatusNotFound)
}

func TestDeleteReturnsDeletedDetail(t *testing.T) {
	store, _ := storeFor(baseReservation())
	deleted := ""
	store.deleteFn = func(_ context.Context, id string) error {
		deleted = id
		return nil
	}
	engine := newEngine(store, nil, nil, nil)

	detail, err := engine.Delete(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != "res-1" {
		t.Fatalf("expected delete of res-1, got %q", deleted)
	}
	if detail.ID != "res-1" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}
