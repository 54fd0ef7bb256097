package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/chaudhuree/home-repair/internal/model"
)

// ReservationRepo provides persistence for reservations. Image
// references are stored as JSON arrays in a single column; all timestamps
// are stored in UTC. The repository performs no authorization — the
// lifecycle engine owns every rule about who may read or mutate a row.
type ReservationRepo struct{ db *sql.DB }

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, service_id, employee_id, provide_paint,
	before_images, after_images, scheduled_date, amount, status,
	first_installment_amount, second_installment_amount,
	first_installment_paid, second_installment_paid, payment_status,
	work_start_time, work_end_time, created_at, updated_at`

func imagesToJSON(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func imagesFromJSON(raw sql.NullString) ([]string, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var res model.Reservation
	var employeeID sql.NullString
	var before, after sql.NullString
	var workStart, workEnd sql.NullTime
	err := row.Scan(
		&res.ID, &res.UserID, &res.ServiceID, &employeeID, &res.ProvidePaint,
		&before, &after, &res.ScheduledDate, &res.Amount, &res.Status,
		&res.FirstInstallmentAmount, &res.SecondInstallmentAmount,
		&res.FirstInstallmentPaid, &res.SecondInstallmentPaid, &res.PaymentStatus,
		&workStart, &workEnd, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	if employeeID.Valid {
		v := employeeID.String
		res.EmployeeID = &v
	}
	if res.BeforeImages, err = imagesFromJSON(before); err != nil {
		return model.Reservation{}, err
	}
	if res.AfterImages, err = imagesFromJSON(after); err != nil {
		return model.Reservation{}, err
	}
	if workStart.Valid {
		t := workStart.Time
		res.WorkStartTime = &t
	}
	if workEnd.Valid {
		t := workEnd.Time
		res.WorkEndTime = &t
	}
	return res, nil
}

// Create inserts a new reservation and reads the stored row back into
// res so the caller sees database-assigned timestamps.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	before, err := imagesToJSON(res.BeforeImages)
	if err != nil {
		return err
	}
	after, err := imagesToJSON(res.AfterImages)
	if err != nil {
		return err
	}
	const q = `INSERT INTO reservations
		(id, user_id, service_id, employee_id, provide_paint, before_images, after_images,
		 scheduled_date, amount, status, first_installment_amount, second_installment_amount,
		 first_installment_paid, second_installment_paid, payment_status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err = r.db.ExecContext(ctx, q,
		res.ID, res.UserID, res.ServiceID, res.EmployeeID, res.ProvidePaint, before, after,
		res.ScheduledDate.UTC(), res.Amount, res.Status,
		res.FirstInstallmentAmount, res.SecondInstallmentAmount,
		res.FirstInstallmentPaid, res.SecondInstallmentPaid, res.PaymentStatus)
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = stored
	return nil
}

// GetByID fetches a raw reservation row. Returns sql.ErrNoRows when absent.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=? LIMIT 1`, id)
	return scanReservation(row)
}

// Update persists every mutable column from res. The lifecycle engine
// always loads, merges and recomputes before calling here, so this is a
// plain read-modify-write with no partial-update surface.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	before, err := imagesToJSON(res.BeforeImages)
	if err != nil {
		return err
	}
	after, err := imagesToJSON(res.AfterImages)
	if err != nil {
		return err
	}
	var workStart, workEnd any
	if res.WorkStartTime != nil {
		workStart = res.WorkStartTime.UTC()
	}
	if res.WorkEndTime != nil {
		workEnd = res.WorkEndTime.UTC()
	}
	const q = `UPDATE reservations SET
		employee_id=?, provide_paint=?, before_images=?, after_images=?,
		scheduled_date=?, amount=?, status=?,
		first_installment_amount=?, second_installment_amount=?,
		first_installment_paid=?, second_installment_paid=?, payment_status=?,
		work_start_time=?, work_end_time=?
		WHERE id=?`
	result, err := r.db.ExecContext(ctx, q,
		res.EmployeeID, res.ProvidePaint, before, after,
		res.ScheduledDate.UTC(), res.Amount, res.Status,
		res.FirstInstallmentAmount, res.SecondInstallmentAmount,
		res.FirstInstallmentPaid, res.SecondInstallmentPaid, res.PaymentStatus,
		workStart, workEnd, res.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a reservation permanently. Returns sql.ErrNoRows when
// nothing was deleted.
func (r *ReservationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ServiceRef is the catalog projection embedded in reservation details.
type ServiceRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// UserRef is the user projection embedded in reservation and order details.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ReservationDetail is a reservation joined with its service, owning
// user and assigned employee. It is the shape returned to clients.
type ReservationDetail struct {
	ID                      string     `json:"id"`
	UserID                  string     `json:"userId"`
	ServiceID               string     `json:"serviceId"`
	EmployeeID              *string    `json:"employeeId,omitempty"`
	ProvidePaint            bool       `json:"providePaint"`
	BeforeImages            []string   `json:"beforeImages"`
	AfterImages             []string   `json:"afterImages"`
	ScheduledDate           time.Time  `json:"scheduledDate"`
	Amount                  float64    `json:"amount"`
	Status                  string     `json:"status"`
	FirstInstallmentAmount  float64    `json:"firstInstallmentAmount"`
	SecondInstallmentAmount float64    `json:"secondInstallmentAmount"`
	FirstInstallmentPaid    bool       `json:"firstInstallmentPaid"`
	SecondInstallmentPaid   bool       `json:"secondInstallmentPaid"`
	PaymentStatus           string     `json:"paymentStatus"`
	WorkStartTime           *time.Time `json:"workStartTime,omitempty"`
	WorkEndTime             *time.Time `json:"workEndTime,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
	Service                 ServiceRef `json:"service"`
	User                    UserRef    `json:"user"`
	Employee                *UserRef   `json:"employee,omitempty"`
}

const reservationDetailSelect = `SELECT r.id, r.user_id, r.service_id, r.employee_id, r.provide_paint,
	r.before_images, r.after_images, r.scheduled_date, r.amount, r.status,
	r.first_installment_amount, r.second_installment_amount,
	r.first_installment_paid, r.second_installment_paid, r.payment_status,
	r.work_start_time, r.work_end_time, r.created_at, r.updated_at,
	s.id, s.name, s.price,
	u.id, u.name, u.email, u.role,
	e.id, e.name, e.email, e.role
	FROM reservations r
	JOIN services s ON s.id = r.service_id
	JOIN users u ON u.id = r.user_id
	LEFT JOIN users e ON e.id = r.employee_id`

func scanReservationDetail(row interface{ Scan(...any) error }) (ReservationDetail, error) {
	var d ReservationDetail
	var employeeID sql.NullString
	var before, after sql.NullString
	var workStart, workEnd sql.NullTime
	var empID, empName, empEmail, empRole sql.NullString
	err := row.Scan(
		&d.ID, &d.UserID, &d.ServiceID, &employeeID, &d.ProvidePaint,
		&before, &after, &d.ScheduledDate, &d.Amount, &d.Status,
		&d.FirstInstallmentAmount, &d.SecondInstallmentAmount,
		&d.FirstInstallmentPaid, &d.SecondInstallmentPaid, &d.PaymentStatus,
		&workStart, &workEnd, &d.CreatedAt, &d.UpdatedAt,
		&d.Service.ID, &d.Service.Name, &d.Service.Price,
		&d.User.ID, &d.User.Name, &d.User.Email, &d.User.Role,
		&empID, &empName, &empEmail, &empRole,
	)
	if err != nil {
		return ReservationDetail{}, err
	}
	if employeeID.Valid {
		v := employeeID.String
		d.EmployeeID = &v
	}
	if d.BeforeImages, err = imagesFromJSON(before); err != nil {
		return ReservationDetail{}, err
	}
	if d.AfterImages, err = imagesFromJSON(after); err != nil {
		return ReservationDetail{}, err
	}
	if workStart.Valid {
		t := workStart.Time
		d.WorkStartTime = &t
	}
	if workEnd.Valid {
		t := workEnd.Time
		d.WorkEndTime = &t
	}
	if empID.Valid {
		d.Employee = &UserRef{ID: empID.String, Name: empName.String, Email: empEmail.String, Role: empRole.String}
	}
	return d, nil
}

// GetDetail fetches a reservation joined with its service, user and
// employee. Returns sql.ErrNoRows when absent.
func (r *ReservationRepo) GetDetail(ctx context.Context, id string) (ReservationDetail, error) {
	row := r.db.QueryRowContext(ctx, reservationDetailSelect+` WHERE r.id=? LIMIT 1`, id)
	return scanReservationDetail(row)
}

// ReservationQuery is the fixed filter schema for listing reservations.
// SearchTerm matches the id and foreign-key columns by substring; the
// remaining fields are equality filters. An empty string means unset.
type ReservationQuery struct {
	SearchTerm    string
	Status        string
	PaymentStatus string
	EmployeeID    string
	UserID        string
	ServiceID     string
	Page          PageOptions
}

// Searchable columns for the free-text term, mirroring the fixed field
// set the API documents.
var reservationSearchColumns = []string{"r.id", "r.user_id", "r.service_id", "r.employee_id"}

var reservationSortable = map[string]string{
	"createdAt":     "r.created_at",
	"scheduledDate": "r.scheduled_date",
	"amount":        "r.amount",
	"status":        "r.status",
	"paymentStatus": "r.payment_status",
}

func (q ReservationQuery) conditions() (string, []any) {
	where := []string{"1=1"}
	args := []any{}
	if q.SearchTerm != "" {
		term := "%" + strings.ToLower(q.SearchTerm) + "%"
		likes := make([]string, 0, len(reservationSearchColumns))
		for _, col := range reservationSearchColumns {
			likes = append(likes, "LOWER("+col+") LIKE ?")
			args = append(args, term)
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}
	equals := []struct {
		col string
		val string
	}{
		{"r.status", q.Status},
		{"r.payment_status", q.PaymentStatus},
		{"r.employee_id", q.EmployeeID},
		{"r.user_id", q.UserID},
		{"r.service_id", q.ServiceID},
	}
	for _, f := range equals {
		if f.val != "" {
			where = append(where, f.col+" = ?")
			args = append(args, f.val)
		}
	}
	return strings.Join(where, " AND "), args
}

// List returns one page of joined reservation details plus the total
// matching count.
func (r *ReservationRepo) List(ctx context.Context, q ReservationQuery) ([]ReservationDetail, int64, error) {
	cond, args := q.conditions()

	var total int64
	countSQL := `SELECT COUNT(*) FROM reservations r WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	opts := q.Page.Normalized()
	dataSQL := reservationDetailSelect + ` WHERE ` + cond +
		` ORDER BY ` + opts.orderClause(reservationSortable, "r.created_at") + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), opts.Limit, opts.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]ReservationDetail, 0, opts.Limit)
	for rows.Next() {
		d, err := scanReservationDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdatePaymentStatusTx sets only the aggregate payment status within an
// existing transaction. Used by the order workflow, which must advance
// the linked reservation atomically with its own row.
func (r *ReservationRepo) UpdatePaymentStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET payment_status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
