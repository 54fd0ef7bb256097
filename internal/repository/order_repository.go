package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/chaudhuree/home-repair/internal/model"
)

// OrderRepo persists the order payment track. Confirming an order also
// advances the linked reservation's payment status; both writes run in
// one transaction so either both land or neither does.
type OrderRepo struct {
	db           *sql.DB
	reservations *ReservationRepo
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB, reservations *ReservationRepo) *OrderRepo {
	return &OrderRepo{db: db, reservations: reservations}
}

const orderColumns = `id, reservation_id, user_id, total_amount, currency, payment_intent, payment_status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var o model.Order
	var intent sql.NullString
	err := row.Scan(&o.ID, &o.ReservationID, &o.UserID, &o.TotalAmount, &o.Currency,
		&intent, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	if intent.Valid {
		v := intent.String
		o.PaymentIntent = &v
	}
	return o, nil
}

// Create inserts a new order and reads the stored row back.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (id, reservation_id, user_id, total_amount, currency, payment_intent, payment_status)
		VALUES (?,?,?,?,?,?,?)`
	if _, err := r.db.ExecContext(ctx, q,
		o.ID, o.ReservationID, o.UserID, o.TotalAmount, o.Currency, o.PaymentIntent, o.PaymentStatus); err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, o.ID)
	if err != nil {
		return err
	}
	*o = stored
	return nil
}

// GetByID fetches a raw order row. Returns sql.ErrNoRows when absent.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (model.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=? LIMIT 1`, id)
	return scanOrder(row)
}

// SetPaymentIntent swaps the gateway intent reference, used when the
// second installment opens a fresh intent on the same order.
func (r *OrderRepo) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET payment_intent=? WHERE id=?`, intentID, id)
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

// ConfirmPayment marks the order successful and moves the linked
// reservation to reservationPaymentStatus inside a single transaction.
func (r *OrderRepo) ConfirmPayment(ctx context.Context, orderID, reservationID, reservationPaymentStatus string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, `UPDATE orders SET payment_status=? WHERE id=?`, model.OrderPaymentSuccess, orderID)
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
	if err := r.reservations.UpdatePaymentStatusTx(ctx, tx, reservationID, reservationPaymentStatus); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// OrderReservationRef is the reservation projection embedded in order
// details.
type OrderReservationRef struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	Amount        float64    `json:"amount"`
	ScheduledDate time.Time  `json:"scheduledDate"`
	Service       ServiceRef `json:"service"`
}

// OrderDetail is an order joined with its user and reservation.
type OrderDetail struct {
	ID            string              `json:"id"`
	ReservationID string              `json:"reservationId"`
	UserID        string              `json:"userId"`
	TotalAmount   float64             `json:"totalAmount"`
	Currency      string              `json:"currency"`
	PaymentIntent *string             `json:"paymentIntent,omitempty"`
	PaymentStatus string              `json:"paymentStatus"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	User          UserRef             `json:"user"`
	Reservation   OrderReservationRef `json:"reservation"`
}

const orderDetailSelect = `SELECT o.id, o.reservation_id, o.user_id, o.total_amount, o.currency,
	o.payment_intent, o.payment_status, o.created_at, o.updated_at,
	u.id, u.name, u.email, u.role,
	r.id, r.status, r.payment_status, r.amount, r.scheduled_date,
	s.id, s.name, s.price
	FROM orders o
	JOIN users u ON u.id = o.user_id
	JOIN reservations r ON r.id = o.reservation_id
	JOIN services s ON s.id = r.service_id`

func scanOrderDetail(row interface{ Scan(...any) error }) (OrderDetail, error) {
	var d OrderDetail
	var intent sql.NullString
	err := row.Scan(
		&d.ID, &d.ReservationID, &d.UserID, &d.TotalAmount, &d.Currency,
		&intent, &d.PaymentStatus, &d.CreatedAt, &d.UpdatedAt,
		&d.User.ID, &d.User.Name, &d.User.Email, &d.User.Role,
		&d.Reservation.ID, &d.Reservation.Status, &d.Reservation.PaymentStatus,
		&d.Reservation.Amount, &d.Reservation.ScheduledDate,
		&d.Reservation.Service.ID, &d.Reservation.Service.Name, &d.Reservation.Service.Price,
	)
	if err != nil {
		return OrderDetail{}, err
	}
	if intent.Valid {
		v := intent.String
		d.PaymentIntent = &v
	}
	return d, nil
}

// GetDetail fetches an order joined with its user and reservation.
func (r *OrderRepo) GetDetail(ctx context.Context, id string) (OrderDetail, error) {
	row := r.db.QueryRowContext(ctx, orderDetailSelect+` WHERE o.id=? LIMIT 1`, id)
	return scanOrderDetail(row)
}

// OrderQuery is the fixed filter schema for listing orders.
type OrderQuery struct {
	SearchTerm    string
	PaymentStatus string
	UserID        string
	Page          PageOptions
}

var orderSortable = map[string]string{
	"createdAt":   "o.created_at",
	"totalAmount": "o.total_amount",
}

// List returns one page of joined order details plus the total count.
func (r *OrderRepo) List(ctx context.Context, q OrderQuery) ([]OrderDetail, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.SearchTerm != "" {
		term := "%" + strings.ToLower(q.SearchTerm) + "%"
		where = append(where, "(LOWER(o.id) LIKE ? OR LOWER(o.user_id) LIKE ? OR LOWER(o.reservation_id) LIKE ?)")
		args = append(args, term, term, term)
	}
	if q.PaymentStatus != "" {
		where = append(where, "o.payment_status = ?")
		args = append(args, q.PaymentStatus)
	}
	if q.UserID != "" {
		where = append(where, "o.user_id = ?")
		args = append(args, q.UserID)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	opts := q.Page.Normalized()
	dataSQL := orderDetailSelect + ` WHERE ` + cond +
		` ORDER BY ` + opts.orderClause(orderSortable, "o.created_at") + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), opts.Limit, opts.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]OrderDetail, 0, opts.Limit)
	for rows.Next() {
		d, err := scanOrderDetail(rows)
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
