package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/chaudhuree/home-repair/internal/model"
)

// UserRepo provides CRUD operations over the users table.
type UserRepo struct{ db *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, password_hash, role, otp, otp_expiry, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var otp sql.NullString
	var otpExpiry sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &otp, &otpExpiry, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if otp.Valid {
		v := otp.String
		u.OTP = &v
	}
	if otpExpiry.Valid {
		t := otpExpiry.Time
		u.OTPExpiry = &t
	}
	return u, nil
}

// Create inserts a new user. The caller supplies the ID and password
// hash. A duplicate email maps to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	const q = `INSERT INTO users (id, name, email, password_hash, role) VALUES (?,?,?,?,?)`
	if _, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.Role); err != nil {
		// MySQL error 1062: duplicate entry for a unique key.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	created, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = created
	return nil
}

// GetByEmail fetches a user by normalized email. Returns sql.ErrNoRows
// when absent.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
	return scanUser(row)
}

// GetByID fetches a user by id. Returns sql.ErrNoRows when absent.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
	return scanUser(row)
}

// UpdateName changes the display name and returns the fresh record.
func (r *UserRepo) UpdateName(ctx context.Context, id, name string) (model.User, error) {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET name=? WHERE id=?`, name, id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// SetOTP stores a one-time password and its expiry for the password
// reset flow. Returns sql.ErrNoRows when the email is unknown.
func (r *UserRepo) SetOTP(ctx context.Context, email, otp string, expiry time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp=?, otp_expiry=? WHERE email=?`, otp, expiry.UTC(), email)
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

// ResetPassword replaces the password hash and clears the OTP pair in a
// single statement.
func (r *UserRepo) ResetPassword(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash=?, otp=NULL, otp_expiry=NULL WHERE email=?`, passwordHash, email)
	return err
}

// UserQuery defines the fixed filter schema for listing users.
// SearchTerm matches name and email by substring; Role is an equality
// filter.
type UserQuery struct {
	SearchTerm string
	Role       string
	Page       PageOptions
}

var userSortable = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
	"role":      "role",
}

// List returns a page of users plus the total matching count.
func (r *UserRepo) List(ctx context.Context, q UserQuery) ([]model.User, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.SearchTerm != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)")
		term := "%" + strings.ToLower(q.SearchTerm) + "%"
		args = append(args, term, term)
	}
	if q.Role != "" {
		where = append(where, "role = ?")
		args = append(args, q.Role)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	opts := q.Page.Normalized()
	dataSQL := `SELECT ` + userColumns + ` FROM users WHERE ` + cond +
		` ORDER BY ` + opts.orderClause(userSortable, "created_at") + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), opts.Limit, opts.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, opts.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
