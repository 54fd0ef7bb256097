package model

import "time"

// Role names form the closed set understood by the authorization layer.
// The set is deliberately enumerated here once; every role switch in the
// application must treat an unknown value as forbidden rather than falling
// through to a default.
const (
	RoleUser            = "user"
	RoleEmployee        = "employee"
	RoleManager         = "manager"
	RolePropertyManager = "property_manager"
	RoleSuperAdmin      = "super_admin"
)

// ValidRole reports whether r is one of the enumerated roles.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleEmployee, RoleManager, RolePropertyManager, RoleSuperAdmin:
		return true
	}
	return false
}

// User mirrors the `users` table. The OTP pair backs the password reset
// flow and is cleared once a reset succeeds.
//
// Fields:
//  ID           – uuid primary key.
//  Name         – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of the Role* constants.
//  OTP          – one-time password for reset flows (nullable).
//  OTPExpiry    – expiry of the OTP (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string     // users.id
	Name         string     // users.name
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	Role         string     // users.role
	OTP          *string    // users.otp (nullable)
	OTPExpiry    *time.Time // users.otp_expiry (nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}
