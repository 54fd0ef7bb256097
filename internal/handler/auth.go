package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/apperror"
	"github.com/chaudhuree/home-repair/internal/mail"
	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/repository"
	"github.com/chaudhuree/home-repair/internal/utils"
)

// AuthHandler implements registration, login and the OTP password-reset
// flow.
type AuthHandler struct {
	users      *repository.UserRepo
	mailer     mail.Sender // nil when SMTP is not configured
	jwtSecret  string
	tokenTTL   int // minutes
	bcryptCost int
	otpTTL     time.Duration
}

// NewAuthHandler wires the handler. mailer may be nil; the reset flow
// then still stores the OTP but cannot deliver it.
func NewAuthHandler(users *repository.UserRepo, mailer mail.Sender, jwtSecret string, tokenTTLMin, bcryptCost, otpTTLMin int) *AuthHandler {
	return &AuthHandler{
		users:      users,
		mailer:     mailer,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTLMin,
		bcryptCost: bcryptCost,
		otpTTL:     time.Duration(otpTTLMin) * time.Minute,
	}
}

// userView is the serialized user shape. The password hash and OTP pair
// never leave the process.
type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func viewUser(u model.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

type authView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

// Register creates a new account. Self-registration always produces the
// user role; privileged roles are provisioned out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		return fail(c, apperror.BadRequest("Name and email are required"))
	}
	if len(req.Password) < 6 {
		return fail(c, apperror.BadRequest("Password must be at least 6 characters"))
	}

	hash, err := utils.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		return fail(c, err)
	}
	u := model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := h.users.Create(c.Request().Context(), &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, apperror.BadRequest("Email is already registered"))
		}
		return fail(c, err)
	}

	tok, err := utils.NewAccessToken(h.jwtSecret, u.ID, u.Role, h.tokenTTL)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "User registered successfully", authView{Token: tok.Token, User: viewUser(u)})
}

// Login verifies credentials and issues an access token. An unknown
// email is a 404 and a wrong password a 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}

	u, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("User not found"))
		}
		return fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, apperror.Unauthorized("Invalid credentials"))
	}

	tok, err := utils.NewAccessToken(h.jwtSecret, u.ID, u.Role, h.tokenTTL)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Logged in successfully", authView{Token: tok.Token, User: viewUser(u)})
}

// ForgotPassword stores a short-lived OTP on the account and mails it.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return fail(c, err)
	}
	expiry := time.Now().UTC().Add(h.otpTTL)
	if err := h.users.SetOTP(c.Request().Context(), req.Email, otp, expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("User not found"))
		}
		return fail(c, err)
	}

	if h.mailer != nil {
		err := h.mailer.Send(mail.Message{
			To:      req.Email,
			Subject: "Password reset code",
			Body:    fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", otp, int(h.otpTTL.Minutes())),
		})
		if err != nil {
			c.Logger().Errorf("send otp mail: %v", err)
		}
	}
	return respond(c, http.StatusOK, "OTP sent to your email", nil)
}

// ResetPassword verifies the OTP and replaces the password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.BadRequest("Invalid request body"))
	}
	if len(req.NewPassword) < 6 {
		return fail(c, apperror.BadRequest("Password must be at least 6 characters"))
	}

	u, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, apperror.NotFound("User not found"))
		}
		return fail(c, err)
	}
	if u.OTP == nil || u.OTPExpiry == nil || *u.OTP != req.OTP || time.Now().UTC().After(*u.OTPExpiry) {
		return fail(c, apperror.BadRequest("Invalid or expired OTP"))
	}

	hash, err := utils.HashPassword(req.NewPassword, h.bcryptCost)
	if err != nil {
		return fail(c, err)
	}
	if err := h.users.ResetPassword(c.Request().Context(), req.Email, hash); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Password reset successfully", nil)
}
