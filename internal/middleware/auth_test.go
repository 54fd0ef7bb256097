package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/model"
	"github.com/chaudhuree/home-repair/internal/utils"
)

type userLookupMock struct {
	getFn func(ctx context.Context, id string) (model.User, error)
}

func (m *userLookupMock) GetByID(ctx context.Context, id string) (model.User, error) {
	return m.getFn(ctx, id)
}

func invoke(t *testing.T, mw echo.MiddlewareFunc, authHeader string, role any) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec, c
}

func TestJWTAuthResolvesLiveUser(t *testing.T) {
	const secret = "test-secret"
	tok, err := utils.NewAccessToken(secret, "user-1", model.RoleUser, 5)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	users := &userLookupMock{getFn: func(_ context.Context, id string) (model.User, error) {
		// Role was promoted after the token was minted.
		return model.User{ID: id, Role: model.RoleManager}, nil
	}}

	rec, c := invoke(t, JWTAuth(secret, users), "Bearer "+tok.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := c.Get("user_id"); got != "user-1" {
		t.Fatalf("expected user_id user-1, got %v", got)
	}
	if got := c.Get("role"); got != model.RoleManager {
		t.Fatalf("expected live role manager, got %v", got)
	}
}

func TestJWTAuthDeletedUser(t *testing.T) {
	const secret = "test-secret"
	tok, err := utils.NewAccessToken(secret, "ghost", model.RoleUser, 5)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	users := &userLookupMock{getFn: func(_ context.Context, id string) (model.User, error) {
		return model.User{}, sql.ErrNoRows
	}}

	rec, _ := invoke(t, JWTAuth(secret, users), "Bearer "+tok.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	users := &userLookupMock{getFn: func(_ context.Context, id string) (model.User, error) {
		t.Fatal("lookup must not run for a bad token")
		return model.User{}, nil
	}}
	mw := JWTAuth("test-secret", users)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		rec, _ := invoke(t, mw, header, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       any
		allowed    []string
		wantStatus int
	}{
		{name: "allowed role", role: model.RoleManager, allowed: []string{model.RoleManager}, wantStatus: http.StatusOK},
		{name: "denied role", role: model.RoleUser, allowed: []string{model.RoleManager}, wantStatus: http.StatusForbidden},
		{name: "missing role", role: nil, allowed: []string{model.RoleManager}, wantStatus: http.StatusForbidden},
		{name: "unknown role fails closed", role: "admin", allowed: []string{model.RoleManager, model.RoleSuperAdmin}, wantStatus: http.StatusForbidden},
		{name: "non-string role", role: 42, allowed: []string{model.RoleManager}, wantStatus: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := invoke(t, RequireRole(tc.allowed...), "", tc.role)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}
