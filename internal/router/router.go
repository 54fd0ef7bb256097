// Package router defines how HTTP routes are registered for the API.
// Role gates are applied per route group; anything finer grained (owner
// checks, assigned-employee checks) lives in the service layer.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/chaudhuree/home-repair/internal/config"
	"github.com/chaudhuree/home-repair/internal/handler"
	"github.com/chaudhuree/home-repair/internal/middleware"
	"github.com/chaudhuree/home-repair/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	User        *handler.UserHandler
	Service     *handler.ServiceHandler
	Reservation *handler.ReservationHandler
	Order       *handler.OrderHandler
}

// Register mounts all routes on the provided Echo instance. users backs
// the JWT middleware's live-subject lookup; rdb may be nil, which
// disables caching of the public catalog.
func Register(e *echo.Echo, h Handlers, users middleware.UserLookup, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Unauthenticated surface.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)

	// The catalog is browsable without a session so prospective
	// customers can see prices. Reads go through the response cache.
	cache := middleware.NewRedisCache(cacheCfg, rdb)
	e.GET("/v1/services", h.Service.List, cache)
	e.GET("/v1/services/:id", h.Service.Get, cache)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret, users))

	manager := middleware.RequireRole(model.RoleManager)
	managerOrAdmin := middleware.RequireRole(model.RoleManager, model.RoleSuperAdmin)
	anyRole := middleware.RequireRole(
		model.RoleUser, model.RoleEmployee, model.RoleManager,
		model.RolePropertyManager, model.RoleSuperAdmin,
	)

	v1.GET("/profile", h.User.Profile, anyRole)
	v1.PATCH("/profile", h.User.UpdateProfile, anyRole)
	v1.GET("/users", h.User.List, managerOrAdmin)

	v1.POST("/services", h.Service.Create, manager)
	v1.PATCH("/services/:id", h.Service.Update, manager)
	v1.DELETE("/services/:id", h.Service.Delete, manager)

	user := middleware.RequireRole(model.RoleUser)
	managerOrEmployee := middleware.RequireRole(model.RoleManager, model.RoleEmployee)

	v1.POST("/reservations", h.Reservation.Create, user)
	v1.GET("/reservations", h.Reservation.List, anyRole)
	v1.GET("/reservations/:id", h.Reservation.Get, anyRole)
	v1.PATCH("/reservations/:id", h.Reservation.Update, managerOrEmployee)
	v1.PATCH("/reservations/:id/first-installment", h.Reservation.ConfirmFirstInstallment, user)
	v1.PATCH("/reservations/:id/second-installment", h.Reservation.ConfirmSecondInstallment, user)
	v1.PATCH("/reservations/:id/assign-employee", h.Reservation.AssignEmployee, manager)
	v1.DELETE("/reservations/:id", h.Reservation.Delete, manager)

	userOrAdmin := middleware.RequireRole(model.RoleUser, model.RoleManager, model.RoleSuperAdmin)

	v1.POST("/orders", h.Order.Create, user)
	v1.POST("/orders/confirm-payment", h.Order.ConfirmPayment, user)
	v1.POST("/orders/process-second-payment", h.Order.ProcessSecondPayment, user)
	v1.POST("/orders/confirm-second-payment", h.Order.ConfirmSecondPayment, user)
	v1.GET("/orders", h.Order.List, userOrAdmin)
	v1.GET("/orders/:id", h.Order.Get, userOrAdmin)
}
