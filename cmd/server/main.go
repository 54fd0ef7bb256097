package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/chaudhuree/home-repair/internal/config"
	"github.com/chaudhuree/home-repair/internal/database"
	"github.com/chaudhuree/home-repair/internal/handler"
	"github.com/chaudhuree/home-repair/internal/mail"
	"github.com/chaudhuree/home-repair/internal/middleware"
	"github.com/chaudhuree/home-repair/internal/payment"
	"github.com/chaudhuree/home-repair/internal/queue"
	"github.com/chaudhuree/home-repair/internal/repository"
	"github.com/chaudhuree/home-repair/internal/router"
	"github.com/chaudhuree/home-repair/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	catalog := repository.NewServiceRepo(db)
	reservations := repository.NewReservationRepo(db)
	orders := repository.NewOrderRepo(db, reservations)

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}

	var events service.Events
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		if mailer != nil {
			go queue.StartNotificationConsumer(cfg.AMQPURL, mailer)
		}
	}

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)

	reservationEngine := service.NewReservationService(reservations, catalog, users, events)
	orderEngine := service.NewOrderService(orders, reservations, gateway, events)

	h := router.Handlers{
		Auth:        handler.NewAuthHandler(users, mailer, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, cfg.OTPTTLMin),
		User:        handler.NewUserHandler(users),
		Service:     handler.NewServiceHandler(catalog),
		Reservation: handler.NewReservationHandler(reservationEngine),
		Order:       handler.NewOrderHandler(orderEngine),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.Register(e, h, users, cfg.JWTSecret, config.LoadCacheConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
