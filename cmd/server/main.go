package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ateliera/studio-booking/internal/availability"
	"github.com/ateliera/studio-booking/internal/booking"
	"github.com/ateliera/studio-booking/internal/codes"
	"github.com/ateliera/studio-booking/internal/config"
	"github.com/ateliera/studio-booking/internal/database"
	"github.com/ateliera/studio-booking/internal/handler"
	"github.com/ateliera/studio-booking/internal/queue"
	"github.com/ateliera/studio-booking/internal/repository"
	"github.com/ateliera/studio-booking/internal/router"
	"github.com/ateliera/studio-booking/internal/schedule"
)

func main() {
	// .env is optional; real deployments set variables in the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(database.Config{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; caching and rate limiting disabled")
	}

	ruleRepo := repository.NewRuleRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	serviceRepo := repository.NewServiceRepo(db)
	codeRepo := repository.NewCodeRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	validator := codes.NewValidator(codeRepo)
	materializer := schedule.NewMaterializer(db, ruleRepo, slotRepo, serviceRepo, cfg.Location)
	resolver := availability.NewResolver(slotRepo, cfg.Location)
	transactor := booking.NewTransactor(db, slotRepo, bookingRepo, codeRepo, serviceRepo, validator)
	reconciler := booking.NewReconciler(db, slotRepo, bookingRepo, codeRepo)

	// Notification consumer runs for the life of the process and
	// reconnects on its own; a broker outage never blocks startup.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		Availability: handler.NewAvailabilityHandler(resolver),
		Slots:        handler.NewSlotHandler(materializer),
		Codes:        handler.NewCodeHandler(validator),
		Bookings:     handler.NewBookingHandler(transactor, reconciler, bookingRepo, serviceRepo, rdb, cfg.Location),
		Rdb:          rdb,
		JWTSecret:    cfg.JWTSecret,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, tz=%s)", addr, cfg.Env, cfg.StudioTimezone)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
