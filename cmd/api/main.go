package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/http/handlers"
	hmw "github.com/diagnosis/consult-sessions/internal/http/middleware"
	"github.com/diagnosis/consult-sessions/internal/platform/cache"
	"github.com/diagnosis/consult-sessions/internal/repo/postgres"
	"github.com/diagnosis/consult-sessions/internal/service"
	"github.com/diagnosis/consult-sessions/pkg/auth"
	"github.com/diagnosis/consult-sessions/pkg/config"
	"github.com/diagnosis/consult-sessions/pkg/database"
	"github.com/diagnosis/consult-sessions/pkg/events"
	"github.com/diagnosis/consult-sessions/pkg/logger"
	mw "github.com/diagnosis/consult-sessions/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	redisCache, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	// Repositories
	store := postgres.NewStore(pool)
	slotRepo := postgres.NewSlotRepo(pool)
	bookingRepo := postgres.NewBookingRepo(pool)
	reviewRepo := postgres.NewReviewRepo(pool)
	walletRepo := postgres.NewWalletRepo(pool)
	notificationRepo := postgres.NewNotificationRepo(pool)
	settingsRepo := postgres.NewSettingsRepo(pool, domain.Settings{
		HourlyRate:        cfg.Booking.HourlyRate,
		OvertimeRate:      cfg.Booking.OvertimeRate,
		CancellationHours: cfg.Booking.CancellationHours,
	})

	// Services
	slotService := service.NewSlotService(slotRepo, slotRepo, settingsRepo)
	bookingService := service.NewBookingService(store, slotRepo, bookingRepo, walletRepo, notificationRepo, settingsRepo, eventBus)
	reviewService := service.NewReviewService(reviewRepo, bookingRepo, eventBus)

	h := handlers.New(slotService, bookingService, reviewService)

	createLimiter := hmw.NewRateLimiter(redisCache, hmw.RateLimitConfig{
		Requests: cfg.Booking.RateLimitRequests,
		Window:   cfg.Booking.RateLimitWindow,
		KeyFunc:  hmw.UserKeyFunc,
	})

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("sessions"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/slots", h.ListSlots)

	r.Route("/bookings", func(r chi.Router) {
		r.Use(hmw.RequireJWT(cfg.Auth.JWTSecret, auth.RoleClient))
		r.With(createLimiter.Middleware(), mw.Idempotency(redisCache)).Post("/", h.CreateBooking)
		r.Get("/", h.ListBookings)
		r.Get("/{id}", h.GetBooking)
		r.Delete("/{id}", h.CancelBooking)
		r.Post("/{id}/review", h.SubmitReview)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(hmw.RequireJWT(cfg.Auth.JWTSecret, auth.RoleAdmin))
		r.Get("/bookings", h.ListAllBookings)
		r.Patch("/bookings/{id}/status", h.UpdateBookingStatus)
		r.Post("/slots", h.GenerateSlots)
		r.Patch("/slots/{id}", h.UpdateSlot)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down sessions service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Sessions service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting sessions service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Sessions service error", "error", err)
		os.Exit(1)
	}
}
