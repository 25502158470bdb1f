package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sharpcut-backend/internal/auth"
	"sharpcut-backend/internal/cache"
	"sharpcut-backend/internal/config"
	"sharpcut-backend/internal/datelock"
	"sharpcut-backend/internal/db"
	"sharpcut-backend/internal/handlers"
	"sharpcut-backend/internal/jobs"
	"sharpcut-backend/internal/metrics"
	"sharpcut-backend/internal/middleware"
	"sharpcut-backend/internal/notifications"
	"sharpcut-backend/internal/validation"
	"sharpcut-backend/internal/waitlist"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "sharpcut-backend",
		}
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	}
	sms := notifications.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if sms == nil {
		logger.Info("twilio sms disabled")
	}
	dispatcher := notifications.NewDispatcher(mailer, sms, logger)

	grid := cfg.Grid()
	val := validation.New()

	waitlistRepo := waitlist.NewRepository(cols.Waitlist, cols.Appointments, cols.Services)
	waitlistService := waitlist.NewService(waitlistRepo, grid, dispatcher, cfg.Timezone, logger)
	waitlistHandler := waitlist.NewHandler(waitlistService, val, cfg.Timezone, logger)

	locks := datelock.New()
	server := &handlers.Server{
		Cfg:      cfg,
		Cols:     cols,
		Val:      val,
		Log:      logger,
		Cache:    cacheStore,
		Grid:     grid,
		Locks:    locks,
		Notifier: dispatcher,
		Waitlist: waitlistService,
	}

	expiry := jobs.NewExpiryRunner(waitlistService, locks, cfg.Timezone, logger)
	if err := expiry.Start(); err != nil {
		logger.Error("expiry job failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer expiry.Stop()

	metrics.Register()

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookingsLimiter := middleware.NewRateLimiter(cfg.RateLimitBookings, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	waitlistLimiter := middleware.NewRateLimiter(cfg.RateLimitWaitlist, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/services", server.GetServices)
		api.Get("/available", server.GetAvailableSlots)
		api.Get("/available/next", server.GetNextAvailability)

		api.With(bookingsLimiter.Middleware).Post("/appointments", server.CreateAppointment)
		api.Get("/appointments/{id}", server.GetAppointment)
		api.Put("/appointments/{id}", server.UpdateAppointmentStatus)
		api.Put("/appointments/{id}/reschedule", server.RescheduleAppointment)
		api.Delete("/appointments/{id}", server.CancelAppointment)

		api.With(waitlistLimiter.Middleware).Post("/waitlist", waitlistHandler.Create)
		api.Get("/waitlist", waitlistHandler.ListByEmail)

		api.Post("/payments/intent", server.CreatePaymentIntent)

		api.Route("/admin", func(admin chi.Router) {
			admin.Post("/register", server.AdminRegister)
			admin.Post("/login", server.AdminLogin)
			admin.Post("/refresh", server.AdminRefresh)
			admin.Post("/logout", server.AdminLogout)

			// chi requires middlewares before routes, so the protected
			// surface lives in its own group.
			admin.Group(func(protected chi.Router) {
				protected.Use(middleware.AdminAuth(cfg.AdminAPIKey, jwtManager))
				protected.Post("/services", server.AdminCreateService)
				protected.Put("/services/{id}", server.AdminUpdateService)
				protected.Delete("/services/{id}", server.AdminDeactivateService)
				protected.Get("/appointments", server.AdminListAppointments)
				protected.Get("/customers", server.AdminListCustomers)
				protected.Get("/waitlist", waitlistHandler.AdminListByDate)
				protected.Post("/users", server.AdminCreateUser)
				protected.Patch("/users/{id}/password", server.AdminUpdateUserPassword)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
