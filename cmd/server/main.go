package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/config"
	"github.com/smarttransit/shuttle-reservation-backend/internal/database"
	"github.com/smarttransit/shuttle-reservation-backend/internal/handlers"
	"github.com/smarttransit/shuttle-reservation-backend/internal/middleware"
	"github.com/smarttransit/shuttle-reservation-backend/internal/services"
	"github.com/smarttransit/shuttle-reservation-backend/internal/utils"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/jwt"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/push"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit Shuttle Reservation Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(migrateCtx, db.DB)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to apply schema: %v", err)
		}
		logger.Info("Database schema up to date")
	}

	// Redis backs the booking rate limiter only; without it requests are not limited
	var limiterClient redis.Scripter
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, rate limiter will allow requests until it recovers")
		} else {
			logger.Info("Redis connection established")
		}
		cancel()
		limiterClient = redisClient
	} else {
		logger.Info("Redis disabled, booking rate limiting off")
	}

	// Push transport
	var transport push.Transport
	if cfg.Push.Mode == "production" {
		amqpTransport := push.NewAMQPTransport(cfg.Push.RabbitMQURL, cfg.Push.Queue, logger)
		defer amqpTransport.Close()
		transport = amqpTransport
		logger.WithField("queue", cfg.Push.Queue).Info("Push notifications published to RabbitMQ")
	} else {
		transport = push.NewLogTransport(logger)
		logger.Info("Push notifications in dev mode (logged only)")
	}

	// Repositories
	tripRepository := database.NewTripRepository(db.DB)
	reservationRepository := database.NewReservationRepository(db.DB)
	notificationRepository := database.NewNotificationRepository(db.DB)
	deviceRepository := database.NewDeviceRepository(db.DB)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, time.Hour)

	notificationService := services.NewNotificationService(
		notificationRepository,
		reservationRepository,
		tripRepository,
		deviceRepository,
		transport,
		cfg.Booking.Location(),
		logger,
	)
	notifier := services.NewAsyncNotifier(notificationService, cfg.Booking.NotificationQueueSize, logger)
	notifier.Start()

	inventoryService := services.NewInventoryService(tripRepository, reservationRepository, cfg.Booking.DefaultSeatCapacity, logger)
	bookingService := services.NewBookingService(inventoryService, reservationRepository, notifier, cfg.Booking.SeatAssignMaxAttempts, logger)
	cancellationService := services.NewCancellationService(tripRepository, reservationRepository, notifier, logger)
	rateLimitService := services.NewRateLimitService(limiterClient, cfg.Booking.RateLimitRequests, cfg.Booking.RateLimitWindow, logger)

	cronService := services.NewCronService(notificationService, cfg.Booking.ReminderSweepSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Cron service started - reminder sweep enabled")

	// Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, cancellationService, inventoryService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(jwtService, logger))
	{
		trips := v1.Group("/trips")
		{
			trips.GET("", bookingHandler.ListTrips)
			trips.GET("/:id/occupancy", bookingHandler.GetOccupancy)
		}

		reservations := v1.Group("/reservations")
		{
			reservations.POST("", middleware.RateLimit(rateLimitService), bookingHandler.Book)
			reservations.PATCH("/:id/cancel", middleware.RateLimit(rateLimitService), bookingHandler.Cancel)
			reservations.GET("/my", bookingHandler.ListMine)
			reservations.GET("/active", bookingHandler.ListActive)
		}

		driver := v1.Group("/driver")
		driver.Use(middleware.RequireRole("driver"))
		{
			driver.GET("/reservations", bookingHandler.DriverManifest)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.POST("/reminder", notificationHandler.ScheduleReminder)
			notifications.GET("", notificationHandler.List)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/send-scheduled", middleware.RequireRole("admin"), notificationHandler.SendScheduled)
		}

		v1.PUT("/user/device-token", notificationHandler.RegisterDeviceToken)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// In-flight requests are done; flush queued confirmations before the
	// transport and database close
	logger.Info("Draining notification queue...")
	notifier.Stop()

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		device := utils.ParseUserAgent(c.Request.UserAgent())
		fields := logrus.Fields{
			"status":      c.Writer.Status(),
			"method":      c.Request.Method,
			"path":        path,
			"query":       c.Request.URL.RawQuery,
			"ip":          c.ClientIP(),
			"latency_ms":  time.Since(start).Milliseconds(),
			"device_type": device.DeviceType,
			"platform":    device.Platform,
			"browser":     device.Browser,
			"has_auth":    c.GetHeader("Authorization") != "",
		}
		if device.IsBot {
			fields["bot"] = true
		}
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
			fields["roles"] = userCtx.Roles
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
