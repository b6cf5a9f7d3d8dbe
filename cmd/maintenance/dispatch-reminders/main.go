package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/config"
	"github.com/smarttransit/shuttle-reservation-backend/internal/database"
	"github.com/smarttransit/shuttle-reservation-backend/internal/services"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/push"
)

// Runs one reminder sweep and exits, for deployments that schedule the sweep
// externally instead of running the in-process cron.
func main() {
	var (
		atFlag      string
		timeoutFlag time.Duration
	)
	flag.StringVar(&atFlag, "at", "", "RFC3339 time to treat as now (default: current time)")
	flag.DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "maximum time for the sweep")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	now := time.Now()
	if atFlag != "" {
		now, err = time.Parse(time.RFC3339, atFlag)
		if err != nil {
			logger.Fatalf("Invalid -at value: %v", err)
		}
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var transport push.Transport
	if cfg.Push.Mode == "production" {
		amqpTransport := push.NewAMQPTransport(cfg.Push.RabbitMQURL, cfg.Push.Queue, logger)
		defer amqpTransport.Close()
		transport = amqpTransport
	} else {
		transport = push.NewLogTransport(logger)
	}

	notificationService := services.NewNotificationService(
		database.NewNotificationRepository(db.DB),
		database.NewReservationRepository(db.DB),
		database.NewTripRepository(db.DB),
		database.NewDeviceRepository(db.DB),
		transport,
		cfg.Booking.Location(),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	result, err := notificationService.DispatchDueReminders(ctx, now)
	if err != nil {
		logger.WithError(err).Error("Reminder sweep failed")
		os.Exit(1)
	}

	fmt.Printf("Reminder sweep at %s: due=%d sent=%d skipped=%d failed=%d\n",
		now.Format(time.RFC3339), result.Due, result.Sent, result.Skipped, result.Failed)
}
