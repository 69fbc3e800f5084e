package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"turnstile/cmd/consumers/jobs"
	"turnstile/internal/config"
	"turnstile/internal/consumers"
	"turnstile/internal/logger"
	"turnstile/internal/service"
)

func main() {
	log.Println("Starting consumers service...")

	cfg := config.Load()
	cfg.NATS.ClientID = "turnstile-consumers"

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create consumer service: %v", err)
	}

	if err := consumerService.Start(); err != nil {
		log.Fatalf("Failed to start consumers: %v", err)
	}

	// Background jobs share this process with the queue consumers
	repos := consumerService.Repos()
	bookings := service.NewBookingService(repos.Events, repos.Bookings, consumerService.NATS(), nil, cfg.PendingTimeout)

	jobCtx, cancelJobs := context.WithCancel(context.Background())

	expiration := jobs.NewPendingExpirationJob(bookings)
	expiration.Start(jobCtx)

	reconciler := jobs.NewReservationReconciler(repos.Inventory)
	reconciler.Start(jobCtx)

	log.Println("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down consumers service...")

	expiration.Stop()
	reconciler.Stop()
	cancelJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Consumers service stopped")
}
