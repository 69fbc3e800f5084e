// Package consumers runs the NATS queue subscribers for the
// notification side of the system. Consumers only observe lifecycle
// events; all state changes happen in the API through the services.
package consumers

import (
	"context"
	"log/slog"

	"turnstile/internal/config"
	"turnstile/internal/database"
	"turnstile/internal/messaging"
	"turnstile/internal/models"
	"turnstile/internal/repository"
	"turnstile/internal/search"
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	var es *search.ElasticsearchClient
	if cfg.Search.URL != "" {
		es, err = search.NewElasticsearchClient(cfg.Search)
		if err != nil {
			slog.Warn("Event search unavailable, index refresh disabled", "error", err)
			es = nil
		}
	}

	repos := repository.NewRepositories(db)
	handlers := NewHandlers(repos, es)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

// Repos exposes the repositories for the background jobs that share this
// process.
func (cs *ConsumerService) Repos() *repository.Repositories {
	return cs.repos
}

// NATS exposes the messaging client for the background jobs.
func (cs *ConsumerService) NATS() *messaging.NATSClient {
	return cs.nats
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	_, err := cs.nats.SubscribeQueue(models.SubjectBookingConfirmed, "consumers", cs.handlers.HandleBookingConfirmed)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.SubjectBookingCancelled, "consumers", cs.handlers.HandleBookingCancelled)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.SubjectTicketScanned, "consumers", cs.handlers.HandleTicketScanned)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
