package jobs

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/service"
)

const expirationCheckInterval = 30 * time.Second

// PendingExpirationJob cancels bookings that were created with deferred
// confirmation and never confirmed, returning their seats to the pool.
type PendingExpirationJob struct {
	bookings *service.BookingService
	ticker   *time.Ticker
	done     chan bool
}

func NewPendingExpirationJob(bookings *service.BookingService) *PendingExpirationJob {
	return &PendingExpirationJob{
		bookings: bookings,
		done:     make(chan bool),
	}
}

func (j *PendingExpirationJob) Start(ctx context.Context) {
	slog.Info("Starting pending expiration job", "check_interval", expirationCheckInterval.String())

	j.ticker = time.NewTicker(expirationCheckInterval)

	go j.run(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.run(ctx)
			case <-j.done:
				slog.Info("Pending expiration job stopped")
				return
			}
		}
	}()
}

func (j *PendingExpirationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *PendingExpirationJob) run(ctx context.Context) {
	cancelled, err := j.bookings.ExpirePending(ctx)
	if err != nil {
		slog.Error("Failed to expire pending bookings", "error", err)
		return
	}
	if cancelled > 0 {
		slog.Info("Expired pending bookings", "count", cancelled)
	}
}
