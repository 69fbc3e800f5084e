package jobs

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/metrics"
	"turnstile/internal/repository"
)

const reconcileInterval = 5 * time.Minute

// ReservationReconciler periodically audits the ticket conservation
// invariant: for every event, available plus reserved must equal total.
// With reservations running as single transactions the report should
// always be empty; anything found is counted, logged and repaired.
type ReservationReconciler struct {
	inventory *repository.InventoryRepository
	ticker    *time.Ticker
	done      chan bool
}

func NewReservationReconciler(inventory *repository.InventoryRepository) *ReservationReconciler {
	return &ReservationReconciler{
		inventory: inventory,
		done:      make(chan bool),
	}
}

func (j *ReservationReconciler) Start(ctx context.Context) {
	slog.Info("Starting reservation reconciler", "interval", reconcileInterval.String())

	j.ticker = time.NewTicker(reconcileInterval)

	go j.reconcile(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.reconcile(ctx)
			case <-j.done:
				slog.Info("Reservation reconciler stopped")
				return
			}
		}
	}()
}

func (j *ReservationReconciler) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *ReservationReconciler) reconcile(ctx context.Context) {
	report, err := j.inventory.ConservationReport(ctx)
	if err != nil {
		slog.Error("Failed to run conservation report", "error", err)
		return
	}

	if len(report) == 0 {
		slog.Debug("Conservation report clean")
		return
	}

	for _, row := range report {
		metrics.ConservationViolations.Inc()
		slog.Error("Ticket conservation violated",
			"event_id", row.EventID,
			"total", row.TotalTickets,
			"available", row.AvailableTickets,
			"reserved", row.ReservedTickets)

		repaired, err := j.inventory.Repair(ctx, row)
		if err != nil {
			slog.Error("Failed to repair event counter", "event_id", row.EventID, "error", err)
			continue
		}
		if repaired {
			slog.Warn("Repaired event counter",
				"event_id", row.EventID,
				"new_available", row.TotalTickets-row.ReservedTickets)
		} else {
			// The counter moved since the report; next run re-audits.
			slog.Info("Counter changed during repair, skipping", "event_id", row.EventID)
		}
	}
}
