// Bulk-loads the event catalog into the search index. Run after standing
// up Elasticsearch or whenever the index drifts from Postgres; the
// consumers keep it fresh incrementally afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/database"
	"turnstile/internal/logger"
	"turnstile/internal/repository"
	"turnstile/internal/search"
)

func main() {
	var sinceDays int
	flag.IntVar(&sinceDays, "since-days", 365, "Index events dated within this many days in the past")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")

	if cfg.Search.URL == "" {
		logger.Fatal("ELASTICSEARCH_URL is not configured")
	}

	slog.Info("Starting event index sync", "since_days", sinceDays)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	es, err := search.NewElasticsearchClient(cfg.Search)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	events := repository.NewEventRepository(db)

	if err := syncEvents(context.Background(), events, es, sinceDays); err != nil {
		logger.Fatal("Event sync failed", "error", err)
	}

	slog.Info("Event index sync completed")
}

func syncEvents(ctx context.Context, events *repository.EventRepository, es *search.ElasticsearchClient, sinceDays int) error {
	start := time.Now()
	since := time.Now().AddDate(0, 0, -sinceDays)

	all, err := events.ListScannable(ctx, since, nil)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	indexed := 0
	for i := range all {
		if err := es.IndexEvent(ctx, &all[i]); err != nil {
			slog.Error("Failed to index event", "event_id", all[i].ID, "error", err)
			continue
		}
		indexed++
	}

	slog.Info("Indexed events",
		"total", len(all),
		"indexed", indexed,
		"elapsed", time.Since(start).String())

	if indexed < len(all) {
		return fmt.Errorf("indexed %d of %d events", indexed, len(all))
	}
	return nil
}
