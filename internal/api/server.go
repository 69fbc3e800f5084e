package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"turnstile/internal/cache"
	"turnstile/internal/config"
	"turnstile/internal/database"
	"turnstile/internal/handlers"
	"turnstile/internal/messaging"
	"turnstile/internal/middleware"
	"turnstile/internal/repository"
	"turnstile/internal/search"
	"turnstile/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the HTTP API together
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	cache    *cache.AvailabilityCache
	services *service.Services
	repos    *repository.Repositories
}

// NewServer builds the full stack. Postgres and NATS are required; the
// availability cache and event search index are optional accelerators
// and their absence only costs performance.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	var availability *cache.AvailabilityCache
	if cfg.Cache.Addr != "" {
		availability, err = cache.NewAvailabilityCache(cfg.Cache)
		if err != nil {
			log.Printf("Availability cache unavailable, continuing without it: %v", err)
			availability = nil
		}
	}

	var es *search.ElasticsearchClient
	if cfg.Search.URL != "" {
		es, err = search.NewElasticsearchClient(cfg.Search)
		if err != nil {
			log.Printf("Event search unavailable, continuing without it: %v", err)
			es = nil
		}
	}

	repos := repository.NewRepositories(db)

	services := service.NewServices(repos, natsClient, availability, es, service.Options{
		ScannerLookback: cfg.ScannerLookback,
		PendingTimeout:  cfg.PendingTimeout,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		cache:    availability,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.New(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.Auth(s.config.JWTSecret))
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.GET("/:id", h.GetBooking)
			bookings.GET("/:id/ledger", h.GetBookingLedger)
			bookings.PATCH("/confirm", h.ConfirmBooking)
			bookings.PATCH("/cancel", h.CancelBooking)
		}

		scanner := api.Group("/scanner")
		{
			scanner.POST("/scan", h.ScanTicket)
			scanner.POST("/verify", h.VerifyToken)
			scanner.GET("/history/:event_id", h.ScanHistory)
			scanner.GET("/events", h.ScannerEvents)
		}

		invitations := api.Group("/invitations")
		{
			invitations.POST("/accept", h.AcceptInvitation)
		}
	}

	// Availability is advisory and feeds public listing pages, no auth
	s.router.GET("/api/events/:id/availability", h.GetAvailability)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbHealth := s.db.HealthCheck(ctx)
	if dbHealth.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"database": dbHealth,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "turnstile-api",
		"database": dbHealth,
	})
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes the external connections
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Printf("Error closing cache connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
