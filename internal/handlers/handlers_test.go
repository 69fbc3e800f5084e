package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"turnstile/internal/apperrors"
	"turnstile/internal/auth"
	"turnstile/internal/middleware"
	"turnstile/internal/models"
	"turnstile/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// fakeStore is an in-memory implementation of the store interfaces,
// mirroring the conditional-update semantics of the SQL layer.
type fakeStore struct {
	mu          sync.Mutex
	events      map[int64]*models.Event
	bookings    map[int64]*models.Booking
	invitations map[string]*models.Invitation
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      make(map[int64]*models.Event),
		bookings:    make(map[int64]*models.Booking),
		invitations: make(map[string]*models.Invitation),
	}
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (s *fakeStore) Availability(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	return e.AvailableTickets, nil
}

func (s *fakeStore) ListScannable(ctx context.Context, since time.Time, organizerID *int64) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.Date.Before(since) {
			continue
		}
		if organizerID != nil && e.OrganizerID != *organizerID {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeStore) CreateWithReservation(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[booking.EventID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if event.AvailableTickets < booking.NumberOfTickets {
		return apperrors.ErrInsufficientInventory
	}
	event.AvailableTickets -= booking.NumberOfTickets

	s.nextID++
	booking.ID = s.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	s.bookings[booking.ID] = &copied
	return nil
}

func (s *fakeStore) getBooking(id int64) (*models.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (s *fakeStore) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBooking(id)
}

func (s *fakeStore) GetByReference(ctx context.Context, referenceCode string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.bookings {
		if b.ReferenceCode == referenceCode {
			return s.getBooking(id)
		}
	}
	return nil, nil
}

func (s *fakeStore) GetByScanToken(ctx context.Context, scanToken string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.bookings {
		if b.ScanToken == scanToken {
			return s.getBooking(id)
		}
	}
	return nil, nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByEvent(ctx context.Context, eventID int64) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.EventID == eventID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeStore) Confirm(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	switch b.Status {
	case models.BookingStatusPending:
		b.Status = models.BookingStatusConfirmed
		return nil
	case models.BookingStatusConfirmed:
		return nil
	default:
		return apperrors.ErrAlreadyTerminal
	}
}

func (s *fakeStore) CancelWithRelease(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if b.Status.IsTerminal() {
		return nil, apperrors.ErrAlreadyTerminal
	}
	b.Status = models.BookingStatusCancelled
	if event, ok := s.events[b.EventID]; ok {
		event.AvailableTickets += b.NumberOfTickets
		if event.AvailableTickets > event.TotalTickets {
			event.AvailableTickets = event.TotalTickets
		}
	}
	copied := *b
	return &copied, nil
}

func (s *fakeStore) CancelPendingWithRelease(ctx context.Context, id int64) (*models.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingStatusPending {
		return nil, false, nil
	}
	b.Status = models.BookingStatusCancelled
	if event, ok := s.events[b.EventID]; ok {
		event.AvailableTickets += b.NumberOfTickets
		if event.AvailableTickets > event.TotalTickets {
			event.AvailableTickets = event.TotalTickets
		}
	}
	copied := *b
	return &copied, true, nil
}

func (s *fakeStore) CheckIn(ctx context.Context, id int64, actorID int64) (*time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingStatusConfirmed {
		return nil, false, nil
	}
	now := time.Now()
	b.Status = models.BookingStatusAttended
	b.CheckedIn = true
	b.CheckedInAt = &now
	b.CheckedInBy = &actorID
	return &now, true, nil
}

func (s *fakeStore) ListExpiredPending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (s *fakeStore) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[token]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (s *fakeStore) MarkAccepted(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.ID == id && inv.Status == models.InvitationStatusPending {
			inv.Status = models.InvitationStatusAccepted
			return true, nil
		}
	}
	return false, nil
}

// bookingStoreAdapter aligns fakeStore with the BookingStore interface,
// whose GetByID collides with the event store's.
type bookingStoreAdapter struct {
	*fakeStore
}

func (a bookingStoreAdapter) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	return a.GetBookingByID(ctx, id)
}

func setupRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	bookings := service.NewBookingService(store, bookingStoreAdapter{store}, nil, nil, 15*time.Minute)
	services := &service.Services{
		Bookings:    bookings,
		Scanner:     service.NewScannerService(store, bookingStoreAdapter{store}, nil, nil, 7*24*time.Hour),
		Inventory:   service.NewInventoryService(store, bookingStoreAdapter{store}, nil, nil),
		Invitations: service.NewInvitationService(store, bookings),
	}

	h := New(services)

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.Auth(testSecret))
	{
		api.POST("/bookings", h.CreateBooking)
		api.GET("/bookings", h.ListBookings)
		api.GET("/bookings/:id", h.GetBooking)
		api.PATCH("/bookings/confirm", h.ConfirmBooking)
		api.PATCH("/bookings/cancel", h.CancelBooking)
		api.POST("/scanner/scan", h.ScanTicket)
		api.POST("/scanner/verify", h.VerifyToken)
		api.GET("/scanner/history/:event_id", h.ScanHistory)
		api.GET("/scanner/events", h.ScannerEvents)
		api.POST("/invitations/accept", h.AcceptInvitation)
	}
	router.GET("/api/events/:id/availability", h.GetAvailability)

	return router
}

func mintToken(t *testing.T, userID int64, role auth.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedEvent(store *fakeStore, id, organizerID int64, available int) {
	store.events[id] = &models.Event{
		ID:               id,
		OrganizerID:      organizerID,
		Title:            "Test Event",
		Price:            1000,
		Date:             time.Now().Add(24 * time.Hour),
		Status:           models.EventStatusActive,
		TotalTickets:     available,
		AvailableTickets: available,
	}
}

func TestAuthRequired(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)

	w := doRequest(router, http.MethodPost, "/api/bookings", "", models.CreateBookingRequest{EventID: 1, NumberOfTickets: 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodPost, "/api/bookings", "not-a-jwt", models.CreateBookingRequest{EventID: 1, NumberOfTickets: 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateBooking(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)
	token := mintToken(t, 10, auth.RoleAttendee)

	t.Run("Created", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/bookings", token, models.CreateBookingRequest{
			EventID:         1,
			NumberOfTickets: 2,
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var resp models.BookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "confirmed", resp.Status)
		assert.Len(t, resp.ReferenceCode, 8)
		// The creation response is where the owner receives the scan token
		assert.NotEmpty(t, resp.ScanToken)
		assert.Equal(t, int64(2000), resp.TotalAmount)
	})

	t.Run("Insufficient inventory", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/bookings", token, models.CreateBookingRequest{
			EventID:         1,
			NumberOfTickets: 100,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Unknown event", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/bookings", token, models.CreateBookingRequest{
			EventID:         999,
			NumberOfTickets: 1,
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/bookings", token, map[string]interface{}{
			"event_id": 1,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetBooking_ScanTokenVisibility(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)

	ownerToken := mintToken(t, 10, auth.RoleAttendee)
	w := doRequest(router, http.MethodPost, "/api/bookings", ownerToken, models.CreateBookingRequest{
		EventID:         1,
		NumberOfTickets: 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("Owner sees the scan token", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/bookings/1", ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.BookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ScanToken)
	})

	t.Run("Admin does not", func(t *testing.T) {
		adminToken := mintToken(t, 1, auth.RoleAdmin)
		w := doRequest(router, http.MethodGet, "/api/bookings/1", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.BookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.ScanToken)
	})

	t.Run("Stranger gets 403", func(t *testing.T) {
		strangerToken := mintToken(t, 99, auth.RoleAttendee)
		w := doRequest(router, http.MethodGet, "/api/bookings/1", strangerToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Unknown booking gets 404", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/bookings/4242", ownerToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCancelBooking(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)
	token := mintToken(t, 10, auth.RoleAttendee)

	w := doRequest(router, http.MethodPost, "/api/bookings", token, models.CreateBookingRequest{
		EventID:         1,
		NumberOfTickets: 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(router, http.MethodPatch, "/api/bookings/cancel", token, models.CancelBookingRequest{BookingID: created.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var cancelled models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, "cancelled", cancelled.Status)

	// Second cancel conflicts
	w = doRequest(router, http.MethodPatch, "/api/bookings/cancel", token, models.CancelBookingRequest{BookingID: created.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScanTicket(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)

	attendeeToken := mintToken(t, 10, auth.RoleAttendee)
	organizerToken := mintToken(t, 100, auth.RoleOrganizer)

	w := doRequest(router, http.MethodPost, "/api/bookings", attendeeToken, models.CreateBookingRequest{
		EventID:         1,
		NumberOfTickets: 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("Attendee may not scan", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/scanner/scan", attendeeToken, models.ScanTicketRequest{
			ReferenceCode: created.ReferenceCode,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("First scan succeeds", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/scanner/scan", organizerToken, models.ScanTicketRequest{
			ReferenceCode: created.ReferenceCode,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var result models.ScanResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, models.ScanResultScanned, result.Result)
	})

	t.Run("Second scan conflicts", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/scanner/scan", organizerToken, models.ScanTicketRequest{
			ReferenceCode: created.ReferenceCode,
		})
		assert.Equal(t, http.StatusConflict, w.Code)

		var result models.ScanResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, models.ScanResultAlreadyScanned, result.Result)
		assert.NotNil(t, result.ScannedAt)
	})

	t.Run("Unknown reference", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/scanner/scan", organizerToken, models.ScanTicketRequest{
			ReferenceCode: "ZZZZZZZZ",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestVerifyToken(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)

	attendeeToken := mintToken(t, 10, auth.RoleAttendee)
	organizerToken := mintToken(t, 100, auth.RoleOrganizer)

	w := doRequest(router, http.MethodPost, "/api/bookings", attendeeToken, models.CreateBookingRequest{
		EventID:         1,
		NumberOfTickets: 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ScanToken)

	w = doRequest(router, http.MethodPost, "/api/scanner/verify", organizerToken, models.VerifyTokenRequest{
		ScanToken: created.ScanToken,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.ScanResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.ScanResultScanned, result.Result)
}

func TestScanCancelledTicket(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)

	attendeeToken := mintToken(t, 10, auth.RoleAttendee)
	organizerToken := mintToken(t, 100, auth.RoleOrganizer)

	w := doRequest(router, http.MethodPost, "/api/bookings", attendeeToken, models.CreateBookingRequest{
		EventID:         1,
		NumberOfTickets: 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(router, http.MethodPatch, "/api/bookings/cancel", attendeeToken, models.CancelBookingRequest{BookingID: created.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/scanner/scan", organizerToken, models.ScanTicketRequest{
		ReferenceCode: created.ReferenceCode,
	})
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestScanHistory(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 10)
	router := setupRouter(store)

	attendeeToken := mintToken(t, 10, auth.RoleAttendee)
	organizerToken := mintToken(t, 100, auth.RoleOrganizer)

	w := doRequest(router, http.MethodPost, "/api/bookings", attendeeToken, models.CreateBookingRequest{
		EventID:         1,
		NumberOfTickets: 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodGet, "/api/scanner/history/1", organizerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history models.ScanHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history.Bookings, 1)
	assert.Equal(t, 1, history.Statistics.TotalBookings)
	assert.Equal(t, 2, history.Statistics.TotalTickets)
	assert.Equal(t, 0, history.Statistics.CheckedInTickets)

	// Another organizer is rejected
	otherToken := mintToken(t, 555, auth.RoleOrganizer)
	w = doRequest(router, http.MethodGet, "/api/scanner/history/1", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetAvailability_Public(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 7)
	router := setupRouter(store)

	// No token required
	w := doRequest(router, http.MethodGet, "/api/events/1/availability", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.EventID)
	assert.Equal(t, 7, resp.Available)

	w = doRequest(router, http.MethodGet, "/api/events/999/availability", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcceptInvitation(t *testing.T) {
	store := newFakeStore()
	seedEvent(store, 1, 100, 5)
	store.invitations["tok-1"] = &models.Invitation{
		ID:      7,
		EventID: 1,
		Email:   "guest@example.com",
		Token:   "tok-1",
		Status:  models.InvitationStatusPending,
	}
	router := setupRouter(store)
	token := mintToken(t, 42, auth.RoleAttendee)

	w := doRequest(router, http.MethodPost, "/api/invitations/accept", token, models.AcceptInvitationRequest{Token: "tok-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AcceptInvitationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.InvitationStatusAccepted, resp.Status)
	require.NotNil(t, resp.Booking)
	assert.Equal(t, 1, resp.Booking.NumberOfTickets)

	// Accepting again conflicts
	w = doRequest(router, http.MethodPost, "/api/invitations/accept", token, models.AcceptInvitationRequest{Token: "tok-1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown token
	w = doRequest(router, http.MethodPost, "/api/invitations/accept", token, models.AcceptInvitationRequest{Token: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
