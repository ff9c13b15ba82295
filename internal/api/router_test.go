package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpass/internal/entities"
	"parkpass/internal/repository"
	"parkpass/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, *service.AuthService) {
	t.Helper()
	store := repository.NewStore()
	store.SeedTopology(
		[]entities.Location{{ID: "loc_1", Name: "City Center Garage"}},
		[]entities.Gate{{ID: "gate_1", LocationID: "loc_1", Name: "North Entrance"}},
		nil,
	)
	authService := service.NewAuthService(store, "router-test-secret")
	reservationService := service.NewReservationService(store, service.NewStripeService("", store), nil)
	router := NewRouter(RouterConfig{
		JWTSecret:     "router-test-secret",
		ScannerAPIKey: "router-test-key",
		AuthService:   authService,
		Reservations:  reservationService,
	})
	return router, authService
}

func signupToken(t *testing.T, authService *service.AuthService) string {
	t.Helper()
	_, token, err := authService.Signup("Dana Driver", "dana@example.com", "hunter2!", true)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterRejectsMissingAndBogusTokens(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/locations", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/reservations/mine", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/reservations", "", `{"locationId":"loc_1","gateId":"gate_1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterServesAuthedEndpointsWithValidToken(t *testing.T) {
	router, authService := newTestRouter(t)
	token := signupToken(t, authService)

	rec := doJSON(t, router, http.MethodGet, "/locations", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Locations []entities.Location `json:"locations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Locations, 1)
	assert.Equal(t, "loc_1", body.Locations[0].ID)
}

func TestScannerEndpointRequiresAPIKey(t *testing.T) {
	router, _ := newTestRouter(t)
	body := `{"qrToken":"tok","gateId":"gate_1","guardId":"guard_1"}`

	req := httptest.NewRequest(http.MethodPost, "/api/qr/validate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no key")

	req = httptest.NewRequest(http.MethodPost, "/api/qr/validate", strings.NewReader(body))
	req.Header.Set("x-api-key", "wrong-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong key")

	req = httptest.NewRequest(http.MethodPost, "/api/qr/validate", strings.NewReader(body))
	req.Header.Set("x-api-key", "router-test-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Valid bool `json:"valid"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.False(t, result.Data.Valid, "unknown token is rejected but still answered")
}

func TestConfirmPaymentAnswersNotReadyBeforeCheckout(t *testing.T) {
	router, authService := newTestRouter(t)
	token := signupToken(t, authService)

	rec := doJSON(t, router, http.MethodPost, "/reservations", token, `{"locationId":"loc_1","gateId":"gate_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Reservation entities.Reservation `json:"reservation"`
		Stripe      struct {
			SessionID string `json:"checkoutSessionId"`
		} `json:"stripe"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.Reservation.ID)

	body := `{"sessionId":"` + created.Stripe.SessionID + `"}`
	rec = doJSON(t, router, http.MethodPost, "/reservations/"+created.Reservation.ID+"/confirm-payment", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var failure struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&failure))
	assert.Contains(t, failure.Message, "not completed")
}

func TestReservationsAreScopedToTheirOwner(t *testing.T) {
	router, authService := newTestRouter(t)
	owner := signupToken(t, authService)
	_, other, err := authService.Signup("Sam Stranger", "sam@example.com", "hunter2!", true)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/reservations", owner, `{"locationId":"loc_1","gateId":"gate_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Reservation entities.Reservation `json:"reservation"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = doJSON(t, router, http.MethodGet, "/reservations/"+created.Reservation.ID, other, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/reservations/mine", other, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		Reservations []entities.Reservation `json:"reservations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&mine))
	assert.Empty(t, mine.Reservations)
}

func TestActivitiesAreScopedToTheirOwner(t *testing.T) {
	router, authService := newTestRouter(t)
	owner := signupToken(t, authService)
	_, other, err := authService.Signup("Sam Stranger", "sam@example.com", "hunter2!", true)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/reservations", owner, `{"locationId":"loc_1","gateId":"gate_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	type feed struct {
		Activities []entities.Activity `json:"activities"`
	}

	rec = doJSON(t, router, http.MethodGet, "/activities", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ownFeed feed
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ownFeed))
	require.Len(t, ownFeed.Activities, 1)
	assert.Equal(t, "reservation_created", ownFeed.Activities[0].Type)

	rec = doJSON(t, router, http.MethodGet, "/activities", other, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var otherFeed feed
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&otherFeed))
	assert.Empty(t, otherFeed.Activities, "one user's events are invisible to another")
}
