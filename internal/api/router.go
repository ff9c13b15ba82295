package api

import (
	"github.com/gorilla/mux"

	"parkpass/internal/auth"
	"parkpass/internal/service"
)

// RouterConfig bundles everything the HTTP surface needs.
type RouterConfig struct {
	JWTSecret     string
	ScannerAPIKey string
	AuthService   *service.AuthService
	Reservations  *service.ReservationService
}

// NewRouter builds the full route table. It is shared by cmd/server and the
// end-to-end tests.
func NewRouter(cfg RouterConfig) *mux.Router {
	authHandler := NewAuthHandler(cfg.AuthService)
	userHandler := NewUserHandler(cfg.AuthService)
	locationHandler := NewLocationHandler(cfg.Reservations.Store)
	reservationHandler := NewReservationHandler(cfg.Reservations)
	checkoutHandler := NewCheckoutHandler(cfg.Reservations.Store)
	scannerHandler := NewScannerHandler(cfg.Reservations)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/forgot-password", authHandler.ForgotPassword).Methods("POST")
	r.HandleFunc("/checkout/{sessionID}", checkoutHandler.Pay).Methods("GET")

	// Authenticated endpoints
	authed := r.NewRoute().Subrouter()
	authed.Use(auth.Middleware(cfg.JWTSecret))
	authed.HandleFunc("/locations", locationHandler.ListLocations).Methods("GET")
	authed.HandleFunc("/locations/{id}", locationHandler.GetLocation).Methods("GET")
	authed.HandleFunc("/locations/{id}/gates", locationHandler.ListGates).Methods("GET")
	authed.HandleFunc("/gates/{id}/spots", locationHandler.ListSpots).Methods("GET")
	authed.HandleFunc("/reservations", reservationHandler.Create).Methods("POST")
	authed.HandleFunc("/reservations/mine", reservationHandler.Mine).Methods("GET")
	authed.HandleFunc("/reservations/{id}/confirm-payment", reservationHandler.ConfirmPayment).Methods("POST")
	authed.HandleFunc("/reservations/{id}/cancel", reservationHandler.Cancel).Methods("POST")
	authed.HandleFunc("/reservations/{id}", reservationHandler.Get).Methods("GET")
	authed.HandleFunc("/vouchers", reservationHandler.Vouchers).Methods("GET")
	authed.HandleFunc("/user/me", userHandler.Me).Methods("GET")
	authed.HandleFunc("/user/me", userHandler.UpdateMe).Methods("PATCH")
	authed.HandleFunc("/activities", reservationHandler.Activities).Methods("GET")

	// Scanner endpoints (static API key, separate trust boundary)
	scanner := r.PathPrefix("/api/qr").Subrouter()
	scanner.Use(auth.APIKeyMiddleware(cfg.ScannerAPIKey))
	scanner.HandleFunc("/validate", scannerHandler.ValidateQR).Methods("POST")

	return r
}
