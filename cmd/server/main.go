package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"parkpass/internal/api"
	"parkpass/internal/entities"
	"parkpass/internal/repository"
	"parkpass/internal/service"
)

func main() {
	godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	scannerAPIKey := os.Getenv("SCANNER_API_KEY")
	if scannerAPIKey == "" {
		log.Fatal("SCANNER_API_KEY not set")
	}
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	store := repository.NewStore()
	seedTopology(store)

	stripeService := service.NewStripeService(baseURL, store)
	senderService := service.NewSenderService()
	authService := service.NewAuthService(store, jwtSecret)
	reservationService := service.NewReservationService(store, stripeService, senderService)
	jobService := service.NewJobService(reservationService)

	c := cron.New()
	if _, err := c.AddFunc("@every 1m", jobService.Run); err != nil {
		log.Fatalf("Failed to schedule sweep job: %v", err)
	}
	c.Start()
	defer c.Stop()

	r := api.NewRouter(api.RouterConfig{
		JWTSecret:     jwtSecret,
		ScannerAPIKey: scannerAPIKey,
		AuthService:   authService,
		Reservations:  reservationService,
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "x-api-key"}),
	)

	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, cors(r))))
}

func seedTopology(store *repository.Store) {
	store.SeedTopology(
		[]entities.Location{
			{ID: "loc_center", Name: "City Center Garage", Address: "12 Market St"},
			{ID: "loc_airport", Name: "Airport Long Stay", Address: "1 Terminal Rd"},
		},
		[]entities.Gate{
			{ID: "gate_center_north", LocationID: "loc_center", Name: "North Entrance"},
			{ID: "gate_center_south", LocationID: "loc_center", Name: "South Entrance"},
			{ID: "gate_airport_main", LocationID: "loc_airport", Name: "Main Barrier"},
		},
		[]entities.Spot{
			{ID: "spot_c1", GateID: "gate_center_north", Code: "A-01", Status: "free", CVStatus: "free"},
			{ID: "spot_c2", GateID: "gate_center_north", Code: "A-02", Status: "free", CVStatus: "occupied"},
			{ID: "spot_c3", GateID: "gate_center_south", Code: "B-01", Status: "occupied", CVStatus: "free"},
			{ID: "spot_a1", GateID: "gate_airport_main", Code: "L-01", Status: "free", CVStatus: "free"},
			{ID: "spot_a2", GateID: "gate_airport_main", Code: "L-02", Status: "free", CVStatus: "free"},
		},
	)
}
