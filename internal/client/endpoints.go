package client

import (
	"context"
	"net/http"
	"net/url"

	"parkpass/internal/entities"
)

// Typed wrappers over the backend contract. Each decodes the server's
// envelope and returns the inner payload.

type authEnvelope struct {
	User  *entities.User `json:"user"`
	Token string         `json:"token"`
}

func (c *Client) Signup(ctx context.Context, fullName, email, password string, acceptedTerms bool) (*entities.User, error) {
	var env authEnvelope
	err := c.do(ctx, http.MethodPost, "/auth/signup", map[string]interface{}{
		"fullName":      fullName,
		"email":         email,
		"password":      password,
		"acceptedTerms": acceptedTerms,
	}, &env)
	if err != nil {
		return nil, err
	}
	if err := c.creds.Save(env.Token, env.User); err != nil {
		return nil, &APIError{Status: 0, Message: "could not persist credentials: " + err.Error()}
	}
	return env.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*entities.User, error) {
	var env authEnvelope
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &env)
	if err != nil {
		return nil, err
	}
	if err := c.creds.Save(env.Token, env.User); err != nil {
		return nil, &APIError{Status: 0, Message: "could not persist credentials: " + err.Error()}
	}
	return env.User, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var env struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, &env)
	return env.Message, err
}

func (c *Client) Locations(ctx context.Context) ([]entities.Location, error) {
	var env struct {
		Locations []entities.Location `json:"locations"`
	}
	err := c.do(ctx, http.MethodGet, "/locations", nil, &env)
	return env.Locations, err
}

func (c *Client) Gates(ctx context.Context, locationID string) ([]entities.Gate, error) {
	var env struct {
		Gates []entities.Gate `json:"gates"`
	}
	err := c.do(ctx, http.MethodGet, "/locations/"+url.PathEscape(locationID)+"/gates", nil, &env)
	return env.Gates, err
}

func (c *Client) Spots(ctx context.Context, gateID string) ([]entities.Spot, error) {
	var env struct {
		Spots []entities.Spot `json:"spots"`
	}
	err := c.do(ctx, http.MethodGet, "/gates/"+url.PathEscape(gateID)+"/spots", nil, &env)
	return env.Spots, err
}

// CreateReservationResult is the payload of POST /reservations.
type CreateReservationResult struct {
	Reservation    entities.Reservation
	Session        entities.CheckoutSession
	Pricing        entities.Pricing
	AppliedVoucher *entities.Voucher
}

func (c *Client) CreateReservation(ctx context.Context, locationID, gateID string) (*CreateReservationResult, error) {
	var env struct {
		Reservation entities.Reservation `json:"reservation"`
		Stripe      struct {
			CheckoutSessionID string `json:"checkoutSessionId"`
			CheckoutURL       string `json:"checkoutUrl"`
		} `json:"stripe"`
		Pricing        entities.Pricing  `json:"pricing"`
		AppliedVoucher *entities.Voucher `json:"appliedVoucher"`
	}
	err := c.do(ctx, http.MethodPost, "/reservations", map[string]string{
		"locationId": locationID,
		"gateId":     gateID,
	}, &env)
	if err != nil {
		return nil, err
	}
	return &CreateReservationResult{
		Reservation: env.Reservation,
		Session: entities.CheckoutSession{
			ReservationID: env.Reservation.ID,
			SessionID:     env.Stripe.CheckoutSessionID,
			CheckoutURL:   env.Stripe.CheckoutURL,
		},
		Pricing:        env.Pricing,
		AppliedVoucher: env.AppliedVoucher,
	}, nil
}

// ConfirmPayment asks the backend whether the checkout session has been paid.
// A 400 means "not yet"; callers polling should keep going.
func (c *Client) ConfirmPayment(ctx context.Context, reservationID, sessionID string) (*entities.Reservation, bool, error) {
	var env struct {
		Reservation      entities.Reservation `json:"reservation"`
		AlreadyConfirmed bool                 `json:"alreadyConfirmed"`
	}
	err := c.do(ctx, http.MethodPost, "/reservations/"+url.PathEscape(reservationID)+"/confirm-payment", map[string]string{
		"reservationId": reservationID,
		"sessionId":     sessionID,
	}, &env)
	if err != nil {
		return nil, false, err
	}
	return &env.Reservation, env.AlreadyConfirmed, nil
}

func (c *Client) CancelReservation(ctx context.Context, reservationID string) (*entities.Reservation, error) {
	var env struct {
		Reservation entities.Reservation `json:"reservation"`
	}
	err := c.do(ctx, http.MethodPost, "/reservations/"+url.PathEscape(reservationID)+"/cancel", nil, &env)
	if err != nil {
		return nil, err
	}
	return &env.Reservation, nil
}

func (c *Client) GetReservation(ctx context.Context, reservationID string) (*entities.Reservation, error) {
	var env struct {
		Reservation entities.Reservation `json:"reservation"`
	}
	err := c.do(ctx, http.MethodGet, "/reservations/"+url.PathEscape(reservationID), nil, &env)
	if err != nil {
		return nil, err
	}
	return &env.Reservation, nil
}

// MyReservations returns the user's reservations, newest first.
func (c *Client) MyReservations(ctx context.Context) ([]entities.Reservation, error) {
	var env struct {
		Reservations []entities.Reservation `json:"reservations"`
	}
	err := c.do(ctx, http.MethodGet, "/reservations/mine", nil, &env)
	return env.Reservations, err
}

func (c *Client) Vouchers(ctx context.Context) ([]entities.Voucher, error) {
	var env struct {
		Vouchers []entities.Voucher `json:"vouchers"`
	}
	err := c.do(ctx, http.MethodGet, "/vouchers", nil, &env)
	return env.Vouchers, err
}

func (c *Client) Me(ctx context.Context) (*entities.User, error) {
	var env struct {
		User *entities.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/user/me", nil, &env)
	return env.User, err
}

func (c *Client) UpdateMe(ctx context.Context, fullName string) (*entities.User, error) {
	var env struct {
		User *entities.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPatch, "/user/me", map[string]string{"fullName": fullName}, &env)
	return env.User, err
}

func (c *Client) Activities(ctx context.Context, sortOrder string) ([]entities.Activity, error) {
	path := "/activities"
	if sortOrder != "" {
		path += "?sort=" + url.QueryEscape(sortOrder)
	}
	var env struct {
		Activities []entities.Activity `json:"activities"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &env)
	return env.Activities, err
}
