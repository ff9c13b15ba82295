package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"parkpass/internal/repository"
)

// CheckoutHandler serves the simulated payment page used when Stripe is not
// configured. Opening the checkout URL marks the session paid, which the
// confirm-payment endpoint then observes.
type CheckoutHandler struct {
	Store *repository.Store
}

func NewCheckoutHandler(store *repository.Store) *CheckoutHandler {
	return &CheckoutHandler{Store: store}
}

func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if _, err := h.Store.GetSession(sessionID); err != nil {
		http.Error(w, "Unknown checkout session", http.StatusNotFound)
		return
	}
	if err := h.Store.MarkSessionPaid(sessionID); err != nil {
		http.Error(w, "Could not complete payment", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h1>Payment complete</h1><p>Session %s is paid. You can return to the app.</p></body></html>", sessionID)
}
