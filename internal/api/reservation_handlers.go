package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"parkpass/internal/auth"
	"parkpass/internal/entities"
	"parkpass/internal/service"
)

type ReservationHandler struct {
	Service *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Service: svc}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationID string `json:"locationId"`
		GateID     string `json:"gateId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	result, err := h.Service.CreateReservation(auth.UserID(r), req.LocationID, req.GateID)
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]interface{}{
		"reservation": result.Reservation.Entity(),
		"stripe": map[string]string{
			"checkoutSessionId": result.Session.ID,
			"checkoutUrl":       result.Session.URL,
		},
		"pricing": result.Pricing,
	}
	if result.AppliedVoucher != nil {
		body["appliedVoucher"] = result.AppliedVoucher.Entity()
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *ReservationHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReservationID string `json:"reservationId"`
		SessionID     string `json:"sessionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if req.ReservationID != "" {
		id = req.ReservationID
	}
	reservation, already, err := h.Service.ConfirmPayment(auth.UserID(r), id, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	body := map[string]interface{}{"reservation": reservation.Entity()}
	if already {
		body["alreadyConfirmed"] = true
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	reservation, err := h.Service.CancelReservation(auth.UserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservation": reservation.Entity()})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	reservation, err := h.Service.GetReservation(auth.UserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservation": reservation.Entity()})
}

func (h *ReservationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list := h.Service.ListReservations(auth.UserID(r))
	reservations := make([]entities.Reservation, 0, len(list))
	for _, res := range list {
		reservations = append(reservations, res.Entity())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": reservations})
}

func (h *ReservationHandler) Vouchers(w http.ResponseWriter, r *http.Request) {
	list := h.Service.ListVouchers(auth.UserID(r))
	vouchers := make([]entities.Voucher, 0, len(list))
	for _, v := range list {
		vouchers = append(vouchers, v.Entity())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vouchers": vouchers})
}

func (h *ReservationHandler) Activities(w http.ResponseWriter, r *http.Request) {
	list := h.Service.ListActivities(auth.UserID(r), r.URL.Query().Get("sort"))
	activities := make([]entities.Activity, 0, len(list))
	for _, a := range list {
		activities = append(activities, a.Entity())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}
