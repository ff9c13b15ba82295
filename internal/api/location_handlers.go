package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"parkpass/internal/entities"
	"parkpass/internal/repository"
)

type LocationHandler struct {
	Store *repository.Store
}

func NewLocationHandler(store *repository.Store) *LocationHandler {
	return &LocationHandler{Store: store}
}

func (h *LocationHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"locations": h.Store.Locations(),
	})
}

func (h *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	location, err := h.Store.GetLocation(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"location": location})
}

func (h *LocationHandler) ListGates(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	location, err := h.Store.GetLocation(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": err.Error()})
		return
	}
	gates := h.Store.GatesByLocation(id)
	if gates == nil {
		gates = []entities.Gate{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"location": location,
		"gates":    gates,
	})
}

func (h *LocationHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	gateID := mux.Vars(r)["id"]
	if _, err := h.Store.GetGate(gateID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": err.Error()})
		return
	}
	spots := h.Store.SpotsByGate(gateID)
	if spots == nil {
		spots = []entities.Spot{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"spots": spots})
}
