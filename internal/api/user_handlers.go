package api

import (
	"net/http"

	"parkpass/internal/auth"
	"parkpass/internal/service"
)

type UserHandler struct {
	Service *service.AuthService
}

func NewUserHandler(svc *service.AuthService) *UserHandler {
	return &UserHandler{Service: svc}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.GetUser(auth.UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.Service.UpdateUser(auth.UserID(r), req.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
