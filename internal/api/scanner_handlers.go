package api

import (
	"net/http"

	"parkpass/internal/service"
)

// ScannerHandler serves the companion gate-scanner app. It sits behind the
// x-api-key middleware, not user bearer auth.
type ScannerHandler struct {
	Service *service.ReservationService
}

func NewScannerHandler(svc *service.ReservationService) *ScannerHandler {
	return &ScannerHandler{Service: svc}
}

func (h *ScannerHandler) ValidateQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRToken   string `json:"qrToken"`
		GateID    string `json:"gateId"`
		GuardID   string `json:"guardId"`
		Timestamp string `json:"timestamp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid request",
		})
		return
	}

	result, err := h.Service.ConsumeQR(req.QRToken, req.GateID, req.GuardID)
	if err != nil {
		writeError(w, err)
		return
	}

	data := map[string]interface{}{"valid": result.Valid}
	if result.GateAccess != "" {
		data["gateAccess"] = result.GateAccess
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": result.Valid,
		"message": result.Message,
		"data":    data,
	})
}
