package api

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "parkpass/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps service errors onto the wire: HTTPError keeps its code,
// anything else is a 500 with a generic message.
func writeError(w http.ResponseWriter, err error) {
	if httpErr, ok := err.(*apperrors.HTTPError); ok {
		writeJSON(w, httpErr.Code, map[string]string{"message": httpErr.Message})
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
