package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/iota-uz/iota-crm/modules/crm/presentation/controllers/dtos"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		panic(err)
	}
}

// writeClientError is the bare {"error": ...} shape used for rejected requests.
func writeClientError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dtos.ErrorResponse{Error: message})
}

// writeServerError adds success=false, matching the import response envelope.
func writeServerError(w http.ResponseWriter, message string) {
	success := false
	writeJSON(w, http.StatusInternalServerError, dtos.ErrorResponse{Success: &success, Error: message})
}
