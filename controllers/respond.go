package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "carechat_server/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// envelope is the uniform response body for every REST endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteSuccess writes a success envelope with optional payload.
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data})
}

// WriteError maps a service error onto the taxonomy's status code. Transport
// failures are logged in full but surfaced with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ Internal error: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Message: apperrors.PublicMessage(err)})
}

// WriteValidationError rejects a malformed or invalid request body.
func WriteValidationError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}
