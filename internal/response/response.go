// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the payload rendered for every failed request.
type ErrorBody struct {
	Error string `json:"error" example:"No files uploaded"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data as the whole body.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Error writes an error response with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// MethodNotAllowed writes a 405 response.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "method not allowed")
}

// InternalError writes a 500 response with a generic message.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error")
}
