// Package respond writes JSON responses for the dashboard API.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"message": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// InternalError writes the 500 body the dashboard expects for unhandled failures.
func InternalError(w http.ResponseWriter, err error) {
	Error(w, http.StatusInternalServerError, "Internal Server Error: "+err.Error())
}
