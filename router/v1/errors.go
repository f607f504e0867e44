package v1

import (
	"encoding/json"
	"net/http"
)

// ErrResponse defines an HTTP error response.
type ErrResponse struct {
	Error string `json:"error"`
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrResponse{Error: msg})
}
