package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the error envelope every Stitch route answers with.
type ErrorBody struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// WriteError writes an ErrorBody.
func WriteError(w http.ResponseWriter, code int, errorCode, message string) {
	WriteJSON(w, code, ErrorBody{Error: message, ErrorCode: errorCode})
}

// NoCache sets the headers that keep tokens out of caches.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
