package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the middleware-level error responses (401 from auth,
// 429 from the rate limiter, 500 on store failure) in the same {"error": ...}
// shape the handler package uses, so clients see one error format.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
