package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/contacts-api/internal/application/auth"
	"github.com/contacts-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TokenEnvelope wraps login and refresh responses.
type TokenEnvelope struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SignupEnvelope wraps the signup response.
type SignupEnvelope struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message"`
}

func newTokenEnvelope(pair *auth.TokenPair) TokenEnvelope {
	return TokenEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps domain sentinel errors to HTTP statuses. Unrecognized
// errors become an opaque 500 so storage details never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrVerification):
		writeError(w, http.StatusBadRequest, errMessage(err))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, errMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, errMessage(err))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, errMessage(err))
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errMessage strips the trailing sentinel ("...: not found") from wrapped
// service errors, leaving the human-readable prefix.
func errMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		domain.ErrBadRequest, domain.ErrVerification, domain.ErrUnauthorized,
		domain.ErrNotFound, domain.ErrConflict,
	} {
		if trimmed := strings.TrimSuffix(msg, ": "+sentinel.Error()); trimmed != msg {
			return trimmed
		}
	}
	return msg
}
