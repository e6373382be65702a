package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindBusinessRule:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors onto HTTP responses. Anything outside
// the taxonomy is a 500 with the detail kept out of the body.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		writeJSON(w, statusFor(ae.Kind), map[string]any{"error": ae})
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": apperr.E(apperr.KindNotFound, "not found"),
		})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]string{"kind": "internal", "message": "internal server error"},
		})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, apperr.E(apperr.KindValidation, "%s", msg))
}
