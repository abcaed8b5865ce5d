package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobyaari-engine/internal/domain"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// APIError is the envelope every non-2xx JSON response uses.
type APIError struct {
	Error errorBody `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, APIError{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFrom(r.Context()),
	}})
}

// WriteDomainError picks the status and code from the engine's error taxonomy.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	var de *domain.Error
	switch {
	case errors.Is(err, domain.ErrRefreshInProgress):
		status, code = http.StatusConflict, "refresh_running"
	case errors.As(err, &de) && de.Kind == domain.KindPersistence:
		code = "persistence_failed"
	case errors.As(err, &de) && (de.Kind == domain.KindFetch || de.Kind == domain.KindParse):
		status, code = http.StatusBadGateway, "source_unavailable"
	}
	WriteError(w, r, status, code, err.Error())
}
