package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumofit/companion/internal/gateway"
	"github.com/lumofit/companion/internal/services"
	"github.com/lumofit/companion/pkg/utils"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Success: false, Error: err.Error()}
	status := http.StatusInternalServerError

	var verr *utils.ValidationError
	var gerr *gateway.Error
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Field = verr.Field
	case errors.Is(err, services.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrPatientNotFound), errors.Is(err, services.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrRefreshThrottled):
		status = http.StatusTooManyRequests
	case errors.As(err, &gerr):
		status = http.StatusBadGateway
		if gerr.Kind == gateway.KindAuthRejected {
			status = http.StatusUnauthorized
		}
	}
	writeJSON(w, status, resp)
}

func decodeBody(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return &utils.ValidationError{Field: "body", Message: "Invalid request body"}
	}
	return nil
}
