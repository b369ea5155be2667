package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/fourrace-backend/internal/apperror"
	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

type errorResponse struct {
	Error string `json:"error"`
}

type actionResponse struct {
	Game    *entity.Game `json:"game"`
	Applied bool         `json:"applied"`
}

type stateResponse struct {
	Game    *entity.Game `json:"game"`
	Passing *entity.Pass `json:"passing"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps domain errors to a status code and a user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrInvalidPlayerName):
		return http.StatusBadRequest, apperror.ErrInvalidPlayerName.Error()
	case errors.Is(err, apperror.ErrInvalidJoinCode):
		return http.StatusBadRequest, apperror.ErrInvalidJoinCode.Error()
	case errors.Is(err, apperror.ErrGameNotFound):
		return http.StatusNotFound, apperror.ErrGameNotFound.Error()
	case errors.Is(err, apperror.ErrGameFull):
		return http.StatusConflict, apperror.ErrGameFull.Error()
	case errors.Is(err, apperror.ErrGameAlreadyStarted):
		return http.StatusConflict, apperror.ErrGameAlreadyStarted.Error()
	case errors.Is(err, apperror.ErrMergeConflict):
		return http.StatusConflict, apperror.ErrMergeConflict.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func decode(r *http.Request, into any) error {
	return json.NewDecoder(r.Body).Decode(into)
}
