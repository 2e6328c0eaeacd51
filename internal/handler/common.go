package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"account-ledger/internal/apperrors"
)

// ErrorResponse is the single failure shape every endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a domain error to its transport status. Anything outside
// the closed AppError set is surfaced as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewAppError(apperrors.InternalError, "an unexpected error occurred")
	}
	writeJSON(w, appErr.HTTPStatus(), ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	})
}
