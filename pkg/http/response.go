package http

import (
	"encoding/json"
	"net/http"

	apperrors "slotkeeper/pkg/errors"
)

type ErrorResponse struct {
	Error     string             `json:"error"`
	Code      string             `json:"code,omitempty"`
	Category  apperrors.Category `json:"category,omitempty"`
	Retryable bool               `json:"retryable,omitempty"`
	Details   map[string]any     `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError renders err with the status of its AppError and the message
// the end user should see. Errors that are not AppErrors become a 500
// without leaking their text.
func WriteError(w http.ResponseWriter, err error) error {
	if !apperrors.IsAppError(err) {
		return WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:    "Internal server error",
			Code:     apperrors.CodeInternal,
			Category: apperrors.CategoryTechnical,
		})
	}

	appErr := apperrors.AsAppError(err)
	c := apperrors.Classify(err)
	return WriteJSON(w, appErr.StatusCode(), ErrorResponse{
		Error:     apperrors.UserMessage(err),
		Code:      appErr.Code,
		Category:  c.Category,
		Retryable: c.Retryable,
		Details:   appErr.Details,
	})
}

// WriteErrorWithData renders err together with data, e.g. a reservation
// that was held but not confirmed.
func WriteErrorWithData(w http.ResponseWriter, err error, data any) error {
	appErr := apperrors.AsAppError(err)
	return WriteJSON(w, appErr.StatusCode(), struct {
		ErrorResponse
		Data any `json:"data,omitempty"`
	}{
		ErrorResponse: ErrorResponse{
			Error:    apperrors.UserMessage(err),
			Code:     appErr.Code,
			Category: apperrors.Classify(err).Category,
			Details:  appErr.Details,
		},
		Data: data,
	})
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteAccepted(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusAccepted, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
