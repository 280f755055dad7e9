package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"loan-tracker/internal/api/handler/dto"
	"loan-tracker/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	detail := dto.ErrorDetail{Message: "An unexpected error occurred."}
	status := http.StatusInternalServerError

	var (
		validationError *apperrors.ValidationError
		recordedErr     *apperrors.PaymentRecordedError
		lockedErr       *apperrors.LockedError
		appErr          *apperrors.AppError
	)

	switch {
	case errors.As(err, &recordedErr):
		detail.Code = "PAYMENT_RECORDED"
		detail.Message = "Payment was recorded but the loan could not be updated."
		detail.PaymentID = recordedErr.PaymentID.String()
		slog.Default().Error("Payment recorded without loan update", "error", err)
	case errors.As(err, &lockedErr):
		status = http.StatusLocked
		detail.Message = "Account is temporarily locked."
		until := lockedErr.LockedUntil
		detail.LockedUntil = &until
	case errors.As(err, &validationError):
		status = http.StatusBadRequest
		detail.Message, detail.Field = validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrNotFound):
		status, detail.Message = http.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, detail.Message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		status, detail.Message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, detail.Message = http.StatusUnauthorized, err.Error()
	case errors.As(err, &appErr):
		detail.Code = appErr.Code
		slog.Default().Error("Internal application error", "error", err)
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.ErrorResponse{Error: detail})
}

func uuidFromURL(r *http.Request, param string) (uuid.UUID, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s format in URL path: %s", apperrors.ErrInvalidArgument, param, idStr)
	}
	return id, nil
}
