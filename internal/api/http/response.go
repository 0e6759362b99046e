package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
)

const maxBodyBytes = 1 << 20

type ErrorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Required *int64 `json:"required,omitempty"`
	Current  *int64 `json:"current,omitempty"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// statusFor maps a service error onto its HTTP status and stable error code.
func statusFor(err error) (int, string) {
	var insufficient *domain.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		return http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"
	case errors.Is(err, domain.ErrRentalNotFound):
		return http.StatusNotFound, "RENTAL_NOT_FOUND"
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, "ITEM_NOT_FOUND"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "USER_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrItemDeleted):
		return http.StatusGone, "ITEM_DELETED"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrUserBanned):
		return http.StatusForbidden, "USER_BANNED"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrConflictRetry):
		return http.StatusConflict, "CONFLICT_RETRY"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := ErrorBody{Code: code, Message: err.Error()}

	var insufficient *domain.InsufficientFundsError
	if errors.As(err, &insufficient) {
		body.Required = &insufficient.Required
		body.Current = &insufficient.Current
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "error", err)
		body.Message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: body})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid(fmt.Sprintf("malformed request body: %v", err))
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
