package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Failure is the body of every error response.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ErrInternal(logger *zap.Logger, w http.ResponseWriter, err error) {
	logger.Error("internal server error", zap.Error(err))
	writeFailure(
		w,
		http.StatusInternalServerError,
		"An unexpected internal server error occurred, please try again. If the issue persists, please contact support.",
	)
}

func ErrUnauthorized(w http.ResponseWriter) {
	writeFailure(w, http.StatusUnauthorized, "Unauthorized; please sign-in to continue.")
}

func ErrForbidden(w http.ResponseWriter) {
	writeFailure(w, http.StatusForbidden, "Forbidden; user does not have permission to carry-out this action.")
}

func ErrBadRequest(logger *zap.Logger, w http.ResponseWriter, err error) {
	logger.Warn("bad request", zap.Error(err))

	var valerrors validator.ValidationErrors
	if !errors.As(err, &valerrors) {
		writeFailure(w, http.StatusBadRequest, "An unknown field is invalid. Please update your request and retry.")
		return
	}

	errormsgs := make([]string, len(valerrors))
	for i, err := range valerrors {
		errormsgs[i] = fmt.Sprintf("\"%s\" failed \"%s\" validator", err.Field(), err.Tag())
	}

	writeFailure(
		w,
		http.StatusBadRequest,
		fmt.Sprintf("Field(s) validation failure: %s. Please update your request and retry.", strings.Join(errormsgs, ", ")),
	)
}

func ErrNotFound(w http.ResponseWriter) {
	writeFailure(w, http.StatusNotFound, "Resource not found. If this is unexpected, please contact support.")
}

func writeFailure(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Failure{Success: false, Message: msg})
}
