package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"ume-client/models"

	"go.uber.org/zap"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeHTTP       = "HTTP_ERROR"
)

type AppHandler func(http.ResponseWriter, *http.Request) error

type AppError struct {
	Status  int
	Code    string
	Message string
	Fields  []models.FieldError
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(status int, message string, err error) *AppError {
	return &AppError{Status: status, Code: CodeHTTP, Message: message, Err: err}
}

// NewValidationError is the 422 response carrying per-field messages.
func NewValidationError(fields []models.FieldError) *AppError {
	return &AppError{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

type errorResponse struct {
	Success bool                `json:"success"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  []models.FieldError `json:"errors,omitempty"`
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.status = statusCode
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func ErrorHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if recovered := recover(); recovered != nil {
				zap.L().Error("panic recovered", zap.Any("panic", recovered), zap.String("path", r.URL.Path))
				if !rw.wroteHeader {
					WriteError(rw, &AppError{Status: http.StatusInternalServerError, Code: CodeHTTP, Message: "Internal server error"})
				}
			}
		}()

		if err := handler(rw, r); err != nil {
			handleError(rw, r, err)
		}
	}
}

func handleError(w *responseWriter, r *http.Request, err error) {
	appErr := &AppError{Status: http.StatusInternalServerError, Code: CodeHTTP, Message: "Internal server error", Err: err}
	var target *AppError
	if errors.As(err, &target) {
		appErr = target
	}

	if appErr.Status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", appErr.Status),
			zap.Error(err),
		)
	}

	if w.wroteHeader {
		return
	}
	WriteError(w, appErr)
}

// WriteError writes the JSON error envelope for appErr.
func WriteError(w http.ResponseWriter, appErr *AppError) {
	code := appErr.Code
	if code == "" {
		code = CodeHTTP
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Success: false,
		Code:    code,
		Message: appErr.Message,
		Errors:  appErr.Fields,
	})
}
