// Package errors carries the JSON error and success envelopes written by the
// dashboard's HTTP handlers.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeBadRequest      ErrorCode = "BAD_REQUEST"
	CodeNoData          ErrorCode = "NO_DATA"
	CodeLoad            ErrorCode = "LOAD_ERROR"
	CodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeRateLimit       ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// statusCodes maps each code to its HTTP status. Unlisted codes are 500.
var statusCodes = map[ErrorCode]int{
	CodeBadRequest:      http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodeNoData:          http.StatusNotFound,
	CodeLoad:            http.StatusUnprocessableEntity,
	CodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	CodeRateLimit:       http.StatusTooManyRequests,
}

// AppError is the body of every failed response.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	status, ok := statusCodes[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	}
}

func wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Cause = err
	return e
}

func Internal(message string) *AppError { return New(CodeInternal, message) }

func InternalWrap(err error, message string) *AppError { return wrap(err, CodeInternal, message) }

func NotFound(message string) *AppError { return New(CodeNotFound, message) }

func BadRequest(message string) *AppError { return New(CodeBadRequest, message) }

func BadRequestWrap(err error, message string) *AppError { return wrap(err, CodeBadRequest, message) }

// NoData reports that the caller has no uploaded workbook yet.
func NoData(message string) *AppError { return New(CodeNoData, message) }

// Load reports a workbook that could not be read. The cause's message is
// shown to the user as details.
func Load(err error, message string) *AppError {
	e := wrap(err, CodeLoad, message)
	e.Details = err.Error()
	return e
}

func PayloadTooLarge(message string) *AppError { return New(CodePayloadTooLarge, message) }

func RateLimit(message string) *AppError { return New(CodeRateLimit, message) }

// As returns err as an *AppError, wrapping anything else as an internal
// error.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return wrap(err, CodeInternal, "An unexpected error occurred")
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// WriteErrorContext writes err as a JSON envelope and logs it, at warn level
// for client errors and error level otherwise.
func WriteErrorContext(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	appErr := As(err)
	appErr.RequestID = requestID

	writeJSON(w, appErr.StatusCode, ErrorResponse{Error: appErr})

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Data: data, Success: true})
}

// WriteSuccessWithHeaders sets headers before writing the success envelope.
func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
