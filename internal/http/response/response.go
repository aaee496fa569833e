// Package response writes the JSON envelope shared by every API response, including the
// ones produced outside huma operations (rate limiting, unknown routes, panics).
package response

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/osusumeapp/osusume-server/internal/errors"
)

// Version is the envelope format version, sent as "v".
const Version = 1

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Version int  `json:"v"`
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	// Code is the machine-readable error code.
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Success wraps data in a successful envelope.
func Success(data any) Envelope {
	return Envelope{Version: Version, Success: true, Data: data}
}

// Failure builds an error envelope.
func Failure(code, message string, details any) Envelope {
	return Envelope{Version: Version, Code: code, Error: message, Details: details}
}

// JSON writes data wrapped in an envelope. Success follows the status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	env := Success(data)
	env.Success = status < 400
	write(w, status, env, logger)
}

// Error writes an error envelope with the given status code.
func Error(w http.ResponseWriter, status int, code errors.Code, message string, logger *slog.Logger) {
	SetRetryAfter(w.Header(), code)
	write(w, status, Failure(string(code), message, nil), logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, errors.CodeRateLimited, "too many requests, please slow down", logger)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, errors.CodeNotFound, message, logger)
}

// HandleError writes the response for err. Domain errors keep their code and message;
// anything else becomes a generic 500 so internal details never reach the client.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		SetRetryAfter(w.Header(), domainErr.Code)
		write(w, domainErr.HTTPStatus(), Failure(string(domainErr.Code), domainErr.Message, domainErr.Details), logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, errors.CodeInternal, "internal server error", logger)
}

func write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// SetRetryAfter adds a Retry-After header for retryable codes unless one is already set.
func SetRetryAfter(h http.Header, code errors.Code) {
	if code.Retryable() && h.Get("Retry-After") == "" {
		h.Set("Retry-After", errors.RetryAfterSeconds)
	}
}
