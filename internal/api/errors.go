package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/osusumeapp/osusume-server/internal/errors"
	"github.com/osusumeapp/osusume-server/internal/http/response"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	headers http.Header
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// GetHeaders implements huma.HeadersError.
func (e *APIError) GetHeaders() http.Header {
	return e.headers
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					headers: domainErr.GetHeaders(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}
		}

		// huma's own request validation failures carry field details.
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
			var details []string
			for _, err := range errs {
				if err != nil {
					details = append(details, err.Error())
				}
			}
			return &APIError{
				status:  http.StatusBadRequest,
				Code:    string(domainerrors.CodeValidation),
				Message: message,
				Details: details,
			}
		}

		if status >= http.StatusInternalServerError {
			// Unknown errors never leak their text.
			message = "internal server error"
		}
		return &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeCatalogUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}

// EnvelopeTransformer wraps every huma response body in the shared envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if len(status) > 0 && status[0] != '2' {
		switch e := v.(type) {
		case *APIError:
			return response.Failure(e.Code, e.Message, e.Details), nil
		case error:
			code, _ := strconv.Atoi(status)
			return response.Failure(statusToCode(code), e.Error(), nil), nil
		}
	}
	if env, ok := v.(response.Envelope); ok {
		return env, nil
	}
	return response.Success(v), nil
}
