// ABOUTME: Error taxonomy for calls to the accreditation API
// ABOUTME: Maps upstream HTTP statuses to sentinel kinds matched with errors.Is

package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAPIUnavailable means the request never produced an HTTP response.
	ErrAPIUnavailable = errors.New("api unavailable")
	// ErrInvalidResponse means a 2xx response body was not JSON.
	ErrInvalidResponse     = errors.New("invalid api response")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrInternalAPI         = errors.New("internal api error")
)

// unknownAPIError is used when an error body carries no message.
const unknownAPIError = "Unknown API error"

// APIError describes a failed upstream call. Kind is one of the sentinel
// errors above; Err holds the transport or decode cause when there is one.
type APIError struct {
	Kind       error
	StatusCode int
	Message    string
	Method     string
	Path       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %s", e.Method, e.Path, e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Kind, e.Message)
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// kindForStatus maps an error status to its sentinel.
func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnprocessableEntity:
		return ErrUnprocessableEntity
	default:
		return ErrInternalAPI
	}
}

// HTTPStatus picks the status a JSON route answers with when an upstream
// error has no fallback.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnprocessableEntity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAPIUnavailable), errors.Is(err, ErrInvalidResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the upstream message carried by err, or fallback.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != unknownAPIError {
		return apiErr.Message
	}
	return fallback
}
