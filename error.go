package shipcode

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultErrorMessage = "An unexpected error occurred"

// APIError is any non-success outcome of a shipment API call.
// Status is 0 when the request never produced an HTTP response.
type APIError struct {
	Status      int
	Message     string
	Details     string
	FieldErrors map[string][]string
}

func (e APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("shipment API request failed: %s", e.Message)
	}
	return fmt.Sprintf("shipment API returned %d: %s", e.Status, e.Message)
}

// NotFound reports whether the API answered 404.
func (e APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsNotFound reports whether err is an APIError carrying a 404 status.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.NotFound()
	}
	var apiErrVal APIError
	if errors.As(err, &apiErrVal) {
		return apiErrVal.NotFound()
	}
	return false
}

// AsAPIError extracts an APIError from err.
func AsAPIError(err error) (APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return *apiErr, true
	}
	var apiErrVal APIError
	if errors.As(err, &apiErrVal) {
		return apiErrVal, true
	}
	return APIError{}, false
}

// ValidationError carries every pre-flight validation failure of a request.
type ValidationError struct {
	Messages []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s.", strings.Join(e.Messages, "; "))
}

type ConfigPersistenceError struct {
	Cause error
}

func (e ConfigPersistenceError) Error() string {
	return fmt.Sprintf("Failed to decode persisted API configuration: %v.", e.Cause)
}
