package api

import (
	"fmt"
	"net/http"
)

// HTTPError represents an error with an HTTP status code. The Message is
// what the client sees; Err carries the internal detail for logs.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// WithErr attaches an underlying error to a copy of the sentinel, so the
// taxonomy vars stay immutable.
func (e *HTTPError) WithErr(err error) *HTTPError {
	return &HTTPError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

var (
	ErrInvalidRequestBodyData = &HTTPError{
		Code:    http.StatusBadRequest,
		Message: "invalid request body data",
	}
	ErrInvalidRegisterAuthToken = &HTTPError{
		Code:    http.StatusBadRequest,
		Message: "invalid register auth token",
	}
	ErrInvalidCoordinates = &HTTPError{
		Code:    http.StatusBadRequest,
		Message: "invalid coordinates",
	}
	ErrInvalidBounds = &HTTPError{
		Code:    http.StatusBadRequest,
		Message: "invalid bounds, expected swLat,swLng,neLat,neLng",
	}
	ErrInvalidListingData = &HTTPError{
		Code:    http.StatusBadRequest,
		Message: "invalid listing data",
	}
	ErrUnauthorized = &HTTPError{
		Code:    http.StatusUnauthorized,
		Message: "unauthorized",
	}
	ErrWrongLogin = &HTTPError{
		Code:    http.StatusUnauthorized,
		Message: "wrong password or email",
	}
	ErrUserNotFound = &HTTPError{
		Code:    http.StatusNotFound,
		Message: "user not found",
	}
	ErrListingNotFound = &HTTPError{
		Code:    http.StatusNotFound,
		Message: "listing not found",
	}
	ErrLocationNotFound = &HTTPError{
		Code:    http.StatusNotFound,
		Message: "location could not be resolved",
	}
	ErrContactNotAvailable = &HTTPError{
		Code:    http.StatusNotFound,
		Message: "contact information not available",
	}
	ErrEmailAlreadyRegistered = &HTTPError{
		Code:    http.StatusConflict,
		Message: "email already registered",
	}
	ErrCouldNotInsertToDatabase = &HTTPError{
		Code:    http.StatusInternalServerError,
		Message: "could not insert to database",
	}
	ErrInternalServerError = &HTTPError{
		Code:    http.StatusInternalServerError,
		Message: "internal server error",
	}
)
