package collector

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrPlanRestricted means the provider refused the call for the current plan
// tier (HTTP 403). Callers may switch to demo data; retrying will not help.
var ErrPlanRestricted = errors.New("endpoint not available on current plan")

var errNotFound = errors.New("not found")

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider string
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d, body: %s", e.Provider, e.Endpoint, e.Code, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Provider, e.Endpoint, e.Code)
}

// Unwrap exposes the error kinds callers branch on.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusForbidden:
		return ErrPlanRestricted
	case http.StatusNotFound:
		return errNotFound
	}
	return nil
}

// IsPlanRestricted reports whether err came from a 403 response.
func IsPlanRestricted(err error) bool {
	return errors.Is(err, ErrPlanRestricted)
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrPlanRestricted):
		return "plan_restricted"
	case errors.Is(err, errNotFound):
		return "not_found"
	default:
		return "transient"
	}
}
