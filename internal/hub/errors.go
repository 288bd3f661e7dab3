package hub

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for any non-success hub response.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub %s failed (status %d): %s", e.Operation, e.StatusCode, e.Body)
}

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNotFound reports a 404 from the hub.
func IsNotFound(err error) bool {
	return statusCode(err) == http.StatusNotFound
}

// IsThrottled reports a 403 quota or 429 throttling response.
func IsThrottled(err error) bool {
	code := statusCode(err)
	return code == http.StatusTooManyRequests || code == http.StatusForbidden
}

// IsUnauthorized reports a rejected SAS token.
func IsUnauthorized(err error) bool {
	return statusCode(err) == http.StatusUnauthorized
}
