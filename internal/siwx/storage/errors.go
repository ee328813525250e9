package storage

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by remote operations that need an auth
// token when none is stored.
var ErrNotAuthenticated = errors.New("storage: not authenticated with the remote service")

// ResponseError is returned when the remote service responds with a
// non-2xx status, or with a body that is not JSON where JSON was expected.
// Its message is the raw response body.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("storage: remote service responded with status %d", e.StatusCode)
	}
	return e.Body
}
