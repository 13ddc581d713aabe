package types

import (
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
)

// Error tags classify failures for the HTTP layer
var (
	ErrTagBadRequest      = goerr.NewTag("bad_request")
	ErrTagUnauthorized    = goerr.NewTag("unauthorized")
	ErrTagForbidden       = goerr.NewTag("forbidden")
	ErrTagNotFound        = goerr.NewTag("not_found")
	ErrTagTooManyRequests = goerr.NewTag("too_many_requests")
	ErrTagMisconfigured   = goerr.NewTag("misconfigured")
)

// HTTPStatus returns the response status for the tag err carries, or 0 when
// err has none of the tags above. Client errors win over server errors.
func HTTPStatus(err error) int {
	switch {
	case goerr.HasTag(err, ErrTagBadRequest):
		return http.StatusBadRequest
	case goerr.HasTag(err, ErrTagUnauthorized):
		return http.StatusUnauthorized
	case goerr.HasTag(err, ErrTagForbidden):
		return http.StatusForbidden
	case goerr.HasTag(err, ErrTagNotFound):
		return http.StatusNotFound
	case goerr.HasTag(err, ErrTagTooManyRequests):
		return http.StatusTooManyRequests
	case goerr.HasTag(err, ErrTagMisconfigured):
		return http.StatusInternalServerError
	}
	return 0
}

// UpstreamError is a non-success response returned by the GitHub API.
// Status is forwarded to the caller as is.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API error: %d", e.Status)
	}
	return e.Message
}

// IsNotFound reports whether the upstream answered 404
func (e *UpstreamError) IsNotFound() bool {
	return e.Status == 404
}
