package sketchfab

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the upstream rejected authentication twice
// in a row, i.e. even after a forced token refresh. Terminal for the request.
var ErrUnauthorized = errors.New("sketchfab rejected authentication after token refresh")

// UpstreamError is a non-auth upstream failure, surfaced to the caller
// unmodified. Retry policy belongs to the caller.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("sketchfab upstream error (status %d): %s", e.StatusCode, e.Body)
}

// NotFoundError means the requested model or format does not exist or is not
// downloadable. Expected, not logged as a fault.
type NotFoundError struct {
	ModelID string
	Format  string
}

func (e *NotFoundError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("format %q is not available for model %s", e.Format, e.ModelID)
	}
	return fmt.Sprintf("model %s not found or not downloadable", e.ModelID)
}
