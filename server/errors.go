package server

import (
	"net/http"

	"github.com/teranos/capgen/errors"
)

// StatusClientClosedRequest is reported when the caller went away before the run finished
const StatusClientClosedRequest = 499

// statusForError maps a pipeline failure to an HTTP status. A cancelled run
// is 499 when the client disconnected and 503 when the server gave up
// (request timeout or shutdown).
func statusForError(r *http.Request, err error) int {
	if errors.IsServiceUnavailableError(err) {
		return http.StatusServiceUnavailable
	}
	switch errors.KindOf(err) {
	case errors.KindInvalidRequest:
		return http.StatusBadRequest
	case errors.KindGeneration, errors.KindMalformedResponse:
		return http.StatusBadGateway
	case errors.KindCancelled:
		if r != nil && r.Context().Err() != nil {
			return StatusClientClosedRequest
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
