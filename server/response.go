package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/teranos/capgen/errors"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes {"error","message","hints"} for err. Internal error text
// is logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger, err error) {
	status := statusForError(r, err)
	payload := errors.ToUserError(err)
	if errors.IsServiceUnavailableError(err) {
		payload.Message = "The server is shutting down."
	}

	if status >= http.StatusInternalServerError {
		log.Errorw("Request failed", "status", status, "error_kind", payload.Kind, "error", err)
	} else {
		log.Infow("Request rejected", "status", status, "error_kind", payload.Kind, "error", err)
	}

	if encErr := writeJSON(w, status, payload); encErr != nil {
		log.Warnw("Failed to write error response", "error", encErr)
	}
}

// requireMethod checks if the request method matches the expected method
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeJSON(w, http.StatusMethodNotAllowed, errors.UserError{
			Kind:    errors.KindInvalidRequest,
			Message: "Method not allowed",
		})
		return false
	}
	return true
}
