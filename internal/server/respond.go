package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"sovdscope/internal/logging"
	"sovdscope/internal/sovd"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps upstream failures onto this API's status codes: a missing
// upstream resource is still 404 here, a timeout becomes 504, anything else
// is a 502 because the fault lies with the diagnostic server, not the caller.
func statusFor(err error) int {
	switch {
	case sovd.IsNotFound(err):
		return http.StatusNotFound
	case sovd.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close() //nolint:errcheck // Cleanup, error not critical
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
