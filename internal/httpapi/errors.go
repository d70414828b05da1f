package httpapi

import (
	"encoding/json"
	"net/http"

	"chatd/pkg/types"
)

// Client-facing error messages.
const (
	msgMissingMessage  = "Missing message in request body"
	msgInvalidJSON     = "Invalid JSON body"
	msgUnsupportedType = "Content-Type must be application/json"
	msgStreamSetup     = "Failed to initiate chat stream."
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Status: "error", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
