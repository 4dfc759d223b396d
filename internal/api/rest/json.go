package rest

import (
	"encoding/json"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/playback"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding errors are logged since the status line has already been sent.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Msgf("rest: failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

func writeView(w http.ResponseWriter, view playback.View) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, view)
}
