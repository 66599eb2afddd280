package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/models/api"
)

// JSON writes a JSON body with the given status. Encoding failures are
// logged, not surfaced; the status line is already on the wire.
func JSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// Error writes the uniform error body.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, api.Error{Error: message})
}
