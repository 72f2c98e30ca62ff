package revalidate

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/always-cache/revalidate/command"

	"github.com/rs/zerolog/hlog"
)

// WebhookPath receives revalidation requests from external systems,
// e.g. a CMS notifying about changed content.
const WebhookPath = "/api/revalidate"

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-Revalidate-Secret"

type webhookResponse struct {
	Revalidated bool   `json:"revalidated"`
	Tag         string `json:"tag,omitempty"`
	Error       string `json:"error,omitempty"`
}

// webhook marks the tag given in the `tag` query parameter stale.
func (s *Site) webhook(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	if s.secret != "" {
		given := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(s.secret)) != 1 {
			logger.Warn().Msg("Revalidate webhook called with invalid secret")
			writeJSON(w, http.StatusUnauthorized, webhookResponse{Error: "invalid secret"})
			return
		}
	}

	tag := r.URL.Query().Get("tag")
	err := s.dispatcher.Dispatch(r.Context(), command.RevalidateTag{Tag: tag})
	switch {
	case errors.Is(err, command.ErrEmptyTag):
		writeJSON(w, http.StatusBadRequest, webhookResponse{Error: "missing tag"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Tag: tag, Error: "could not revalidate"})
	default:
		writeJSON(w, http.StatusAccepted, webhookResponse{Revalidated: true, Tag: tag})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
