package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/grandline/oracle/internal/service"
)

// upgradeURL is where a free-tier caller is pointed when the tier gate
// rejects them.
const upgradeURL = "/pricing"

type errorResponse struct {
	Error      string `json:"error"`
	UpgradeURL string `json:"upgrade_url,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status is already written; nothing left to do but note it.
		slog.Error("encode response", "error", err)
	}
}

// writeServiceError maps pipeline sentinels onto HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{
			Error:      "this feature requires a Pro subscription",
			UpgradeURL: upgradeURL,
		})
	case errors.Is(err, service.ErrUpstreamUnavailable):
		s.logger.Error("upstream unavailable", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "retrieval backend unavailable"})
	case errors.Is(err, service.ErrGenerationFailed):
		s.logger.Error("generation failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "answer generation failed"})
	default:
		s.logger.Error("unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
