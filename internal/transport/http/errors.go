package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"book-duel-service/internal/domain"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error    string           `json:"error"`
	Rejected bool             `json:"rejected,omitempty"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
}

func statusFor(err error) int {
	switch {
	case domain.IsRejection(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMatchNotFound), errors.Is(err, domain.ErrQuestionBankNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSelfChallenge),
		errors.Is(err, domain.ErrOpponentIneligible),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrNotEnoughQuestions):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPlayerBusy):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError replies with the mapped status. Rejections carry the current
// snapshot so the caller can resync without a second request.
func writeError(w http.ResponseWriter, r *http.Request, err error, snap domain.Snapshot) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	if domain.IsRejection(err) {
		body.Rejected = true
		if snap.ID != "" {
			body.Snapshot = &snap
		}
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response failed")
	}
}
