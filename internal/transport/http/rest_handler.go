package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"book-duel-service/internal/app"
	"book-duel-service/internal/domain"
	"book-duel-service/internal/match"
)

// RESTHandler exposes the match use cases as JSON endpoints.
type RESTHandler struct {
	service *app.MatchService
}

func NewRESTHandler(service *app.MatchService) *RESTHandler {
	return &RESTHandler{service: service}
}

type createRequest struct {
	OpponentID string `json:"opponentId"`
	Difficulty string `json:"difficulty"`
}

type answerRequest struct {
	QuestionIndex int    `json:"questionIndex"`
	BookChoice    string `json:"bookChoice"`
	AuthorChoice  string `json:"authorChoice"`
}

type timeoutRequest struct {
	QuestionIndex *int `json:"questionIndex"`
}

// Register mounts every route on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /matches", h.authed(h.create))
	mux.HandleFunc("GET /matches/history", h.authed(h.history))
	mux.HandleFunc("GET /matches/{id}", h.authed(h.get))
	mux.HandleFunc("POST /matches/{id}/join", h.authed(h.action(h.service.Join)))
	mux.HandleFunc("POST /matches/{id}/decline", h.authed(h.action(h.service.Decline)))
	mux.HandleFunc("POST /matches/{id}/withdraw", h.authed(h.action(h.service.Withdraw)))
	mux.HandleFunc("POST /matches/{id}/leave", h.authed(h.action(h.service.Leave)))
	mux.HandleFunc("POST /matches/{id}/advance", h.authed(h.action(h.service.Advance)))
	mux.HandleFunc("POST /matches/{id}/answer", h.authed(h.answer))
	mux.HandleFunc("POST /matches/{id}/timeout", h.authed(h.timeout))
	mux.HandleFunc("GET /invites/pending", h.authed(h.pendingInvite))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

type authedFunc func(w http.ResponseWriter, r *http.Request, userID string)

func (h *RESTHandler) authed(next authedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			writeError(w, r, domain.ErrUnauthenticated, domain.Snapshot{})
			return
		}
		next(w, r, uid)
	}
}

func (h *RESTHandler) action(op func(ctx context.Context, matchID, userID string) (domain.Snapshot, error)) authedFunc {
	return func(w http.ResponseWriter, r *http.Request, uid string) {
		snap, err := op(r.Context(), r.PathValue("id"), uid)
		h.reply(w, r, snap, err)
	}
}

func (h *RESTHandler) create(w http.ResponseWriter, r *http.Request, uid string) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	snap, err := h.service.Create(r.Context(), uid, req.OpponentID, req.Difficulty)
	if err != nil {
		writeError(w, r, err, snap)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *RESTHandler) get(w http.ResponseWriter, r *http.Request, uid string) {
	snap, err := h.service.Get(r.Context(), r.PathValue("id"), uid)
	h.reply(w, r, snap, err)
}

func (h *RESTHandler) answer(w http.ResponseWriter, r *http.Request, uid string) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid answer payload"})
		return
	}
	snap, err := h.service.SubmitAnswer(r.Context(), r.PathValue("id"), uid, app.AnswerSubmission{
		QuestionIndex: req.QuestionIndex,
		BookChoice:    req.BookChoice,
		AuthorChoice:  req.AuthorChoice,
	})
	h.reply(w, r, snap, err)
}

func (h *RESTHandler) timeout(w http.ResponseWriter, r *http.Request, uid string) {
	var req timeoutRequest
	// the body is optional; an empty one times out whatever question is current
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid timeout payload"})
		return
	}
	index := match.AnyQuestion
	if req.QuestionIndex != nil {
		index = *req.QuestionIndex
	}
	snap, err := h.service.SubmitTimeout(r.Context(), r.PathValue("id"), uid, index)
	h.reply(w, r, snap, err)
}

func (h *RESTHandler) pendingInvite(w http.ResponseWriter, r *http.Request, uid string) {
	snap, err := h.service.PendingInvite(r.Context(), uid)
	if err != nil {
		writeError(w, r, err, domain.Snapshot{})
		return
	}
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RESTHandler) history(w http.ResponseWriter, r *http.Request, uid string) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	snaps, err := h.service.History(r.Context(), uid, limit)
	if err != nil {
		writeError(w, r, err, domain.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *RESTHandler) reply(w http.ResponseWriter, r *http.Request, snap domain.Snapshot, err error) {
	if err != nil {
		writeError(w, r, err, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
