package http

import (
	"encoding/json"
	"net/http"

	"book-duel-service/internal/app"
	"book-duel-service/internal/domain"
	"book-duel-service/internal/match"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type WSHandler struct {
	service  *app.MatchService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MatchService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsTimeoutPayload struct {
	QuestionIndex *int `json:"questionIndex"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type rejectedPayload struct {
	Reason   string          `json:"reason"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades a participant's request and streams match snapshots.
// Commands sent on the socket go through the same use cases as REST.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	uid := userID(r)
	if uid == "" {
		writeError(w, r, domain.ErrUnauthenticated, domain.Snapshot{})
		return
	}
	if matchID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing matchId"})
		return
	}

	// Subscribe before upgrading so a missing match or an outsider gets a
	// plain HTTP status.
	updates, cancel, err := h.service.Subscribe(r.Context(), matchID, uid)
	if err != nil {
		writeError(w, r, err, domain.Snapshot{})
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("match_id", matchID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("match_id", matchID).Str("user_id", uid).Logger()
	logger.Debug().Msg("ws connected")

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		snap, handled, err := h.dispatch(r, matchID, uid, inbound)
		switch {
		case !handled:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported or malformed command"}}
		case err != nil && domain.IsRejection(err):
			send <- outboundMessage{Type: "rejected", Payload: rejectedPayload{Reason: err.Error(), Snapshot: snap}}
		case err != nil:
			logger.Warn().Err(err).Str("command", inbound.Type).Msg("ws command failed")
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		// accepted commands come back through the subscription
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	logger.Debug().Msg("ws disconnected")
}

func (h *WSHandler) dispatch(r *http.Request, matchID, uid string, in inboundMessage) (domain.Snapshot, bool, error) {
	ctx := r.Context()
	switch in.Type {
	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return domain.Snapshot{}, false, nil
		}
		snap, err := h.service.SubmitAnswer(ctx, matchID, uid, app.AnswerSubmission{
			QuestionIndex: payload.QuestionIndex,
			BookChoice:    payload.BookChoice,
			AuthorChoice:  payload.AuthorChoice,
		})
		return snap, true, err
	case "timeout":
		index := match.AnyQuestion
		if len(in.Payload) > 0 {
			var payload wsTimeoutPayload
			if err := json.Unmarshal(in.Payload, &payload); err != nil {
				return domain.Snapshot{}, false, nil
			}
			if payload.QuestionIndex != nil {
				index = *payload.QuestionIndex
			}
		}
		snap, err := h.service.SubmitTimeout(ctx, matchID, uid, index)
		return snap, true, err
	case "advance":
		snap, err := h.service.Advance(ctx, matchID, uid)
		return snap, true, err
	case "leave":
		snap, err := h.service.Leave(ctx, matchID, uid)
		return snap, true, err
	}
	return domain.Snapshot{}, false, nil
}
