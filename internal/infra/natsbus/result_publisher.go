package natsbus

import (
	"context"
	"encoding/json"
	"fmt"

	"book-duel-service/internal/domain"
	"github.com/rs/zerolog/log"
)

// publisher is the slice of *nats.Conn the result publisher needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// ResultPublisher emits one message per finished match on
// <prefix>.completed or <prefix>.cancelled.
type ResultPublisher struct {
	conn   publisher
	prefix string
}

func NewResultPublisher(conn publisher, prefix string) *ResultPublisher {
	if prefix == "" {
		prefix = "duel.matches"
	}
	return &ResultPublisher{conn: conn, prefix: prefix}
}

func (p *ResultPublisher) MatchFinished(_ context.Context, r domain.MatchRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal match record: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", p.prefix, r.Status)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Str("match_id", r.MatchID).Msg("match record published")
	return nil
}
