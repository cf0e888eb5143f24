package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"book-duel-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const snapshotChannelPrefix = "duel:snapshots:"

// SnapshotPublisher fans committed snapshots out to other instances.
type SnapshotPublisher struct {
	client *redis.Client
}

func NewSnapshotPublisher(client *redis.Client) *SnapshotPublisher {
	return &SnapshotPublisher{client: client}
}

func (p *SnapshotPublisher) Publish(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return p.client.Publish(ctx, snapshotChannelPrefix+snap.ID, data).Err()
}

// SnapshotSink receives snapshots relayed from other instances.
type SnapshotSink interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// SnapshotRelay feeds every snapshot published on Redis into a local sink,
// normally the in-process hub. The hub drops versions it has already seen,
// so this instance's own echoes are harmless.
type SnapshotRelay struct {
	client *redis.Client
	sink   SnapshotSink
}

func NewSnapshotRelay(client *redis.Client, sink SnapshotSink) *SnapshotRelay {
	return &SnapshotRelay{client: client, sink: sink}
}

// Run blocks until ctx is done. ready, when non-nil, is closed once the
// pattern subscription is confirmed.
func (r *SnapshotRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := r.client.PSubscribe(ctx, snapshotChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe snapshots: %w", err)
	}
	if ready != nil {
		close(ready)
	}
	log.Info().Str("pattern", snapshotChannelPrefix+"*").Msg("snapshot relay subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var snap domain.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed snapshot")
				continue
			}
			if err := r.sink.Publish(ctx, snap); err != nil {
				log.Error().Err(err).Str("match_id", snap.ID).Msg("relay snapshot failed")
			}
		}
	}
}
