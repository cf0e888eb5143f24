package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"book-duel-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// MatchStore keeps matches in Redis so several service instances share one
// authoritative record per match.
//
//	duel:match:{id}            JSON match document
//	duel:user:{uid}:open       SET of pending/in-progress match ids
//	duel:user:{uid}:history    ZSET of finished match ids scored by finish time (ms)
//	duel:active                SET of in-progress match ids
//
// Matches never expire; they leave the open and active sets when they finish.
type MatchStore struct {
	client *redis.Client
}

func NewMatchStore(client *redis.Client) *MatchStore {
	return &MatchStore{client: client}
}

func (s *MatchStore) Create(ctx context.Context, m domain.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	ok, err := s.client.SetNX(ctx, matchKey(m.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	if !ok {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		indexMatch(ctx, pipe, m)
		return nil
	})
	return err
}

func (s *MatchStore) Get(ctx context.Context, matchID string) (domain.Match, error) {
	return s.get(ctx, s.client, matchID)
}

// Save writes m only if the stored record is still at m.Version-1. A
// concurrent writer touching the key between WATCH and EXEC also yields
// domain.ErrConflict.
func (s *MatchStore) Save(ctx context.Context, m domain.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	key := matchKey(m.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := s.get(ctx, tx, m.ID)
		if err != nil {
			return err
		}
		if stored.Version != m.Version-1 {
			return domain.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			indexMatch(ctx, pipe, m)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}

func (s *MatchStore) FindOpen(ctx context.Context, userID string) ([]domain.Match, error) {
	ids, err := s.client.SMembers(ctx, openKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list open matches: %w", err)
	}
	matches, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if !m.Status.Terminal() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MatchStore) History(ctx context.Context, userID string, limit int) ([]domain.Match, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, historyKey(userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return s.load(ctx, ids)
}

func (s *MatchStore) ListActive(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, activeKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MatchStore) get(ctx context.Context, c getter, matchID string) (domain.Match, error) {
	raw, err := c.Get(ctx, matchKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("get match: %w", err)
	}
	var m domain.Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.Match{}, fmt.Errorf("unmarshal match %s: %w", matchID, err)
	}
	return m, nil
}

// load fetches ids in order, skipping ids whose document is gone.
func (s *MatchStore) load(ctx context.Context, ids []string) ([]domain.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	out := make([]domain.Match, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var m domain.Match
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("unmarshal match %s: %w", ids[i], err)
		}
		out = append(out, m)
	}
	return out, nil
}

func indexMatch(ctx context.Context, pipe redis.Pipeliner, m domain.Match) {
	users := []string{m.ChallengerID, m.InvitedOpponentID}
	if m.Status.Terminal() {
		finished := m.UpdatedAt
		if m.FinishedAt != nil {
			finished = *m.FinishedAt
		}
		for _, uid := range users {
			pipe.SRem(ctx, openKey(uid), m.ID)
			pipe.ZAdd(ctx, historyKey(uid), redis.Z{Score: float64(finished.UnixMilli()), Member: m.ID})
		}
		pipe.SRem(ctx, activeKey, m.ID)
		return
	}
	for _, uid := range users {
		pipe.SAdd(ctx, openKey(uid), m.ID)
	}
	if m.Status == domain.StatusInProgress {
		pipe.SAdd(ctx, activeKey, m.ID)
	}
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

const activeKey = "duel:active"

func matchKey(id string) string {
	return "duel:match:" + id
}

func openKey(userID string) string {
	return "duel:user:" + userID + ":open"
}

func historyKey(userID string) string {
	return "duel:user:" + userID + ":history"
}
