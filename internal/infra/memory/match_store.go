package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"book-duel-service/internal/domain"
)

// MatchStore is an in-memory implementation of app.MatchRepository.
// Stored matches are cloned on the way in and out so callers never share
// slices with the store.
type MatchStore struct {
	mu      sync.RWMutex
	matches map[string]domain.Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches: make(map[string]domain.Match),
	}
}

func (s *MatchStore) Create(_ context.Context, m domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *MatchStore) Get(_ context.Context, matchID string) (domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (s *MatchStore) Save(_ context.Context, m domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.matches[m.ID]
	if !ok {
		return domain.ErrMatchNotFound
	}
	if stored.Version != m.Version-1 {
		return domain.ErrConflict
	}
	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *MatchStore) FindOpen(_ context.Context, userID string) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Match
	for _, m := range s.matches {
		if !m.Status.Terminal() && m.IsParticipant(userID) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MatchStore) History(_ context.Context, userID string, limit int) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Match
	for _, m := range s.matches {
		if m.Status.Terminal() && m.IsParticipant(userID) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return finishedAt(out[i]).After(finishedAt(out[j])) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MatchStore) ListActive(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, m := range s.matches {
		if m.Status == domain.StatusInProgress {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func finishedAt(m domain.Match) time.Time {
	if m.FinishedAt != nil {
		return *m.FinishedAt
	}
	return m.UpdatedAt
}
