package app

import (
	"context"
	"math/rand"
	"slices"
	"sync"

	"book-duel-service/internal/domain"
)

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, difficulty domain.Difficulty) (domain.QuestionBank, error)
}

// ShuffledSource draws n distinct questions from a bank in random order and
// shuffles each question's choices.
type ShuffledSource struct {
	banks BankRepository
	mu    sync.Mutex
	rnd   *rand.Rand
}

func NewShuffledSource(banks BankRepository, seed int64) *ShuffledSource {
	return &ShuffledSource{banks: banks, rnd: rand.New(rand.NewSource(seed))}
}

func (s *ShuffledSource) Questions(ctx context.Context, difficulty domain.Difficulty, n int) ([]domain.Question, error) {
	bank, err := s.banks.GetBank(ctx, difficulty)
	if err != nil {
		return nil, err
	}
	if len(bank.Questions) < n {
		return nil, domain.ErrNotEnoughQuestions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.rnd.Perm(len(bank.Questions))[:n]
	out := make([]domain.Question, 0, n)
	for _, i := range order {
		q := bank.Questions[i]
		q.BookChoices = slices.Clone(q.BookChoices)
		q.AuthorChoices = slices.Clone(q.AuthorChoices)
		s.rnd.Shuffle(len(q.BookChoices), func(a, b int) {
			q.BookChoices[a], q.BookChoices[b] = q.BookChoices[b], q.BookChoices[a]
		})
		s.rnd.Shuffle(len(q.AuthorChoices), func(a, b int) {
			q.AuthorChoices[a], q.AuthorChoices[b] = q.AuthorChoices[b], q.AuthorChoices[a]
		})
		out = append(out, q)
	}
	return out, nil
}
