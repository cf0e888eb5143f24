package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"book-duel-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a question bank from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, difficulty domain.Difficulty) (domain.QuestionBank, error)
}

// BankRepository caches whole question banks in Redis and falls back to a
// loader on cache miss.
// Banks are stored as: SET duel:bank:{difficulty} {bank json} EX ttl
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, difficulty domain.Difficulty) (domain.QuestionBank, error) {
	if bank, ok := r.cached(ctx, difficulty); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(string(difficulty), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.cached(ctx, difficulty); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, difficulty)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		data, err := json.Marshal(bank)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		if err := r.client.Set(ctx, bankKey(difficulty), data, r.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("difficulty", string(difficulty)).Msg("cache question bank failed")
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *BankRepository) cached(ctx context.Context, difficulty domain.Difficulty) (domain.QuestionBank, bool) {
	raw, err := r.client.Get(ctx, bankKey(difficulty)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("difficulty", string(difficulty)).Msg("read question bank cache failed")
		}
		return domain.QuestionBank{}, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil || len(bank.Questions) == 0 {
		return domain.QuestionBank{}, false
	}
	return bank, true
}

func bankKey(difficulty domain.Difficulty) string {
	return "duel:bank:" + string(difficulty)
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
