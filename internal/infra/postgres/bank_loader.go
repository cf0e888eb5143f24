package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"book-duel-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads question bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, difficulty domain.Difficulty) (domain.QuestionBank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE difficulty=$1`, string(difficulty)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionBank{}, domain.ErrQuestionBankNotFound
	}
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load question bank: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("unmarshal question bank: %w", err)
	}
	return domain.QuestionBank{Difficulty: difficulty, Questions: questions}, nil
}

// SaveBank upserts a bank; the migrate command uses it to seed sample content.
func (l *BankLoader) SaveBank(ctx context.Context, bank domain.QuestionBank) error {
	data, err := json.Marshal(bank.Questions)
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_banks (difficulty, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (difficulty) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		string(bank.Difficulty), data)
	if err != nil {
		return fmt.Errorf("save question bank: %w", err)
	}
	return nil
}
