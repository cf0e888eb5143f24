package postgres

import (
	"context"
	"fmt"
	"time"

	"book-duel-service/internal/domain"
	"github.com/uptrace/bun"
)

// MatchRow is one finished duel in the archive table.
type MatchRow struct {
	bun.BaseModel `bun:"table:duel_matches,alias:dm"`

	ID              string                  `bun:"id,pk"`
	ChallengerID    string                  `bun:"challenger_id,notnull"`
	OpponentID      string                  `bun:"opponent_id,notnull"`
	Status          string                  `bun:"status,notnull"`
	CancelReason    string                  `bun:"cancel_reason,nullzero"`
	Difficulty      string                  `bun:"difficulty,notnull"`
	ChallengerScore int                     `bun:"challenger_score,notnull"`
	OpponentScore   int                     `bun:"opponent_score,notnull"`
	WinnerID        string                  `bun:"winner_id,nullzero"`
	QuestionResults []domain.QuestionResult `bun:"question_results,type:jsonb"`
	CreatedAt       time.Time               `bun:"created_at,notnull"`
	FinishedAt      time.Time               `bun:"finished_at,notnull"`
}

// Archive stores finished match records for statistics consumers.
type Archive struct {
	db *bun.DB
}

func NewArchive(db *bun.DB) *Archive {
	return &Archive{db: db}
}

// MatchFinished upserts the record; replays of the same match are no-ops.
func (a *Archive) MatchFinished(ctx context.Context, r domain.MatchRecord) error {
	row := rowOf(r)
	_, err := a.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive match %s: %w", r.MatchID, err)
	}
	return nil
}

// Recent returns the latest archived matches involving userID.
func (a *Archive) Recent(ctx context.Context, userID string, limit int) ([]domain.MatchRecord, error) {
	var rows []MatchRow
	err := a.db.NewSelect().
		Model(&rows).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("challenger_id = ?", userID).WhereOr("opponent_id = ?", userID)
		}).
		Order("finished_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archived matches: %w", err)
	}
	out := make([]domain.MatchRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func rowOf(r domain.MatchRecord) MatchRow {
	return MatchRow{
		ID:              r.MatchID,
		ChallengerID:    r.ChallengerID,
		OpponentID:      r.OpponentID,
		Status:          string(r.Status),
		CancelReason:    string(r.CancelReason),
		Difficulty:      string(r.Difficulty),
		ChallengerScore: r.ChallengerScore,
		OpponentScore:   r.OpponentScore,
		WinnerID:        r.WinnerID,
		QuestionResults: r.QuestionResults,
		CreatedAt:       r.CreatedAt,
		FinishedAt:      r.FinishedAt,
	}
}

func (row MatchRow) record() domain.MatchRecord {
	return domain.MatchRecord{
		MatchID:         row.ID,
		ChallengerID:    row.ChallengerID,
		OpponentID:      row.OpponentID,
		Status:          domain.Status(row.Status),
		CancelReason:    domain.CancelReason(row.CancelReason),
		Difficulty:      domain.Difficulty(row.Difficulty),
		ChallengerScore: row.ChallengerScore,
		OpponentScore:   row.OpponentScore,
		WinnerID:        row.WinnerID,
		QuestionResults: row.QuestionResults,
		CreatedAt:       row.CreatedAt,
		FinishedAt:      row.FinishedAt,
	}
}
