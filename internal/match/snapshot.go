package match

import (
	"time"

	"book-duel-service/internal/domain"
)

// Deadline is when the current phase's clock runs out, if it has one.
func Deadline(m domain.Match, rules Rules) (time.Time, bool) {
	if m.Status != domain.StatusInProgress {
		return time.Time{}, false
	}
	switch m.Phase {
	case domain.PhaseQuestionShow, domain.PhaseSecondResponderCanAnswer:
		return m.PhaseEnteredAt.Add(rules.TurnDuration), true
	case domain.PhaseBetweenQuestions:
		return m.PhaseEnteredAt.Add(rules.RevealDuration), true
	}
	return time.Time{}, false
}

// Overdue returns the system event the server should apply on its own once
// a phase has sat past its deadline plus grace.
func Overdue(m domain.Match, rules Rules, now time.Time) (Event, bool) {
	deadline, ok := Deadline(m, rules)
	if !ok || now.Before(deadline.Add(rules.Grace)) {
		return Event{}, false
	}
	if m.Phase == domain.PhaseBetweenQuestions {
		return Event{Type: EventAdvance, System: true}, true
	}
	return Event{Type: EventTimeout, QuestionIndex: m.CurrentQuestionIndex, System: true}, true
}

// Snapshot renders m for clients. The answer key of the current question
// stays hidden until its result is appended.
func Snapshot(m domain.Match, rules Rules, now time.Time) domain.Snapshot {
	s := domain.Snapshot{
		ID:                   m.ID,
		ChallengerID:         m.ChallengerID,
		InvitedOpponentID:    m.InvitedOpponentID,
		OpponentID:           m.OpponentID,
		Status:               m.Status,
		Phase:                m.Phase,
		PhaseEnteredAt:       m.PhaseEnteredAt,
		TurnOwnerID:          m.TurnOwner(),
		Difficulty:           m.Difficulty,
		QuestionCount:        len(m.Questions),
		CurrentQuestionIndex: m.CurrentQuestionIndex,
		ChallengerScore:      m.ChallengerScore,
		OpponentScore:        m.OpponentScore,
		QuestionResults:      append([]domain.QuestionResult{}, m.QuestionResults...),
		StealAuthorOnly:      m.StealAuthorOnly,
		LockedBookListItemID: m.LockedBookListItemID,
		CancelReason:         m.CancelReason,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		FinishedAt:           m.FinishedAt,
		ServerTime:           now,
	}
	if deadline, ok := Deadline(m, rules); ok {
		s.TurnDeadline = &deadline
	}
	if q, ok := m.CurrentQuestion(); ok && s.TurnOwnerID != "" {
		v := q.View()
		s.CurrentQuestion = &v
	}
	if m.LastAnswer != nil {
		la := *m.LastAnswer
		s.LastAnswer = &la
	}
	return s
}
