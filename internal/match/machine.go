// Package match holds the pure transition logic of a book duel.
//
// Apply never mutates its input. A non-nil error is a rejection or a
// participation failure and the returned match is the unchanged input.
package match

import (
	"fmt"
	"time"

	"book-duel-service/internal/domain"
)

// EventType names an input to the state machine.
type EventType string

const (
	EventJoin     EventType = "join"
	EventDecline  EventType = "decline"
	EventWithdraw EventType = "withdraw"
	EventLeave    EventType = "leave"
	EventAnswer   EventType = "answer"
	EventTimeout  EventType = "timeout"
	EventAdvance  EventType = "advance"
)

// AnyQuestion lets a timeout target whatever question is current.
const AnyQuestion = -1

// Event is a proposed change from a participant or from the server itself.
type Event struct {
	Type          EventType
	ActorID       string
	QuestionIndex int
	BookChoice    string
	AuthorChoice  string
	// System marks reaper-issued timeouts and advances; they skip turn
	// ownership but must wait out the grace period.
	System bool
}

// Rules are the timing and size parameters shared by all matches.
type Rules struct {
	QuestionCount  int
	TurnDuration   time.Duration
	RevealDuration time.Duration
	Grace          time.Duration
}

// DefaultRules returns twenty questions on a twenty second turn clock.
func DefaultRules() Rules {
	return Rules{
		QuestionCount: 20,
		TurnDuration:  20 * time.Second,
		Grace:         10 * time.Second,
	}
}

// New builds a pending match and assigns alternating first responders,
// challenger on even indexes.
func New(id, challengerID, opponentID string, difficulty domain.Difficulty, questions []domain.Question, now time.Time) domain.Match {
	qs := make([]domain.Question, len(questions))
	for i, q := range questions {
		if i%2 == 0 {
			q.FirstResponderID = challengerID
		} else {
			q.FirstResponderID = opponentID
		}
		qs[i] = q
	}
	return domain.Match{
		ID:                id,
		ChallengerID:      challengerID,
		InvitedOpponentID: opponentID,
		Status:            domain.StatusPending,
		Phase:             domain.PhaseWaitingOpponent,
		PhaseEnteredAt:    now,
		Difficulty:        difficulty,
		Questions:         qs,
		QuestionResults:   []domain.QuestionResult{},
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Apply computes the state after ev, or rejects it.
func Apply(m domain.Match, ev Event, now time.Time, rules Rules) (domain.Match, error) {
	if !ev.System && !m.IsParticipant(ev.ActorID) {
		return m, domain.ErrNotParticipant
	}
	if m.Status.Terminal() {
		return m, domain.ErrMatchFinished
	}

	next := m.Clone()
	var err error
	switch ev.Type {
	case EventJoin:
		err = join(&next, ev, now)
	case EventDecline:
		err = cancelPending(&next, ev, next.InvitedOpponentID, domain.CancelDeclined, now)
	case EventWithdraw:
		err = cancelPending(&next, ev, next.ChallengerID, domain.CancelWithdrawn, now)
	case EventLeave:
		err = leave(&next, ev, now)
	case EventAnswer:
		err = answer(&next, ev, now, rules)
	case EventTimeout:
		err = timeout(&next, ev, now, rules)
	case EventAdvance:
		err = advance(&next, ev, now, rules)
	default:
		err = fmt.Errorf("%w: unknown event %q", domain.ErrPhaseMismatch, ev.Type)
	}
	if err != nil {
		return m, err
	}
	next.Version++
	next.UpdatedAt = now
	return next, nil
}

func join(m *domain.Match, ev Event, now time.Time) error {
	if ev.System {
		return domain.ErrPhaseMismatch
	}
	if m.Status != domain.StatusPending {
		return domain.ErrMatchNotPending
	}
	if ev.ActorID != m.InvitedOpponentID {
		return domain.ErrNotYourTurn
	}
	m.Status = domain.StatusInProgress
	m.OpponentID = ev.ActorID
	m.CurrentQuestionIndex = 0
	enter(m, domain.PhaseQuestionShow, now)
	return nil
}

func cancelPending(m *domain.Match, ev Event, allowed string, reason domain.CancelReason, now time.Time) error {
	if ev.System {
		return domain.ErrPhaseMismatch
	}
	if m.Status != domain.StatusPending {
		return domain.ErrMatchNotPending
	}
	if ev.ActorID != allowed {
		return domain.ErrNotYourTurn
	}
	cancel(m, reason, now)
	return nil
}

func leave(m *domain.Match, ev Event, now time.Time) error {
	if ev.System {
		return domain.ErrPhaseMismatch
	}
	cancel(m, domain.CancelLeft, now)
	return nil
}

func answer(m *domain.Match, ev Event, now time.Time, rules Rules) error {
	if ev.System || m.Status != domain.StatusInProgress {
		return domain.ErrPhaseMismatch
	}
	if ev.QuestionIndex != m.CurrentQuestionIndex {
		return domain.ErrStaleQuestion
	}
	q, _ := m.CurrentQuestion()

	switch m.Phase {
	case domain.PhaseQuestionShow:
		if ev.ActorID != q.FirstResponderID {
			return domain.ErrNotYourTurn
		}
		if ev.BookChoice == "" {
			return domain.ErrAnswerIncomplete
		}
		resolveFirst(m, q, scoreFirst(q, ev.ActorID, ev.BookChoice, ev.AuthorChoice, false), now, rules)
		return nil
	case domain.PhaseSecondResponderCanAnswer:
		if ev.ActorID != m.TurnOwner() {
			return domain.ErrNotYourTurn
		}
		if ev.BookChoice != "" && ev.BookChoice != m.LockedBookListItemID {
			return domain.ErrBookLocked
		}
		if ev.AuthorChoice == "" {
			return domain.ErrAnswerIncomplete
		}
		resolveSteal(m, q, ev.ActorID, ev.AuthorChoice, false, now, rules)
		return nil
	}
	return domain.ErrPhaseMismatch
}

func timeout(m *domain.Match, ev Event, now time.Time, rules Rules) error {
	if m.Status != domain.StatusInProgress {
		return domain.ErrPhaseMismatch
	}
	if ev.QuestionIndex != AnyQuestion && ev.QuestionIndex != m.CurrentQuestionIndex {
		return domain.ErrStaleQuestion
	}
	if m.Phase != domain.PhaseQuestionShow && m.Phase != domain.PhaseSecondResponderCanAnswer {
		return domain.ErrPhaseMismatch
	}
	owner := m.TurnOwner()
	wait := rules.TurnDuration
	if ev.System {
		wait += rules.Grace
	} else if ev.ActorID != owner {
		return domain.ErrNotYourTurn
	}
	if now.Before(m.PhaseEnteredAt.Add(wait)) {
		return domain.ErrTimeoutPremature
	}

	q, _ := m.CurrentQuestion()
	if m.Phase == domain.PhaseQuestionShow {
		resolveFirst(m, q, scoreFirst(q, owner, "", "", true), now, rules)
	} else {
		resolveSteal(m, q, owner, "", true, now, rules)
	}
	return nil
}

func advance(m *domain.Match, ev Event, now time.Time, rules Rules) error {
	if m.Phase != domain.PhaseBetweenQuestions {
		return domain.ErrPhaseMismatch
	}
	wait := rules.RevealDuration
	if ev.System {
		wait += rules.Grace
	}
	if now.Before(m.PhaseEnteredAt.Add(wait)) {
		return domain.ErrRevealPending
	}
	enter(m, domain.PhaseQuestionShow, now)
	return nil
}

func resolveFirst(m *domain.Match, q domain.Question, turn domain.Turn, now time.Time, rules Rules) {
	pts := firstPoints(turn)
	award(m, turn.ResponderID, pts)
	m.LastAnswer = &domain.LastAnswer{
		ResponderID:   turn.ResponderID,
		QuestionIndex: m.CurrentQuestionIndex,
		BookCorrect:   turn.BookCorrect,
		AuthorCorrect: turn.AuthorCorrect,
		TimedOut:      turn.TimedOut,
		PointsAwarded: pts,
	}
	if stealUnlocked(turn) {
		m.PendingTurn = &turn
		m.StealAuthorOnly = true
		m.LockedBookListItemID = turn.BookChoice
		enter(m, domain.PhaseSecondResponderCanAnswer, now)
		return
	}
	closeQuestion(m, q, turn, nil, now, rules)
}

func resolveSteal(m *domain.Match, q domain.Question, responderID, author string, timedOut bool, now time.Time, rules Rules) {
	first := *m.PendingTurn
	steal := domain.Turn{
		ResponderID:   responderID,
		BookChoice:    m.LockedBookListItemID,
		AuthorChoice:  author,
		TimedOut:      timedOut,
		BookCorrect:   first.BookCorrect,
		AuthorCorrect: !timedOut && author == q.CorrectAuthorID,
	}
	pts := stealPoints(steal.AuthorCorrect)
	award(m, responderID, pts)
	m.LastAnswer = &domain.LastAnswer{
		ResponderID:   responderID,
		QuestionIndex: m.CurrentQuestionIndex,
		Steal:         true,
		BookCorrect:   steal.BookCorrect,
		AuthorCorrect: steal.AuthorCorrect,
		TimedOut:      timedOut,
		PointsAwarded: pts,
	}
	closeQuestion(m, q, first, &steal, now, rules)
}

func closeQuestion(m *domain.Match, q domain.Question, first domain.Turn, steal *domain.Turn, now time.Time, rules Rules) {
	second := m.OtherParticipant(first.ResponderID)
	m.QuestionResults = append(m.QuestionResults, buildResult(m.CurrentQuestionIndex, q, second, first, steal))
	m.PendingTurn = nil
	m.StealAuthorOnly = false
	m.LockedBookListItemID = ""
	m.CurrentQuestionIndex++

	switch {
	case m.CurrentQuestionIndex >= len(m.Questions):
		m.Status = domain.StatusCompleted
		finish(m, domain.PhaseCompleted, now)
	case rules.RevealDuration > 0:
		enter(m, domain.PhaseBetweenQuestions, now)
	default:
		enter(m, domain.PhaseQuestionShow, now)
	}
}

func award(m *domain.Match, userID string, pts int) {
	if pts == 0 {
		return
	}
	if userID == m.ChallengerID {
		m.ChallengerScore += pts
	} else {
		m.OpponentScore += pts
	}
}

func cancel(m *domain.Match, reason domain.CancelReason, now time.Time) {
	m.Status = domain.StatusCancelled
	m.CancelReason = reason
	m.PendingTurn = nil
	m.StealAuthorOnly = false
	m.LockedBookListItemID = ""
	finish(m, domain.PhaseCancelled, now)
}

func finish(m *domain.Match, phase domain.Phase, now time.Time) {
	enter(m, phase, now)
	finished := now
	m.FinishedAt = &finished
}

func enter(m *domain.Match, phase domain.Phase, now time.Time) {
	m.Phase = phase
	m.PhaseEnteredAt = now
}
