package app

import (
	"context"
	"errors"
	"fmt"

	"book-duel-service/internal/domain"
	"book-duel-service/internal/match"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MatchRepository abstracts where matches live (in-memory, Redis).
type MatchRepository interface {
	Create(ctx context.Context, m domain.Match) error
	Get(ctx context.Context, matchID string) (domain.Match, error)
	// Save replaces the stored match only if it is still at m.Version-1,
	// otherwise it returns domain.ErrConflict.
	Save(ctx context.Context, m domain.Match) error
	// FindOpen lists pending and in-progress matches involving userID.
	FindOpen(ctx context.Context, userID string) ([]domain.Match, error)
	// History lists terminal matches involving userID, newest first.
	History(ctx context.Context, userID string, limit int) ([]domain.Match, error)
	// ListActive returns the ids of in-progress matches.
	ListActive(ctx context.Context) ([]string, error)
}

// QuestionSource supplies the shuffled question sequence for a new match.
type QuestionSource interface {
	Questions(ctx context.Context, difficulty domain.Difficulty, n int) ([]domain.Question, error)
}

// Roster decides who may be challenged.
type Roster interface {
	Eligible(ctx context.Context, challengerID, opponentID string) (bool, error)
}

// Broadcaster pushes committed snapshots to a match's topic.
type Broadcaster interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// ResultSink receives every match that reaches a terminal status.
type ResultSink interface {
	MatchFinished(ctx context.Context, record domain.MatchRecord) error
}

// AnswerSubmission is a participant's answer for one turn.
type AnswerSubmission struct {
	QuestionIndex int
	BookChoice    string
	AuthorChoice  string
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// MatchService contains the duel use cases. Mutations of one match are
// serialized through a per-match lock; different matches never contend.
type MatchService struct {
	matches      MatchRepository
	questions    QuestionSource
	roster       Roster
	hub          *Hub
	broadcasters []Broadcaster
	sinks        []ResultSink
	clock        clockwork.Clock
	rules        match.Rules
	difficulty   domain.Difficulty
	newID        func() string
	locks        *lockset
}

// Option customizes a MatchService.
type Option func(*MatchService)

// WithClock swaps the clock authority, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *MatchService) { s.clock = clock }
}

func WithRules(rules match.Rules) Option {
	return func(s *MatchService) { s.rules = rules }
}

func WithDefaultDifficulty(d domain.Difficulty) Option {
	return func(s *MatchService) { s.difficulty = d }
}

// WithBroadcasters adds topics beyond the local hub, e.g. a Redis fan-out.
func WithBroadcasters(b ...Broadcaster) Option {
	return func(s *MatchService) { s.broadcasters = append(s.broadcasters, b...) }
}

func WithResultSinks(sinks ...ResultSink) Option {
	return func(s *MatchService) { s.sinks = append(s.sinks, sinks...) }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *MatchService) { s.newID = gen }
}

func NewMatchService(matches MatchRepository, questions QuestionSource, roster Roster, hub *Hub, opts ...Option) *MatchService {
	s := &MatchService{
		matches:    matches,
		questions:  questions,
		roster:     roster,
		hub:        hub,
		clock:      clockwork.NewRealClock(),
		rules:      match.DefaultRules(),
		difficulty: domain.DifficultyMedium,
		newID:      func() string { return uuid.New().String() },
		locks:      newLockset(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.broadcasters = append([]Broadcaster{hub}, s.broadcasters...)
	return s
}

// Rules exposes the timing rules so transports can describe them.
func (s *MatchService) Rules() match.Rules {
	return s.rules
}

// Create opens a pending invite from challengerID to opponentID.
func (s *MatchService) Create(ctx context.Context, challengerID, opponentID, rawDifficulty string) (domain.Snapshot, error) {
	if challengerID == "" {
		return domain.Snapshot{}, domain.ErrUnauthenticated
	}
	if challengerID == opponentID {
		return domain.Snapshot{}, domain.ErrSelfChallenge
	}
	difficulty, err := domain.ParseDifficulty(rawDifficulty, s.difficulty)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if opponentID == "" {
		return domain.Snapshot{}, domain.ErrOpponentIneligible
	}
	ok, err := s.roster.Eligible(ctx, challengerID, opponentID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("check roster: %w", err)
	}
	if !ok {
		return domain.Snapshot{}, domain.ErrOpponentIneligible
	}

	unlock := s.locks.lockAll("user:"+challengerID, "user:"+opponentID)
	defer unlock()

	for _, userID := range []string{challengerID, opponentID} {
		open, err := s.matches.FindOpen(ctx, userID)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("find open matches: %w", err)
		}
		if len(open) > 0 {
			return domain.Snapshot{}, domain.ErrPlayerBusy
		}
	}

	questions, err := s.questions.Questions(ctx, difficulty, s.rules.QuestionCount)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(questions) < s.rules.QuestionCount {
		return domain.Snapshot{}, domain.ErrNotEnoughQuestions
	}

	now := s.clock.Now()
	m := match.New(s.newID(), challengerID, opponentID, difficulty, questions[:s.rules.QuestionCount], now)
	if err := s.matches.Create(ctx, m); err != nil {
		return domain.Snapshot{}, fmt.Errorf("create match: %w", err)
	}
	log.Info().
		Str("match_id", m.ID).
		Str("challenger_id", challengerID).
		Str("opponent_id", opponentID).
		Str("difficulty", string(difficulty)).
		Msg("match created")
	return match.Snapshot(m, s.rules, now), nil
}

// Join accepts a pending invite.
func (s *MatchService) Join(ctx context.Context, matchID, userID string) (domain.Snapshot, error) {
	return s.apply(ctx, matchID, match.Event{Type: match.EventJoin, ActorID: userID})
}

// Decline refuses a pending invite.
func (s *MatchService) Decline(ctx context.Context, matchID, userID string) (domain.Snapshot, error) {
	return s.apply(ctx, matchID, match.Event{Type: match.EventDecline, ActorID: userID})
}

// Withdraw lets the challenger cancel an invite nobody answered.
func (s *MatchService) Withdraw(ctx context.Context, matchID, userID string) (domain.Snapshot, error) {
	return s.apply(ctx, matchID, match.Event{Type: match.EventWithdraw, ActorID: userID})
}

// Leave abandons the match; it is cancelled for both players.
func (s *MatchService) Leave(ctx context.Context, matchID, userID string) (domain.Snapshot, error) {
	return s.apply(ctx, matchID, match.Event{Type: match.EventLeave, ActorID: userID})
}

// SubmitAnswer records the caller's answer for the current turn.
func (s *MatchService) SubmitAnswer(ctx context.Context, matchID, userID string, sub AnswerSubmission) (domain.Snapshot, error) {
	return s.apply(ctx, matchID, match.Event{
		Type:          match.EventAnswer,
		ActorID:       userID,
		QuestionIndex: sub.QuestionIndex,
		BookChoice:    sub.BookChoice,
		AuthorChoice:  sub.AuthorChoice,
	})
}

// SubmitTimeout proposes that the caller's turn has expired. Pass
// match.AnyQuestion when the client does not know the index.
func (s *MatchService) SubmitTimeout(ctx context.Context, matchID, userID string, questionIndex int) (domain.Snapshot, error) {
	return s.apply(ctx, matchID, match.Event{Type: match.EventTimeout, ActorID: userID, QuestionIndex: questionIndex})
}

// Advance moves past the reveal pause between questions.
func (s *MatchService) Advance(ctx context.Context, matchID, userID string) (domain.Snapshot, error) {
	return s.apply(ctx, matchID, match.Event{Type: match.EventAdvance, ActorID: userID})
}

// Get returns the current snapshot for a participant.
func (s *MatchService) Get(ctx context.Context, matchID, userID string) (domain.Snapshot, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !m.IsParticipant(userID) {
		return domain.Snapshot{}, domain.ErrNotParticipant
	}
	return match.Snapshot(m, s.rules, s.clock.Now()), nil
}

// PendingInvite returns the open invite addressed to userID, if any.
func (s *MatchService) PendingInvite(ctx context.Context, userID string) (*domain.Snapshot, error) {
	open, err := s.matches.FindOpen(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find open matches: %w", err)
	}
	for _, m := range open {
		if m.Status == domain.StatusPending && m.InvitedOpponentID == userID {
			snap := match.Snapshot(m, s.rules, s.clock.Now())
			return &snap, nil
		}
	}
	return nil, nil
}

// History lists the caller's finished matches with their full results.
func (s *MatchService) History(ctx context.Context, userID string, limit int) ([]domain.Snapshot, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	matches, err := s.matches.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	now := s.clock.Now()
	out := make([]domain.Snapshot, 0, len(matches))
	for _, m := range matches {
		out = append(out, match.Snapshot(m, s.rules, now))
	}
	return out, nil
}

// Subscribe returns a channel that receives the current snapshot followed
// by every committed change. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *MatchService) Subscribe(ctx context.Context, matchID, userID string) (<-chan domain.Snapshot, func(), error) {
	// Holding the match lock means no commit can slip between the read and
	// the registration.
	unlock := s.locks.lock(matchID)
	defer unlock()

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !m.IsParticipant(userID) {
		return nil, nil, domain.ErrNotParticipant
	}
	ch, cancel := s.hub.Subscribe(match.Snapshot(m, s.rules, s.clock.Now()))
	return ch, cancel, nil
}

// ExpireOverdue applies server-side timeouts to turns both clients have
// abandoned. It returns how many matches moved.
func (s *MatchService) ExpireOverdue(ctx context.Context) (int, error) {
	ids, err := s.matches.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active matches: %w", err)
	}
	moved := 0
	for _, id := range ids {
		m, err := s.matches.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("match_id", id).Msg("skipping unreadable active match")
			continue
		}
		ev, ok := match.Overdue(m, s.rules, s.clock.Now())
		if !ok {
			continue
		}
		if _, err := s.apply(ctx, id, ev); err != nil {
			if !domain.IsRejection(err) {
				log.Error().Err(err).Str("match_id", id).Msg("expire overdue turn failed")
			}
			continue
		}
		moved++
	}
	return moved, nil
}

// apply is the single serialization point for match mutations. On a
// rejection it returns the current snapshot alongside the error so callers
// can resync.
func (s *MatchService) apply(ctx context.Context, matchID string, ev match.Event) (domain.Snapshot, error) {
	unlock := s.locks.lock(matchID)
	defer unlock()

	current, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	now := s.clock.Now()
	next, err := match.Apply(current, ev, now, s.rules)
	if err != nil {
		if !domain.IsRejection(err) {
			return domain.Snapshot{}, err
		}
		log.Debug().
			Err(err).
			Str("match_id", matchID).
			Str("user_id", ev.ActorID).
			Str("event", string(ev.Type)).
			Str("phase", string(current.Phase)).
			Msg("event rejected")
		return match.Snapshot(current, s.rules, now), err
	}

	if err := s.matches.Save(ctx, next); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Warn().Str("match_id", matchID).Str("event", string(ev.Type)).Msg("lost commit race")
			if latest, gerr := s.matches.Get(ctx, matchID); gerr == nil {
				return match.Snapshot(latest, s.rules, now), err
			}
			return match.Snapshot(current, s.rules, now), err
		}
		return domain.Snapshot{}, fmt.Errorf("save match: %w", err)
	}

	snap := match.Snapshot(next, s.rules, now)
	s.publish(ctx, snap)
	if next.Status.Terminal() {
		s.finish(ctx, next)
	}

	log.Info().
		Str("match_id", matchID).
		Str("user_id", ev.ActorID).
		Str("event", string(ev.Type)).
		Str("phase", string(next.Phase)).
		Int("question_index", next.CurrentQuestionIndex).
		Int64("version", next.Version).
		Msg("match event applied")
	return snap, nil
}

func (s *MatchService) publish(ctx context.Context, snap domain.Snapshot) {
	for _, b := range s.broadcasters {
		if err := b.Publish(ctx, snap); err != nil {
			log.Error().Err(err).Str("match_id", snap.ID).Msg("broadcast snapshot failed")
		}
	}
}

func (s *MatchService) finish(ctx context.Context, m domain.Match) {
	record := domain.RecordOf(m)
	for _, sink := range s.sinks {
		if err := sink.MatchFinished(ctx, record); err != nil {
			log.Error().Err(err).Str("match_id", m.ID).Msg("record finished match failed")
		}
	}
	log.Info().
		Str("match_id", m.ID).
		Str("status", string(m.Status)).
		Int("challenger_score", m.ChallengerScore).
		Int("opponent_score", m.OpponentScore).
		Msg("match finished")
}
