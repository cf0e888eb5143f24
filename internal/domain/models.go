package domain

import (
	"slices"
	"time"
)

// Status is the coarse lifecycle gate of a match.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further events can change the match.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Phase is the fine-grained sub-state of a match.
type Phase string

const (
	PhaseWaitingOpponent          Phase = "waiting_opponent"
	PhaseQuestionShow             Phase = "question_show"
	PhaseSecondResponderCanAnswer Phase = "second_responder_can_answer"
	PhaseBetweenQuestions         Phase = "between_questions"
	PhaseCompleted                Phase = "completed"
	PhaseCancelled                Phase = "cancelled"
)

// Difficulty scopes the question sequence of a match.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates raw, returning fallback when raw is empty.
func ParseDifficulty(raw string, fallback Difficulty) (Difficulty, error) {
	if raw == "" {
		return fallback, nil
	}
	switch d := Difficulty(raw); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", ErrInvalidDifficulty
}

// CancelReason explains how a match reached the cancelled status.
type CancelReason string

const (
	CancelDeclined  CancelReason = "declined"
	CancelWithdrawn CancelReason = "withdrawn"
	CancelLeft      CancelReason = "left"
)

// Choice is one selectable answer.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is a trivia item fixed into a match at creation time.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	CorrectBookID    string   `json:"correctBookId"`
	CorrectAuthorID  string   `json:"correctAuthorId"`
	BookChoices      []Choice `json:"bookChoices"`
	AuthorChoices    []Choice `json:"authorChoices"`
	FirstResponderID string   `json:"firstResponderId,omitempty"`
}

// QuestionView is a question as shown to players: no correct answers.
type QuestionView struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	BookChoices      []Choice `json:"book_choices"`
	AuthorChoices    []Choice `json:"author_choices"`
	FirstResponderID string   `json:"first_responder_id"`
}

// View strips the answer key from q.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:               q.ID,
		Text:             q.Text,
		BookChoices:      slices.Clone(q.BookChoices),
		AuthorChoices:    slices.Clone(q.AuthorChoices),
		FirstResponderID: q.FirstResponderID,
	}
}

// Turn is the first responder's answer, held while a steal is open.
type Turn struct {
	ResponderID   string `json:"responder_id"`
	BookChoice    string `json:"book_choice,omitempty"`
	AuthorChoice  string `json:"author_choice,omitempty"`
	BookCorrect   bool   `json:"book_correct"`
	AuthorCorrect bool   `json:"author_correct"`
	TimedOut      bool   `json:"timed_out"`
}

// QuestionResult is the immutable record of one closed question.
type QuestionResult struct {
	QuestionIndex      int    `json:"question_index"`
	QuestionID         string `json:"question_id"`
	FirstResponderID   string `json:"first_responder_id"`
	SecondResponderID  string `json:"second_responder_id"`
	FirstBookChoice    string `json:"first_book_choice,omitempty"`
	FirstAuthorChoice  string `json:"first_author_choice,omitempty"`
	FirstBookCorrect   bool   `json:"first_book_correct"`
	FirstAuthorCorrect bool   `json:"first_author_correct"`
	FirstTimedOut      bool   `json:"first_timed_out"`
	StealOffered       bool   `json:"steal_offered"`
	StealAuthorChoice  string `json:"steal_author_choice,omitempty"`
	StealAuthorCorrect bool   `json:"steal_author_correct"`
	StealTimedOut      bool   `json:"steal_timed_out"`
	CorrectBookID      string `json:"correct_book_id"`
	CorrectAuthorID    string `json:"correct_author_id"`
	FirstPoints        int    `json:"first_points"`
	SecondPoints       int    `json:"second_points"`
}

// Points returns the total awarded for the question.
func (r QuestionResult) Points() int {
	return r.FirstPoints + r.SecondPoints
}

// LastAnswer is feedback on the most recently committed answer or timeout.
type LastAnswer struct {
	ResponderID   string `json:"responder_id"`
	QuestionIndex int    `json:"question_index"`
	Steal         bool   `json:"steal"`
	BookCorrect   bool   `json:"book_correct"`
	AuthorCorrect bool   `json:"author_correct"`
	TimedOut      bool   `json:"timed_out"`
	PointsAwarded int    `json:"points_awarded"`
}

// Match is the authoritative record of one duel.
type Match struct {
	ID                   string           `json:"id"`
	ChallengerID         string           `json:"challenger_id"`
	InvitedOpponentID    string           `json:"invited_opponent_id"`
	OpponentID           string           `json:"opponent_id,omitempty"`
	Status               Status           `json:"status"`
	Phase                Phase            `json:"phase"`
	PhaseEnteredAt       time.Time        `json:"phase_entered_at"`
	Difficulty           Difficulty       `json:"difficulty"`
	CurrentQuestionIndex int              `json:"current_question_index"`
	ChallengerScore      int              `json:"challenger_score"`
	OpponentScore        int              `json:"opponent_score"`
	Questions            []Question       `json:"questions"`
	QuestionResults      []QuestionResult `json:"question_results"`
	StealAuthorOnly      bool             `json:"steal_author_only"`
	LockedBookListItemID string           `json:"locked_book_list_item_id,omitempty"`
	PendingTurn          *Turn            `json:"pending_turn,omitempty"`
	LastAnswer           *LastAnswer      `json:"last_answer,omitempty"`
	CancelReason         CancelReason     `json:"cancel_reason,omitempty"`
	Version              int64            `json:"version"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	FinishedAt           *time.Time       `json:"finished_at,omitempty"`
}

// IsParticipant reports whether userID may read or act on the match.
func (m Match) IsParticipant(userID string) bool {
	return userID != "" && (userID == m.ChallengerID || userID == m.InvitedOpponentID)
}

// OtherParticipant returns the participant that is not userID.
func (m Match) OtherParticipant(userID string) string {
	if userID == m.ChallengerID {
		return m.InvitedOpponentID
	}
	return m.ChallengerID
}

// CurrentQuestion returns the question being played, if any.
func (m Match) CurrentQuestion() (Question, bool) {
	if m.Status != StatusInProgress || m.CurrentQuestionIndex >= len(m.Questions) {
		return Question{}, false
	}
	return m.Questions[m.CurrentQuestionIndex], true
}

// TurnOwner returns who must act in the current phase.
func (m Match) TurnOwner() string {
	q, ok := m.CurrentQuestion()
	if !ok {
		return ""
	}
	switch m.Phase {
	case PhaseQuestionShow:
		return q.FirstResponderID
	case PhaseSecondResponderCanAnswer:
		return m.OtherParticipant(q.FirstResponderID)
	}
	return ""
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (m Match) Clone() Match {
	out := m
	out.Questions = slices.Clone(m.Questions)
	for i, q := range out.Questions {
		q.BookChoices = slices.Clone(q.BookChoices)
		q.AuthorChoices = slices.Clone(q.AuthorChoices)
		out.Questions[i] = q
	}
	out.QuestionResults = slices.Clone(m.QuestionResults)
	if m.PendingTurn != nil {
		t := *m.PendingTurn
		out.PendingTurn = &t
	}
	if m.LastAnswer != nil {
		la := *m.LastAnswer
		out.LastAnswer = &la
	}
	if m.FinishedAt != nil {
		f := *m.FinishedAt
		out.FinishedAt = &f
	}
	return out
}

// Snapshot is the complete client-facing state of a match.
type Snapshot struct {
	ID                   string           `json:"id"`
	ChallengerID         string           `json:"challenger_id"`
	InvitedOpponentID    string           `json:"invited_opponent_id"`
	OpponentID           string           `json:"opponent_id,omitempty"`
	Status               Status           `json:"status"`
	Phase                Phase            `json:"phase"`
	PhaseEnteredAt       time.Time        `json:"phase_entered_at"`
	TurnDeadline         *time.Time       `json:"turn_deadline,omitempty"`
	TurnOwnerID          string           `json:"turn_owner_id,omitempty"`
	Difficulty           Difficulty       `json:"difficulty"`
	QuestionCount        int              `json:"question_count"`
	CurrentQuestionIndex int              `json:"current_question_index"`
	CurrentQuestion      *QuestionView    `json:"current_question,omitempty"`
	ChallengerScore      int              `json:"challenger_score"`
	OpponentScore        int              `json:"opponent_score"`
	QuestionResults      []QuestionResult `json:"question_results"`
	StealAuthorOnly      bool             `json:"steal_author_only"`
	LockedBookListItemID string           `json:"locked_book_list_item_id,omitempty"`
	LastAnswer           *LastAnswer      `json:"last_answer,omitempty"`
	CancelReason         CancelReason     `json:"cancel_reason,omitempty"`
	Version              int64            `json:"version"`
	CreatedAt            time.Time        `json:"created_at"`
	FinishedAt           *time.Time       `json:"finished_at,omitempty"`
	ServerTime           time.Time        `json:"server_time"`
}

// QuestionBank is every question available for one difficulty.
type QuestionBank struct {
	Difficulty Difficulty `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// MatchRecord is what downstream statistics and leaderboard consumers get
// once a match reaches a terminal status.
type MatchRecord struct {
	MatchID         string           `json:"match_id"`
	ChallengerID    string           `json:"challenger_id"`
	OpponentID      string           `json:"opponent_id"`
	Status          Status           `json:"status"`
	CancelReason    CancelReason     `json:"cancel_reason,omitempty"`
	Difficulty      Difficulty       `json:"difficulty"`
	ChallengerScore int              `json:"challenger_score"`
	OpponentScore   int              `json:"opponent_score"`
	WinnerID        string           `json:"winner_id,omitempty"`
	QuestionResults []QuestionResult `json:"question_results"`
	CreatedAt       time.Time        `json:"created_at"`
	FinishedAt      time.Time        `json:"finished_at"`
}

// RecordOf summarizes a terminal match. Ties and cancellations have no winner.
func RecordOf(m Match) MatchRecord {
	r := MatchRecord{
		MatchID:         m.ID,
		ChallengerID:    m.ChallengerID,
		OpponentID:      m.InvitedOpponentID,
		Status:          m.Status,
		CancelReason:    m.CancelReason,
		Difficulty:      m.Difficulty,
		ChallengerScore: m.ChallengerScore,
		OpponentScore:   m.OpponentScore,
		QuestionResults: slices.Clone(m.QuestionResults),
		CreatedAt:       m.CreatedAt,
		FinishedAt:      m.UpdatedAt,
	}
	if m.FinishedAt != nil {
		r.FinishedAt = *m.FinishedAt
	}
	if m.Status == StatusCompleted {
		switch {
		case m.ChallengerScore > m.OpponentScore:
			r.WinnerID = m.ChallengerID
		case m.OpponentScore > m.ChallengerScore:
			r.WinnerID = m.InvitedOpponentID
		}
	}
	return r
}
