package domain

import "errors"

var (
	// ErrMatchNotFound is returned when no match exists for an id.
	ErrMatchNotFound = errors.New("match not found")
	// ErrNotParticipant is returned when the caller is neither challenger nor invited opponent.
	ErrNotParticipant = errors.New("caller is not a participant in this match")
	// ErrUnauthenticated is returned when no caller identity could be resolved.
	ErrUnauthenticated = errors.New("caller identity missing")
	// ErrSelfChallenge is returned when a player invites themselves.
	ErrSelfChallenge = errors.New("cannot challenge yourself")
	// ErrOpponentIneligible is returned when the roster rejects the invited opponent.
	ErrOpponentIneligible = errors.New("opponent is not eligible")
	// ErrPlayerBusy is returned when either player already has an open or active match.
	ErrPlayerBusy = errors.New("player already has an open match")
	// ErrInvalidDifficulty indicates an unknown difficulty value.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrNotEnoughQuestions indicates the question source could not fill a match.
	ErrNotEnoughQuestions = errors.New("not enough questions for difficulty")
	// ErrQuestionBankNotFound indicates no bank exists for a difficulty.
	ErrQuestionBankNotFound = errors.New("question bank not found")
)

// Rejections. An event failing with one of these left the match untouched;
// callers resync from the next snapshot.
var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrStaleQuestion    = errors.New("question index does not match current question")
	ErrPhaseMismatch    = errors.New("event not valid in current phase")
	ErrTimeoutPremature = errors.New("turn has not expired yet")
	ErrBookLocked       = errors.New("book answer is locked for the steal")
	ErrAnswerIncomplete = errors.New("answer is missing a required choice")
	ErrMatchNotPending  = errors.New("match is no longer pending")
	ErrMatchFinished    = errors.New("match already finished")
	ErrRevealPending    = errors.New("reveal pause has not elapsed")
	ErrConflict         = errors.New("match was modified concurrently")
)

var rejections = []error{
	ErrNotYourTurn,
	ErrStaleQuestion,
	ErrPhaseMismatch,
	ErrTimeoutPremature,
	ErrBookLocked,
	ErrAnswerIncomplete,
	ErrMatchNotPending,
	ErrMatchFinished,
	ErrRevealPending,
	ErrConflict,
}

// IsRejection reports whether err is a side-effect-free event rejection.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
