package match

import "book-duel-service/internal/domain"

const (
	bookPoints   = 1
	authorPoints = 1

	// MaxQuestionPoints is the most a single question can award across both responders.
	MaxQuestionPoints = bookPoints + authorPoints
)

// scoreFirst grades the first responder's turn. A timeout grades as all wrong.
func scoreFirst(q domain.Question, responderID, book, author string, timedOut bool) domain.Turn {
	t := domain.Turn{
		ResponderID:  responderID,
		BookChoice:   book,
		AuthorChoice: author,
		TimedOut:     timedOut,
	}
	if !timedOut {
		t.BookCorrect = book == q.CorrectBookID
		t.AuthorCorrect = author == q.CorrectAuthorID
	}
	return t
}

// firstPoints awards the author point only alongside a correct book.
func firstPoints(t domain.Turn) int {
	if !t.BookCorrect {
		return 0
	}
	if t.AuthorCorrect {
		return bookPoints + authorPoints
	}
	return bookPoints
}

// stealUnlocked: only a book-right, author-wrong first turn opens the author-only steal.
func stealUnlocked(t domain.Turn) bool {
	return t.BookCorrect && !t.AuthorCorrect
}

func stealPoints(correct bool) int {
	if correct {
		return authorPoints
	}
	return 0
}

func buildResult(index int, q domain.Question, secondID string, first domain.Turn, steal *domain.Turn) domain.QuestionResult {
	r := domain.QuestionResult{
		QuestionIndex:      index,
		QuestionID:         q.ID,
		FirstResponderID:   first.ResponderID,
		SecondResponderID:  secondID,
		FirstBookChoice:    first.BookChoice,
		FirstAuthorChoice:  first.AuthorChoice,
		FirstBookCorrect:   first.BookCorrect,
		FirstAuthorCorrect: first.AuthorCorrect,
		FirstTimedOut:      first.TimedOut,
		CorrectBookID:      q.CorrectBookID,
		CorrectAuthorID:    q.CorrectAuthorID,
		FirstPoints:        firstPoints(first),
	}
	if steal != nil {
		r.StealOffered = true
		r.StealAuthorChoice = steal.AuthorChoice
		r.StealAuthorCorrect = steal.AuthorCorrect
		r.StealTimedOut = steal.TimedOut
		r.SecondPoints = stealPoints(steal.AuthorCorrect)
	}
	return r
}
