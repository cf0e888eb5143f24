package match_test

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"book-duel-service/internal/domain"
	"book-duel-service/internal/match"
)

var t0 = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

const (
	alice = "alice"
	bob   = "bob"
)

func TestScenarioFullCreditSkipsSteal(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)

	m = mustApply(t, m, answerEv(alice, 0, "b0", "a0"), t0.Add(time.Second), rules)

	if len(m.QuestionResults) != 1 {
		t.Fatalf("expected 1 result, got %d", len(m.QuestionResults))
	}
	r := m.QuestionResults[0]
	if r.FirstPoints != 2 || r.SecondPoints != 0 || r.StealOffered {
		t.Fatalf("expected 2/0 without steal, got %+v", r)
	}
	if m.Phase != domain.PhaseQuestionShow || m.CurrentQuestionIndex != 1 {
		t.Fatalf("expected question_show for Q2, got %s index=%d", m.Phase, m.CurrentQuestionIndex)
	}
	if m.StealAuthorOnly || m.LockedBookListItemID != "" {
		t.Fatalf("steal state should be clear, got %v %q", m.StealAuthorOnly, m.LockedBookListItemID)
	}
	if m.ChallengerScore != 2 || m.OpponentScore != 0 {
		t.Fatalf("expected 2-0, got %d-%d", m.ChallengerScore, m.OpponentScore)
	}
	if !m.PhaseEnteredAt.Equal(t0.Add(time.Second)) {
		t.Fatalf("phase stamp not updated: %v", m.PhaseEnteredAt)
	}
}

func TestScenarioAuthorMissOpensSteal(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)

	m = mustApply(t, m, answerEv(alice, 0, "b0", "a-wrong"), t0.Add(time.Second), rules)

	if m.Phase != domain.PhaseSecondResponderCanAnswer {
		t.Fatalf("expected steal phase, got %s", m.Phase)
	}
	if !m.StealAuthorOnly || m.LockedBookListItemID != "b0" {
		t.Fatalf("expected author-only steal locked to b0, got %v %q", m.StealAuthorOnly, m.LockedBookListItemID)
	}
	if m.TurnOwner() != bob {
		t.Fatalf("expected bob to own the steal, got %s", m.TurnOwner())
	}
	if len(m.QuestionResults) != 0 {
		t.Fatalf("result must not be appended while steal is open")
	}

	m = mustApply(t, m, answerEv(bob, 0, "", "a0"), t0.Add(2*time.Second), rules)

	r := m.QuestionResults[0]
	if r.FirstPoints != 1 || r.SecondPoints != 1 || !r.StealOffered || !r.StealAuthorCorrect {
		t.Fatalf("expected 1/1 steal result, got %+v", r)
	}
	if m.ChallengerScore != 1 || m.OpponentScore != 1 {
		t.Fatalf("expected 1-1, got %d-%d", m.ChallengerScore, m.OpponentScore)
	}
	if m.LastAnswer == nil || !m.LastAnswer.Steal || m.LastAnswer.PointsAwarded != 1 {
		t.Fatalf("expected steal feedback, got %+v", m.LastAnswer)
	}
}

func TestScenarioTimeoutCountsAsMiss(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)

	before := m.Clone()
	if _, err := match.Apply(m, timeoutEv(alice, 0), t0.Add(rules.TurnDuration-time.Millisecond), rules); !errors.Is(err, domain.ErrTimeoutPremature) {
		t.Fatalf("expected premature timeout, got %v", err)
	}
	if !reflect.DeepEqual(before, m) {
		t.Fatalf("rejected timeout mutated the match")
	}

	m = mustApply(t, m, timeoutEv(alice, 0), t0.Add(rules.TurnDuration), rules)

	r := m.QuestionResults[0]
	if !r.FirstTimedOut || r.StealOffered || r.Points() != 0 {
		t.Fatalf("expected timed out miss with no steal, got %+v", r)
	}
	if m.Phase != domain.PhaseQuestionShow || m.CurrentQuestionIndex != 1 {
		t.Fatalf("expected next question, got %s %d", m.Phase, m.CurrentQuestionIndex)
	}
}

func TestScenarioDeclineCancels(t *testing.T) {
	rules := testRules(2)
	m := match.New("m1", alice, bob, domain.DifficultyMedium, bank(2), t0)

	m = mustApply(t, m, match.Event{Type: match.EventDecline, ActorID: bob}, t0, rules)
	if m.Status != domain.StatusCancelled || m.CancelReason != domain.CancelDeclined {
		t.Fatalf("expected declined cancellation, got %s %s", m.Status, m.CancelReason)
	}

	_, err := match.Apply(m, match.Event{Type: match.EventJoin, ActorID: bob}, t0, rules)
	if !errors.Is(err, domain.ErrMatchFinished) || !domain.IsRejection(err) {
		t.Fatalf("expected join rejection after decline, got %v", err)
	}
}

func TestBookMissNeverOffersSteal(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)

	m = mustApply(t, m, answerEv(alice, 0, "b-wrong", "a0"), t0.Add(time.Second), rules)

	r := m.QuestionResults[0]
	if r.StealOffered || r.Points() != 0 || !r.FirstAuthorCorrect {
		t.Fatalf("expected recorded author hit with zero points and no steal, got %+v", r)
	}
	if m.ChallengerScore != 0 {
		t.Fatalf("author without book must not score, got %d", m.ChallengerScore)
	}
}

func TestRejectionsLeaveStateUntouched(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)
	steal := mustApply(t, m, answerEv(alice, 0, "b0", "a-wrong"), t0.Add(time.Second), rules)

	cases := []struct {
		name string
		m    domain.Match
		ev   match.Event
		want error
	}{
		{"wrong turn", m, answerEv(bob, 0, "b0", "a0"), domain.ErrNotYourTurn},
		{"stale index", m, answerEv(alice, 1, "b1", "a1"), domain.ErrStaleQuestion},
		{"missing book", m, answerEv(alice, 0, "", "a0"), domain.ErrAnswerIncomplete},
		{"first responder during steal", steal, answerEv(alice, 0, "b0", "a0"), domain.ErrNotYourTurn},
		{"steal changes book", steal, answerEv(bob, 0, "b-other", "a0"), domain.ErrBookLocked},
		{"steal without author", steal, answerEv(bob, 0, "b0", ""), domain.ErrAnswerIncomplete},
		{"timeout by non owner", m, timeoutEv(bob, 0), domain.ErrNotYourTurn},
		{"join twice", m, match.Event{Type: match.EventJoin, ActorID: bob}, domain.ErrMatchNotPending},
		{"decline after join", m, match.Event{Type: match.EventDecline, ActorID: bob}, domain.ErrMatchNotPending},
		{"advance without reveal", m, match.Event{Type: match.EventAdvance, ActorID: alice}, domain.ErrPhaseMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.m.Clone()
			// an hour in, every clock has expired; only ownership and phase gate these
			got, err := match.Apply(tc.m, tc.ev, t0.Add(time.Hour), rules)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !domain.IsRejection(err) {
				t.Fatalf("expected %v to classify as rejection", err)
			}
			if !reflect.DeepEqual(before, tc.m) || !reflect.DeepEqual(before, got) {
				t.Fatalf("rejected event changed state")
			}
		})
	}
}

func TestOutsiderIsNotParticipant(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)

	_, err := match.Apply(m, answerEv("mallory", 0, "b0", "a0"), t0, rules)
	if !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected not participant, got %v", err)
	}
	if domain.IsRejection(err) {
		t.Fatalf("not-participant must surface as an error, not a silent rejection")
	}
}

func TestMatchCompletesAfterLastQuestion(t *testing.T) {
	rules := testRules(20)
	m := startedMatch(t, rules, 20)
	now := t0

	for i := 0; i < 20; i++ {
		now = now.Add(time.Second)
		responder := m.TurnOwner()
		m = mustApply(t, m, answerEv(responder, i, fmt.Sprintf("b%d", i), fmt.Sprintf("a%d", i)), now, rules)
		if len(m.QuestionResults) != m.CurrentQuestionIndex {
			t.Fatalf("results %d out of step with index %d", len(m.QuestionResults), m.CurrentQuestionIndex)
		}
	}

	if m.Status != domain.StatusCompleted || m.Phase != domain.PhaseCompleted {
		t.Fatalf("expected completed, got %s/%s", m.Status, m.Phase)
	}
	if len(m.QuestionResults) != 20 || m.CurrentQuestionIndex != 20 {
		t.Fatalf("expected 20 results, got %d (index %d)", len(m.QuestionResults), m.CurrentQuestionIndex)
	}
	if m.ChallengerScore != 20 || m.OpponentScore != 20 {
		t.Fatalf("alternating full credit should tie 20-20, got %d-%d", m.ChallengerScore, m.OpponentScore)
	}
	if m.FinishedAt == nil || !m.FinishedAt.Equal(now) {
		t.Fatalf("expected finished at %v, got %v", now, m.FinishedAt)
	}
	if _, err := match.Apply(m, match.Event{Type: match.EventLeave, ActorID: bob}, now, rules); !errors.Is(err, domain.ErrMatchFinished) {
		t.Fatalf("expected finished rejection, got %v", err)
	}
}

func TestFirstRespondersAlternate(t *testing.T) {
	m := match.New("m1", alice, bob, domain.DifficultyEasy, bank(4), t0)
	want := []string{alice, bob, alice, bob}
	for i, q := range m.Questions {
		if q.FirstResponderID != want[i] {
			t.Fatalf("question %d: expected %s, got %s", i, want[i], q.FirstResponderID)
		}
	}
}

func TestRevealPauseRequiresAdvance(t *testing.T) {
	rules := testRules(2)
	rules.RevealDuration = 3 * time.Second
	m := startedMatch(t, rules, 2)

	m = mustApply(t, m, answerEv(alice, 0, "b0", "a0"), t0.Add(time.Second), rules)
	if m.Phase != domain.PhaseBetweenQuestions {
		t.Fatalf("expected between_questions, got %s", m.Phase)
	}
	if _, err := match.Apply(m, match.Event{Type: match.EventAdvance, ActorID: bob}, t0.Add(2*time.Second), rules); !errors.Is(err, domain.ErrRevealPending) {
		t.Fatalf("expected reveal pending, got %v", err)
	}
	if _, err := match.Apply(m, answerEv(bob, 1, "b1", "a1"), t0.Add(2*time.Second), rules); !errors.Is(err, domain.ErrPhaseMismatch) {
		t.Fatalf("expected phase mismatch during reveal, got %v", err)
	}

	m = mustApply(t, m, match.Event{Type: match.EventAdvance, ActorID: bob}, t0.Add(4*time.Second), rules)
	if m.Phase != domain.PhaseQuestionShow || m.TurnOwner() != bob {
		t.Fatalf("expected bob's question_show, got %s owner=%s", m.Phase, m.TurnOwner())
	}
}

func TestSystemTimeoutWaitsForGrace(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)

	if _, ok := match.Overdue(m, rules, t0.Add(rules.TurnDuration)); ok {
		t.Fatalf("turn should not be overdue before grace")
	}
	late := t0.Add(rules.TurnDuration + rules.Grace)
	ev, ok := match.Overdue(m, rules, late)
	if !ok || ev.Type != match.EventTimeout || !ev.System {
		t.Fatalf("expected system timeout, got %+v %v", ev, ok)
	}
	m = mustApply(t, m, ev, late, rules)
	if !m.QuestionResults[0].FirstTimedOut {
		t.Fatalf("expected timed out result")
	}
}

func TestLeaveCancelsActiveMatch(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)
	m = mustApply(t, m, answerEv(alice, 0, "b0", "a-wrong"), t0.Add(time.Second), rules)

	m = mustApply(t, m, match.Event{Type: match.EventLeave, ActorID: bob}, t0.Add(2*time.Second), rules)
	if m.Status != domain.StatusCancelled || m.CancelReason != domain.CancelLeft {
		t.Fatalf("expected cancelled by leave, got %s %s", m.Status, m.CancelReason)
	}
	if m.StealAuthorOnly || m.PendingTurn != nil {
		t.Fatalf("steal state should be cleared on cancel")
	}
}

func TestSnapshotHidesAnswerKey(t *testing.T) {
	rules := testRules(2)
	m := startedMatch(t, rules, 2)

	s := match.Snapshot(m, rules, t0)
	if s.CurrentQuestion == nil || s.CurrentQuestion.ID != "q0" {
		t.Fatalf("expected current question q0, got %+v", s.CurrentQuestion)
	}
	if s.TurnDeadline == nil || !s.TurnDeadline.Equal(t0.Add(rules.TurnDuration)) {
		t.Fatalf("unexpected deadline %v", s.TurnDeadline)
	}
	if s.TurnOwnerID != alice || s.QuestionCount != 2 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

// Random event streams must keep every invariant, whatever gets rejected.
func TestRandomEventStreamsKeepInvariants(t *testing.T) {
	rules := testRules(6)
	rnd := rand.New(rand.NewSource(42))
	actors := []string{alice, bob, "mallory"}
	types := []match.EventType{match.EventAnswer, match.EventAnswer, match.EventAnswer, match.EventTimeout, match.EventJoin}

	for run := 0; run < 200; run++ {
		m := match.New("m", alice, bob, domain.DifficultyHard, bank(6), t0)
		now := t0
		for step := 0; step < 80 && !m.Status.Terminal(); step++ {
			now = now.Add(time.Duration(rnd.Intn(25)) * time.Second)
			ev := match.Event{
				Type:          types[rnd.Intn(len(types))],
				ActorID:       actors[rnd.Intn(len(actors))],
				QuestionIndex: m.CurrentQuestionIndex + rnd.Intn(2) - rnd.Intn(2),
				BookChoice:    fmt.Sprintf("b%d", m.CurrentQuestionIndex+rnd.Intn(2)),
				AuthorChoice:  fmt.Sprintf("a%d", m.CurrentQuestionIndex+rnd.Intn(2)),
			}
			if m.Phase == domain.PhaseSecondResponderCanAnswer && rnd.Intn(2) == 0 {
				ev.BookChoice = ""
			}
			before := m.Clone()
			next, err := match.Apply(m, ev, now, rules)
			if err != nil {
				if !reflect.DeepEqual(before, m) || !reflect.DeepEqual(before, next) {
					t.Fatalf("run %d step %d: rejected %+v mutated state", run, step, ev)
				}
				continue
			}
			checkInvariants(t, before, next)
			m = next
		}
	}
}

func checkInvariants(t *testing.T, before, after domain.Match) {
	t.Helper()
	if after.Version != before.Version+1 {
		t.Fatalf("version must advance by one, %d -> %d", before.Version, after.Version)
	}
	if after.CurrentQuestionIndex < before.CurrentQuestionIndex || after.CurrentQuestionIndex > before.CurrentQuestionIndex+1 {
		t.Fatalf("index moved from %d to %d", before.CurrentQuestionIndex, after.CurrentQuestionIndex)
	}
	if len(after.QuestionResults) != after.CurrentQuestionIndex {
		t.Fatalf("results %d != index %d", len(after.QuestionResults), after.CurrentQuestionIndex)
	}
	if !reflect.DeepEqual(before.QuestionResults, after.QuestionResults[:len(before.QuestionResults)]) {
		t.Fatalf("existing results were rewritten")
	}
	total := 0
	for _, r := range after.QuestionResults {
		if p := r.Points(); p < 0 || p > match.MaxQuestionPoints {
			t.Fatalf("question %d awarded %d points", r.QuestionIndex, p)
		}
		if r.StealOffered != (r.FirstBookCorrect && !r.FirstAuthorCorrect) {
			t.Fatalf("steal offered=%v for book=%v author=%v", r.StealOffered, r.FirstBookCorrect, r.FirstAuthorCorrect)
		}
		total += r.Points()
	}
	inSteal := after.Phase == domain.PhaseSecondResponderCanAnswer
	if inSteal != after.StealAuthorOnly {
		t.Fatalf("steal flag %v in phase %s", after.StealAuthorOnly, after.Phase)
	}
	if inSteal {
		total += after.LastAnswer.PointsAwarded
	}
	if after.ChallengerScore+after.OpponentScore != total {
		t.Fatalf("scores %d+%d do not match awarded %d", after.ChallengerScore, after.OpponentScore, total)
	}
}

func testRules(n int) match.Rules {
	rules := match.DefaultRules()
	rules.QuestionCount = n
	return rules
}

func startedMatch(t *testing.T, rules match.Rules, n int) domain.Match {
	t.Helper()
	m := match.New("m1", alice, bob, domain.DifficultyMedium, bank(n), t0)
	return mustApply(t, m, match.Event{Type: match.EventJoin, ActorID: bob}, t0, rules)
}

func mustApply(t *testing.T, m domain.Match, ev match.Event, now time.Time, rules match.Rules) domain.Match {
	t.Helper()
	next, err := match.Apply(m, ev, now, rules)
	if err != nil {
		t.Fatalf("apply %s by %s: %v", ev.Type, ev.ActorID, err)
	}
	return next
}

func answerEv(actor string, index int, book, author string) match.Event {
	return match.Event{Type: match.EventAnswer, ActorID: actor, QuestionIndex: index, BookChoice: book, AuthorChoice: author}
}

func timeoutEv(actor string, index int) match.Event {
	return match.Event{Type: match.EventTimeout, ActorID: actor, QuestionIndex: index}
}

func bank(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:              fmt.Sprintf("q%d", i),
			Text:            fmt.Sprintf("Which book opens with line %d?", i),
			CorrectBookID:   fmt.Sprintf("b%d", i),
			CorrectAuthorID: fmt.Sprintf("a%d", i),
			BookChoices: []domain.Choice{
				{ID: fmt.Sprintf("b%d", i), Label: "Right book"},
				{ID: fmt.Sprintf("b%d", i+1), Label: "Other book"},
			},
			AuthorChoices: []domain.Choice{
				{ID: fmt.Sprintf("a%d", i), Label: "Right author"},
				{ID: fmt.Sprintf("a%d", i+1), Label: "Other author"},
			},
		}
	}
	return qs
}
