package client

import (
	"strings"
	"testing"
	"time"

	"book-duel-service/internal/domain"
)

var local = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func TestApplyIsIdempotent(t *testing.T) {
	var v View
	snap := domain.Snapshot{ID: "m1", Version: 3, ChallengerScore: 2, ServerTime: local}

	if !v.Apply(snap, local) {
		t.Fatalf("first apply should change the view")
	}
	first, _ := v.Snapshot()
	if v.Apply(snap, local) {
		t.Fatalf("re-applying the same version must be a no-op")
	}
	second, _ := v.Snapshot()
	if first.Version != second.Version || first.ChallengerScore != second.ChallengerScore {
		t.Fatalf("view changed on duplicate: %+v vs %+v", first, second)
	}

	if v.Apply(domain.Snapshot{ID: "m1", Version: 2}, local) {
		t.Fatalf("older version must be ignored")
	}
	if v.Apply(domain.Snapshot{ID: "m2", Version: 9}, local) {
		t.Fatalf("snapshot of another match must be ignored")
	}
	if !v.Apply(domain.Snapshot{ID: "m1", Version: 4}, local) {
		t.Fatalf("newer version should apply")
	}
}

func TestRemainingUsesServerClock(t *testing.T) {
	var v View
	server := local.Add(3 * time.Second) // local clock runs 3s behind
	deadline := server.Add(20 * time.Second)
	v.Apply(domain.Snapshot{ID: "m1", Version: 2, ServerTime: server, TurnDeadline: &deadline, TurnOwnerID: "alice"}, local)

	if got := v.Remaining(local); got != 20*time.Second {
		t.Fatalf("expected 20s left, got %v", got)
	}
	if got := v.Remaining(local.Add(time.Minute)); got != 0 {
		t.Fatalf("expired turn should report 0, got %v", got)
	}
	if !v.MyTurn("alice") || v.MyTurn("bob") {
		t.Fatalf("turn ownership wrong")
	}
}

func TestSummaryShowsSteal(t *testing.T) {
	var v View
	deadline := local.Add(20 * time.Second)
	v.Apply(domain.Snapshot{
		ID: "m1", Version: 5, Status: domain.StatusInProgress, Phase: domain.PhaseSecondResponderCanAnswer,
		ChallengerID: "alice", InvitedOpponentID: "bob", ChallengerScore: 1,
		CurrentQuestionIndex: 2, QuestionCount: 20, StealAuthorOnly: true, LockedBookListItemID: "bk-emma",
		TurnOwnerID: "bob", TurnDeadline: &deadline, ServerTime: local,
		LastAnswer: &domain.LastAnswer{ResponderID: "alice", PointsAwarded: 1},
	}, local)

	line := v.Summary(local)
	for _, want := range []string{"Q3/20", "steal on bk-emma", "turn=bob", "20s left", "last: alice +1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("summary %q missing %q", line, want)
		}
	}
}
