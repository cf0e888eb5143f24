// Package client keeps a player's local picture of a match in sync with
// the snapshots the server pushes.
package client

import (
	"fmt"
	"strings"
	"time"

	"book-duel-service/internal/domain"
)

// View is the latest snapshot a client has applied. Snapshots carry the
// whole state, so applying one replaces everything; older or repeated
// versions are ignored.
type View struct {
	snap    domain.Snapshot
	applied bool
	// offset is server time minus local time at the last apply.
	offset time.Duration
}

// Apply folds snap into the view and reports whether it changed anything.
func (v *View) Apply(snap domain.Snapshot, localNow time.Time) bool {
	if v.applied && (snap.ID != v.snap.ID || snap.Version <= v.snap.Version) {
		return false
	}
	v.snap = snap
	v.applied = true
	if !snap.ServerTime.IsZero() {
		v.offset = snap.ServerTime.Sub(localNow)
	}
	return true
}

func (v *View) Snapshot() (domain.Snapshot, bool) {
	return v.snap, v.applied
}

// Remaining is how long the turn owner has left, on the server's clock.
func (v *View) Remaining(localNow time.Time) time.Duration {
	if !v.applied || v.snap.TurnDeadline == nil {
		return 0
	}
	left := v.snap.TurnDeadline.Sub(localNow.Add(v.offset))
	if left < 0 {
		return 0
	}
	return left
}

// MyTurn reports whether userID is expected to act now.
func (v *View) MyTurn(userID string) bool {
	return v.applied && v.snap.TurnOwnerID == userID
}

// Summary renders one status line for terminals.
func (v *View) Summary(localNow time.Time) string {
	if !v.applied {
		return "waiting for first snapshot"
	}
	s := v.snap
	var b strings.Builder
	fmt.Fprintf(&b, "[v%d] %s/%s %s %d - %d %s", s.Version, s.Status, s.Phase,
		s.ChallengerID, s.ChallengerScore, s.OpponentScore, s.InvitedOpponentID)

	switch s.Phase {
	case domain.PhaseQuestionShow, domain.PhaseSecondResponderCanAnswer:
		fmt.Fprintf(&b, " | Q%d/%d", s.CurrentQuestionIndex+1, s.QuestionCount)
		if s.StealAuthorOnly {
			fmt.Fprintf(&b, " steal on %s", s.LockedBookListItemID)
		}
		fmt.Fprintf(&b, " turn=%s %ds left", s.TurnOwnerID, int(v.Remaining(localNow).Round(time.Second)/time.Second))
	case domain.PhaseCancelled:
		fmt.Fprintf(&b, " | %s", s.CancelReason)
	}
	if la := s.LastAnswer; la != nil {
		fmt.Fprintf(&b, " | last: %s +%d", la.ResponderID, la.PointsAwarded)
		if la.TimedOut {
			b.WriteString(" (timeout)")
		}
	}
	return b.String()
}
