package memory

import "context"

// StaticRoster allows challenges against a fixed set of users. An empty
// roster lets anyone challenge anyone.
type StaticRoster struct {
	users map[string]struct{}
}

func NewStaticRoster(userIDs []string) *StaticRoster {
	users := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		users[id] = struct{}{}
	}
	return &StaticRoster{users: users}
}

func (r *StaticRoster) Eligible(_ context.Context, _, opponentID string) (bool, error) {
	if len(r.users) == 0 {
		return true, nil
	}
	_, ok := r.users[opponentID]
	return ok, nil
}
